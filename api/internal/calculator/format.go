package calculator

import (
	"math"
	"strconv"
	"strings"
)

const (
	divisionPrecision = 6
	defaultPrecision  = 3
)

// FormatResult normalizes the decimal representation of a numeric result.
// Non-numeric text passes through unchanged.
//
// Division context is detected from operator symbols in the result text
// itself. A string carrying such a symbol rarely parses as a number, so
// callers that know the operation should use FormatResultAs.
func FormatResult(text string) string {
	return FormatResultAs(text, hasDivisionMarker(text))
}

// FormatResultAs applies the display policy with an explicit division context:
//   - exact integers render without a decimal point;
//   - decimals in division context get up to 6 places, trailing zeros stripped;
//   - other decimals get at least 3 places;
//   - fractional values written without a point (1e-3) get 6 or 3 places.
func FormatResultAs(text string, division bool) string {
	trimmed := strings.TrimSpace(text)
	if strings.ContainsAny(trimmed, "xX") {
		return text
	}
	num, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
		return text
	}

	if num == math.Trunc(num) {
		if num == 0 {
			return "0"
		}
		return strconv.FormatFloat(num, 'f', 0, 64)
	}

	if strings.Contains(text, ".") {
		decimals := len(strings.SplitN(text, ".", 3)[1])
		switch {
		case division && decimals < divisionPrecision:
			return trimZeros(strconv.FormatFloat(num, 'f', divisionPrecision, 64))
		case division:
			return trimZeros(strings.TrimSpace(text))
		case decimals < defaultPrecision:
			return strconv.FormatFloat(num, 'f', defaultPrecision, 64)
		default:
			return text
		}
	}

	if strings.Contains(text, "/") {
		return strconv.FormatFloat(num, 'f', divisionPrecision, 64)
	}
	return strconv.FormatFloat(num, 'f', defaultPrecision, 64)
}

func hasDivisionMarker(text string) bool {
	return strings.ContainsAny(text, "/*×÷")
}

func trimZeros(s string) string {
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
