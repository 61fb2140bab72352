package telegram

import (
	"fmt"
	"sort"
	"strings"

	"drawcal/api/internal/calculator"
)

var fallbackExprs = map[string]bool{
	calculator.ExprNoResponse:      true,
	calculator.ExprEmptyResponse:   true,
	calculator.ExprInvalidFormat:   true,
	calculator.ExprNoValidResults:  true,
	calculator.ExprAPICallError:    true,
	calculator.ExprProcessingError: true,
}

// FormatRecords renders one line per record. Assignments are marked,
// pipeline fallbacks are shown as warnings.
func FormatRecords(records []calculator.Record) string {
	var sb strings.Builder
	for i, rec := range records {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch {
		case fallbackExprs[rec.Expr]:
			fmt.Fprintf(&sb, "⚠️ %s: %s", rec.Expr, rec.Result)
		case rec.Assign && strings.Contains(rec.Expr, "="):
			fmt.Fprintf(&sb, "📌 %s (saved)", rec.Expr)
		case rec.Assign:
			fmt.Fprintf(&sb, "📌 %s = %s (saved)", rec.Expr, rec.Result)
		default:
			fmt.Fprintf(&sb, "%s = %s", rec.Expr, rec.Result)
		}
	}
	return truncate(sb.String(), maxMessage)
}

func FormatVars(vars calculator.Bindings) string {
	if len(vars) == 0 {
		return "No variables yet. Write an assignment like x = 5 or use /set x 5."
	}
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Variables:")
	for _, k := range names {
		fmt.Fprintf(&sb, "\n%s = %v", k, vars[k])
	}
	return truncate(sb.String(), maxMessage)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
