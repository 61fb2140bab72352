package calculator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reFencedBlock  = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	reFenceMarker  = regexp.MustCompile("```\\w*")
	reSingleQuoted = regexp.MustCompile(`'([^']*)'`)
	reBareKey      = regexp.MustCompile(`([\p{L}\p{N}_]+):`)
	reTrue         = regexp.MustCompile(`\bTrue\b`)
	reFalse        = regexp.MustCompile(`\bFalse\b`)
	reNone         = regexp.MustCompile(`\bNone\b`)
	reWhitespace   = regexp.MustCompile(`\s+`)
	reStray        = regexp.MustCompile(`[^\[\]{}"'\p{L}\p{N}_\s:,+\-*/=().]`)
)

// placeholder renders a one-record JSON array used when there is nothing to sanitize.
func placeholder(expr string) string {
	return fmt.Sprintf(`[{"expr": %q, "result": %q, "assign": false}]`, expr, retryHint)
}

// Sanitize repairs near-JSON model output into best-effort JSON text.
//
// The substitutions are heuristics: an apostrophe inside a single-quoted value
// or a colon inside a string value ("12:30") is rewritten as well. The output
// is not guaranteed to parse; Assemble handles that.
func Sanitize(raw string) string {
	if raw == "" {
		return placeholder(ExprNoResponse)
	}

	s := raw
	if m := reFencedBlock.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = reFenceMarker.ReplaceAllString(s, "")

	s = strings.TrimSpace(s)
	if s == "" {
		return placeholder(ExprEmptyResponse)
	}

	if !strings.HasPrefix(s, "[") && !strings.HasPrefix(s, "{") {
		s = "[" + s + "]"
	}

	s = reSingleQuoted.ReplaceAllString(s, `"${1}"`)
	s = reBareKey.ReplaceAllString(s, `"${1}":`)

	s = reTrue.ReplaceAllString(s, "true")
	s = reFalse.ReplaceAllString(s, "false")
	s = reNone.ReplaceAllString(s, "null")

	s = reWhitespace.ReplaceAllString(s, " ")
	return reStray.ReplaceAllString(s, "")
}
