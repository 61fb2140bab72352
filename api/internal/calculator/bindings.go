package calculator

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Bindings maps a variable name to a previously assigned value (string or number).
type Bindings map[string]any

// JSON serializes the bindings for the model prompt. Keys are sorted and
// non-ASCII text is kept as is.
func (b Bindings) JSON() (string, error) {
	if b == nil {
		b = Bindings{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(b)); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Value turns user-typed text into a binding value: a JSON number literal
// becomes json.Number, anything else stays a string.
func Value(text string) any {
	text = strings.TrimSpace(text)
	if text == "" || !json.Valid([]byte(text)) {
		return text
	}
	if c := text[0]; c == '-' || (c >= '0' && c <= '9') {
		return json.Number(text)
	}
	return text
}

// With returns a copy of b extended with every assignment record.
// The variable name is the left side of "=" in the expression, or the whole
// expression when there is no "=". b itself is left untouched.
func (b Bindings) With(records []Record) Bindings {
	out := make(Bindings, len(b)+len(records))
	for k, v := range b {
		out[k] = v
	}
	for _, r := range records {
		if !r.Assign {
			continue
		}
		name := r.Expr
		if i := strings.Index(name, "="); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out[name] = r.Result
	}
	return out
}
