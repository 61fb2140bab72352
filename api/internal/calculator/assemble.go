package calculator

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var reArraySpan = regexp.MustCompile(`(?s)\[.*\]`)

var (
	errInvalidJSON = errors.New("invalid JSON")
	errNoArraySpan = errors.New("no array span")
)

// decodeStep is one attempt at turning sanitized text into a JSON value.
type decodeStep struct {
	name   string
	decode func(s string) (any, error)
}

// parseSteps is the fallback order; the first step that succeeds wins.
var parseSteps = []decodeStep{
	{name: "whole", decode: decodeJSON},
	{name: "array-span", decode: decodeArraySpan},
}

// ParseSteps reports the names of the decode attempts in the order they run.
func ParseSteps() []string {
	names := make([]string, 0, len(parseSteps))
	for _, st := range parseSteps {
		names = append(names, st.name)
	}
	return names
}

func decodeJSON(s string) (any, error) {
	if !json.Valid([]byte(s)) {
		return nil, errInvalidJSON
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeArraySpan(s string) (any, error) {
	span := reArraySpan.FindString(s)
	if span == "" {
		return nil, errNoArraySpan
	}
	return decodeJSON(span)
}

func parse(s string) (any, bool) {
	for _, st := range parseSteps {
		if v, err := st.decode(s); err == nil {
			return v, true
		}
	}
	return nil, false
}

// Assemble parses sanitized text into records. It never fails: unparseable
// input and input without usable elements both yield a single fallback record.
// Elements that are not objects are dropped without affecting their siblings.
func Assemble(sanitized string) []Record {
	v, ok := parse(sanitized)
	if !ok {
		return Fallback(ExprInvalidFormat, retryHint)
	}

	items, isList := v.([]any)
	if !isList {
		items = []any{v}
	}

	out := make([]Record, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Record{
			Expr:   textOf(obj["expr"]),
			Result: FormatResult(textOf(obj["result"])),
			Assign: truthy(obj["assign"]),
		})
	}
	if len(out) == 0 {
		return Fallback(ExprNoValidResults, retryHint)
	}
	return out
}

// textOf renders a decoded JSON value as display text. Numbers keep the
// literal text the model wrote.
func textOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return ""
		}
		return strings.TrimSpace(buf.String())
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil && b
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return false
	}
}
