package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawcal/api/internal/calculator"
	"drawcal/api/internal/handle"
)

func TestParseVars(t *testing.T) {
	got, err := parseVars([]string{"x=5", " y = 2.5 ", "name=Bob = Jr", "empty=", "h=.5", "i=inf", "n=NaN"})
	require.NoError(t, err)
	assert.Equal(t, calculator.Bindings{
		"x":     json.Number("5"),
		"y":     json.Number("2.5"),
		"name":  "Bob = Jr",
		"empty": "",
		"h":     ".5",
		"i":     "inf",
		"n":     "NaN",
	}, got)

	raw, err := got.JSON()
	require.NoError(t, err)
	assert.Contains(t, raw, `"h":".5"`)

	for _, bad := range []string{"x", "=5"} {
		_, err := parseVars([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseVars_None(t *testing.T) {
	got, err := parseVars(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteEnvelope(t *testing.T) {
	resp := handle.NewProcessResponse([]calculator.Record{{Expr: "x", Result: "5", Assign: true}}, false)

	var buf bytes.Buffer
	require.NoError(t, writeEnvelope(&buf, resp, "json"))
	assert.JSONEq(t, `{"message":"Image Processor","type":"success","data":[{"expr":"x","result":"5","assign":true}]}`, buf.String())

	buf.Reset()
	require.NoError(t, writeEnvelope(&buf, resp, "yaml"))
	assert.Equal(t, `message: Image Processor
type: success
data:
  - expr: x
    result: "5"
    assign: true
`, buf.String())
}
