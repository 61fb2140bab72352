package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"drawcal/api/internal/calculator"
)

func TestFormatRecords(t *testing.T) {
	tests := []struct {
		name    string
		records []calculator.Record
		want    string
	}{
		{
			name:    "plain",
			records: []calculator.Record{{Expr: "2 + 3 * 4", Result: "14"}},
			want:    "2 + 3 * 4 = 14",
		},
		{
			name: "assignments",
			records: []calculator.Record{
				{Expr: "x", Result: "5", Assign: true},
				{Expr: "y = 2", Result: "2", Assign: true},
				{Expr: "x * y", Result: "10"},
			},
			want: "📌 x = 5 (saved)\n📌 y = 2 (saved)\nx * y = 10",
		},
		{
			name:    "fallback",
			records: calculator.Fallback(calculator.ExprInvalidFormat, "Please try again"),
			want:    "⚠️ Invalid response format: Please try again",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRecords(tt.records))
		})
	}
}

func TestFormatRecords_Truncates(t *testing.T) {
	long := calculator.Record{Expr: strings.Repeat("√", 5000), Result: "1"}
	out := FormatRecords([]calculator.Record{long})

	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, maxMessage+1, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, "…"))
}

func TestFormatVars(t *testing.T) {
	assert.Contains(t, FormatVars(nil), "No variables yet")
	assert.Equal(t, "Variables:\na = hello\nb = 2.5", FormatVars(calculator.Bindings{"b": 2.5, "a": "hello"}))
}
