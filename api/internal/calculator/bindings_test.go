package calculator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindings_With(t *testing.T) {
	base := Bindings{"a": 1.0}
	got := base.With([]Record{
		{Expr: "x = 5", Result: "5", Assign: true},
		{Expr: "y", Result: "2.500", Assign: true},
		{Expr: "x + 1", Result: "6"},
		{Expr: " = 3", Result: "3", Assign: true},
	})

	assert.Equal(t, Bindings{"a": 1.0, "x": "5", "y": "2.500"}, got)
	assert.Equal(t, Bindings{"a": 1.0}, base)
}

func TestBindings_WithOnNil(t *testing.T) {
	var b Bindings
	got := b.With([]Record{{Expr: "z=1", Result: "1", Assign: true}})
	assert.Equal(t, Bindings{"z": "1"}, got)
}

func TestBindings_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   Bindings
		want string
	}{
		{name: "nil", in: nil, want: `{}`},
		{name: "sorted keys", in: Bindings{"y": 2, "x": "5"}, want: `{"x":"5","y":2}`},
		{name: "no escaping", in: Bindings{"π": "<3.14>"}, want: `{"π":"<3.14>"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.JSON()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{in: "5", want: json.Number("5")},
		{in: " -2.5 ", want: json.Number("-2.5")},
		{in: "1e3", want: json.Number("1e3")},
		{in: ".5", want: ".5"},
		{in: "5.", want: "5."},
		{in: "inf", want: "inf"},
		{in: "NaN", want: "NaN"},
		{in: "1_000", want: "1_000"},
		{in: "0x10", want: "0x10"},
		{in: "true", want: "true"},
		{in: "Bob", want: "Bob"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Value(tt.in)
			assert.Equal(t, tt.want, got)

			_, err := Bindings{"x": got}.JSON()
			require.NoError(t, err)
		})
	}
}
