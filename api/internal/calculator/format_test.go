package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatResult(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "42", want: "42"},
		{in: "42.000", want: "42"},
		{in: "42.0", want: "42"},
		{in: "-7.00", want: "-7"},
		{in: "-0.0", want: "0"},
		{in: " 7 ", want: "7"},
		{in: "1e20", want: "100000000000000000000"},
		{in: "1.2", want: "1.200"},
		{in: "99.88", want: "99.880"},
		{in: "-0.5", want: "-0.500"},
		{in: "3.142", want: "3.142"},
		{in: "3.14159", want: "3.14159"},
		{in: "1e-3", want: "0.001"},
		{in: "undefined", want: "undefined"},
		{in: "", want: ""},
		{in: "1/3", want: "1/3"},
		{in: "Division by zero", want: "Division by zero"},
		{in: "NaN", want: "NaN"},
		{in: "Infinity", want: "Infinity"},
		{in: "0x1p-2", want: "0x1p-2"},
		{in: "0X10", want: "0X10"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatResult(tt.in))
		})
	}
}

func TestFormatResultAs_Division(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "3.333333000", want: "3.333333"},
		{in: "3.3", want: "3.3"},
		{in: "0.33", want: "0.33"},
		{in: "2.50", want: "2.5"},
		{in: "0.1234567", want: "0.1234567"},
		{in: "3.33333", want: "3.33333"},
		{in: "6.0", want: "6"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatResultAs(tt.in, true))
		})
	}
}

func TestFormatResultAs_NoDivision(t *testing.T) {
	assert.Equal(t, "2.500", FormatResultAs("2.5", false))
	assert.Equal(t, "0.333333", FormatResultAs("0.333333", false))
}

func TestFormatResult_IntegerIsIdempotent(t *testing.T) {
	for _, in := range []string{"0", "1", "42", "-15", "1000000"} {
		once := FormatResult(in)
		assert.Equal(t, in, once)
		assert.Equal(t, once, FormatResult(once))
	}
}
