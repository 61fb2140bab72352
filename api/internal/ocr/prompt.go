package ocr

import (
	"fmt"
	"strings"

	"drawcal/api/internal/calculator"
)

var instructionHead = []string{
	"You are a mathematical expression analyzer that handles all types of calculations including decimal and non-decimal numbers. Your task is to analyze the provided image and return a JSON response.",
	"Rules:",
	"1. Return ONLY a JSON array containing one or more objects",
	"2. Each object must have these exact keys: 'expr', 'result', 'assign'",
	"3. Use double quotes for all keys and string values",
	"4. Number Handling Rules:",
	"   - For decimal numbers:",
	"     * PRESERVE ALL DECIMAL POINTS exactly as shown in the image",
	"     * DO NOT merge digits across decimal points",
	"     * Example: '44.55' is forty-four point fifty-five, NOT four-thousand four-hundred fifty-five",
	"     * Example: '3.14' is three point fourteen, NOT three-hundred fourteen",
	"   - For whole numbers:",
	"     * Handle them as exact integers",
	"     * Example: '42' remains as '42' (no decimal places)",
	"5. For mathematical expressions:",
	"   - Handle both decimal and non-decimal numbers appropriately",
	"   - Treat decimal points as mathematical decimal separators",
	"   - Calculate with full precision",
	"   - Example: '44.55 + 55.33' = '99.880'",
	"   - Example: '42 + 58' = '100' (no decimal places for whole numbers)",
	"6. For results:",
	"   - For decimal results:",
	"     * Always show at least 3 decimal places",
	"     * Use up to 6 decimal places for division",
	"     * Never remove significant decimal places",
	"   - For whole number results:",
	"     * Show without decimal places (e.g., '42' instead of '42.000')",
	"7. For variable assignments (like x = 5), set assign to true",
}

var instructionTail = []string{
	"",
	"Correct Examples:",
	`[{"expr": "44.55 + 55.33", "result": "99.880", "assign": false}]`,
	`[{"expr": "42 + 58", "result": "100", "assign": false}]`,
	`[{"expr": "3.14159", "result": "3.142", "assign": false}]`,
	`[{"expr": "10.0 / 3.0", "result": "3.333333", "assign": false}]`,
	`[{"expr": "x = 5", "result": "5", "assign": true}]`,
	"",
	"Incorrect Examples (DO NOT DO THIS):",
	`{"expr": "44.55", "result": "4455"}  // WRONG - the decimal point was dropped`,
	`{"expr": "3.14", "result": "314"}    // WRONG - the decimal point was dropped`,
	`{"expr": "42", "result": "42.000"}   // WRONG - whole numbers should not have decimal places`,
	"",
	"Now analyze the image, being careful to handle both decimal and non-decimal numbers appropriately, and return your response in the exact format shown above.",
}

// BuildInstruction renders the fixed instruction block with the caller's
// variable bindings embedded as JSON.
func BuildInstruction(vars calculator.Bindings) (string, error) {
	js, err := vars.JSON()
	if err != nil {
		return "", fmt.Errorf("encode variables: %w", err)
	}
	lines := make([]string, 0, len(instructionHead)+len(instructionTail)+1)
	lines = append(lines, instructionHead...)
	lines = append(lines, "8. Available variables: "+js)
	lines = append(lines, instructionTail...)
	return strings.Join(lines, "\n"), nil
}
