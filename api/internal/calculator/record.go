// Package calculator turns the free-text answer of a multimodal model into
// an ordered list of result records.
//
// The pipeline is Sanitize -> Assemble (which applies FormatResult to every
// result). Each stage is total: any input yields a displayable output, and a
// pipeline run never returns an empty list.
package calculator

// Record is one transcribed expression with its evaluated result.
type Record struct {
	Expr   string `json:"expr"`
	Result string `json:"result"`
	Assign bool   `json:"assign"`
}

const retryHint = "Please try again"

// Fallback expressions emitted when a stage cannot produce real results.
const (
	ExprNoResponse      = "No response"
	ExprEmptyResponse   = "Empty response"
	ExprInvalidFormat   = "Invalid response format"
	ExprNoValidResults  = "No valid results found"
	ExprAPICallError    = "Error in API call"
	ExprProcessingError = "Error"
)

// Fallback builds a single-record result list.
func Fallback(expr, result string) []Record {
	return []Record{{Expr: expr, Result: result, Assign: false}}
}

// ErrorRecords wraps an error message into the generic processing-error record.
func ErrorRecords(err error) []Record {
	return Fallback(ExprProcessingError, err.Error())
}
