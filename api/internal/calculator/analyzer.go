package calculator

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

//go:generate mockgen -source=analyzer.go -destination=../mocks/calculator/mock_transcriber.go -package=mock_calculator Transcriber

// Transcriber asks an external model to read and evaluate the expressions
// in an image. It returns the model's raw text, or "" when there was none.
type Transcriber interface {
	Transcribe(ctx context.Context, image []byte, mime string, vars Bindings) (string, error)
}

// Analyzer runs one image through the model and the normalization pipeline.
type Analyzer struct {
	Model  Transcriber
	Logger *zap.Logger
}

func NewAnalyzer(model Transcriber, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{Model: model, Logger: logger}
}

// Analyze always returns at least one record. When the model call itself
// fails, the records carry the error text and the error is returned as well
// so the caller can flag the response.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, mime string, vars Bindings) ([]Record, error) {
	raw, err := a.Model.Transcribe(ctx, image, mime, vars)
	if err != nil {
		a.Logger.Error("model call failed", zap.Error(err))
		return Fallback(ExprAPICallError, err.Error()), err
	}
	a.Logger.Debug("raw model response", zap.String("text", raw))

	cleaned := Sanitize(raw)
	a.Logger.Debug("sanitized model response", zap.String("text", cleaned))

	records := Assemble(cleaned)
	for _, r := range records {
		if suspectDroppedDecimal(r.Expr) {
			a.Logger.Debug("expression has no decimal point, the model may have dropped one",
				zap.String("expr", r.Expr))
		}
	}
	return records, nil
}

func suspectDroppedDecimal(expr string) bool {
	if strings.Contains(expr, ".") {
		return false
	}
	return strings.IndexFunc(expr, unicode.IsDigit) >= 0
}
