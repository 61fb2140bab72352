package ocr

import (
	"drawcal/api/internal/calculator"
)

// Engine is a multimodal model backend able to read expressions from an image.
type Engine interface {
	calculator.Transcriber
	Name() string
	GetModel() string
}
