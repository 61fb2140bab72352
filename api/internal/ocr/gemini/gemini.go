package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"drawcal/api/internal/calculator"
	"drawcal/api/internal/ocr"
)

const DefaultModel = "gemini-1.5-flash"

type generateFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// Engine talks to Gemini through a client handle created once in New.
type Engine struct {
	Model string

	client   *genai.Client
	generate generateFunc
}

var _ ocr.Engine = (*Engine)(nil)

// New connects to Gemini. Extra client options (endpoint, HTTP client) are
// appended after the API key.
func New(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}

	cl, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}

	m := cl.GenerativeModel(model)
	if m == nil {
		_ = cl.Close()
		return nil, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}

	return &Engine{
		Model:    model,
		client:   cl,
		generate: m.GenerateContent,
	}, nil
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

// Transcribe sends the instruction block and the image in one request and
// returns the model's text. No retries: a failed call is final.
func (e *Engine) Transcribe(ctx context.Context, image []byte, mime string, vars calculator.Bindings) (string, error) {
	instruction, err := ocr.BuildInstruction(vars)
	if err != nil {
		return "", err
	}

	parts := []genai.Part{
		genai.Text(instruction),
		&genai.Blob{MIMEType: mime, Data: image},
	}

	resp, err := e.generate(ctx, parts...)
	if err != nil {
		return "", err
	}
	return firstText(resp), nil
}

// firstText joins the text parts of the first candidate that has content.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
