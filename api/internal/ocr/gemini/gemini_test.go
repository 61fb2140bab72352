package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawcal/api/internal/calculator"
)

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestFirstText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{name: "nil response", resp: nil, want: ""},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, want: ""},
		{name: "candidate without content", resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, want: ""},
		{name: "single part", resp: textResponse(genai.Text(`[{"expr":"1+1"}]`)), want: `[{"expr":"1+1"}]`},
		{name: "split parts are joined", resp: textResponse(genai.Text("[{\"expr\":"), genai.Text("\"2\"}]")), want: `[{"expr":"2"}]`},
		{
			name: "non-text parts are skipped",
			resp: textResponse(&genai.Blob{MIMEType: "image/png", Data: []byte{1}}, genai.Text("ok")),
			want: "ok",
		},
		{
			name: "falls through to a candidate with text",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{}},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("second")}}},
			}},
			want: "second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstText(tt.resp))
		})
	}
}

func TestEngine_Transcribe(t *testing.T) {
	var gotParts []genai.Part
	e := &Engine{
		Model: DefaultModel,
		generate: func(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
			gotParts = parts
			return textResponse(genai.Text("```json\n[]\n```")), nil
		},
	}

	out, err := e.Transcribe(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg", calculator.Bindings{"x": "5"})
	require.NoError(t, err)
	assert.Equal(t, "```json\n[]\n```", out)

	require.Len(t, gotParts, 2)
	instruction, ok := gotParts[0].(genai.Text)
	require.True(t, ok)
	assert.Contains(t, string(instruction), `Available variables: {"x":"5"}`)

	blob, ok := gotParts[1].(*genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", blob.MIMEType)
	assert.Equal(t, []byte{0xFF, 0xD8}, blob.Data)
}

func TestEngine_TranscribeError(t *testing.T) {
	e := &Engine{generate: func(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("googleapi: Error 429: quota")
	}}

	out, err := e.Transcribe(context.Background(), nil, "image/png", nil)
	require.EqualError(t, err, "googleapi: Error 429: quota")
	assert.Empty(t, out)
}

func TestEngine_Meta(t *testing.T) {
	e := &Engine{Model: "gemini-2.5-flash"}
	assert.Equal(t, "gemini", e.Name())
	assert.Equal(t, "gemini-2.5-flash", e.GetModel())
	assert.NoError(t, e.Close())
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), "  ", "")
	require.EqualError(t, err, "GEMINI_API_KEY is empty")
}
