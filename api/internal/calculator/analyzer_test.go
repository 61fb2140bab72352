package calculator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTranscriber struct {
	text string
	err  error

	gotImage []byte
	gotMIME  string
	gotVars  Bindings
}

func (f *fakeTranscriber) Transcribe(_ context.Context, image []byte, mime string, vars Bindings) (string, error) {
	f.gotImage, f.gotMIME, f.gotVars = image, mime, vars
	return f.text, f.err
}

func TestAnalyzer_Analyze(t *testing.T) {
	tests := []struct {
		name    string
		model   *fakeTranscriber
		want    []Record
		wantErr bool
	}{
		{
			name:  "fenced answer",
			model: &fakeTranscriber{text: "```json\n[{\"expr\": \"10.0 / 3.0\", \"result\": \"3.333333\", \"assign\": false}]\n```"},
			want:  []Record{{Expr: "10.0 / 3.0", Result: "3.333333"}},
		},
		{
			name:  "python style answer",
			model: &fakeTranscriber{text: "[{'expr': 'x = 5', 'result': '5', 'assign': True}]"},
			want:  []Record{{Expr: "x = 5", Result: "5", Assign: true}},
		},
		{
			name:  "empty answer",
			model: &fakeTranscriber{text: ""},
			want:  Fallback(ExprNoResponse, "Please try again"),
		},
		{
			name:    "model failure",
			model:   &fakeTranscriber{err: errors.New("quota exceeded")},
			want:    Fallback(ExprAPICallError, "quota exceeded"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(tt.model, zap.NewNop())
			vars := Bindings{"x": "5"}

			got, err := a.Analyze(context.Background(), []byte{1, 2, 3}, "image/png", vars)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []byte{1, 2, 3}, tt.model.gotImage)
			assert.Equal(t, "image/png", tt.model.gotMIME)
			assert.Equal(t, vars, tt.model.gotVars)
		})
	}
}

func TestNewAnalyzer_NilLogger(t *testing.T) {
	a := NewAnalyzer(&fakeTranscriber{text: "[]"}, nil)
	got, err := a.Analyze(context.Background(), nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, Fallback(ExprNoValidResults, "Please try again"), got)
}

func TestSuspectDroppedDecimal(t *testing.T) {
	assert.True(t, suspectDroppedDecimal("4455 + 1"))
	assert.False(t, suspectDroppedDecimal("44.55 + 1"))
	assert.False(t, suspectDroppedDecimal("x + y"))
}
