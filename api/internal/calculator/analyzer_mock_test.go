package calculator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"drawcal/api/internal/calculator"
	mock_calculator "drawcal/api/internal/mocks/calculator"
)

func TestAnalyzer_PassesRequestThrough(t *testing.T) {
	type ctxKey struct{}

	tests := []struct {
		name      string
		setupMock func(m *mock_calculator.MockTranscriber, ctx context.Context)
		want      []calculator.Record
		wantErr   bool
	}{
		{
			name: "answer is normalized",
			setupMock: func(m *mock_calculator.MockTranscriber, ctx context.Context) {
				m.EXPECT().
					Transcribe(ctx, []byte{1, 2, 3}, "image/png", calculator.Bindings{"x": "5"}).
					Return(`[{"expr": "x * 2", "result": 10, "assign": false}]`, nil).
					Times(1)
			},
			want: []calculator.Record{{Expr: "x * 2", Result: "10"}},
		},
		{
			name: "model error",
			setupMock: func(m *mock_calculator.MockTranscriber, ctx context.Context) {
				m.EXPECT().
					Transcribe(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return("", errors.New("deadline exceeded"))
			},
			want:    calculator.Fallback(calculator.ExprAPICallError, "deadline exceeded"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			model := mock_calculator.NewMockTranscriber(ctrl)
			ctx := context.WithValue(context.Background(), ctxKey{}, tt.name)
			tt.setupMock(model, ctx)

			got, err := calculator.NewAnalyzer(model, nil).Analyze(ctx, []byte{1, 2, 3}, "image/png", calculator.Bindings{"x": "5"})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
