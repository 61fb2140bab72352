package handle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawcal/api/internal/calculator"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}

type stubModel struct {
	out      string
	err      error
	gotVars  calculator.Bindings
	gotMIME  string
	deadline time.Duration
}

func (s *stubModel) Transcribe(ctx context.Context, _ []byte, mime string, vars calculator.Bindings) (string, error) {
	s.gotVars, s.gotMIME = vars, mime
	if d, ok := ctx.Deadline(); ok {
		s.deadline = time.Until(d)
	}
	return s.out, s.err
}

func doProcess(t *testing.T, model *stubModel, body string, header http.Header) ProcessResponse {
	t.Helper()
	h := New(Options{Analyzer: calculator.NewAnalyzer(model, nil)})

	req := httptest.NewRequest(http.MethodPost, "/calculator/process", strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.Process(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func dataURI(mime string, b []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
}

func TestProcess_Success(t *testing.T) {
	model := &stubModel{out: "```json\n[{'expr': 'x', 'result': 5, 'assign': True}, {\"expr\": \"x + 1\", \"result\": \"6\", \"assign\": false}]\n```"}
	body := `{"image":"` + dataURI("image/png", pngBytes) + `","dict_of_vars":{"y":2.50,"name":"z"}}`

	resp := doProcess(t, model, body, nil)

	assert.Equal(t, "Image Processor", resp.Message)
	assert.Equal(t, "success", resp.Type)
	assert.Equal(t, []calculator.Record{
		{Expr: "x", Result: "5", Assign: true},
		{Expr: "x + 1", Result: "6", Assign: false},
	}, resp.Data)
	assert.Equal(t, "image/png", model.gotMIME)
	assert.Equal(t, calculator.Bindings{"y": json.Number("2.50"), "name": "z"}, model.gotVars)
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name       string
		model      *stubModel
		body       string
		wantExpr   string
		wantResult string
	}{
		{
			name:       "model failure",
			model:      &stubModel{err: errors.New("googleapi: Error 429: quota")},
			body:       `{"image":"` + dataURI("image/png", pngBytes) + `"}`,
			wantExpr:   "Error in API call",
			wantResult: "googleapi: Error 429: quota",
		},
		{
			name:       "bad json",
			model:      &stubModel{},
			body:       `{"image":`,
			wantExpr:   "Error",
			wantResult: "bad json: unexpected EOF",
		},
		{
			name:       "missing image",
			model:      &stubModel{},
			body:       `{"dict_of_vars":{}}`,
			wantExpr:   "Error",
			wantResult: "image is a required field",
		},
		{
			name:       "not base64",
			model:      &stubModel{},
			body:       `{"image":"data:image/png;base64,%%%"}`,
			wantExpr:   "Error",
			wantResult: "bad base64 image: illegal base64 data at input byte 0",
		},
		{
			name:       "unsupported type",
			model:      &stubModel{},
			body:       `{"image":"` + dataURI("image/gif", []byte("GIF89a")) + `"}`,
			wantExpr:   "Error",
			wantResult: `unsupported image type "image/gif"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doProcess(t, tt.model, tt.body, nil)

			assert.Equal(t, "Error processing image", resp.Message)
			assert.Equal(t, "error", resp.Type)
			assert.Equal(t, []calculator.Record{{Expr: tt.wantExpr, Result: tt.wantResult}}, resp.Data)
		})
	}
}

func TestProcess_BodyTooLarge(t *testing.T) {
	model := &stubModel{out: `[]`}
	h := New(Options{Analyzer: calculator.NewAnalyzer(model, nil), MaxBodyBytes: 64})

	body := `{"image":"` + dataURI("image/png", make([]byte, 256)) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/calculator/process", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Process(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Type)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "request body too large: limit is 64 bytes", resp.Data[0].Result)
	assert.Nil(t, model.gotVars)
}

func TestNew_DefaultBodyLimit(t *testing.T) {
	assert.Equal(t, int64(32<<20), New(Options{}).maxBody)
}

func TestProcess_ModelGarbageIsStillSuccess(t *testing.T) {
	resp := doProcess(t, &stubModel{out: "I could not read that"}, `{"image":"`+dataURI("image/png", pngBytes)+`"}`, nil)

	assert.Equal(t, "success", resp.Type)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Invalid response format", resp.Data[0].Expr)
}

func TestProcess_Deadline(t *testing.T) {
	body := `{"image":"` + base64.StdEncoding.EncodeToString(pngBytes) + `"}`

	model := &stubModel{out: "[]"}
	doProcess(t, model, body, http.Header{"X-Request-Timeout": []string{"2"}})
	assert.Greater(t, model.deadline, time.Duration(0))
	assert.LessOrEqual(t, model.deadline, 2*time.Second)

	model = &stubModel{out: "[]"}
	doProcess(t, model, body, nil)
	assert.Greater(t, model.deadline, 170*time.Second)
}
