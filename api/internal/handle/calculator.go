package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"drawcal/api/internal/calculator"
	"drawcal/api/internal/util"
)

type processReq struct {
	Image      string         `json:"image" validate:"required"`
	DictOfVars map[string]any `json:"dict_of_vars"`
}

// ProcessResponse is the envelope of /calculator/process.
type ProcessResponse struct {
	Message string              `json:"message"`
	Type    string              `json:"type"`
	Data    []calculator.Record `json:"data"`
}

func NewProcessResponse(records []calculator.Record, failed bool) ProcessResponse {
	if failed {
		return ProcessResponse{Message: msgError, Type: "error", Data: records}
	}
	return ProcessResponse{Message: msgSuccess, Type: "success", Data: records}
}

const (
	msgSuccess = "Image Processor"
	msgError   = "Error processing image"
)

// Process answers with HTTP 200 in every case; failures are reported through
// type "error" and a record carrying the message.
func (h *Handle) Process(w http.ResponseWriter, r *http.Request) {
	var req processReq
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.processFailed(w, calculator.Fallback(calculator.ExprProcessingError,
				fmt.Sprintf("request body too large: limit is %d bytes", tooLarge.Limit)))
			return
		}
		h.processFailed(w, calculator.Fallback(calculator.ExprProcessingError, "bad json: "+err.Error()))
		return
	}
	if msg, ok := h.check(req); !ok {
		h.processFailed(w, calculator.Fallback(calculator.ExprProcessingError, msg))
		return
	}

	img, mime, err := util.DecodeImage(req.Image)
	if err != nil {
		h.processFailed(w, calculator.ErrorRecords(err))
		return
	}
	h.logger.Info("process image",
		zap.String("mime", mime),
		zap.Int("bytes", len(img)),
		zap.Int("vars", len(req.DictOfVars)),
	)

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	records, err := h.analyzer.Analyze(ctx, img, mime, calculator.Bindings(req.DictOfVars))
	if err != nil {
		h.processFailed(w, records)
		return
	}
	writeJSON(w, http.StatusOK, NewProcessResponse(records, false))
}

func (h *Handle) processFailed(w http.ResponseWriter, records []calculator.Record) {
	h.logger.Warn("process failed", zap.String("expr", records[0].Expr), zap.String("result", records[0].Result))
	writeJSON(w, http.StatusOK, NewProcessResponse(records, true))
}

// deadline honours an X-Request-Timeout header (seconds) or a timeoutSec
// query parameter, falling back to the configured timeout.
func (h *Handle) deadline(r *http.Request) time.Duration {
	for _, s := range []string{r.Header.Get("X-Request-Timeout"), r.URL.Query().Get("timeoutSec")} {
		if s == "" {
			continue
		}
		if v, _ := strconv.Atoi(s); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return h.timeout
}
