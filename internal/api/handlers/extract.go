package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/matiasleandrokruk/promptlab/internal/domain/extract"
)

// Extractor is the part of extract.Analyzer the handler uses.
type Extractor interface {
	Classify(ctx context.Context, text string) (*extract.Classification, error)
	Analyze(ctx context.Context, text string) (*extract.FullAnalysis, error)
}

// ExtractHandler serves POST /api/v1/extract.
type ExtractHandler struct {
	analyzer Extractor
}

// NewExtractHandler creates an ExtractHandler.
func NewExtractHandler(a Extractor) *ExtractHandler {
	return &ExtractHandler{analyzer: a}
}

type extractRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode,omitempty"` // classify (default) or analyze
}

// Extract classifies the text, or with mode "analyze" also extracts the
// people it mentions. A reply that fails schema validation is a 422.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	var (
		result any
		err    error
	)
	switch req.Mode {
	case "", "classify":
		result, err = h.analyzer.Classify(r.Context(), req.Text)
	case "analyze":
		result, err = h.analyzer.Analyze(r.Context(), req.Text)
	default:
		writeError(w, http.StatusBadRequest, "mode must be classify or analyze")
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
