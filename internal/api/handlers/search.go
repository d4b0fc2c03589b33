package handlers

import (
	"context"
	"net/http"

	"github.com/matiasleandrokruk/promptlab/internal/domain/knowledge"
)

// Searcher is the part of knowledge.Index the handler uses.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]knowledge.Match, error)
}

// SearchHandler serves POST /api/v1/search.
type SearchHandler struct {
	searcher Searcher
}

// NewSearchHandler creates a SearchHandler. s may be nil when no document
// was indexed; every search then answers 503.
func NewSearchHandler(s Searcher) *SearchHandler {
	return &SearchHandler{searcher: s}
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

type searchResultItem struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Source     string  `json:"source,omitempty"`
	Page       int     `json:"page,omitempty"`
	StartIndex int     `json:"start_index"`
	Score      float32 `json:"score"`
}

type searchResponse struct {
	Query   string             `json:"query"`
	Results []searchResultItem `json:"results"`
}

// Search returns the k chunks closest to the query (k defaults to 4).
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "no document indexed; start the server with PDF_PATH set")
		return
	}
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	matches, err := h.searcher.SimilaritySearch(r.Context(), req.Query, req.K)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	resp := searchResponse{Query: req.Query, Results: make([]searchResultItem, 0, len(matches))}
	for _, m := range matches {
		resp.Results = append(resp.Results, searchResultItem{
			ID:         m.ID,
			Content:    m.Document.Content,
			Source:     m.Document.Source,
			Page:       m.Document.Page,
			StartIndex: m.Document.StartIndex,
			Score:      m.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
