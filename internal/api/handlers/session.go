package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matiasleandrokruk/promptlab/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/promptlab/internal/domain/session"
)

// SessionManager is the part of session.Manager the handler uses.
type SessionManager interface {
	Create(ctx context.Context, opts session.CreateOptions) *session.Session
	Get(id string) (*session.Session, bool)
	Delete(id string) bool
	IDs() []string
}

// SessionHandler serves /api/v1/sessions. With authentication on, a session
// belongs to the subject that created it and is invisible to everyone else.
type SessionHandler struct {
	manager SessionManager
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(m SessionManager) *SessionHandler {
	return &SessionHandler{manager: m}
}

// lookup returns the session when it exists and the caller may see it.
func (h *SessionHandler) lookup(r *http.Request, id string) (*session.Session, bool) {
	s, ok := h.manager.Get(id)
	if !ok || s.Owner() != ctxkeys.SubjectFrom(r.Context()) {
		return nil, false
	}
	return s, true
}

type createSessionRequest struct {
	HistoryMode string `json:"history_mode,omitempty"`
	Model       string `json:"model,omitempty"`
}

type sessionResponse struct {
	ID           string         `json:"id"`
	Owner        string         `json:"owner,omitempty"`
	HistoryMode  string         `json:"history_mode"`
	CreatedAt    time.Time      `json:"created_at"`
	Ended        bool           `json:"ended"`
	HasContext   bool           `json:"has_context"`
	ContextError string         `json:"context_error,omitempty"`
	Transcript   []session.Turn `json:"transcript"`
}

func toSessionResponse(s *session.Session) sessionResponse {
	resp := sessionResponse{
		ID:          s.ID(),
		Owner:       s.Owner(),
		HistoryMode: string(s.HistoryMode()),
		CreatedAt:   s.CreatedAt(),
		Ended:       s.Ended(),
		HasContext:  s.Context() != "",
		Transcript:  s.Transcript(),
	}
	if resp.Transcript == nil {
		resp.Transcript = []session.Turn{}
	}
	if err := s.ContextError(); err != nil {
		resp.ContextError = err.Error()
	}
	return resp
}

// Create handles POST /api/v1/sessions. The context is loaded before the
// response; a context failure is reported in context_error, not as an error.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := session.CreateOptions{Model: req.Model, Owner: ctxkeys.SubjectFrom(r.Context())}
	switch strings.ToLower(req.HistoryMode) {
	case "":
	case string(session.HistoryFull), string(session.HistoryContext):
		opts.HistoryMode = session.ParseHistoryMode(req.HistoryMode)
	default:
		writeError(w, http.StatusBadRequest, "history_mode must be full or context")
		return
	}
	s := h.manager.Create(r.Context(), opts)
	writeJSON(w, http.StatusCreated, toSessionResponse(s))
}

// List handles GET /api/v1/sessions: the ids of the caller's sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	subject := ctxkeys.SubjectFrom(r.Context())
	ids := []string{}
	for _, id := range h.manager.IDs() {
		if s, ok := h.manager.Get(id); ok && s.Owner() == subject {
			ids = append(ids, id)
		}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// Get handles GET /api/v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.lookup(r, id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

// Delete handles DELETE /api/v1/sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.lookup(r, id); !ok || !h.manager.Delete(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sendMessageRequest struct {
	Content string `json:"content"`
	Stream  bool   `json:"stream,omitempty"`
}

type messageResponse struct {
	Role    session.Role `json:"role,omitempty"`
	Content string       `json:"content,omitempty"`
	Ended   bool         `json:"ended,omitempty"`
}

type streamEvent struct {
	Delta   string `json:"delta,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendMessage handles POST /api/v1/sessions/{id}/messages. The exit keyword
// ends and removes the session without calling the provider.
func (h *SessionHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.lookup(r, id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	var req sendMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if session.IsExit(req.Content) {
		h.manager.Delete(id)
		writeJSON(w, http.StatusOK, messageResponse{Ended: true})
		return
	}
	if req.Stream {
		h.stream(w, r, s, req.Content)
		return
	}

	turn, err := s.Send(r.Context(), req.Content)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Role: turn.Role, Content: turn.Content})
}

func (h *SessionHandler) stream(w http.ResponseWriter, r *http.Request, s *session.Session, content string) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	turn, err := s.SendStream(r.Context(), content, func(fragment string) {
		_ = sse.send(streamEvent{Delta: fragment})
	})
	if err != nil {
		_ = sse.send(streamEvent{Error: err.Error()})
		return
	}
	_ = sse.send(streamEvent{Done: true, Content: turn.Content})
}
