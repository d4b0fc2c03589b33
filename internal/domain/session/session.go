package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/promptlab/internal/infra/eventbus"
	"github.com/matiasleandrokruk/promptlab/internal/infra/llm"
)

// ErrEnded is returned by Send and SendStream after End.
var ErrEnded = errors.New("session: ended")

// Config carries the per-session settings and collaborators. Only Provider
// is required.
type Config struct {
	ID          string // generated when empty
	Owner       string // subject that created the session, empty when anonymous
	Model       string // provider default when empty
	HistoryMode HistoryMode
	Temperature float32
	MaxTokens   int
	Bus         eventbus.EventBus
	Logger      *slog.Logger
}

// Session is one conversation. Turns are processed one at a time; the
// transcript only ever holds complete user/assistant pairs because a turn is
// committed only after the provider replied.
type Session struct {
	id       string
	provider llm.LLMProvider
	cfg      Config
	bus      eventbus.EventBus
	logger   *slog.Logger

	turnMu sync.Mutex // held for the duration of a send

	mu         sync.RWMutex
	context    string
	contextErr error
	transcript []Turn
	ended      bool
	createdAt  time.Time
}

// New creates a session with an empty context. Call Initialize to load one.
func New(provider llm.LLMProvider, cfg Config) *Session {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.HistoryMode == "" {
		cfg.HistoryMode = HistoryFull
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:        cfg.ID,
		provider:  provider,
		cfg:       cfg,
		bus:       cfg.Bus,
		logger:    logger.With("session", cfg.ID),
		createdAt: time.Now().UTC(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created (UTC).
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Owner returns the subject the session was created for.
func (s *Session) Owner() string { return s.cfg.Owner }

// HistoryMode returns the replay mode in effect.
func (s *Session) HistoryMode() HistoryMode { return s.cfg.HistoryMode }

// Initialize loads the context once. A failing source leaves the session in
// degraded mode: the context stays empty, the failure is logged and returned
// for display, and the session keeps accepting turns.
func (s *Session) Initialize(ctx context.Context, src ContextSource) (string, error) {
	if src == nil {
		return "", nil
	}
	text, err := src.LoadContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.context = ""
		s.contextErr = err
		s.logger.Warn("context unavailable, continuing without it", "error", err)
		return "", err
	}
	s.context = text
	s.contextErr = nil
	s.logger.Debug("context loaded", "bytes", len(text))
	return text, nil
}

// Context returns the loaded context ("" in degraded mode).
func (s *Session) Context() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.context
}

// ContextError returns the error from Initialize, if any.
func (s *Session) ContextError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contextErr
}

// Transcript returns a copy of the turns so far, oldest first. The context is
// not part of the transcript.
func (s *Session) Transcript() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Ended reports whether End was called.
func (s *Session) Ended() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ended
}

// End terminates the session. It is idempotent.
func (s *Session) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	turns := len(s.transcript)
	s.mu.Unlock()

	s.publish(eventbus.TopicSessionEnded, EndedEvent{SessionID: s.id, Turns: turns, At: time.Now().UTC()})
	s.logger.Info("session ended", "turns", turns)
}

// Messages returns the provider request for userText without sending it.
func (s *Session) Messages(userText string) []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messagesLocked(userText)
}

func (s *Session) messagesLocked(userText string) []llm.Message {
	msgs := make([]llm.Message, 0, len(s.transcript)+2)
	if s.context != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: s.context})
	}
	if s.cfg.HistoryMode == HistoryFull {
		for _, t := range s.transcript {
			msgs = append(msgs, t.message())
		}
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: userText})
}

func (s *Session) request(userText string) (llm.ChatRequest, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ended {
		return llm.ChatRequest{}, 0, ErrEnded
	}
	return llm.ChatRequest{
		Model:       s.cfg.Model,
		Messages:    s.messagesLocked(userText),
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}, len(s.transcript)/2 + 1, nil
}

// Send sends userText and waits for the complete reply. On failure the
// transcript is left unchanged and the session stays usable.
func (s *Session) Send(ctx context.Context, userText string) (Turn, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	req, n, err := s.request(userText)
	if err != nil {
		return Turn{}, err
	}
	started := time.Now()
	resp, err := s.provider.ChatCompletion(ctx, req)
	if err != nil {
		return Turn{}, s.fail(n, false, started, err)
	}
	return s.commit(n, false, started, userText, resp.Content), nil
}

// SendStream is Send with the reply consumed as fragments. onFragment (may
// be nil) receives each fragment in arrival order; their concatenation is
// the assistant turn. A stream that fails midway commits nothing.
func (s *Session) SendStream(ctx context.Context, userText string, onFragment func(string)) (Turn, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	req, n, err := s.request(userText)
	if err != nil {
		return Turn{}, err
	}
	started := time.Now()
	stream, err := s.provider.ChatCompletionStream(ctx, req)
	if err != nil {
		return Turn{}, s.fail(n, true, started, err)
	}
	text, err := llm.Collect(stream, onFragment)
	if err != nil {
		return Turn{}, s.fail(n, true, started, err)
	}
	return s.commit(n, true, started, userText, text), nil
}

func (s *Session) commit(n int, streamed bool, started time.Time, userText, reply string) Turn {
	assistant := Turn{Role: RoleAssistant, Content: reply}
	s.mu.Lock()
	s.transcript = append(s.transcript, Turn{Role: RoleUser, Content: userText}, assistant)
	s.mu.Unlock()

	evt := s.turnEvent(n, streamed, started, nil)
	s.publish(eventbus.TopicTurnCompleted, evt)
	s.logger.Debug("turn completed", "turn", n, "latency_ms", evt.LatencyMS, "streamed", streamed)
	return assistant
}

func (s *Session) fail(n int, streamed bool, started time.Time, err error) error {
	s.publish(eventbus.TopicTurnFailed, s.turnEvent(n, streamed, started, err))
	s.logger.Warn("turn failed", "turn", n, "streamed", streamed, "error", err)
	return fmt.Errorf("session: turn %d: %w", n, err)
}
