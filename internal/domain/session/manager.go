package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/matiasleandrokruk/promptlab/internal/infra/llm"
)

// Manager owns the live sessions of a long-running process. Sessions share
// nothing but the provider; each one serialises its own turns.
type Manager struct {
	provider llm.LLMProvider
	source   ContextSource
	base     Config
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns a Manager creating sessions from base. source may be nil.
func NewManager(provider llm.LLMProvider, source ContextSource, base Config) *Manager {
	logger := base.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base.ID = ""
	return &Manager{
		provider: provider,
		source:   source,
		base:     base,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// CreateOptions overrides Manager defaults for one session.
type CreateOptions struct {
	HistoryMode HistoryMode
	Model       string
	Owner       string
}

// Create starts a session and loads its context. A context failure is
// recorded on the session (see ContextError) and does not fail Create.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) *Session {
	cfg := m.base
	if opts.HistoryMode != "" {
		cfg.HistoryMode = opts.HistoryMode
	}
	if opts.Model != "" {
		cfg.Model = opts.Model
	}
	cfg.Owner = opts.Owner
	s := New(m.provider, cfg)
	_, _ = s.Initialize(ctx, m.source)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.logger.Info("session created", "session", s.ID(), "history_mode", string(s.HistoryMode()))
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete ends and forgets a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.End()
	}
	return ok
}

// IDs returns the live session ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close ends every session.
func (m *Manager) Close() {
	for _, id := range m.IDs() {
		m.Delete(id)
	}
}
