// Package session implements a single conversation against a remote
// completion provider, optionally grounded in a fixed context loaded once at
// session start.
package session

import (
	"context"
	"strings"

	"github.com/matiasleandrokruk/promptlab/internal/infra/llm"
)

// Role tags a Turn.
type Role string

const (
	RoleSystem    Role = llm.RoleSystem
	RoleUser      Role = llm.RoleUser
	RoleAssistant Role = llm.RoleAssistant
)

// Turn is one message of a conversation. Turns are values and never change
// once appended to a transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func (t Turn) message() llm.Message {
	return llm.Message{Role: string(t.Role), Content: t.Content}
}

// HistoryMode selects what the provider sees on each turn.
type HistoryMode string

const (
	// HistoryFull replays the context, every previous turn and the new user turn.
	HistoryFull HistoryMode = "full"
	// HistoryContext sends only the context and the new user turn. The
	// transcript still records every turn.
	HistoryContext HistoryMode = "context"
)

// ParseHistoryMode accepts "full" or "context"; anything else is full.
func ParseHistoryMode(s string) HistoryMode {
	if strings.EqualFold(strings.TrimSpace(s), string(HistoryContext)) {
		return HistoryContext
	}
	return HistoryFull
}

// ExitKeyword ends an interactive session (any letter case).
const ExitKeyword = "exit"

// IsExit reports whether signal is the exit keyword, ignoring case.
func IsExit(signal string) bool {
	return strings.EqualFold(signal, ExitKeyword)
}

// ContextSource produces the text placed in the system turn.
type ContextSource interface {
	LoadContext(ctx context.Context) (string, error)
}

// StaticContext is a ContextSource returning a fixed string.
type StaticContext string

func (s StaticContext) LoadContext(context.Context) (string, error) { return string(s), nil }
