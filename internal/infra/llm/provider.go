// Adapters (OpenAI-compatible vendors, Ollama) implement this interface so the
// application is never coupled to a specific LLM vendor.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// LLMProvider is the model-agnostic interface for LLM operations.
type LLMProvider interface {
	// ChatCompletion performs a non-streaming chat completion.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ChatCompletionStream starts a streaming chat completion. Fragments are
	// delivered in arrival order; the channel is closed after the final delta.
	ChatCompletionStream(ctx context.Context, req ChatRequest) (<-chan StreamDelta, error)

	// Embed computes dense vector representations for a batch of texts.
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}

// ProviderError is a runtime failure of a provider call.
type ProviderError struct {
	Provider   string
	Op         string // "chat", "stream", "embed", "health"
	StatusCode int    // 0 when no HTTP response was received
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether retrying the same request may succeed:
// rate limiting, server-side failures and network timeouts.
func (e *ProviderError) Transient() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	case e.StatusCode != 0:
		return false
	}
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(e.Err, &netErr) {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsTransient reports whether err carries a transient ProviderError.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	return false
}
