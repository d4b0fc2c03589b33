package llm

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 200 * time.Millisecond
)

// RetryingProvider wraps a provider with bounded exponential backoff.
// Only transient ProviderErrors are retried. A stream is retried only while
// opening it; once fragments flow, failures are reported as-is.
type RetryingProvider struct {
	LLMProvider
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// NewRetryingProvider wraps p. maxAttempts <= 0 means 3; baseDelay <= 0 means 200ms.
func NewRetryingProvider(p LLMProvider, maxAttempts int, baseDelay time.Duration, logger *slog.Logger) *RetryingProvider {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingProvider{LLMProvider: p, maxAttempts: maxAttempts, baseDelay: baseDelay, logger: logger}
}

func (r *RetryingProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var out *ChatResponse
	err := r.do(ctx, "chat", func() error {
		resp, err := r.LLMProvider.ChatCompletion(ctx, req)
		out = resp
		return err
	})
	return out, err
}

func (r *RetryingProvider) ChatCompletionStream(ctx context.Context, req ChatRequest) (<-chan StreamDelta, error) {
	var out <-chan StreamDelta
	err := r.do(ctx, "stream", func() error {
		ch, err := r.LLMProvider.ChatCompletionStream(ctx, req)
		out = ch
		return err
	})
	return out, err
}

func (r *RetryingProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	var out *EmbedResponse
	err := r.do(ctx, "embed", func() error {
		resp, err := r.LLMProvider.Embed(ctx, req)
		out = resp
		return err
	})
	return out, err
}

// do runs fn up to maxAttempts times with delays base, 2*base, 4*base...
func (r *RetryingProvider) do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	delay := r.baseDelay
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) || attempt == r.maxAttempts {
			return lastErr
		}
		r.logger.Warn("llm call failed, retrying",
			"op", op,
			"provider", r.ModelInfo().Provider,
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"error", lastErr,
		)
	}
	return lastErr
}
