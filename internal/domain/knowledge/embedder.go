package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matiasleandrokruk/promptlab/internal/infra/llm"
)

const (
	embedMaxRetries   = 3
	embedBaseDelay    = 100 * time.Millisecond
	defaultEmbedBatch = 64
)

// Embedder turns texts into vectors through an LLMProvider, in batches,
// retrying each failed batch with exponential backoff.
type Embedder struct {
	llm       llm.LLMProvider
	model     string
	batchSize int
	baseDelay time.Duration
}

// NewEmbedder returns an Embedder; model may be empty for the provider default.
func NewEmbedder(provider llm.LLMProvider, model string) *Embedder {
	return &Embedder{llm: provider, model: model, batchSize: defaultEmbedBatch, baseDelay: embedBaseDelay}
}

// EmbedTexts returns one vector per text, in order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vecs, err := e.callEmbedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedder: batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedder: batch %d-%d: got %d vectors", start, end, len(vecs))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs[0]) == 0 {
		return nil, errors.New("embedder: empty query vector")
	}
	return vecs[0], nil
}

// callEmbedWithRetry makes up to embedMaxRetries attempts with delays
// base, 2*base. Permanent provider errors stop immediately.
func (e *Embedder) callEmbedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := e.baseDelay
	for attempt := 0; attempt < embedMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
		resp, err := e.llm.Embed(ctx, llm.EmbedRequest{Model: e.model, Texts: texts})
		if err == nil {
			return resp.Embeddings, nil
		}
		lastErr = err
		var pe *llm.ProviderError
		if errors.As(err, &pe) && !pe.Transient() {
			break
		}
	}
	return nil, fmt.Errorf("embed failed: %w", lastErr)
}
