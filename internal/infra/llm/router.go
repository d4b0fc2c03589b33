// Router keeps named providers and selects one at request time, falling back
// to the default key when no name is given.

package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Options carries what New needs to build any provider.
type Options struct {
	APIKey        string
	Model         string
	EmbedModel    string
	BaseURL       string // overrides the vendor default when non-empty
	OllamaBaseURL string
	Timeout       time.Duration
}

// New creates a provider by name.
// Supported: "groq", "openrouter", "mistral", "openai", "ollama".
func New(name string, opts Options) (LLMProvider, error) {
	switch name {
	case "groq":
		if opts.BaseURL == "" {
			return NewGroq(opts.APIKey, opts.Model, opts.Timeout), nil
		}
	case "openrouter":
		if opts.BaseURL == "" {
			return NewOpenRouter(opts.APIKey, opts.Model, opts.Timeout), nil
		}
	case "mistral":
		if opts.BaseURL == "" {
			return NewMistral(opts.APIKey, opts.Model, opts.EmbedModel, opts.Timeout), nil
		}
	case "openai":
	case providerOllama:
		base := opts.OllamaBaseURL
		if base == "" {
			base = "http://localhost:11434"
		}
		return NewOllamaProvider(base, opts.Model, opts.EmbedModel, opts.Timeout), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
	return NewOpenAIProvider(OpenAIConfig{
		Name:       name,
		APIKey:     opts.APIKey,
		BaseURL:    opts.BaseURL,
		Model:      opts.Model,
		EmbedModel: opts.EmbedModel,
		Timeout:    opts.Timeout,
	}), nil
}

// Router selects a LLMProvider for each request.
type Router struct {
	mu              sync.RWMutex
	providers       map[string]LLMProvider
	defaultProvider string
}

// NewRouter creates a Router with an initial set of providers and a default key.
func NewRouter(providers map[string]LLMProvider, defaultProvider string) *Router {
	ps := make(map[string]LLMProvider, len(providers))
	for k, v := range providers {
		ps[k] = v
	}
	return &Router{providers: ps, defaultProvider: defaultProvider}
}

// Register adds (or replaces) a provider under the given key.
func (r *Router) Register(key string, p LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[key] = p
}

// Route returns the provider registered under name, or the default provider
// when name is empty.
func (r *Router) Route(_ context.Context, name string) (LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultProvider
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("llm router: provider %q not registered (available: %v)", name, r.keys())
	}
	return p, nil
}

// CheckAll runs HealthCheck on every registered provider. The result has
// one entry per key; nil means healthy.
func (r *Router) CheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	names := r.keys()
	r.mu.RUnlock()

	out := make(map[string]error, len(names))
	for _, name := range names {
		p, err := r.Route(ctx, name)
		if err == nil {
			err = p.HealthCheck(ctx)
		}
		out[name] = err
	}
	return out
}

// keys returns the registered provider names, sorted, for error messages.
func (r *Router) keys() []string {
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
