package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Default endpoints for OpenAI-compatible vendors.
const (
	GroqBaseURL       = "https://api.groq.com/openai/v1/"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1/"
	MistralBaseURL    = "https://api.mistral.ai/v1/"
	OpenAIBaseURL     = "https://api.openai.com/v1/"
)

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	Name       string // provider name reported in ModelMeta and errors
	APIKey     string
	BaseURL    string
	Model      string
	EmbedModel string
	Timeout    time.Duration
	Headers    map[string]string
}

// OpenAIProvider implements LLMProvider for any endpoint that speaks the
// OpenAI Chat Completions API: Groq, OpenRouter, Mistral and OpenAI itself.
type OpenAIProvider struct {
	name       string
	model      string
	embedModel string
	client     openai.Client
}

// NewOpenAIProvider builds a provider on top of the openai-go SDK. SDK-level
// retries are disabled; RetryingProvider owns the retry policy.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &OpenAIProvider{
		name:       name,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		client:     openai.NewClient(opts...),
	}
}

// NewGroq creates a provider for Groq's OpenAI-compatible endpoint.
func NewGroq(apiKey, model string, timeout time.Duration) *OpenAIProvider {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return NewOpenAIProvider(OpenAIConfig{Name: "groq", APIKey: apiKey, BaseURL: GroqBaseURL, Model: model, Timeout: timeout})
}

// NewOpenRouter creates a provider for OpenRouter (DeepSeek and friends).
func NewOpenRouter(apiKey, model string, timeout time.Duration) *OpenAIProvider {
	if model == "" {
		model = "deepseek/deepseek-r1:free"
	}
	return NewOpenAIProvider(OpenAIConfig{
		Name:    "openrouter",
		APIKey:  apiKey,
		BaseURL: OpenRouterBaseURL,
		Model:   model,
		Timeout: timeout,
		Headers: map[string]string{"X-Title": "promptlab"},
	})
}

// NewMistral creates a provider for La Plateforme (chat and mistral-embed).
func NewMistral(apiKey, model, embedModel string, timeout time.Duration) *OpenAIProvider {
	if model == "" {
		model = "mistral-large-latest"
	}
	if embedModel == "" {
		embedModel = "mistral-embed"
	}
	return NewOpenAIProvider(OpenAIConfig{Name: "mistral", APIKey: apiKey, BaseURL: MistralBaseURL, Model: model, EmbedModel: embedModel, Timeout: timeout})
}

func (p *OpenAIProvider) params(req ChatRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if req.Temperature != 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}
	if req.MaxTokens != 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

// ChatCompletion performs a non-streaming chat completion.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.params(req))
	if err != nil {
		return nil, p.wrap("chat", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: p.name, Op: "chat", Err: errors.New("no choices in response")}
	}
	choice := resp.Choices[0]
	return &ChatResponse{
		Content:    choice.Message.Content,
		StopReason: choice.FinishReason,
		Tokens:     int(resp.Usage.TotalTokens),
	}, nil
}

// ChatCompletionStream starts a server-sent-events completion. The first
// event is read before returning, so a failed request is returned as the
// error; failures after that surface as the Err of the last delta.
func (p *OpenAIProvider) ChatCompletionStream(ctx context.Context, req ChatRequest) (<-chan StreamDelta, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(req))
	started := stream.Next()
	if !started {
		if err := stream.Err(); err != nil {
			stream.Close() //nolint:errcheck
			return nil, p.wrap("stream", err)
		}
	}

	ch := make(chan StreamDelta, 32)
	go func() {
		defer close(ch)
		defer stream.Close() //nolint:errcheck

		var finish string
		for ok := started; ok; ok = stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			c0 := chunk.Choices[0]
			if c0.FinishReason != "" {
				finish = c0.FinishReason
			}
			if c0.Delta.Content == "" {
				continue
			}
			ch <- StreamDelta{Content: c0.Delta.Content}
		}
		if err := stream.Err(); err != nil {
			ch <- StreamDelta{Err: p.wrap("stream", err)}
			return
		}
		ch <- StreamDelta{Done: true, FinishReason: finish}
	}()
	return ch, nil
}

// Embed computes embeddings in one batched request.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if len(req.Texts) == 0 {
		return &EmbedResponse{Embeddings: [][]float32{}}, nil
	}
	model := req.Model
	if model == "" {
		model = p.embedModel
	}
	if model == "" {
		return nil, &ProviderError{Provider: p.name, Op: "embed", Err: errors.New("no embedding model configured")}
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: req.Texts},
	})
	if err != nil {
		return nil, p.wrap("embed", err)
	}
	if len(resp.Data) != len(req.Texts) {
		return nil, &ProviderError{Provider: p.name, Op: "embed", Err: fmt.Errorf("got %d embeddings for %d texts", len(resp.Data), len(req.Texts))}
	}

	out := make([][]float32, len(req.Texts))
	for i, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		out[idx] = vec
	}
	return &EmbedResponse{Embeddings: out, Tokens: int(resp.Usage.TotalTokens)}, nil
}

// ModelInfo returns static metadata for this provider/model.
func (p *OpenAIProvider) ModelInfo() ModelMeta {
	return ModelMeta{ID: p.model, Provider: p.name, Version: "v1"}
}

// HealthCheck lists models; every compatible vendor serves GET /models.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return p.wrap("health", err)
	}
	return nil
}

func (p *OpenAIProvider) wrap(op string, err error) error {
	pe := &ProviderError{Provider: p.name, Op: op, Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.StatusCode
	}
	return pe
}
