package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestOpenAI(url string) *OpenAIProvider {
	return NewOpenAIProvider(OpenAIConfig{Name: "groq", APIKey: "test-key", BaseURL: url, Model: "llama-3.3-70b-versatile"})
}

func TestOpenAIProvider_ChatCompletion_Success(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"llama-3.3-70b-versatile",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Comté."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`)
	}))
	defer srv.Close()

	resp, err := newTestOpenAI(srv.URL).ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "You are a cheese expert."},
			{Role: RoleUser, Content: "What is the best French cheese?"},
		},
	})
	if err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}
	if resp.Content != "Comté." || resp.StopReason != "stop" || resp.Tokens != 12 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if got["model"] != "llama-3.3-70b-versatile" {
		t.Errorf("expected default model in request, got %v", got["model"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %v", got["messages"])
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("expected system role first, got %v", first)
	}
}

func TestOpenAIProvider_ChatCompletion_JSONModeSetsResponseFormat(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	_, err := newTestOpenAI(srv.URL).ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "classify"}},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}
	rf, _ := got["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("expected response_format json_object, got %v", got["response_format"])
	}
}

func TestOpenAIProvider_ChatCompletion_StatusMapsToProviderError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		transient bool
	}{
		{status: http.StatusUnauthorized, transient: false},
		{status: http.StatusTooManyRequests, transient: true},
		{status: http.StatusBadGateway, transient: true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope","type":"error"}}`)
			}))
			defer srv.Close()

			_, err := newTestOpenAI(srv.URL).ChatCompletion(context.Background(), ChatRequest{
				Messages: []Message{{Role: RoleUser, Content: "hi"}},
			})
			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ProviderError, got %v", err)
			}
			if pe.StatusCode != tt.status || pe.Provider != "groq" {
				t.Errorf("unexpected error fields: %+v", pe)
			}
			if pe.Transient() != tt.transient {
				t.Errorf("Transient() = %v, want %v", pe.Transient(), tt.transient)
			}
		})
	}
}

func TestOpenAIProvider_ChatCompletionStream_SSE(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["stream"] != true {
			http.Error(w, "expected stream=true", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Best", " is", " Comté"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	stream, err := newTestOpenAI(srv.URL).ChatCompletionStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "What is the best French cheese?"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletionStream failed: %v", err)
	}

	var parts []string
	var last StreamDelta
	for d := range stream {
		if d.Content != "" {
			parts = append(parts, d.Content)
		}
		last = d
	}
	if len(parts) != 3 || parts[2] != " Comté" {
		t.Errorf("unexpected fragments: %q", parts)
	}
	if !last.Done || last.FinishReason != "stop" {
		t.Errorf("expected terminal Done delta with stop, got %+v", last)
	}
}

func TestOpenAIProvider_Embed_NoModel_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := newTestOpenAI("http://127.0.0.1:1").Embed(context.Background(), EmbedRequest{Texts: []string{"x"}})
	if err == nil {
		t.Fatal("expected error without an embedding model")
	}
	if IsTransient(err) {
		t.Errorf("configuration errors must not be transient: %v", err)
	}
}

func TestNewMistral_DefaultsEmbedModel(t *testing.T) {
	t.Parallel()

	p := NewMistral("k", "", "", 0)
	if p.embedModel != "mistral-embed" || p.ModelInfo().ID != "mistral-large-latest" {
		t.Errorf("unexpected defaults: model=%s embed=%s", p.ModelInfo().ID, p.embedModel)
	}
}

func TestOpenAIProvider_ChatCompletionStream_FailedRequestIsOpenError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"error"}}`)
	}))
	defer srv.Close()

	stream, err := newTestOpenAI(srv.URL).ChatCompletionStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if stream != nil {
		t.Error("expected no stream for a rejected request")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusUnauthorized || pe.Op != "stream" {
		t.Fatalf("expected 401 stream ProviderError, got %v", err)
	}
}

func TestOpenAIProvider_ChatCompletionStream_RetriedAfterUnavailable(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"message":"overloaded","type":"error"}}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Comté\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	rp := NewRetryingProvider(newTestOpenAI(srv.URL), 3, time.Millisecond, quietLogger())
	stream, err := rp.ChatCompletionStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "best cheese?"}},
	})
	if err != nil {
		t.Fatalf("expected stream after retry, got %v", err)
	}
	text, err := Collect(stream, nil)
	if err != nil || text != "Comté" {
		t.Errorf("got %q, %v", text, err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", calls.Load())
	}
}
