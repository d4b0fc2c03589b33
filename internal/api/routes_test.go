package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matiasleandrokruk/promptlab/internal/api"
	"github.com/matiasleandrokruk/promptlab/internal/domain/extract"
	"github.com/matiasleandrokruk/promptlab/internal/domain/knowledge"
	"github.com/matiasleandrokruk/promptlab/internal/domain/session"
	"github.com/matiasleandrokruk/promptlab/internal/infra/llm"
	"github.com/matiasleandrokruk/promptlab/internal/infra/logging"
	pkgauth "github.com/matiasleandrokruk/promptlab/pkg/auth"
)

// echoProvider answers "echo: <last user message>", or fails with err.
type echoProvider struct {
	err   error
	calls int
	last  llm.ChatRequest
}

func (p *echoProvider) reply(req llm.ChatRequest) string {
	return "echo: " + req.Messages[len(req.Messages)-1].Content
}

func (p *echoProvider) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.calls++
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.ChatResponse{Content: p.reply(req)}, nil
}

func (p *echoProvider) ChatCompletionStream(_ context.Context, req llm.ChatRequest) (<-chan llm.StreamDelta, error) {
	p.calls++
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	ch := make(chan llm.StreamDelta, 8)
	for _, f := range strings.SplitAfter(p.reply(req), " ") {
		ch <- llm.StreamDelta{Content: f}
	}
	ch <- llm.StreamDelta{Done: true, FinishReason: "stop"}
	close(ch)
	return ch, nil
}

func (p *echoProvider) Embed(context.Context, llm.EmbedRequest) (*llm.EmbedResponse, error) {
	return nil, errors.New("not used")
}

func (p *echoProvider) ModelInfo() llm.ModelMeta { return llm.ModelMeta{ID: "echo-1", Provider: "stub"} }

func (p *echoProvider) HealthCheck(context.Context) error { return nil }

type stubExtractor struct {
	err error
}

func (s *stubExtractor) Classify(context.Context, string) (*extract.Classification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &extract.Classification{Sentiment: extract.SentimentHappy, Aggressiveness: 1, Language: "English"}, nil
}

func (s *stubExtractor) Analyze(context.Context, string) (*extract.FullAnalysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	name := "Jeff"
	return &extract.FullAnalysis{
		Classification: extract.Classification{Sentiment: extract.SentimentHappy, Aggressiveness: 1, Language: "English"},
		People:         []extract.Person{{Name: &name}},
	}, nil
}

type stubSearcher struct{}

func (stubSearcher) SimilaritySearch(_ context.Context, query string, _ int) ([]knowledge.Match, error) {
	if query == "" {
		return nil, knowledge.ErrEmptyQuery
	}
	return []knowledge.Match{
		{ID: "c1", Document: knowledge.Document{Content: "Comté is aged 12 months.", Source: "cheese.pdf", Page: 3, StartIndex: 40}, Score: 0.91},
	}, nil
}

const profileContext = "Name: Ana\nExpertise: ML\n"

type fixture struct {
	provider *echoProvider
	manager  *session.Manager
	router   http.Handler
}

func newFixture(t *testing.T, secret string, search bool) *fixture {
	t.Helper()
	p := &echoProvider{}
	m := session.NewManager(p, session.StaticContext(profileContext), session.Config{Logger: logging.Discard()})
	t.Cleanup(m.Close)
	deps := api.Deps{
		Sessions:  m,
		Extractor: &stubExtractor{},
		JWTSecret: secret,
		Logger:    logging.Discard(),
	}
	if search {
		deps.Search = stubSearcher{}
	}
	return &fixture{provider: p, manager: m, router: api.NewRouter(deps)}
}

func (f *fixture) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

type sessionBody struct {
	ID           string         `json:"id"`
	HistoryMode  string         `json:"history_mode"`
	Ended        bool           `json:"ended"`
	HasContext   bool           `json:"has_context"`
	ContextError string         `json:"context_error"`
	Transcript   []session.Turn `json:"transcript"`
}

func (f *fixture) createSession(t *testing.T, body string) sessionBody {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/api/v1/sessions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session: status %d body %s", rr.Code, rr.Body.String())
	}
	return decode[sessionBody](t, rr)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rr := newFixture(t, "secret", false).do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("GET /health = %d %s", rr.Code, rr.Body.String())
	}
}

type failingProvider struct{ echoProvider }

func (failingProvider) HealthCheck(context.Context) error { return errors.New("connection refused") }

func TestReady(t *testing.T) {
	t.Parallel()

	t.Run("no checker", func(t *testing.T) {
		t.Parallel()
		rr := newFixture(t, "secret", false).do(t, http.MethodGet, "/ready", "")
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ready"`) {
			t.Errorf("GET /ready = %d %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("provider down", func(t *testing.T) {
		t.Parallel()
		providers := llm.NewRouter(map[string]llm.LLMProvider{"chat": &echoProvider{}}, "chat")
		providers.Register("embed", &failingProvider{})
		m := session.NewManager(&echoProvider{}, nil, session.Config{Logger: logging.Discard()})
		t.Cleanup(m.Close)
		router := api.NewRouter(api.Deps{
			Sessions:  m,
			Extractor: &stubExtractor{},
			Health:    providers,
			JWTSecret: "secret",
			Logger:    logging.Discard(),
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("GET /ready = %d %s; want 503", rr.Code, rr.Body.String())
		}
		body := decode[struct {
			Status    string            `json:"status"`
			Providers map[string]string `json:"providers"`
		}](t, rr)
		if body.Status != "unavailable" || body.Providers["chat"] != "ok" || body.Providers["embed"] != "connection refused" {
			t.Errorf("unexpected body: %+v", body)
		}
	})
}

func TestSessions_ConversationAndExit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "", false)
	s := f.createSession(t, "")
	if s.ID == "" || !s.HasContext || s.HistoryMode != "full" || len(s.Transcript) != 0 {
		t.Fatalf("new session = %+v", s)
	}

	rr := f.do(t, http.MethodPost, "/api/v1/sessions/"+s.ID+"/messages", `{"content":"Who knows ML?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("send: status %d body %s", rr.Code, rr.Body.String())
	}
	msg := decode[map[string]any](t, rr)
	if msg["role"] != "assistant" || msg["content"] != "echo: Who knows ML?" {
		t.Errorf("reply = %v", msg)
	}
	if got := f.provider.last.Messages; len(got) != 2 || got[0].Content != profileContext {
		t.Errorf("provider messages = %+v", got)
	}

	got := decode[sessionBody](t, f.do(t, http.MethodGet, "/api/v1/sessions/"+s.ID, ""))
	if len(got.Transcript) != 2 || got.Transcript[0].Role != session.RoleUser {
		t.Errorf("transcript = %+v", got.Transcript)
	}

	rr = f.do(t, http.MethodPost, "/api/v1/sessions/"+s.ID+"/messages", `{"content":"EXIT"}`)
	if rr.Code != http.StatusOK || decode[map[string]any](t, rr)["ended"] != true {
		t.Fatalf("exit: status %d body %s", rr.Code, rr.Body.String())
	}
	if f.provider.calls != 1 {
		t.Errorf("provider calls = %d; want 1", f.provider.calls)
	}
	if rr := f.do(t, http.MethodGet, "/api/v1/sessions/"+s.ID, ""); rr.Code != http.StatusNotFound {
		t.Errorf("GET after exit = %d; want 404", rr.Code)
	}
}

func TestSessions_StreamingMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "", false)
	s := f.createSession(t, `{"history_mode":"context"}`)
	if s.HistoryMode != "context" {
		t.Fatalf("history_mode = %q", s.HistoryMode)
	}

	rr := f.do(t, http.MethodPost, "/api/v1/sessions/"+s.ID+"/messages", `{"content":"best cheese?","stream":true}`)
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q; body %s", ct, rr.Body.String())
	}

	var (
		deltas strings.Builder
		final  map[string]any
	)
	sc := bufio.NewScanner(bytes.NewReader(rr.Body.Bytes()))
	for sc.Scan() {
		line, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var evt map[string]any
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("bad event %q: %v", line, err)
		}
		if d, ok := evt["delta"].(string); ok {
			deltas.WriteString(d)
		}
		if evt["done"] == true {
			final = evt
		}
	}
	if deltas.String() != "echo: best cheese?" {
		t.Errorf("deltas = %q", deltas.String())
	}
	if final == nil || final["content"] != deltas.String() {
		t.Errorf("final event = %v; want content equal to deltas", final)
	}
}

func TestSessions_ProviderFailure_KeepsTranscript(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "", false)
	s := f.createSession(t, "")
	f.do(t, http.MethodPost, "/api/v1/sessions/"+s.ID+"/messages", `{"content":"first"}`)

	f.provider.err = &llm.ProviderError{Provider: "stub", Op: "chat", StatusCode: http.StatusUnauthorized, Err: errors.New("bad key")}
	rr := f.do(t, http.MethodPost, "/api/v1/sessions/"+s.ID+"/messages", `{"content":"second"}`)
	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d; want 502", rr.Code)
	}

	got := decode[sessionBody](t, f.do(t, http.MethodGet, "/api/v1/sessions/"+s.ID, ""))
	if len(got.Transcript) != 2 || got.Transcript[0].Content != "first" {
		t.Errorf("transcript after failure = %+v", got.Transcript)
	}
}

func TestSessions_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "", false)
	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"bad history mode", http.MethodPost, "/api/v1/sessions", `{"history_mode":"rolling"}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/sessions", `{"temperature":2}`, http.StatusBadRequest},
		{"get unknown", http.MethodGet, "/api/v1/sessions/nope", "", http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/api/v1/sessions/nope", "", http.StatusNotFound},
		{"send unknown", http.MethodPost, "/api/v1/sessions/nope/messages", `{"content":"hi"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := f.do(t, tt.method, tt.path, tt.body); rr.Code != tt.want {
				t.Errorf("status = %d; want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestSessions_DeleteAndList(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "", false)
	s := f.createSession(t, "")

	list := decode[map[string][]string](t, f.do(t, http.MethodGet, "/api/v1/sessions", ""))
	if len(list["sessions"]) != 1 || list["sessions"][0] != s.ID {
		t.Errorf("list = %v", list)
	}
	if rr := f.do(t, http.MethodDelete, "/api/v1/sessions/"+s.ID, ""); rr.Code != http.StatusNoContent {
		t.Errorf("delete status = %d; want 204", rr.Code)
	}
	if rr := f.do(t, http.MethodDelete, "/api/v1/sessions/"+s.ID, ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d; want 404", rr.Code)
	}
}

func TestAuth_RequiredWhenSecretSet(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "router-secret", false)
	if rr := f.do(t, http.MethodPost, "/api/v1/sessions", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d; want 401", rr.Code)
	}

	token, err := pkgauth.GenerateJWT([]byte("router-secret"), "ana", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if rr := f.do(t, http.MethodPost, "/api/v1/sessions", "", "Authorization", "Bearer "+token); rr.Code != http.StatusCreated {
		t.Errorf("valid token: status %d; want 201", rr.Code)
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "", false)

	rr := f.do(t, http.MethodPost, "/api/v1/extract", `{"text":"I feel great"}`)
	if rr.Code != http.StatusOK || decode[map[string]any](t, rr)["sentiment"] != "happy" {
		t.Errorf("classify = %d %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/api/v1/extract", `{"text":"My name is Jeff","mode":"analyze"}`)
	people, _ := decode[map[string]any](t, rr)["people"].([]any)
	if rr.Code != http.StatusOK || len(people) != 1 {
		t.Errorf("analyze = %d %s", rr.Code, rr.Body.String())
	}

	for body, want := range map[string]int{
		`{"text":""}`:                  http.StatusBadRequest,
		`{"text":"x","mode":"poetry"}`: http.StatusBadRequest,
	} {
		if rr := f.do(t, http.MethodPost, "/api/v1/extract", body); rr.Code != want {
			t.Errorf("%s: status %d; want %d", body, rr.Code, want)
		}
	}
}

func TestExtract_SchemaError_Is422(t *testing.T) {
	t.Parallel()

	router := api.NewRouter(api.Deps{
		Sessions:  session.NewManager(&echoProvider{}, nil, session.Config{}),
		Extractor: &stubExtractor{err: &extract.SchemaError{Schema: "classification", Problems: []string{"sentiment: must be one of happy, neutral, sad"}}},
		Logger:    logging.Discard(),
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(`{"text":"grr"}`)))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d; want 422", rr.Code)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	rr := newFixture(t, "", false).do(t, http.MethodPost, "/api/v1/search", `{"query":"cheese"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("without index: status %d; want 503", rr.Code)
	}

	f := newFixture(t, "", true)
	rr = f.do(t, http.MethodPost, "/api/v1/search", `{"query":"how long is Comté aged?","k":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("search: status %d body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Results []struct {
			Content    string  `json:"content"`
			Page       int     `json:"page"`
			StartIndex int     `json:"start_index"`
			Score      float32 `json:"score"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Page != 3 || resp.Results[0].StartIndex != 40 {
		t.Errorf("results = %+v", resp.Results)
	}

	if rr := f.do(t, http.MethodPost, "/api/v1/search", `{"query":""}`); rr.Code != http.StatusBadRequest {
		t.Errorf("empty query: status %d; want 400", rr.Code)
	}
}

func TestAuth_SessionsAreScopedToSubject(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "router-secret", false)
	bearer := func(subject string) string {
		token, err := pkgauth.GenerateJWT([]byte("router-secret"), subject, time.Hour)
		if err != nil {
			t.Fatalf("GenerateJWT: %v", err)
		}
		return "Bearer " + token
	}
	ana, bo := bearer("ana"), bearer("bo")

	rr := f.do(t, http.MethodPost, "/api/v1/sessions", "", "Authorization", ana)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rr.Code)
	}
	created := decode[map[string]any](t, rr)
	id, _ := created["id"].(string)
	if created["owner"] != "ana" {
		t.Errorf("owner = %v; want ana", created["owner"])
	}

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/v1/sessions/" + id, ""},
		{http.MethodPost, "/api/v1/sessions/" + id + "/messages", `{"content":"hi"}`},
		{http.MethodDelete, "/api/v1/sessions/" + id, ""},
	} {
		if rr := f.do(t, tc.method, tc.path, tc.body, "Authorization", bo); rr.Code != http.StatusNotFound {
			t.Errorf("%s %s as another subject: status %d; want 404", tc.method, tc.path, rr.Code)
		}
	}
	if list := decode[map[string][]string](t, f.do(t, http.MethodGet, "/api/v1/sessions", "", "Authorization", bo)); len(list["sessions"]) != 0 {
		t.Errorf("other subject lists %v", list["sessions"])
	}
	if list := decode[map[string][]string](t, f.do(t, http.MethodGet, "/api/v1/sessions", "", "Authorization", ana)); len(list["sessions"]) != 1 {
		t.Errorf("owner lists %v", list["sessions"])
	}
	if f.provider.calls != 0 {
		t.Errorf("provider called %d times for a foreign session", f.provider.calls)
	}
	if rr := f.do(t, http.MethodDelete, "/api/v1/sessions/"+id, "", "Authorization", ana); rr.Code != http.StatusNoContent {
		t.Errorf("owner delete: status %d; want 204", rr.Code)
	}
}

func TestAuth_OwnershipFollowsManager(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "router-secret", false)
	token, err := pkgauth.GenerateJWT([]byte("router-secret"), "ana", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	auth := "Bearer " + token

	// A session created outside the handler is still scoped to its owner.
	s := f.manager.Create(context.Background(), session.CreateOptions{Owner: "ana"})
	path := "/api/v1/sessions/" + s.ID()
	if rr := f.do(t, http.MethodGet, path, "", "Authorization", auth); rr.Code != http.StatusOK {
		t.Fatalf("GET own session: status %d", rr.Code)
	}

	// Ending it through the manager leaves nothing behind in the API.
	f.manager.Delete(s.ID())
	if rr := f.do(t, http.MethodGet, path, "", "Authorization", auth); rr.Code != http.StatusNotFound {
		t.Errorf("GET deleted session: status %d; want 404", rr.Code)
	}
	rr := f.do(t, http.MethodGet, "/api/v1/sessions", "", "Authorization", auth)
	if body := decode[map[string][]string](t, rr); len(body["sessions"]) != 0 {
		t.Errorf("expected no sessions, got %v", body["sessions"])
	}
}
