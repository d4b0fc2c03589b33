package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/matiasleandrokruk/promptlab/internal/infra/llm"
)

const classifyPrompt = `Extract the desired information from the following passage.
Only extract the properties mentioned in the 'Classification' schema.
Reply with a single JSON object that matches this JSON Schema:
%s
Passage:
%s`

const analyzeSystemPrompt = `You are an expert extraction algorithm. Only extract relevant information from the text. If you do not know the value of an attribute, return null.
Reply with a single JSON object that matches this JSON Schema:
%s`

// Analyzer asks a chat model for structured records.
type Analyzer struct {
	llm    llm.LLMProvider
	model  string
	logger *slog.Logger
}

// NewAnalyzer returns an Analyzer. model may be empty for the provider default.
func NewAnalyzer(provider llm.LLMProvider, model string, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{llm: provider, model: model, logger: logger}
}

// Classify returns the sentiment, aggressiveness and language of text.
func (a *Analyzer) Classify(ctx context.Context, text string) (*Classification, error) {
	schema, err := rawSchema(SchemaClassification)
	if err != nil {
		return nil, err
	}
	msgs := []llm.Message{
		{Role: llm.RoleUser, Content: fmt.Sprintf(classifyPrompt, schema, text)},
	}
	var out Classification
	if err := a.complete(ctx, SchemaClassification, msgs, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze returns a Classification plus the people mentioned in text.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*FullAnalysis, error) {
	schema, err := rawSchema(SchemaFullAnalysis)
	if err != nil {
		return nil, err
	}
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(analyzeSystemPrompt, schema)},
		{Role: llm.RoleUser, Content: text},
	}
	var out FullAnalysis
	if err := a.complete(ctx, SchemaFullAnalysis, msgs, &out); err != nil {
		return nil, err
	}
	if out.People == nil {
		out.People = []Person{}
	}
	return &out, nil
}

// complete runs one JSON-mode request, validates the reply against schema
// and decodes it into dst.
func (a *Analyzer) complete(ctx context.Context, schema string, msgs []llm.Message, dst any) error {
	start := time.Now()
	resp, err := a.llm.ChatCompletion(ctx, llm.ChatRequest{
		Model:    a.model,
		Messages: msgs,
		JSONMode: true,
	})
	if err != nil {
		return fmt.Errorf("extract: %s: %w", schema, err)
	}

	reply := stripCodeFence(resp.Content)
	if !json.Valid([]byte(reply)) {
		return &SchemaError{Schema: schema, Problems: []string{"reply is not JSON"}, Reply: resp.Content}
	}
	problems, err := Validate(schema, []byte(reply))
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		a.logger.Warn("extraction reply rejected", "schema", schema, "problems", len(problems))
		return &SchemaError{Schema: schema, Problems: problems, Reply: resp.Content}
	}
	if err := json.Unmarshal([]byte(reply), dst); err != nil {
		return &SchemaError{Schema: schema, Problems: []string{err.Error()}, Reply: resp.Content}
	}

	a.logger.Debug("extraction complete", "schema", schema, "latency_ms", time.Since(start).Milliseconds())
	return nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add even in
// JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
