// Package mcpserver exposes classification, extraction, document search and
// profile questions as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matiasleandrokruk/promptlab/internal/domain/extract"
	"github.com/matiasleandrokruk/promptlab/internal/domain/knowledge"
	"github.com/matiasleandrokruk/promptlab/internal/domain/session"
	"github.com/matiasleandrokruk/promptlab/internal/version"
)

// Tool names.
const (
	ToolClassify = "classify_text"
	ToolAnalyze  = "analyze_text"
	ToolSearch   = "search_document"
	ToolAsk      = "ask_profiles"
)

// Extractor classifies and analyzes text.
type Extractor interface {
	Classify(ctx context.Context, text string) (*extract.Classification, error)
	Analyze(ctx context.Context, text string) (*extract.FullAnalysis, error)
}

// Searcher ranks indexed chunks against a query.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]knowledge.Match, error)
}

// Sessions creates and discards the one-turn sessions behind ask_profiles.
type Sessions interface {
	Create(ctx context.Context, opts session.CreateOptions) *session.Session
	Delete(id string) bool
}

// Deps are the services behind the tools. A nil Search or Sessions leaves the
// matching tool unregistered.
type Deps struct {
	Extractor Extractor
	Search    Searcher
	Sessions  Sessions
	Logger    *slog.Logger
}

var errEmptyText = errors.New("text is required")

type textInput struct {
	Text string `json:"text" jsonschema:"the passage to process"`
}

type searchInput struct {
	Query string `json:"query" jsonschema:"what to look for in the indexed document"`
	K     int    `json:"k,omitempty" jsonschema:"number of chunks to return, default 4"`
}

type askInput struct {
	Question string `json:"question" jsonschema:"a question about the employee profiles"`
}

// New builds the MCP server with every tool its deps allow.
func New(deps Deps) *mcp.Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &toolHandlers{deps: deps, logger: logger}

	server := mcp.NewServer(&mcp.Implementation{Name: "promptlab", Version: version.Version}, nil)
	if deps.Extractor != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        ToolClassify,
			Description: "Classify a passage: sentiment (happy, neutral, sad), aggressiveness 1-10 and language.",
		}, h.classify)
		mcp.AddTool(server, &mcp.Tool{
			Name:        ToolAnalyze,
			Description: "Classify a passage and extract the people it mentions with name, hair color and height in meters.",
		}, h.analyze)
	}
	if deps.Search != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        ToolSearch,
			Description: "Semantic search over the indexed PDF; returns the closest chunks first.",
		}, h.search)
	}
	if deps.Sessions != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        ToolAsk,
			Description: "Answer a question using the employee profiles as context.",
		}, h.ask)
	}
	return server
}

// Run serves the tools over stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, deps Deps) error {
	return New(deps).Run(ctx, &mcp.StdioTransport{})
}

type toolHandlers struct {
	deps   Deps
	logger *slog.Logger
}

func (h *toolHandlers) classify(ctx context.Context, _ *mcp.CallToolRequest, in textInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, nil, errEmptyText
	}
	c, err := h.deps.Extractor.Classify(ctx, in.Text)
	if err != nil {
		h.logger.Warn("mcp tool failed", "tool", ToolClassify, "error", err)
		return nil, nil, err
	}
	return jsonResult(c)
}

func (h *toolHandlers) analyze(ctx context.Context, _ *mcp.CallToolRequest, in textInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, nil, errEmptyText
	}
	a, err := h.deps.Extractor.Analyze(ctx, in.Text)
	if err != nil {
		h.logger.Warn("mcp tool failed", "tool", ToolAnalyze, "error", err)
		return nil, nil, err
	}
	return jsonResult(a)
}

func (h *toolHandlers) search(ctx context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, any, error) {
	matches, err := h.deps.Search.SimilaritySearch(ctx, in.Query, in.K)
	if err != nil {
		h.logger.Warn("mcp tool failed", "tool", ToolSearch, "error", err)
		return nil, nil, err
	}
	return jsonResult(map[string]any{"results": matches})
}

func (h *toolHandlers) ask(ctx context.Context, _ *mcp.CallToolRequest, in askInput) (*mcp.CallToolResult, any, error) {
	s := h.deps.Sessions.Create(ctx, session.CreateOptions{HistoryMode: session.HistoryContext})
	defer h.deps.Sessions.Delete(s.ID())

	turn, err := s.Send(ctx, in.Question)
	if err != nil {
		h.logger.Warn("mcp tool failed", "tool", ToolAsk, "error", err)
		return nil, nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: turn.Content}}}, nil, nil
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}, nil, nil
}
