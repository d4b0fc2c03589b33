package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Index ties an Embedder to a VectorStore.
type Index struct {
	embedder *Embedder
	store    VectorStore
	splitter Splitter
	logger   *slog.Logger
}

// NewIndex returns an Index using the default splitter (1000/200).
func NewIndex(e *Embedder, store VectorStore, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{embedder: e, store: store, splitter: NewSplitter(DefaultChunkSize, DefaultChunkOverlap), logger: logger}
}

// WithSplitter returns a copy of ix that splits with s.
func (ix *Index) WithSplitter(s Splitter) *Index {
	cp := *ix
	cp.splitter = s
	return &cp
}

// AddDocuments embeds docs as-is (no splitting) and returns their new ids.
func (ix *Index) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := ix.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	ids := make([]string, len(docs))
	records := make([]Record, len(docs))
	for i, d := range docs {
		ids[i] = uuid.NewString()
		records[i] = Record{ID: ids[i], Document: d, Embedding: vecs[i]}
	}
	if err := ix.store.Add(ctx, records); err != nil {
		return nil, fmt.Errorf("index: store: %w", err)
	}
	ix.logger.Debug("documents indexed", "count", len(ids))
	return ids, nil
}

// IndexPDF loads, splits and indexes a PDF. It returns the chunk ids.
func (ix *Index) IndexPDF(ctx context.Context, path string) ([]string, error) {
	pages, err := LoadPDF(path)
	if err != nil {
		return nil, err
	}
	chunks := ix.splitter.SplitDocuments(pages)
	ix.logger.Info("pdf split", "path", path, "pages", len(pages), "chunks", len(chunks))
	return ix.AddDocuments(ctx, chunks)
}

// ErrEmptyQuery is returned by SimilaritySearch for a blank query.
var ErrEmptyQuery = errors.New("index: empty query")

// SimilaritySearch returns the k chunks closest to query, best first.
// k <= 0 means 4.
func (ix *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]Match, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	vec, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	return ix.store.Search(ctx, vec, k)
}

// Count returns the number of indexed chunks.
func (ix *Index) Count(ctx context.Context) (int, error) { return ix.store.Count(ctx) }
