package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/promptlab/internal/console"
	"github.com/matiasleandrokruk/promptlab/internal/domain/knowledge"
	"github.com/matiasleandrokruk/promptlab/internal/infra/llm"
	"github.com/matiasleandrokruk/promptlab/internal/infra/sqlite"
)

const defaultSearchQuery = "What is Math"

// openIndex builds an index over the configured embedding provider.
func (a *app) openIndex(storeKind string) (*knowledge.Index, *knowledge.SQLiteStore, func() error, error) {
	embedProvider, err := a.embedProvider()
	if err != nil {
		return nil, nil, nil, err
	}
	return a.newIndex(embedProvider, storeKind)
}

// newIndex builds an index over embedProvider. With storeKind "sqlite" chunks
// persist in SQLITE_PATH; the returned closer releases the database.
func (a *app) newIndex(embedProvider llm.LLMProvider, storeKind string) (*knowledge.Index, *knowledge.SQLiteStore, func() error, error) {
	embedder := knowledge.NewEmbedder(embedProvider, a.cfg.EmbedModel)

	switch storeKind {
	case "memory":
		return knowledge.NewIndex(embedder, knowledge.NewMemoryStore(), a.logger), nil, func() error { return nil }, nil
	case "sqlite":
		db, err := sqlite.Open(a.cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		store := knowledge.NewSQLiteStore(db)
		return knowledge.NewIndex(embedder, store, a.logger), store, db.Close, nil
	}
	return nil, nil, nil, &usageError{err: fmt.Errorf("--store must be memory or sqlite, got %q", storeKind)}
}

// indexPDF loads path into ix. A SQLite store drops earlier chunks of the
// same file first unless reuse is set and that file already has chunks.
func (a *app) indexPDF(ctx context.Context, ix *knowledge.Index, store *knowledge.SQLiteStore, path string, reuse bool) error {
	if store != nil {
		n, err := store.CountSource(ctx, path)
		if err != nil {
			return err
		}
		if reuse && n > 0 {
			a.logger.Info("reusing indexed chunks", "path", path, "chunks", n)
			return nil
		}
		if err := store.DeleteSource(ctx, path); err != nil {
			return err
		}
	}
	ids, err := ix.IndexPDF(ctx, path)
	if err != nil {
		return err
	}
	a.logger.Info("pdf indexed", "path", path, "chunks", len(ids))
	return nil
}

func (a *app) searchCommand() *cobra.Command {
	var (
		pdfPath   string
		k         int
		storeKind string
		reuse     bool
	)
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Index a PDF and print the chunks closest to a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pdfPath == "" {
				pdfPath = a.cfg.PDFPath
			}
			if pdfPath == "" {
				return &usageError{err: fmt.Errorf("no PDF given: set PDF_PATH or pass --pdf")}
			}
			ix, store, closeIndex, err := a.openIndex(storeKind)
			if err != nil {
				return err
			}
			defer closeIndex() //nolint:errcheck

			query, err := a.readInput(args, defaultSearchQuery)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			if err := a.indexPDF(ctx, ix, store, pdfPath, reuse); err != nil {
				return err
			}
			matches, err := ix.SimilaritySearch(ctx, query, k)
			if err != nil {
				return err
			}

			con := console.New(a.out)
			if len(matches) == 0 {
				fmt.Fprintln(a.out, "No results found.") //nolint:errcheck
				return nil
			}
			for i, m := range matches {
				if i > 0 {
					fmt.Fprintln(a.out, "---") //nolint:errcheck
				}
				con.Info("#%d score=%.4f page=%d start=%d", i+1, m.Score, m.Document.Page, m.Document.StartIndex)
				fmt.Fprintln(a.out, m.Document.Content) //nolint:errcheck
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "PDF to index; defaults to PDF_PATH")
	cmd.Flags().IntVarP(&k, "k", "k", 4, "number of chunks to print")
	cmd.Flags().StringVar(&storeKind, "store", "memory", "vector store: memory or sqlite")
	cmd.Flags().BoolVar(&reuse, "reuse", false, "with --store sqlite, skip indexing when the PDF already has chunks")
	return cmd
}
