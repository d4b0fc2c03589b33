package knowledge

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// SQLiteStore persists chunks and their vectors (JSON text) in the
// document / document_chunk tables. Search loads every vector and ranks in
// memory, which is fine for a handful of PDFs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore uses an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore { return &SQLiteStore{db: db} }

// documentID is stable per source so re-indexing a file appends to the same
// document row.
func documentID(source string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("promptlab:"+source)).String()
}

func (s *SQLiteStore) Add(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vector store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	next := make(map[string]int)
	for i, r := range records {
		docID := documentID(r.Document.Source)
		idx, seen := next[docID]
		if !seen {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO document (id, source) VALUES (?, ?)`, docID, r.Document.Source); err != nil {
				return fmt.Errorf("vector store: insert document: %w", err)
			}
			if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(chunk_index) + 1, 0) FROM document_chunk WHERE document_id = ?`, docID).Scan(&idx); err != nil {
				return fmt.Errorf("vector store: next chunk index: %w", err)
			}
		}

		emb, err := encodeEmbedding(r.Embedding)
		if err != nil {
			return fmt.Errorf("vector store: encode embedding[%d]: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_chunk (id, document_id, chunk_index, content, page, start_index, embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, docID, idx, r.Document.Content, r.Document.Page, r.Document.StartIndex, emb,
		); err != nil {
			return fmt.Errorf("vector store: insert chunk[%d]: %w", i, err)
		}
		next[docID] = idx + 1
	}
	return tx.Commit()
}

func (s *SQLiteStore) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.content, c.page, c.start_index, c.embedding, d.source
		FROM document_chunk c
		JOIN document d ON d.id = c.document_id
		ORDER BY d.source, c.chunk_index`)
	if err != nil {
		return nil, fmt.Errorf("vector store: query chunks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r   Record
			emb string
		)
		if err := rows.Scan(&r.ID, &r.Document.Content, &r.Document.Page, &r.Document.StartIndex, &emb, &r.Document.Source); err != nil {
			return nil, fmt.Errorf("vector store: scan chunk: %w", err)
		}
		vec, err := decodeEmbedding(emb)
		if err != nil {
			continue // skip malformed vectors
		}
		r.Embedding = vec
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankRecords(query, records, resolveK(k)), nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunk`).Scan(&n); err != nil {
		return 0, fmt.Errorf("vector store: count: %w", err)
	}
	return n, nil
}

// CountSource reports how many chunks are stored for one source file.
func (s *SQLiteStore) CountSource(ctx context.Context, source string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunk WHERE document_id = ?`, documentID(source)).Scan(&n); err != nil {
		return 0, fmt.Errorf("vector store: count %s: %w", source, err)
	}
	return n, nil
}

// DeleteSource removes a document and its chunks.
func (s *SQLiteStore) DeleteSource(ctx context.Context, source string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM document WHERE id = ?`, documentID(source)); err != nil {
		return fmt.Errorf("vector store: delete %s: %w", source, err)
	}
	return nil
}
