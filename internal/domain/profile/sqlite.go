package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matiasleandrokruk/promptlab/internal/infra/sqlite"
)

// SQLiteStore keeps profiles in the local database (table "profile").
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool
}

// NewSQLiteStore uses an already migrated database. Close does not close db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLiteStore opens and migrates the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("SQLITE_PATH not set")
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, ownsDB: true}, nil
}

// Profiles returns all profiles ordered by last then first name.
func (s *SQLiteStore) Profiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT first_name, last_name, slug, area_of_expertise, type, current_location, career_summary
		FROM profile
		ORDER BY last_name, first_name, slug`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.FirstName, &p.LastName, &p.Slug, &p.AreaOfExpertise, &p.Type, &p.CurrentLocation, &p.CareerSummary); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert inserts or updates profiles by slug in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, profiles []Profile) (int, error) {
	prepared, err := prepare(profiles)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after Commit
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profile (slug, first_name, last_name, area_of_expertise, type, current_location, career_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			area_of_expertise = excluded.area_of_expertise,
			type = excluded.type,
			current_location = excluded.current_location,
			career_summary = excluded.career_summary,
			updated_at = datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range prepared {
		if _, err := stmt.ExecContext(ctx, p.Slug, p.FirstName, p.LastName, p.AreaOfExpertise, p.Type, p.CurrentLocation, p.CareerSummary); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", p.Slug, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(prepared), nil
}

// Close closes the database when the store opened it.
func (s *SQLiteStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// DecodeYAML reads a YAML sequence of profiles.
func DecodeYAML(r io.Reader) ([]Profile, error) {
	var out []Profile
	if err := yaml.NewDecoder(r).Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode profiles yaml: %w", err)
	}
	return out, nil
}

// Import decodes YAML from r and upserts it into w.
func Import(ctx context.Context, w Writer, r io.Reader) (int, error) {
	profiles, err := DecodeYAML(r)
	if err != nil {
		return 0, err
	}
	return w.Upsert(ctx, profiles)
}
