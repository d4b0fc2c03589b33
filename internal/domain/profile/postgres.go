package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps profiles in a Postgres table "profiles".
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS profiles (
    slug               TEXT PRIMARY KEY,
    first_name         TEXT NOT NULL DEFAULT '',
    last_name          TEXT NOT NULL DEFAULT '',
    area_of_expertise  TEXT NOT NULL DEFAULT '',
    type               TEXT NOT NULL DEFAULT '',
    current_location   TEXT NOT NULL DEFAULT '',
    career_summary     TEXT NOT NULL DEFAULT '',
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresStore connects, pings and ensures the table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Profiles returns all profiles ordered by last then first name.
func (s *PostgresStore) Profiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT first_name, last_name, slug, area_of_expertise, type, current_location, career_summary
		FROM profiles
		ORDER BY last_name, first_name, slug`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Profile, error) {
		var p Profile
		err := row.Scan(&p.FirstName, &p.LastName, &p.Slug, &p.AreaOfExpertise, &p.Type, &p.CurrentLocation, &p.CareerSummary)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}
	return out, nil
}

// Upsert inserts or updates profiles by slug in one batch.
func (s *PostgresStore) Upsert(ctx context.Context, profiles []Profile) (int, error) {
	prepared, err := prepare(profiles)
	if err != nil {
		return 0, err
	}
	batch := &pgx.Batch{}
	for _, p := range prepared {
		batch.Queue(`
			INSERT INTO profiles (slug, first_name, last_name, area_of_expertise, type, current_location, career_summary)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (slug) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				area_of_expertise = EXCLUDED.area_of_expertise,
				type = EXCLUDED.type,
				current_location = EXCLUDED.current_location,
				career_summary = EXCLUDED.career_summary,
				updated_at = now()`,
			p.Slug, p.FirstName, p.LastName, p.AreaOfExpertise, p.Type, p.CurrentLocation, p.CareerSummary)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("upsert profiles: %w", err)
	}
	return len(prepared), nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
