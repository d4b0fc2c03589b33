package profile

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matiasleandrokruk/promptlab/internal/infra/sqlite"
)

const seedYAML = `
- firstName: Ana
  lastName: Silva
  slug: ana-silva
  areaOfExpertise: Machine Learning
  type: employee
  currentLocation: Lisbon
  careerSummary: Builds recommender systems.
- firstName: Bruno
  lastName: Alves
  areaOfExpertise: Go backends
  type: contractor
`

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sqlite.Open(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("sqlite.Open error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db)
}

func TestSQLiteStore_ImportAndList(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	n, err := Import(context.Background(), s, strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("Import error = %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported profiles, got %d", n)
	}

	got, err := s.Profiles(context.Background())
	if err != nil {
		t.Fatalf("Profiles error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(got))
	}
	// Ordered by last name: Alves before Silva.
	if got[0].Slug != "bruno-alves" || got[1].AreaOfExpertise != "Machine Learning" {
		t.Errorf("unexpected profiles: %+v", got)
	}
}

func TestSQLiteStore_UpsertUpdatesBySlug(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Upsert(ctx, []Profile{{Slug: "ana", FirstName: "Ana", CurrentLocation: "Lisbon"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Upsert(ctx, []Profile{{Slug: "ana", FirstName: "Ana", CurrentLocation: "Porto"}}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Profiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].CurrentLocation != "Porto" {
		t.Errorf("expected one updated profile, got %+v", got)
	}
}

func TestSQLiteStore_UpsertRejectsAnonymousProfile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.Upsert(context.Background(), []Profile{{Type: "employee"}})
	if !errors.Is(err, ErrMissingSlug) {
		t.Errorf("expected ErrMissingSlug, got %v", err)
	}
}

func TestDecodeYAML_EmptyInput(t *testing.T) {
	t.Parallel()

	got, err := DecodeYAML(strings.NewReader(""))
	if err != nil || len(got) != 0 {
		t.Errorf("expected no profiles and no error, got %v, %v", got, err)
	}
}

func TestDecodeYAML_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := DecodeYAML(strings.NewReader("firstName: [unclosed")); err == nil {
		t.Error("expected decode error")
	}
}

func TestOpenSQLiteStore_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profiles.db")
	s, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore error = %v", err)
	}
	if _, err := s.Upsert(context.Background(), []Profile{{FirstName: "Ana"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}

	if _, err := OpenSQLiteStore(""); err == nil {
		t.Error("expected error for empty path")
	}
}
