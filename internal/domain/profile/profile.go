// Package profile reads employee profiles from a document or relational store
// and turns them into the context text of a chat session.
package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Profile is one employee record. Field names follow the document store
// (camelCase) in every encoding.
type Profile struct {
	FirstName       string `json:"firstName" yaml:"firstName" bson:"firstName"`
	LastName        string `json:"lastName" yaml:"lastName" bson:"lastName"`
	Slug            string `json:"slug" yaml:"slug" bson:"slug"`
	AreaOfExpertise string `json:"areaOfExpertise" yaml:"areaOfExpertise" bson:"areaOfExpertise"`
	Type            string `json:"type" yaml:"type" bson:"type"`
	CurrentLocation string `json:"currentLocation" yaml:"currentLocation" bson:"currentLocation"`
	CareerSummary   string `json:"careerSummary" yaml:"careerSummary" bson:"careerSummary"`
}

// FullName is "First Last", trimmed.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// EnsureSlug fills Slug from the full name when it is empty.
func (p *Profile) EnsureSlug() {
	if p.Slug != "" {
		return
	}
	p.Slug = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(p.FullName()), "-"), "-")
}

// Store reads profiles.
type Store interface {
	Profiles(ctx context.Context) ([]Profile, error)
	Close() error
}

// Writer upserts profiles keyed by slug and returns how many were written.
type Writer interface {
	Upsert(ctx context.Context, profiles []Profile) (int, error)
}

// ErrMissingSlug is returned by Upsert for a profile with neither slug nor name.
var ErrMissingSlug = errors.New("profile: slug or name required")

// SourceError is a failure to read the context store. Sessions recover from
// it by running without context.
type SourceError struct {
	Source string // "mongo", "sqlite", "postgres"
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("profile source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func prepare(profiles []Profile) ([]Profile, error) {
	out := make([]Profile, len(profiles))
	for i, p := range profiles {
		p.EnsureSlug()
		if p.Slug == "" {
			return nil, fmt.Errorf("profile %d: %w", i, ErrMissingSlug)
		}
		out[i] = p
	}
	return out, nil
}
