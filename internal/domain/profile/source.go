package profile

import (
	"context"
	"fmt"
	"time"
)

// Options selects and configures a store. Nothing here has a built-in
// default connection string.
type Options struct {
	Kind        string // mongo | sqlite | postgres
	MongoURL    string
	DBName      string
	Collection  string
	SQLitePath  string
	DatabaseURL string
	Timeout     time.Duration // connection / server selection timeout
}

// Open connects to the store named by opts.Kind.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Kind {
	case "mongo":
		return NewMongoStore(ctx, MongoConfig{
			URL:        opts.MongoURL,
			Database:   opts.DBName,
			Collection: opts.Collection,
			Timeout:    opts.Timeout,
		})
	case "sqlite":
		return OpenSQLiteStore(opts.SQLitePath)
	case "postgres":
		return NewPostgresStore(ctx, opts.DatabaseURL)
	}
	return nil, fmt.Errorf("profile: unknown store %q", opts.Kind)
}

// ContextSource loads every profile and formats the session context. It
// satisfies session.ContextSource.
type ContextSource struct {
	kind  string
	store Store
	opts  *Options
}

// NewContextSource reads from an already open store. The store is not closed.
func NewContextSource(kind string, s Store) *ContextSource {
	return &ContextSource{kind: kind, store: s}
}

// SourceFor opens the store on each LoadContext and closes it afterwards.
// Connection failures surface from LoadContext, never from construction.
func SourceFor(opts Options) *ContextSource {
	return &ContextSource{kind: opts.Kind, opts: &opts}
}

// LoadContext returns FormatAll of the store's profiles. Every failure is a
// *SourceError.
func (c *ContextSource) LoadContext(ctx context.Context) (string, error) {
	profiles, err := c.load(ctx)
	if err != nil {
		return "", &SourceError{Source: c.kind, Err: err}
	}
	return FormatAll(profiles), nil
}

func (c *ContextSource) load(ctx context.Context) ([]Profile, error) {
	if c.opts == nil {
		return c.store.Profiles(ctx)
	}
	s, err := Open(ctx, *c.opts)
	if err != nil {
		return nil, err
	}
	defer s.Close() //nolint:errcheck
	return s.Profiles(ctx)
}
