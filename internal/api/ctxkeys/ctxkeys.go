// Package ctxkeys holds the request context keys shared by the api
// middleware and handlers. It is a leaf package to avoid import cycles.
package ctxkeys

import "context"

// Key is the named type for API context keys, so string keys from other
// packages never collide with them.
type Key string

const (
	// Subject is the authenticated caller, taken from the JWT "sub" claim.
	Subject Key = "subject"
)

// WithValue adds a Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// SubjectFrom returns the authenticated subject, or "" when the request was
// not authenticated.
func SubjectFrom(ctx context.Context) string {
	sub, _ := ctx.Value(Subject).(string)
	return sub
}
