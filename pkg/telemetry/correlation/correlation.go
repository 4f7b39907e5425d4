// Package correlation threads one id through a request and everything it
// triggers: log lines, spans and the audit entry. Ids are ULIDs so they sort
// by creation time.
package correlation

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type key struct{}

// ExtractCorrelationID returns the id on ctx, or "".
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

// ContextWithCorrelationID stores id on ctx. An empty id leaves ctx as is so
// an upstream value is never cleared.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, key{}, id)
}

// EnsureCorrelationID returns ctx with an id, minting one when absent.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := ExtractCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return context.WithValue(ctx, key{}, id), id
}
