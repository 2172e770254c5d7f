// Package backend adapts the retrieval backends behind the tool registry.
//
// Two backends exist: the vector store (course knowledge and the app
// manual, searched by semantic similarity) and the columnar catalog
// (scorecards and tee details, fetched by course identifier). Each adapter
// registers its tools with typed inputs; every call runs under a deadline
// and produces plain text the model can consume directly.
package backend

import (
	"context"
	"time"
)

// Backend names recorded on tool turns and results.
const (
	NameVector   = "vector"
	NameColumnar = "columnar"
)

// DefaultTimeout bounds a single backend call unless configured otherwise.
const DefaultTimeout = 10 * time.Second

// withTimeout applies the adapter deadline to a tool call context.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
