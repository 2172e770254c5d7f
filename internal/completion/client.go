// Package completion wraps the model provider behind a small client
// boundary. The orchestrator talks to Client only; everything provider
// specific (Genkit options, retries, rate limiting) stays in here.
package completion

import (
	"context"

	"github.com/firebase/genkit/go/ai"
)

// StreamFunc receives incremental answer text as the model produces it.
// Returning an error aborts the stream.
type StreamFunc func(ctx context.Context, text string) error

// Request is one completion call.
type Request struct {
	// Messages is the conversation so far, oldest first.
	Messages []*ai.Message

	// ToolsEnabled announces the registered tools to the model. When
	// false the model must answer in plain text.
	ToolsEnabled bool

	// Stream, when set, receives answer text incrementally.
	Stream StreamFunc
}

// Response is the model's reply: final text, tool requests, or both.
// A response with neither is a protocol violation the caller must treat
// as malformed.
type Response struct {
	Text         string
	ToolRequests []*ai.ToolRequest
}

// Client produces completions.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
