// Package testutil provides shared test doubles and infrastructure
// helpers.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/golfguiders/caddie/internal/completion"
)

// Step is one scripted model response. When the script runs out, the last
// step repeats.
type Step struct {
	// StreamChunks are delivered through the request's stream callback
	// before the response is returned.
	StreamChunks []string

	Text         string
	ToolRequests []*ai.ToolRequest
	Err          error

	// Delay simulates provider latency before any chunk is delivered.
	Delay time.Duration
}

// ScriptedClient is a completion.Client driven by a fixed script. It
// records every request it receives.
type ScriptedClient struct {
	Steps []Step

	// ChunkHook, when set, runs after chunk j of call i is delivered.
	// Tests use it to cancel mid-stream.
	ChunkHook func(call, chunk int)

	mu    sync.Mutex
	calls []completion.Request
}

var _ completion.Client = (*ScriptedClient)(nil)

// Complete plays the next scripted step.
func (c *ScriptedClient) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	c.mu.Lock()
	call := len(c.calls)
	c.calls = append(c.calls, req)
	idx := call
	if idx >= len(c.Steps) {
		idx = len(c.Steps) - 1
	}
	step := c.Steps[idx]
	c.mu.Unlock()

	if step.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(step.Delay):
		}
	}

	for j, chunk := range step.StreamChunks {
		if req.Stream != nil {
			if err := req.Stream(ctx, chunk); err != nil {
				return nil, err
			}
		}
		if c.ChunkHook != nil {
			c.ChunkHook(call, j)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return &completion.Response{Text: step.Text, ToolRequests: step.ToolRequests}, nil
}

// Calls returns a copy of the recorded requests.
func (c *ScriptedClient) Calls() []completion.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]completion.Request, len(c.calls))
	copy(out, c.calls)
	return out
}
