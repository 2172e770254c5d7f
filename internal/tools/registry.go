// Package tools provides the tool registry the orchestrator dispatches
// through.
//
// Each tool is registered once at startup with a name, a description, the
// backend it runs against and a typed handler. The registry derives a JSON
// schema from the handler's input type; the same schema is announced to the
// model (via Genkit tool definitions) and enforced locally before dispatch,
// so malformed arguments are rejected without touching a backend.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/jsonschema-go/jsonschema"
)

// Description is the model- and operator-facing summary of one tool.
type Description struct {
	Name        string
	Description string
	Backend     string
	InputSchema *jsonschema.Schema
}

type entry struct {
	desc     Description
	resolved *jsonschema.Resolved
	ref      ai.Tool
	run      func(ctx context.Context, raw json.RawMessage) (string, error)
}

// Registry holds the registered tools.
//
// Registration happens during startup; dispatch happens concurrently from
// turn execution. The registry is safe for both.
type Registry struct {
	g      *genkit.Genkit
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// NewRegistry creates an empty registry bound to a Genkit instance. g may
// be nil in tests that never attach tools to a model request.
func NewRegistry(g *genkit.Genkit, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		g:       g,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Register adds a tool whose arguments unmarshal into In. The input schema
// is derived from In's fields and tags. The handler receives the caller's
// context; timeouts are the handler's responsibility.
//
// Register is a function rather than a method because methods cannot carry
// type parameters.
func Register[In any](r *Registry, name, description, backendName string, handler func(context.Context, In) (string, error)) error {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return fmt.Errorf("deriving schema for tool %q: %w", name, err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolving schema for tool %q: %w", name, err)
	}

	run := func(ctx context.Context, raw json.RawMessage) (string, error) {
		var input In
		if err := json.Unmarshal(raw, &input); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrSchemaViolation, name, err)
		}
		return handler(ctx, input)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	e := &entry{
		desc: Description{
			Name:        name,
			Description: description,
			Backend:     backendName,
			InputSchema: schema,
		},
		resolved: resolved,
		run:      run,
	}

	// The Genkit definition announces the tool to the model. Execution
	// never goes through it; the orchestrator asks for tool requests back
	// and dispatches here instead.
	if r.g != nil {
		e.ref = genkit.DefineTool(r.g, name, description,
			func(tc *ai.ToolContext, input In) (string, error) {
				return handler(tc.Context, input)
			})
	}

	r.entries[name] = e
	r.order = append(r.order, name)
	r.logger.Debug("registered tool", "name", name, "backend", backendName)
	return nil
}

// Describe returns the registered tools in registration order.
func (r *Registry) Describe() []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Description, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].desc)
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Refs returns the Genkit tool references to attach to a model request.
func (r *Registry) Refs() []ai.ToolRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]ai.ToolRef, 0, len(r.order))
	for _, name := range r.order {
		if e := r.entries[name]; e.ref != nil {
			refs = append(refs, e.ref)
		}
	}
	return refs
}

// Backend returns the backend name a tool was registered with.
func (r *Registry) Backend(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return "", false
	}
	return e.desc.Backend, true
}

// Dispatch validates the request arguments against the tool's schema and,
// only if they conform, runs the handler. Validation failures and unknown
// names return before any backend I/O.
func (r *Registry) Dispatch(ctx context.Context, req *ai.ToolRequest) (string, error) {
	r.mu.RLock()
	e, ok := r.entries[req.Name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, req.Name)
	}

	if err := e.resolved.Validate(req.Input); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSchemaViolation, req.Name, err)
	}

	raw, err := json.Marshal(req.Input)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSchemaViolation, req.Name, err)
	}

	return e.run(ctx, raw)
}
