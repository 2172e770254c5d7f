package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golfguiders/caddie/internal/knowledge"
	"github.com/golfguiders/caddie/internal/tools"
)

// Searcher is the slice of the knowledge store the vector adapter needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// SearchQuery is the input for both vector retrieval tools.
type SearchQuery struct {
	Query string `json:"query" jsonschema:"Natural language question to search for"`
}

// Vector adapts the embedded-knowledge store. It serves the course search
// and app manual tools.
type Vector struct {
	store   Searcher
	topK    int
	timeout time.Duration
	logger  *slog.Logger
}

// NewVector creates the vector adapter. topK <= 0 and timeout <= 0 fall
// back to package defaults.
func NewVector(store Searcher, topK int, timeout time.Duration, logger *slog.Logger) *Vector {
	if topK <= 0 {
		topK = 5
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Vector{store: store, topK: topK, timeout: timeout, logger: logger}
}

// Register adds the vector retrieval tools to the registry.
func (v *Vector) Register(r *tools.Registry) error {
	err := tools.Register(r, "search_golf_courses",
		"Searches golf course information: locations, addresses, course types, "+
			"number of holes, layouts and recommendations by area. "+
			"Input is a natural language question about golf courses.",
		NameVector, v.searchCourses)
	if err != nil {
		return err
	}
	return tools.Register(r, "search_app_manual",
		"Searches the application documentation and user manual: feature usage, "+
			"settings, tutorials and best practices. "+
			"Input is a natural language question about the application.",
		NameVector, v.searchManual)
}

func (v *Vector) searchCourses(ctx context.Context, in SearchQuery) (string, error) {
	ctx, cancel := withTimeout(ctx, v.timeout)
	defer cancel()

	results, err := v.store.Search(ctx, in.Query,
		knowledge.WithCollection(knowledge.CollectionCourses),
		knowledge.WithTopK(v.topK),
		knowledge.WithTimeout(v.timeout))
	if err != nil {
		return "", fmt.Errorf("course search: %w", err)
	}
	if len(results) == 0 {
		return "No matching golf courses were found.", nil
	}

	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(res.Content)
	}

	// Identifier lines let the model chain into the scorecard and tee
	// tools without another search.
	b.WriteString("\n\nTop course matches:")
	for _, res := range results {
		meta := res.Metadata
		name := meta["courseName"]
		if name == "" {
			name = "Unknown course"
		}
		id := meta["id_course"]
		if id == "" {
			id = "N/A"
		}
		line := fmt.Sprintf("\n- %s (id_course: %s)", name, id)
		if meta["city"] != "" || meta["state"] != "" {
			line += fmt.Sprintf(" — %s, %s", meta["city"], meta["state"])
		}
		if meta["latitude"] != "" || meta["longitude"] != "" {
			line += fmt.Sprintf(" — %s, %s", meta["latitude"], meta["longitude"])
		}
		b.WriteString(line)
	}
	return b.String(), nil
}

func (v *Vector) searchManual(ctx context.Context, in SearchQuery) (string, error) {
	ctx, cancel := withTimeout(ctx, v.timeout)
	defer cancel()

	results, err := v.store.Search(ctx, in.Query,
		knowledge.WithCollection(knowledge.CollectionManual),
		knowledge.WithTopK(v.topK),
		knowledge.WithTimeout(v.timeout))
	if err != nil {
		return "", fmt.Errorf("manual search: %w", err)
	}
	if len(results) == 0 {
		return "Nothing in the application manual matched that question.", nil
	}

	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(res.Content)
	}
	return b.String(), nil
}
