package tools

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchInput struct {
	Query string `json:"query" jsonschema:"Search query"`
	TopK  int    `json:"topK,omitempty" jsonschema:"Maximum results"`
}

func echoHandler(_ context.Context, in searchInput) (string, error) {
	return "results for " + in.Query, nil
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	r := NewRegistry(nil, nil)

	require.NoError(t, Register(r, "search_golf_courses", "find courses", "vector", echoHandler))
	err := Register(r, "search_golf_courses", "find courses again", "vector", echoHandler)
	assert.ErrorIs(t, err, ErrDuplicateTool)

	// The original registration must be untouched.
	descs := r.Describe()
	require.Len(t, descs, 1)
	assert.Equal(t, "find courses", descs[0].Description)
}

func TestDispatchUnknownTool(t *testing.T) {
	r := NewRegistry(nil, nil)
	_, err := r.Dispatch(context.Background(), &ai.ToolRequest{Name: "no_such_tool"})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestDispatchValidatesBeforeHandler(t *testing.T) {
	r := NewRegistry(nil, nil)

	called := false
	require.NoError(t, Register(r, "search_scorecards", "scorecards", "columnar",
		func(_ context.Context, in searchInput) (string, error) {
			called = true
			return in.Query, nil
		}))

	_, err := r.Dispatch(context.Background(), &ai.ToolRequest{
		Name:  "search_scorecards",
		Input: map[string]any{"query": 42},
	})
	assert.ErrorIs(t, err, ErrSchemaViolation)
	assert.False(t, called, "handler must not run on malformed arguments")
}

func TestDispatchRunsHandler(t *testing.T) {
	r := NewRegistry(nil, nil)
	require.NoError(t, Register(r, "search_app_manual", "manual", "vector", echoHandler))

	out, err := r.Dispatch(context.Background(), &ai.ToolRequest{
		Name:  "search_app_manual",
		Input: map[string]any{"query": "how do I record a score"},
	})
	require.NoError(t, err)
	assert.Equal(t, "results for how do I record a score", out)
}

func TestRegistryOrderAndBackend(t *testing.T) {
	r := NewRegistry(nil, nil)
	require.NoError(t, Register(r, "search_golf_courses", "courses", "vector", echoHandler))
	require.NoError(t, Register(r, "search_scorecards", "scorecards", "columnar", echoHandler))
	require.NoError(t, Register(r, "search_tee_details", "tees", "columnar", echoHandler))

	assert.Equal(t, []string{"search_golf_courses", "search_scorecards", "search_tee_details"}, r.Names())

	backend, ok := r.Backend("search_scorecards")
	require.True(t, ok)
	assert.Equal(t, "columnar", backend)

	_, ok = r.Backend("missing")
	assert.False(t, ok)
}
