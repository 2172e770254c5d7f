package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleFromMessage(t *testing.T) {
	t.Run("short message kept verbatim", func(t *testing.T) {
		assert.Equal(t, "What is the par on hole 7?", TitleFromMessage("What is the par on hole 7?"))
	})

	t.Run("long message truncated with ellipsis", func(t *testing.T) {
		long := strings.Repeat("a", 150)
		title := TitleFromMessage(long)
		assert.Equal(t, strings.Repeat("a", 100)+"...", title)
	})

	t.Run("truncation counts runes not bytes", func(t *testing.T) {
		long := strings.Repeat("高", 120)
		title := TitleFromMessage(long)
		assert.Equal(t, strings.Repeat("高", 100)+"...", title)
	})
}

func TestStateAppendAssignsOrdinals(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()

	st, err := Create(ctx, log, uuid.New(), "hello")
	require.NoError(t, err)

	u, err := st.AppendUserMessage(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Ordinal)

	a, err := st.AppendAssistantText(ctx, "hi there", StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Ordinal)
	assert.Equal(t, 2, st.Session().LastOrdinal)
	assert.Len(t, st.Messages(), 2)
}

func TestStateHydrateRebuildsMessages(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()

	st, err := Create(ctx, log, uuid.New(), "first question")
	require.NoError(t, err)

	_, err = st.AppendUserMessage(ctx, "first question")
	require.NoError(t, err)
	_, err = st.AppendToolCalls(ctx, []*ai.ToolRequest{
		{Name: "search_golf_courses", Ref: "call-1", Input: map[string]any{"query": "pebble"}},
	})
	require.NoError(t, err)
	_, err = st.AppendToolResult(ctx, "call-1", "search_golf_courses", "vector", "Pebble Beach Golf Links", false)
	require.NoError(t, err)
	_, err = st.AppendAssistantText(ctx, "Found it.", StatusCompleted)
	require.NoError(t, err)

	resumed, err := Hydrate(ctx, log, st.Session().ID)
	require.NoError(t, err)

	// A resumed session must feed the model the same messages the live
	// session would have.
	require.Equal(t, len(st.Messages()), len(resumed.Messages()))
	for i, want := range st.Messages() {
		got := resumed.Messages()[i]
		assert.Equal(t, want.Role, got.Role, "message %d role", i)
		require.Equal(t, len(want.Content), len(got.Content), "message %d parts", i)
	}
	assert.Equal(t, 4, resumed.Session().LastOrdinal)

	// Tool request and response parts must survive the round trip.
	turns := resumed.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, RoleTool, turns[2].Role)
	assert.Equal(t, "call-1", turns[2].ToolCallID)
	assert.Equal(t, "vector", turns[2].Backend)
	assert.Equal(t, StatusCompleted, turns[2].Status)
}

func TestStateHydrateUnknownSession(t *testing.T) {
	_, err := Hydrate(context.Background(), NewMemoryLog(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStateWindow(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()

	st, err := Create(ctx, log, uuid.New(), "hi")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		_, err := st.AppendUserMessage(ctx, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	window := st.Window(14)
	require.Len(t, window, 14)
	assert.Equal(t, "message 6", window[0].Content[0].Text)
	assert.Equal(t, "message 19", window[13].Content[0].Text)

	assert.Len(t, st.Window(0), 20, "non-positive limit means unbounded")
}

func TestStateWindowNeverOpensOnToolResponse(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()

	st, err := Create(ctx, log, uuid.New(), "courses?")
	require.NoError(t, err)
	_, err = st.AppendUserMessage(ctx, "courses?")
	require.NoError(t, err)
	_, err = st.AppendToolCalls(ctx, []*ai.ToolRequest{
		{Name: "search_golf_courses", Ref: "call-1", Input: map[string]any{"query": "pebble"}},
	})
	require.NoError(t, err)
	_, err = st.AppendToolResult(ctx, "call-1", "search_golf_courses", "vector", "Pebble Beach Golf Links", false)
	require.NoError(t, err)
	_, err = st.AppendAssistantText(ctx, "Found it.", StatusCompleted)
	require.NoError(t, err)

	// A limit of 2 would slice in at the tool response; its tool-call
	// message is gone, so the orphan must be dropped from the head.
	window := st.Window(2)
	require.Len(t, window, 1)
	assert.Equal(t, ai.RoleModel, window[0].Role)
	assert.Equal(t, "Found it.", window[0].Content[0].Text)

	// A cut landing on the tool-call message keeps the pair intact.
	window = st.Window(3)
	require.Len(t, window, 3)
	require.NotNil(t, window[0].Content[0].ToolRequest)
	require.NotNil(t, window[1].Content[0].ToolResponse)
}

func TestMemoryLogConcurrentAppendsAreGapless(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	sess, err := log.CreateSession(ctx, uuid.New(), "race")
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := log.Append(ctx, sess.ID, &Turn{
				Role:    RoleUser,
				Content: []*ai.Part{ai.NewTextPart("x")},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	turns, err := log.Turns(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, n)

	seen := make(map[int]bool, n)
	for _, turn := range turns {
		assert.False(t, seen[turn.Ordinal], "duplicate ordinal %d", turn.Ordinal)
		seen[turn.Ordinal] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[i], "missing ordinal %d", i)
	}
}
