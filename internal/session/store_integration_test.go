package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golfguiders/caddie/internal/session"
	"github.com/golfguiders/caddie/internal/testutil"
)

func TestStoreSessionLifecycle(t *testing.T) {
	pool := testutil.StartPostgres(t)
	store := session.NewStore(pool, nil)
	ctx := context.Background()

	userID := uuid.New()
	sess, err := store.CreateSession(ctx, userID, "recommend a course near Austin")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sess.ID)
	assert.Equal(t, session.SessionActive, sess.Status)
	assert.Equal(t, 0, sess.LastOrdinal)

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, "recommend a course near Austin", got.Title)

	listed, err := store.ListSessions(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, sess.ID, listed[0].ID)

	require.NoError(t, store.SetStatus(ctx, sess.ID, session.SessionErrored))
	got, err = store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.SessionErrored, got.Status)

	_, err = store.GetSession(ctx, uuid.New())
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestStoreAppendAssignsGaplessOrdinals(t *testing.T) {
	pool := testutil.StartPostgres(t)
	store := session.NewStore(pool, nil)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, uuid.New(), "")
	require.NoError(t, err)

	const appends = 20
	var wg sync.WaitGroup
	errs := make(chan error, appends)
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Append(ctx, sess.ID, &session.Turn{
				Role:    session.RoleUser,
				Content: []*ai.Part{ai.NewTextPart("hello")},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	turns, err := store.Turns(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, appends)
	for i, turn := range turns {
		assert.Equal(t, i+1, turn.Ordinal)
	}

	latest, err := store.LatestOrdinal(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, appends, latest)
}

func TestStoreTurnContentRoundTrip(t *testing.T) {
	pool := testutil.StartPostgres(t)
	store := session.NewStore(pool, nil)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, uuid.New(), "tee details")
	require.NoError(t, err)

	request := &ai.ToolRequest{
		Name:  "search_tee_details",
		Ref:   "call-1",
		Input: map[string]any{"course_id": float64(42)},
	}
	appended, err := store.Append(ctx, sess.ID, &session.Turn{
		Role:    session.RoleAssistant,
		Content: []*ai.Part{ai.NewToolRequestPart(request)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, appended.Ordinal)
	assert.Equal(t, session.StatusCompleted, appended.Status)

	_, err = store.Append(ctx, sess.ID, &session.Turn{
		Role: session.RoleTool,
		Content: []*ai.Part{ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   "search_tee_details",
			Ref:    "call-1",
			Output: "### Tee Details",
		})},
		ToolCallID: "call-1",
		Backend:    "columnar",
	})
	require.NoError(t, err)

	turns, err := store.Turns(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, 2)

	require.Len(t, turns[0].Content, 1)
	gotReq := turns[0].Content[0].ToolRequest
	require.NotNil(t, gotReq)
	assert.Equal(t, "search_tee_details", gotReq.Name)
	assert.Equal(t, "call-1", gotReq.Ref)
	assert.Equal(t, map[string]any{"course_id": float64(42)}, gotReq.Input)

	require.Len(t, turns[1].Content, 1)
	gotResp := turns[1].Content[0].ToolResponse
	require.NotNil(t, gotResp)
	assert.Equal(t, "### Tee Details", gotResp.Output)
	assert.Equal(t, "call-1", turns[1].ToolCallID)
	assert.Equal(t, "columnar", turns[1].Backend)
}

func TestStoreAppendUnknownSession(t *testing.T) {
	pool := testutil.StartPostgres(t)
	store := session.NewStore(pool, nil)

	_, err := store.Append(context.Background(), uuid.New(), &session.Turn{
		Role:    session.RoleUser,
		Content: []*ai.Part{ai.NewTextPart("hi")},
	})
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
