package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golfguiders/caddie/internal/orchestrator"
	"github.com/golfguiders/caddie/internal/session"
	"github.com/golfguiders/caddie/internal/testutil"
	"github.com/golfguiders/caddie/internal/tools"
)

type echoInput struct {
	Query string `json:"query"`
}

func newTestServer(t *testing.T, client *testutil.ScriptedClient) (*Server, *session.MemoryLog) {
	t.Helper()

	log := session.NewMemoryLog()
	registry := tools.NewRegistry(nil, nil)
	require.NoError(t, tools.Register(registry, "search_golf_courses", "courses", "vector",
		func(_ context.Context, in echoInput) (string, error) {
			return "found: " + in.Query, nil
		}))

	orch, err := orchestrator.New(orchestrator.Config{
		Client:   client,
		Registry: registry,
		Log:      log,
	})
	require.NoError(t, err)

	srv, err := NewServer(ServerConfig{Orchestrator: orch, Sessions: log})
	require.NoError(t, err)
	return srv, log
}

// sseEvent is one parsed frame from a test response body.
type sseEvent struct {
	name string
	data map[string]any
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		var ev sseEvent
		for _, line := range strings.Split(frame, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.data))
			}
		}
		events = append(events, ev)
	}
	return events
}

func postChat(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatStreamsAnswer(t *testing.T) {
	client := &testutil.ScriptedClient{Steps: []testutil.Step{
		{StreamChunks: []string{"Par is ", "the target score."}, Text: "Par is the target score."},
	}}
	srv, _ := newTestServer(t, client)

	userID := uuid.NewString()
	rec := postChat(t, srv, `{"message":"what is par","user_id":"`+userID+`"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 4)
	assert.Equal(t, "chunk", events[0].name)
	assert.Equal(t, "Par is ", events[0].data["text"])
	assert.Equal(t, "chunk", events[1].name)
	assert.Equal(t, "metadata", events[2].name)
	assert.EqualValues(t, 2, events[2].data["turn_ordinal"])
	assert.Equal(t, "done", events[3].name)
	assert.Equal(t, events[2].data["session_id"], events[3].data["session_id"])
}

func TestChatEmitsToolEvents(t *testing.T) {
	client := &testutil.ScriptedClient{Steps: []testutil.Step{
		{ToolRequests: []*ai.ToolRequest{
			{Name: "search_golf_courses", Ref: "call-1", Input: map[string]any{"query": "austin"}},
		}},
		{Text: "Austin has several public courses."},
	}}
	srv, _ := newTestServer(t, client)

	rec := postChat(t, srv, `{"message":"courses in austin","user_id":"`+uuid.NewString()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 5)
	assert.Equal(t, "tool", events[0].name)
	assert.Equal(t, "start", events[0].data["phase"])
	assert.Equal(t, "search_golf_courses", events[0].data["name"])
	assert.Equal(t, "tool", events[1].name)
	assert.Equal(t, "end", events[1].data["phase"])
	assert.Equal(t, "ok", events[1].data["status"])
	assert.Equal(t, "chunk", events[2].name)
	assert.Equal(t, "metadata", events[3].name)
	assert.Equal(t, "done", events[4].name)
}

func TestChatRejectsMissingMessage(t *testing.T) {
	srv, _ := newTestServer(t, &testutil.ScriptedClient{Steps: []testutil.Step{{Text: "hi"}}})

	rec := postChat(t, srv, `{"user_id":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_message")
}

func TestChatRejectsBadUserID(t *testing.T) {
	srv, _ := newTestServer(t, &testutil.ScriptedClient{Steps: []testutil.Step{{Text: "hi"}}})

	rec := postChat(t, srv, `{"message":"hi","user_id":"not-a-uuid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_user_id")
}

func TestChatUnknownSessionStreamsError(t *testing.T) {
	srv, _ := newTestServer(t, &testutil.ScriptedClient{Steps: []testutil.Step{{Text: "hi"}}})

	rec := postChat(t, srv, `{"message":"hi","user_id":"`+uuid.NewString()+`","session_id":"`+uuid.NewString()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, "errors after headers arrive as SSE events")

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].name)
	assert.Equal(t, "session_not_found", events[0].data["code"])
}

func TestSessionListingAndMessages(t *testing.T) {
	client := &testutil.ScriptedClient{Steps: []testutil.Step{{Text: "Gladly!"}}}
	srv, _ := newTestServer(t, client)

	userID := uuid.NewString()
	rec := postChat(t, srv, `{"message":"recommend a course near Austin","user_id":"`+userID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	events := parseSSE(t, rec.Body.String())
	sessionID := events[len(events)-1].data["session_id"].(string)

	// List sessions for the user.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?user_id="+userID, nil)
	lrec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(lrec, req)
	require.Equal(t, http.StatusOK, lrec.Code)

	var listBody struct {
		Sessions []sessionJSON `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(lrec.Body.Bytes(), &listBody))
	require.Len(t, listBody.Sessions, 1)
	assert.Equal(t, sessionID, listBody.Sessions[0].ID)
	assert.Equal(t, "recommend a course near Austin", listBody.Sessions[0].Title)

	// Fetch its messages.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID+"/messages", nil)
	mrec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(mrec, req)
	require.Equal(t, http.StatusOK, mrec.Code)

	var msgBody struct {
		Messages []messageJSON `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(mrec.Body.Bytes(), &msgBody))
	require.Len(t, msgBody.Messages, 2)
	assert.Equal(t, "user", msgBody.Messages[0].Role)
	assert.Equal(t, "recommend a course near Austin", msgBody.Messages[0].Text)
	assert.Equal(t, "assistant", msgBody.Messages[1].Role)
	assert.Equal(t, "Gladly!", msgBody.Messages[1].Text)
}

func TestSessionNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &testutil.ScriptedClient{Steps: []testutil.Step{{Text: "hi"}}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &testutil.ScriptedClient{Steps: []testutil.Step{{Text: "hi"}}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}
