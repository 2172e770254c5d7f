package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/golfguiders/caddie/internal/session"
)

// SessionDirectory is the read side of the session store the API needs.
// *session.Store and *session.MemoryLog both satisfy it.
type SessionDirectory interface {
	GetSession(ctx context.Context, id uuid.UUID) (*session.Session, error)
	ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*session.Session, error)
	Turns(ctx context.Context, sessionID uuid.UUID) ([]*session.Turn, error)
}

type sessionJSON struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	LastOrdinal int       `json:"last_ordinal"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type messageJSON struct {
	Ordinal    int       `json:"ordinal"`
	Role       string    `json:"role"`
	Text       string    `json:"text"`
	Status     string    `json:"status"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	Backend    string    `json:"backend,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type sessionHandler struct {
	store  SessionDirectory
	logger *slog.Logger
}

// list returns a user's sessions, most recently active first.
func (h *sessionHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a UUID")
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	offset := queryInt(r, "offset", 0)

	sessions, err := h.store.ListSessions(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("listing sessions", "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list sessions")
		return
	}

	out := make([]sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionJSON(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// get returns one session record.
func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID")
		return
	}

	sess, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "session not found")
			return
		}
		h.logger.Error("getting session", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

// messages returns the session's turns in order.
func (h *sessionHandler) messages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID")
		return
	}

	turns, err := h.store.Turns(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "session not found")
			return
		}
		h.logger.Error("loading messages", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load messages")
		return
	}

	out := make([]messageJSON, 0, len(turns))
	for _, t := range turns {
		out = append(out, messageJSON{
			Ordinal:    t.Ordinal,
			Role:       t.Role,
			Text:       turnText(t),
			Status:     t.Status,
			ToolCallID: t.ToolCallID,
			Backend:    t.Backend,
			CreatedAt:  t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func toSessionJSON(s *session.Session) sessionJSON {
	return sessionJSON{
		ID:          s.ID.String(),
		Title:       s.Title,
		Status:      s.Status,
		LastOrdinal: s.LastOrdinal,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// turnText flattens a turn's parts into display text. Tool requests show
// the called tool, tool responses show the returned output.
func turnText(t *session.Turn) string {
	var b strings.Builder
	for _, part := range t.Content {
		switch {
		case part.Text != "":
			b.WriteString(part.Text)
		case part.ToolRequest != nil:
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString("[tool call: " + part.ToolRequest.Name + "]")
		case part.ToolResponse != nil:
			if out, ok := part.ToolResponse.Output.(string); ok {
				b.WriteString(out)
			}
		}
	}
	return b.String()
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
