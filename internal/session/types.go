// Package session provides the durable conversation log and the in-memory
// working state of one conversation.
//
// A Session owns an append-only sequence of Turns. Turn ordinals are
// assigned by the store under a per-session lock, so they are strictly
// increasing and gapless no matter how the callers interleave.
package session

import (
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Turn statuses. A truncated turn holds exactly the prefix that was
// streamed to the caller before cancellation.
const (
	StatusCompleted = "completed"
	StatusTruncated = "truncated"
	StatusFailed    = "failed"
)

// Session statuses.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionErrored   = "errored"
)

// TitleMaxLength bounds session titles derived from the first message.
const TitleMaxLength = 100

// Session is one user's resumable conversation.
type Session struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Status      string
	LastOrdinal int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Turn is one immutable unit of conversation content. Content stores
// Genkit's ai.Part slice, serialized as JSONB in the database, so tool
// requests and tool responses survive a resume byte-for-byte.
type Turn struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	Ordinal    int
	Role       string
	Content    []*ai.Part
	Status     string
	ToolCallID string // tool turns: originating call ref
	Backend    string // tool turns: backend that produced the result
	CreatedAt  time.Time
}

// Message converts the turn into the model-facing message form.
func (t *Turn) Message() *ai.Message {
	role := ai.RoleUser
	switch t.Role {
	case RoleAssistant:
		role = ai.RoleModel
	case RoleTool:
		role = ai.RoleTool
	}
	return &ai.Message{Role: role, Content: t.Content}
}

// TitleFromMessage derives a session title from the first user message,
// truncated to TitleMaxLength runes.
func TitleFromMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= TitleMaxLength {
		return message
	}
	return string(runes[:TitleMaxLength]) + "..."
}
