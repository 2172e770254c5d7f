// Package orchestrator runs conversation turns: it decides when the model
// answers directly and when tool calls are dispatched, persists every step
// of the exchange, and multiplexes the results onto one ordered event
// stream.
package orchestrator

import (
	"time"

	"github.com/google/uuid"
)

// EventType discriminates stream events.
type EventType string

// Stream event types, in the order a typical turn produces them.
const (
	// EventToken carries incremental answer text.
	EventToken EventType = "token"

	// EventToolStart marks a tool call being dispatched.
	EventToolStart EventType = "tool_start"

	// EventToolEnd marks a tool call's normalized completion.
	EventToolEnd EventType = "tool_end"

	// EventMetadata carries the turn trailer after the answer.
	EventMetadata EventType = "metadata"

	// EventError carries a terminal turn failure.
	EventError EventType = "error"

	// EventDone closes a successful turn.
	EventDone EventType = "done"
)

// ToolEvent describes one tool call on the stream. Wire encoding is the
// transport's concern; these types never marshal directly.
type ToolEvent struct {
	CallID  string
	Name    string
	Backend string
	Status  string
	Latency time.Duration
}

// Metadata is the trailer emitted after the answer text, giving the
// client what it needs to resume the session later.
type Metadata struct {
	SessionID   uuid.UUID
	TurnOrdinal int
	Created     time.Time
	LoopLimited bool
}

// Event is one entry on the turn stream.
type Event struct {
	Type     EventType
	Text     string
	Tool     *ToolEvent
	Metadata *Metadata
	Error    string
}
