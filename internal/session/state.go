package session

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// Log is the durable turn log the State writes through. *Store implements
// it in production; MemoryLog implements it for tests and ephemeral runs.
type Log interface {
	CreateSession(ctx context.Context, userID uuid.UUID, title string) (*Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	Append(ctx context.Context, sessionID uuid.UUID, turn *Turn) (*Turn, error)
	Turns(ctx context.Context, sessionID uuid.UUID) ([]*Turn, error)
	LatestOrdinal(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// State is the in-memory working view of one active conversation.
//
// Every append persists through the Log before the in-memory view is
// extended, so the message list handed to the model is always a
// prefix-consistent reconstruction of the persisted turns: nothing
// persisted is omitted, nothing unpersisted is fed to the model.
//
// State is not safe for concurrent use; the orchestrator's per-session
// gate guarantees a single writer.
type State struct {
	session *Session
	log     Log

	turns    []*Turn
	messages []*ai.Message
}

// Hydrate loads a session and rebuilds its message list from the log.
func Hydrate(ctx context.Context, log Log, sessionID uuid.UUID) (*State, error) {
	sess, err := log.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	turns, err := log.Turns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("hydrating session %s: %w", sessionID, err)
	}

	st := &State{session: sess, log: log, turns: turns}
	st.messages = make([]*ai.Message, 0, len(turns))
	for _, t := range turns {
		st.messages = append(st.messages, t.Message())
	}
	return st, nil
}

// Create starts a fresh session for the user. The title is derived from
// the first message.
func Create(ctx context.Context, log Log, userID uuid.UUID, firstMessage string) (*State, error) {
	sess, err := log.CreateSession(ctx, userID, TitleFromMessage(firstMessage))
	if err != nil {
		return nil, err
	}
	return &State{session: sess, log: log}, nil
}

// Session returns the session record.
func (s *State) Session() *Session { return s.session }

// Turns returns the ordered turn log (shared slice; callers must not mutate).
func (s *State) Turns() []*Turn { return s.turns }

// Messages returns a copy of the full reconstructed message list.
func (s *State) Messages() []*ai.Message {
	out := make([]*ai.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Window returns the most recent limit messages, the slice fed to the
// model. limit <= 0 means no bound.
//
// The cut never opens on a tool response whose originating assistant
// tool-call message fell outside the window: providers reject a message
// list with orphaned tool results, so the head advances to the next
// non-tool message. Tool responses inside the window always follow their
// call (appends are ordered), so only the head needs snapping.
func (s *State) Window(limit int) []*ai.Message {
	msgs := s.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
		for len(msgs) > 0 && msgs[0].Role == ai.RoleTool {
			msgs = msgs[1:]
		}
	}
	out := make([]*ai.Message, len(msgs))
	copy(out, msgs)
	return out
}

// AppendUserMessage persists and records the inbound user message.
func (s *State) AppendUserMessage(ctx context.Context, text string) (*Turn, error) {
	return s.append(ctx, &Turn{
		Role:    RoleUser,
		Content: []*ai.Part{ai.NewTextPart(text)},
	})
}

// AppendAssistantText persists a final (or truncated) assistant answer.
func (s *State) AppendAssistantText(ctx context.Context, text, status string) (*Turn, error) {
	return s.append(ctx, &Turn{
		Role:    RoleAssistant,
		Status:  status,
		Content: []*ai.Part{ai.NewTextPart(text)},
	})
}

// AppendToolCalls persists the assistant turn holding the round's tool
// requests. Tool result turns reference these call ids; the assistant
// turn is always written first.
func (s *State) AppendToolCalls(ctx context.Context, requests []*ai.ToolRequest) (*Turn, error) {
	parts := make([]*ai.Part, 0, len(requests))
	for _, req := range requests {
		parts = append(parts, ai.NewToolRequestPart(req))
	}
	return s.append(ctx, &Turn{Role: RoleAssistant, Content: parts})
}

// AppendToolResult persists one normalized tool result as a tool turn.
func (s *State) AppendToolResult(ctx context.Context, callID, toolName, backendName, output string, failed bool) (*Turn, error) {
	status := StatusCompleted
	if failed {
		status = StatusFailed
	}
	return s.append(ctx, &Turn{
		Role:       RoleTool,
		Status:     status,
		ToolCallID: callID,
		Backend:    backendName,
		Content: []*ai.Part{ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   toolName,
			Ref:    callID,
			Output: output,
		})},
	})
}

// append writes through the log, then extends the in-memory view with
// the persisted turn.
func (s *State) append(ctx context.Context, turn *Turn) (*Turn, error) {
	persisted, err := s.log.Append(ctx, s.session.ID, turn)
	if err != nil {
		return nil, err
	}
	s.session.LastOrdinal = persisted.Ordinal
	s.turns = append(s.turns, persisted)
	s.messages = append(s.messages, persisted.Message())
	return persisted, nil
}
