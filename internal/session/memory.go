package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLog is an in-memory Log. It backs tests and ephemeral runs where
// no database is configured; semantics match Store, including gapless
// ordinal assignment under concurrency.
type MemoryLog struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	turns    map[uuid.UUID][]*Turn
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		sessions: make(map[uuid.UUID]*Session),
		turns:    make(map[uuid.UUID][]*Turn),
	}
}

func (m *MemoryLog) CreateSession(_ context.Context, userID uuid.UUID, title string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Status:    SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.sessions[sess.ID] = sess
	return copySession(sess), nil
}

func (m *MemoryLog) GetSession(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return copySession(sess), nil
}

func (m *MemoryLog) ListSessions(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Session
	for _, sess := range m.sessions {
		if sess.UserID == userID {
			out = append(out, copySession(sess))
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].UpdatedAt.After(out[i].UpdatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryLog) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	sess.Status = status
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryLog) Append(_ context.Context, sessionID uuid.UUID, turn *Turn) (*Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	sess.LastOrdinal++
	sess.UpdatedAt = time.Now().UTC()

	persisted := *turn
	persisted.SessionID = sessionID
	persisted.Ordinal = sess.LastOrdinal
	if persisted.ID == uuid.Nil {
		persisted.ID = uuid.New()
	}
	if persisted.Status == "" {
		persisted.Status = StatusCompleted
	}
	persisted.CreatedAt = sess.UpdatedAt

	m.turns[sessionID] = append(m.turns[sessionID], &persisted)
	out := persisted
	return &out, nil
}

func (m *MemoryLog) Turns(_ context.Context, sessionID uuid.UUID) ([]*Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	stored := m.turns[sessionID]
	out := make([]*Turn, len(stored))
	for i, t := range stored {
		copied := *t
		out[i] = &copied
	}
	return out, nil
}

func (m *MemoryLog) LatestOrdinal(_ context.Context, sessionID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return 0, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return sess.LastOrdinal, nil
}

func copySession(s *Session) *Session {
	out := *s
	return &out
}
