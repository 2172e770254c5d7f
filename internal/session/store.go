package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists sessions and turns in PostgreSQL.
//
// Store is safe for concurrent use. Ordinal assignment is serialized per
// session by updating the session row inside the append transaction: the
// row lock guarantees two concurrent appends never receive the same
// ordinal and the sequence is gapless.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// CreateSession creates a new session for the user. Title may be empty.
func (s *Store) CreateSession(ctx context.Context, userID uuid.UUID, title string) (*Session, error) {
	var titlePtr *string
	if title != "" {
		titlePtr = &title
	}

	sess := &Session{UserID: userID, Title: title, Status: SessionActive}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (user_id, title)
		 VALUES ($1, $2)
		 RETURNING id, status, last_ordinal, created_at, updated_at`,
		userID, titlePtr,
	).Scan(&sess.ID, &sess.Status, &sess.LastOrdinal, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "user", userID)
	return sess, nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess := &Session{ID: id}
	var title *string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, title, status, last_ordinal, created_at, updated_at
		 FROM sessions WHERE id = $1`, id,
	).Scan(&sess.UserID, &title, &sess.Status, &sess.LastOrdinal, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	if title != nil {
		sess.Title = *title
	}
	return sess, nil
}

// ListSessions lists a user's sessions, most recently active first.
func (s *Store) ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, status, last_ordinal, created_at, updated_at
		 FROM sessions WHERE user_id = $1
		 ORDER BY updated_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{UserID: userID}
		var title *string
		if err := rows.Scan(&sess.ID, &title, &sess.Status, &sess.LastOrdinal, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if title != nil {
			sess.Title = *title
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// SetStatus updates the session status.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("updating session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

// Append persists a turn, assigning the next ordinal atomically. The
// returned turn carries the assigned ordinal and creation time.
func (s *Store) Append(ctx context.Context, sessionID uuid.UUID, turn *Turn) (*Turn, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning append: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The UPDATE takes the session row lock; concurrent appends to the
	// same session queue here, keeping ordinals gapless.
	var ordinal int
	err = tx.QueryRow(ctx,
		`UPDATE sessions SET last_ordinal = last_ordinal + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING last_ordinal`, sessionID,
	).Scan(&ordinal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("assigning ordinal: %w", err)
	}

	contentJSON, err := json.Marshal(turn.Content)
	if err != nil {
		return nil, fmt.Errorf("marshaling turn content: %w", err)
	}

	persisted := *turn
	persisted.SessionID = sessionID
	persisted.Ordinal = ordinal
	if persisted.ID == uuid.Nil {
		persisted.ID = uuid.New()
	}
	if persisted.Status == "" {
		persisted.Status = StatusCompleted
	}

	var toolCallID, backendName *string
	if persisted.ToolCallID != "" {
		toolCallID = &persisted.ToolCallID
	}
	if persisted.Backend != "" {
		backendName = &persisted.Backend
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO turns (id, session_id, ordinal, role, content, status, tool_call_id, backend)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		persisted.ID, sessionID, ordinal, persisted.Role, contentJSON,
		persisted.Status, toolCallID, backendName,
	).Scan(&persisted.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting turn: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing append: %w", err)
	}

	return &persisted, nil
}

// Turns loads the full ordered turn log for a session.
func (s *Store) Turns(ctx context.Context, sessionID uuid.UUID) ([]*Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ordinal, role, content, status, tool_call_id, backend, created_at
		 FROM turns WHERE session_id = $1
		 ORDER BY ordinal`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading turns: %w", err)
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		t := &Turn{SessionID: sessionID}
		var contentJSON []byte
		var toolCallID, backendName *string
		if err := rows.Scan(&t.ID, &t.Ordinal, &t.Role, &contentJSON, &t.Status, &toolCallID, &backendName, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		var parts []*ai.Part
		if err := json.Unmarshal(contentJSON, &parts); err != nil {
			return nil, fmt.Errorf("unmarshaling turn %s content: %w", t.ID, err)
		}
		t.Content = parts
		if toolCallID != nil {
			t.ToolCallID = *toolCallID
		}
		if backendName != nil {
			t.Backend = *backendName
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading turns: %w", err)
	}
	return turns, nil
}

// LatestOrdinal returns the highest assigned ordinal (0 for a fresh session).
func (s *Store) LatestOrdinal(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var ordinal int
	err := s.pool.QueryRow(ctx,
		`SELECT last_ordinal FROM sessions WHERE id = $1`, sessionID,
	).Scan(&ordinal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return 0, fmt.Errorf("reading latest ordinal: %w", err)
	}
	return ordinal, nil
}
