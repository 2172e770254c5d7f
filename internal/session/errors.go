package session

import "errors"

// Sentinel errors for session operations. Check with errors.Is.
var (
	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDurabilityGap indicates a turn was surfaced to the caller but
	// could not be persisted. The response already sent stands; the gap
	// is logged, never hidden.
	ErrDurabilityGap = errors.New("durability gap: turn surfaced but not persisted")
)
