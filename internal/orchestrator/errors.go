package orchestrator

import "errors"

// Sentinel errors for turn execution. Check with errors.Is.
var (
	// ErrSessionBusy indicates a turn is already running on the session.
	// Concurrent turns would interleave ordinals, so the second caller is
	// rejected instead of queued.
	ErrSessionBusy = errors.New("session busy")

	// ErrMalformedCompletion indicates the model returned neither answer
	// text nor a valid tool request.
	ErrMalformedCompletion = errors.New("malformed completion")

	// ErrToolLoopLimit indicates the model kept requesting tools past the
	// round limit. The turn still completes: the final round runs with
	// tools disabled and the condition is surfaced in the metadata.
	ErrToolLoopLimit = errors.New("tool loop limit exceeded")

	// ErrStreamClosed indicates a publish on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)
