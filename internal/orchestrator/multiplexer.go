package orchestrator

import (
	"context"
	"sync"
)

// DefaultStreamBuffer is the event buffer used when none is configured.
const DefaultStreamBuffer = 64

// Stream is the ordered, bounded event channel between a running turn and
// its consumer. Publishing blocks when the consumer falls behind; events
// are never dropped or reordered.
type Stream struct {
	ch chan Event

	mu     sync.Mutex
	closed bool
}

// NewStream creates a stream with the given buffer. Non-positive buffers
// use DefaultStreamBuffer.
func NewStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	return &Stream{ch: make(chan Event, buffer)}
}

// Publish appends an event, blocking while the buffer is full. It fails
// when the context is done or the stream was closed.
func (s *Stream) Publish(ctx context.Context, ev Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	s.mu.Unlock()

	// Checked first so a canceled turn never emits another event, even
	// when the buffer has room.
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case s.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream. Safe to call more than once. The producer calls
// Close when the turn finishes; consumers range over Events until it is
// drained.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Events returns the consumer side of the stream.
func (s *Stream) Events() <-chan Event {
	return s.ch
}
