package orchestrator

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamPreservesOrder(t *testing.T) {
	s := NewStream(128)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, s.Publish(ctx, Event{Type: EventToken, Text: strconv.Itoa(i)}))
	}
	s.Close()

	i := 0
	for ev := range s.Events() {
		assert.Equal(t, strconv.Itoa(i), ev.Text)
		i++
	}
	assert.Equal(t, 100, i)
}

func TestStreamBackpressureBlocksProducer(t *testing.T) {
	s := NewStream(1)
	ctx := context.Background()

	require.NoError(t, s.Publish(ctx, Event{Type: EventToken, Text: "first"}))

	unblocked := make(chan struct{})
	go func() {
		// Buffer is full; this publish must wait for the consumer.
		_ = s.Publish(ctx, Event{Type: EventToken, Text: "second"})
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("publish returned while buffer was full")
	case <-time.After(20 * time.Millisecond):
	}

	ev := <-s.Events()
	assert.Equal(t, "first", ev.Text)

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("publish never unblocked after consume")
	}
	s.Close()
}

func TestStreamPublishAfterCancel(t *testing.T) {
	s := NewStream(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Publish(ctx, Event{Type: EventToken, Text: "late"})
	assert.ErrorIs(t, err, context.Canceled)

	s.Close()
	assert.Empty(t, collectAll(s))
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	s := NewStream(4)
	require.NoError(t, s.Publish(context.Background(), Event{Type: EventDone}))
	s.Close()
	s.Close()

	err := s.Publish(context.Background(), Event{Type: EventToken})
	assert.ErrorIs(t, err, ErrStreamClosed)

	events := collectAll(s)
	require.Len(t, events, 1)
	assert.Equal(t, EventDone, events[0].Type)
}

func collectAll(s *Stream) []Event {
	var events []Event
	for ev := range s.Events() {
		events = append(events, ev)
	}
	return events
}
