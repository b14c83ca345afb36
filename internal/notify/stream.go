package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/table-reservation/internal/queue"
)

// ErrStreamFull is reported when a stream subscriber drops an event
// because its reader fell behind.
var ErrStreamFull = errors.New("stream buffer full")

// Stream is a buffered channel subscriber backing one live dashboard
// connection. Notify never blocks.
type Stream struct {
	ch     chan queue.Event
	mu     sync.Mutex
	closed bool
}

// NewStream returns a stream holding up to buffer undelivered events.
func NewStream(buffer int) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{ch: make(chan queue.Event, buffer)}
}

// Events is the receive side of the stream. It is closed by Close.
func (s *Stream) Events() <-chan queue.Event { return s.ch }

func (s *Stream) Notify(_ context.Context, ev queue.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- ev:
		return nil
	default:
		return ErrStreamFull
	}
}

// Close closes the event channel. Later notifications are discarded.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
