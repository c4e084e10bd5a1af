package stream

import (
	"context"
	"io"
	"sync"
)

// Sequence is a lazy, non-restartable series of events for one stream.
// Next returns io.EOF once the sequence is exhausted or closed.
type Sequence interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// SliceSequence serves a fixed list of events
type SliceSequence struct {
	mu     sync.Mutex
	events []Event
	pos    int
	closed bool
}

// NewSliceSequence creates a sequence over events
func NewSliceSequence(events ...Event) *SliceSequence {
	return &SliceSequence{events: events}
}

// Next implements Sequence
func (s *SliceSequence) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.pos >= len(s.events) {
		return nil, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// Close implements Sequence
func (s *SliceSequence) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Collect drains seq into a slice, stopping at the first terminal event
func Collect(ctx context.Context, seq Sequence) ([]Event, error) {
	var out []Event
	for {
		ev, err := seq.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
		if Terminal(ev) {
			return out, nil
		}
	}
}

var _ Sequence = (*SliceSequence)(nil)
