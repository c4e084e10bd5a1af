package stream

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/dailydev/searchstream/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	updates   []Type
	completed int
	errs      []error
}

func (h *recordingHandler) OnUpdate(_ *session.Session, ev Event) {
	h.updates = append(h.updates, ev.Type())
}

func (h *recordingHandler) OnComplete(*session.Session) { h.completed++ }

func (h *recordingHandler) OnError(_ *session.Session, err error) {
	h.errs = append(h.errs, err)
}

func TestHandler(t *testing.T) {
	t.Run("HandlerFunc", func(t *testing.T) {
		var updated, completed bool
		var captured error

		handler := HandlerFunc{
			UpdateFunc:   func(*session.Session, Event) { updated = true },
			CompleteFunc: func(*session.Session) { completed = true },
			ErrorFunc:    func(_ *session.Session, err error) { captured = err },
		}

		handler.OnUpdate(nil, Completed{})
		handler.OnComplete(nil)
		handler.OnError(nil, io.ErrUnexpectedEOF)

		assert.True(t, updated)
		assert.True(t, completed)
		assert.Equal(t, io.ErrUnexpectedEOF, captured)
	})

	t.Run("empty HandlerFunc is safe", func(t *testing.T) {
		h := HandlerFunc{}
		h.OnUpdate(nil, Completed{})
		h.OnComplete(nil)
		h.OnError(nil, nil)
	})
}

func TestNotify(t *testing.T) {
	r := NewReducer(nil)

	t.Run("completion", func(t *testing.T) {
		h := &recordingHandler{}
		var snap *session.Session
		for _, ev := range []Event{created(1), NewTokenReceived{Token: "a"}, Completed{}} {
			snap, _ = r.Apply(snap, ev)
			Notify(h, snap, ev)
		}
		assert.Equal(t, []Type{TypeSessionCreated, TypeNewTokenReceived, TypeCompleted}, h.updates)
		assert.Equal(t, 1, h.completed)
		assert.Empty(t, h.errs)
	})

	t.Run("error", func(t *testing.T) {
		h := &recordingHandler{}
		ev := ErrorReceived{Code: session.ErrorRateLimit}
		snap, _ := r.Apply(nil, created(1))
		snap, _ = r.Apply(snap, ev)
		Notify(h, snap, ev)

		require.Len(t, h.errs, 1)
		var chunkErr session.ChunkError
		require.ErrorAs(t, h.errs[0], &chunkErr)
		assert.Equal(t, session.RateLimitMessage, chunkErr.Message)
		assert.Zero(t, h.completed)
	})

	t.Run("session found", func(t *testing.T) {
		started := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
		unfinished := &session.Session{ID: "s", Chunks: []session.Chunk{{ID: "c", CreatedAt: &started}}}

		h := &recordingHandler{}
		Notify(h, unfinished, SessionFound{Session: unfinished})
		assert.Equal(t, []Type{TypeSessionFound}, h.updates)
		assert.Zero(t, h.completed, "an unfinished session is not complete")
		assert.Empty(t, h.errs)

		finished := unfinished.Clone()
		finished.Chunks[0].CompletedAt = &started
		Notify(h, finished, SessionFound{Session: finished})
		assert.Equal(t, 1, h.completed)

		failed := unfinished.Clone()
		failed.Chunks[0].Error = session.NewChunkError(session.ErrorBot, "")
		Notify(h, failed, SessionFound{Session: failed})
		assert.Len(t, h.errs, 1)
		assert.Equal(t, 1, h.completed)
	})

	t.Run("nil handler", func(t *testing.T) {
		Notify(nil, nil, Completed{})
	})
}

func TestSliceSequence(t *testing.T) {
	ctx := context.Background()
	seq := NewSliceSequence(created(1), NewTokenReceived{Token: "x"}, Completed{}, NewTokenReceived{Token: "after"})

	events, err := Collect(ctx, seq)
	require.NoError(t, err)
	assert.Len(t, events, 3, "collect stops at the terminal event")

	ev, err := seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, NewTokenReceived{Token: "after"}, ev)

	_, err = seq.Next(ctx)
	assert.Equal(t, io.EOF, err)

	closed := NewSliceSequence(Completed{})
	require.NoError(t, closed.Close())
	_, err = closed.Next(ctx)
	assert.Equal(t, io.EOF, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewSliceSequence(Completed{}).Next(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}
