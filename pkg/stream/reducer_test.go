package stream

import (
	"strings"
	"testing"
	"time"

	"github.com/dailydev/searchstream/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func created(steps int) SessionCreated {
	return SessionCreated{ID: "s1", ChunkID: "c1", Steps: steps, Status: "Starting", Prompt: "explain backpropagation"}
}

func applyAll(r *Reducer, prev *session.Session, events ...Event) *session.Session {
	for _, ev := range events {
		prev, _ = r.Apply(prev, ev)
	}
	return prev
}

func TestReducerSessionCreated(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewReducer(fixedClock(now))

	snap, applied := r.Apply(nil, created(3))
	require.True(t, applied)
	require.Len(t, snap.Chunks, 1)

	assert.Equal(t, "s1", snap.ID)
	assert.Equal(t, now, snap.CreatedAt)

	c := snap.Current()
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "explain backpropagation", c.Prompt)
	assert.Equal(t, "", c.Response)
	assert.Equal(t, "Starting", c.Status)
	assert.Empty(t, c.Sources)
	assert.NotNil(t, c.Sources)
	assert.Equal(t, 3, c.Steps)
	assert.Equal(t, 0, c.Progress)
	require.NotNil(t, c.CreatedAt)
	assert.Nil(t, c.CompletedAt)
	assert.True(t, snap.InProgress())

	t.Run("replaces an existing snapshot", func(t *testing.T) {
		old := applyAll(r, snap, NewTokenReceived{Token: "old"}, Completed{})
		next, applied := r.Apply(old, SessionCreated{ID: "s2", Steps: 2, Prompt: "again"})
		require.True(t, applied)
		assert.Equal(t, "s2", next.ID)
		assert.Equal(t, "s2", next.Current().ID, "chunk id falls back to session id")
		assert.Equal(t, "", next.Current().Response)
		assert.True(t, next.InProgress())
	})
}

func TestReducerAppendOnlyResponse(t *testing.T) {
	r := NewReducer(nil)
	tokens := []string{"Back", "", "prop", " ", "", "ag", "ation ✓", "\n```go\n"}

	snap, _ := r.Apply(nil, created(3))
	for _, tok := range tokens {
		var applied bool
		snap, applied = r.Apply(snap, NewTokenReceived{Token: tok})
		assert.True(t, applied)
	}

	assert.Equal(t, strings.Join(tokens, ""), snap.Current().Response)
}

func TestReducerDoesNotMutateInput(t *testing.T) {
	r := NewReducer(nil)
	first, _ := r.Apply(nil, created(3))
	second, _ := r.Apply(first, NewTokenReceived{Token: "a"})
	third, _ := r.Apply(second, WebSearchFinished{Sources: []session.Source{{ID: "x"}}})

	assert.Equal(t, "", first.Current().Response)
	assert.Equal(t, "a", second.Current().Response)
	assert.Empty(t, second.Current().Sources)
	assert.Len(t, third.Current().Sources, 1)
}

func TestReducerProgress(t *testing.T) {
	r := NewReducer(nil)

	for k := 0; k <= 5; k++ {
		snap, _ := r.Apply(nil, created(3))
		for i := 0; i < k; i++ {
			snap, _ = r.Apply(snap, StatusUpdated{Status: "step"})
		}
		assert.Equal(t, min(k, 3), snap.Current().Progress, "after %d status updates", k)

		done, _ := r.Apply(snap, Completed{})
		assert.Equal(t, 3, done.Current().Progress)

		failed, _ := r.Apply(snap, ErrorReceived{Code: session.ErrorCommon, Message: "boom"})
		assert.Equal(t, session.ProgressFailed, failed.Current().Progress)
	}

	t.Run("other status events do not advance progress", func(t *testing.T) {
		snap := applyAll(r, nil, created(3),
			WebSearchFinished{Status: "Found"},
			WebResultsFiltered{Status: "Narrowing down search results..."},
		)
		assert.Equal(t, 0, snap.Current().Progress)
		assert.Equal(t, "Narrowing down search results...", snap.Current().Status)
	})
}

func TestReducerStatusAndSources(t *testing.T) {
	r := NewReducer(nil)
	snap := applyAll(r, nil, created(3),
		WebSearchFinished{Sources: []session.Source{{ID: "a"}, {ID: "b"}}, Status: "Searched"},
	)
	assert.Len(t, snap.Current().Sources, 2)
	assert.Equal(t, "Searched", snap.Current().Status)

	snap = applyAll(r, snap, WebSearchFinished{Sources: []session.Source{{ID: "c"}}})
	require.Len(t, snap.Current().Sources, 1, "sources are replaced, not merged")
	assert.Equal(t, "c", snap.Current().Sources[0].ID)
	assert.Equal(t, "Searched", snap.Current().Status, "empty status keeps the previous one")

	snap = applyAll(r, snap, StatusUpdated{Status: "Writing"})
	assert.Equal(t, "Writing", snap.Current().Status)
}

func TestReducerTerminalEvents(t *testing.T) {
	now := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	r := NewReducer(fixedClock(now))

	t.Run("completed stamps completion", func(t *testing.T) {
		snap := applyAll(r, nil, created(4), Completed{})
		c := snap.Current()
		require.NotNil(t, c.CompletedAt)
		assert.Equal(t, now, *c.CompletedAt)
		assert.False(t, snap.InProgress())
	})

	t.Run("rate limit message is substituted", func(t *testing.T) {
		snap := applyAll(r, nil, created(4), ErrorReceived{Code: session.ErrorRateLimit, Message: "429 from upstream"})
		c := snap.Current()
		require.NotNil(t, c.Error)
		assert.Equal(t, session.RateLimitMessage, c.Error.Message)
		assert.Equal(t, session.ProgressFailed, c.Progress)
	})

	t.Run("events after completion do not crash and are ignored", func(t *testing.T) {
		snap := applyAll(r, nil, created(2), NewTokenReceived{Token: "done"}, Completed{})

		for _, ev := range []Event{
			NewTokenReceived{Token: "late"},
			StatusUpdated{Status: "late"},
			ErrorReceived{Code: session.ErrorCommon},
			Completed{},
		} {
			next, applied := r.Apply(snap, ev)
			assert.False(t, applied, "%s after completion", ev.Type())
			assert.Same(t, snap, next)
		}
		assert.Equal(t, "done", snap.Current().Response)
		assert.Nil(t, snap.Current().Error)
	})

	t.Run("completed after error is ignored", func(t *testing.T) {
		snap := applyAll(r, nil, created(2), ErrorReceived{Code: session.ErrorBot, Message: "no"}, Completed{})
		assert.Nil(t, snap.Current().CompletedAt)
		assert.Equal(t, session.ProgressFailed, snap.Current().Progress)
	})
}

func TestReducerBeforeCreation(t *testing.T) {
	r := NewReducer(nil)

	for _, ev := range []Event{NewTokenReceived{Token: "x"}, StatusUpdated{Status: "s"}, Completed{}} {
		snap, applied := r.Apply(nil, ev)
		assert.False(t, applied)
		assert.Nil(t, snap)
	}

	snap, applied := r.Apply(nil, Unexpected("what is go"))
	require.True(t, applied)
	c := snap.Current()
	require.NotNil(t, c)
	assert.Equal(t, "what is go", c.Prompt)
	assert.Equal(t, session.ErrorUnexpected, c.Error.Code)
	assert.Equal(t, session.UnexpectedMessage, c.Error.Message)
	assert.Equal(t, session.ProgressFailed, c.Progress)
	assert.False(t, snap.InProgress())
}

func TestReducerSessionFound(t *testing.T) {
	r := NewReducer(nil)
	done := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	payload := &session.Session{
		ID:        "found",
		CreatedAt: done,
		Chunks: []session.Chunk{{
			ID:          "fc",
			Prompt:      "old question",
			Response:    "old answer",
			Sources:     []session.Source{{ID: "z"}},
			Steps:       3,
			Progress:    3,
			CreatedAt:   &done,
			CompletedAt: &done,
		}},
	}

	partial := applyAll(r, nil, created(3), NewTokenReceived{Token: "partial"},
		WebSearchFinished{Sources: []session.Source{{ID: "a"}}})

	snap, applied := r.Apply(partial, SessionFound{Session: payload})
	require.True(t, applied)
	assert.Equal(t, payload, snap)
	assert.NotSame(t, payload, snap)

	_, applied = r.Apply(partial, SessionFound{})
	assert.False(t, applied)
}

func TestReducerUnfinishedSessionFound(t *testing.T) {
	r := NewReducer(nil)
	started := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	found := SessionFound{Session: &session.Session{
		ID:        "live",
		CreatedAt: started,
		Chunks: []session.Chunk{{
			ID:        "lc",
			Prompt:    "explain backpropagation",
			Response:  "Back",
			Steps:     2,
			Progress:  1,
			CreatedAt: &started,
		}},
	}}
	assert.False(t, Terminal(found), "an unfinished session keeps streaming")

	snap, applied := r.Apply(nil, found)
	require.True(t, applied)
	assert.True(t, snap.InProgress())

	snap = applyAll(r, snap, NewTokenReceived{Token: "prop"}, Completed{})
	c := snap.Current()
	assert.Equal(t, "Backprop", c.Response)
	assert.NotNil(t, c.CompletedAt)
	assert.Equal(t, 2, c.Progress)

	assert.True(t, Terminal(SessionFound{}), "nothing found ends the stream")
	assert.True(t, Terminal(SessionFound{Session: &session.Session{ID: "empty"}}))
	assert.True(t, Terminal(SessionFound{Session: snap}))
}

func TestEndToEndScenario(t *testing.T) {
	r := NewReducer(nil)

	snap, _ := r.Apply(nil, SessionCreated{ID: "s1", Steps: 3, Prompt: "explain backpropagation"})
	assert.Equal(t, "explain backpropagation", snap.Chunks[0].Prompt)
	assert.Equal(t, 0, snap.Chunks[0].Progress)

	snap, _ = r.Apply(snap, StatusUpdated{Status: "Searching"})
	assert.Equal(t, 1, snap.Chunks[0].Progress)

	snap = applyAll(r, snap, NewTokenReceived{Token: "Back"}, NewTokenReceived{Token: "prop"})
	assert.Equal(t, "Backprop", snap.Chunks[0].Response)

	snap, _ = r.Apply(snap, Completed{})
	assert.NotNil(t, snap.Chunks[0].CompletedAt)
	assert.Equal(t, 3, snap.Chunks[0].Progress)
}
