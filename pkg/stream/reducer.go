package stream

import (
	"time"

	"github.com/dailydev/searchstream/pkg/session"
)

// Reducer folds stream events into session snapshots. Apply never mutates its
// input; every applied event yields a fresh snapshot.
type Reducer struct {
	now func() time.Time
}

// NewReducer creates a reducer stamping times from now. A nil now uses
// time.Now.
func NewReducer(now func() time.Time) *Reducer {
	if now == nil {
		now = time.Now
	}
	return &Reducer{now: now}
}

// Apply returns the snapshot that results from applying ev to prev, and
// whether ev was applied. Ignored events return prev unchanged.
//
// Once the active chunk is terminal, further tokens, status changes and
// terminal events are ignored. Only SessionCreated and SessionFound can
// replace a terminal snapshot.
func (r *Reducer) Apply(prev *session.Session, ev Event) (*session.Session, bool) {
	switch e := ev.(type) {
	case SessionFound:
		if e.Session == nil {
			return prev, false
		}
		return e.Session.Clone(), true
	case SessionCreated:
		return r.create(e), true
	}

	current := prev.Current()
	if current == nil {
		if e, ok := ev.(ErrorReceived); ok {
			return r.failBeforeCreate(e), true
		}
		return prev, false
	}
	if current.Terminal() {
		return prev, false
	}

	switch e := ev.(type) {
	case NewTokenReceived:
		if e.Token == "" {
			return prev, true
		}
		next := prev.Clone()
		next.Chunks[0].Response += e.Token
		return next, true

	case StatusUpdated:
		next := prev.Clone()
		c := &next.Chunks[0]
		setStatus(c, e.Status)
		if c.Progress < c.Steps {
			c.Progress++
		}
		return next, true

	case WebResultsFiltered:
		next := prev.Clone()
		setStatus(&next.Chunks[0], e.Status)
		return next, true

	case WebSearchFinished:
		next := prev.Clone()
		c := &next.Chunks[0]
		c.Sources = make([]session.Source, len(e.Sources))
		copy(c.Sources, e.Sources)
		setStatus(c, e.Status)
		return next, true

	case Completed:
		next := prev.Clone()
		c := &next.Chunks[0]
		now := r.now()
		c.CompletedAt = &now
		c.Progress = c.Steps
		return next, true

	case ErrorReceived:
		next := prev.Clone()
		c := &next.Chunks[0]
		c.Error = session.NewChunkError(e.Code, e.Message)
		c.Progress = session.ProgressFailed
		return next, true
	}

	return prev, false
}

func (r *Reducer) create(e SessionCreated) *session.Session {
	now := r.now()
	chunkID := e.ChunkID
	if chunkID == "" {
		chunkID = e.ID
	}
	return &session.Session{
		ID:        e.ID,
		CreatedAt: now,
		Chunks: []session.Chunk{{
			ID:        chunkID,
			Prompt:    e.Prompt,
			Status:    e.Status,
			Sources:   []session.Source{},
			Steps:     e.Steps,
			Progress:  0,
			CreatedAt: &now,
		}},
	}
}

// failBeforeCreate records an error that arrived before the session was
// created so the failure is still observable on a snapshot. The chunk never
// started, so it carries no CreatedAt.
func (r *Reducer) failBeforeCreate(e ErrorReceived) *session.Session {
	return &session.Session{
		CreatedAt: r.now(),
		Chunks: []session.Chunk{{
			Prompt:   e.Prompt,
			Sources:  []session.Source{},
			Progress: session.ProgressFailed,
			Error:    session.NewChunkError(e.Code, e.Message),
		}},
	}
}

// setStatus overwrites the status when the event carries one
func setStatus(c *session.Chunk, status string) {
	if status != "" {
		c.Status = status
	}
}
