package session

import (
	"time"
)

// ProgressFailed marks a chunk whose stream ended in an error.
const ProgressFailed = -1

// Key identifies a snapshot in the session cache
type Key struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// String returns the key as "user/session"
func (k Key) String() string {
	return k.UserID + "/" + k.SessionID
}

// Source is a citation attached to a chunk once the web search finishes
type Source struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Chunk is one prompt/response unit within a session
type Chunk struct {
	ID          string      `json:"id"`
	Prompt      string      `json:"prompt"`
	Response    string      `json:"response"`
	Status      string      `json:"status,omitempty"`
	Sources     []Source    `json:"sources"`
	Steps       int         `json:"steps"`
	Progress    int         `json:"progress"`
	CreatedAt   *time.Time  `json:"createdAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	Error       *ChunkError `json:"error,omitempty"`
	Feedback    Feedback    `json:"feedback,omitempty"`
}

// Terminal reports whether the chunk has completed or failed
func (c *Chunk) Terminal() bool {
	return c.CompletedAt != nil || c.Error != nil
}

// Failed reports whether the chunk ended with an error
func (c *Chunk) Failed() bool {
	return c.Error != nil
}

// Session is one search/answer exchange. Only the first chunk is active.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Chunks    []Chunk   `json:"chunks"`
}

// Current returns the active chunk, or nil when the session has not been
// initialized yet.
func (s *Session) Current() *Chunk {
	if s == nil || len(s.Chunks) == 0 {
		return nil
	}
	return &s.Chunks[0]
}

// InProgress reports whether the active chunk has started and not completed.
// Progress is deliberately not consulted: it is an approximate counter.
func (s *Session) InProgress() bool {
	c := s.Current()
	if c == nil {
		return false
	}
	return c.CreatedAt != nil && c.CompletedAt == nil
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	out := &Session{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
	}
	if s.Chunks != nil {
		out.Chunks = make([]Chunk, len(s.Chunks))
		for i := range s.Chunks {
			out.Chunks[i] = s.Chunks[i].clone()
		}
	}
	return out
}

func (c Chunk) clone() Chunk {
	out := c
	if c.Sources != nil {
		out.Sources = make([]Source, len(c.Sources))
		copy(out.Sources, c.Sources)
	}
	if c.CreatedAt != nil {
		t := *c.CreatedAt
		out.CreatedAt = &t
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	if c.Error != nil {
		e := *c.Error
		out.Error = &e
	}
	return out
}
