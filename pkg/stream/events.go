package stream

import (
	"github.com/dailydev/searchstream/pkg/session"
)

// Type is the event tag carried in the envelope's "type" field
type Type string

const (
	TypeSessionCreated     Type = "SessionCreated"
	TypeWebSearchFinished  Type = "WebSearchFinished"
	TypeWebResultsFiltered Type = "WebResultsFiltered"
	TypeStatusUpdated      Type = "StatusUpdated"
	TypeNewTokenReceived   Type = "NewTokenReceived"
	TypeCompleted          Type = "Completed"
	TypeError              Type = "Error"
	TypeSessionFound       Type = "SessionFound"
)

// Event is one decoded message of a session stream. The set of
// implementations is closed; see the Type constants.
type Event interface {
	Type() Type
	isEvent()
}

// SessionCreated starts a new conversation
type SessionCreated struct {
	ID      string
	ChunkID string
	Steps   int
	Status  string
	// Prompt is the text the stream was opened with, stamped by the transport.
	Prompt string
}

// WebSearchFinished carries the sources found for the prompt
type WebSearchFinished struct {
	Sources []session.Source
	Status  string
}

// WebResultsFiltered only reports a new status
type WebResultsFiltered struct {
	Status string
}

// StatusUpdated reports a new status and advances progress
type StatusUpdated struct {
	Status string
}

// NewTokenReceived carries the next response fragment
type NewTokenReceived struct {
	Token string
}

// Completed marks the end of a successful answer
type Completed struct{}

// ErrorReceived marks a failed answer, either reported by the server or
// synthesized by the transport.
type ErrorReceived struct {
	Code    session.ErrorCode
	Message string
	Prompt  string
}

// SessionFound replaces the snapshot with a session fetched by id
type SessionFound struct {
	Session *session.Session
}

func (SessionCreated) Type() Type     { return TypeSessionCreated }
func (WebSearchFinished) Type() Type  { return TypeWebSearchFinished }
func (WebResultsFiltered) Type() Type { return TypeWebResultsFiltered }
func (StatusUpdated) Type() Type      { return TypeStatusUpdated }
func (NewTokenReceived) Type() Type   { return TypeNewTokenReceived }
func (Completed) Type() Type          { return TypeCompleted }
func (ErrorReceived) Type() Type      { return TypeError }
func (SessionFound) Type() Type       { return TypeSessionFound }

func (SessionCreated) isEvent()     {}
func (WebSearchFinished) isEvent()  {}
func (WebResultsFiltered) isEvent() {}
func (StatusUpdated) isEvent()      {}
func (NewTokenReceived) isEvent()   {}
func (Completed) isEvent()          {}
func (ErrorReceived) isEvent()      {}
func (SessionFound) isEvent()       {}

// Terminal reports whether ev ends a stream. A SessionFound ends it only
// when the found session has no active chunk or its chunk already finished;
// an unfinished session keeps streaming.
func Terminal(ev Event) bool {
	switch e := ev.(type) {
	case Completed, ErrorReceived:
		return true
	case SessionFound:
		c := e.Session.Current()
		return c == nil || c.Terminal()
	}
	return false
}

// Unexpected builds the synthetic error used for transport-level failures
func Unexpected(prompt string) ErrorReceived {
	return ErrorReceived{
		Code:    session.ErrorUnexpected,
		Message: session.UnexpectedMessage,
		Prompt:  prompt,
	}
}
