package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dailydev/searchstream/pkg/session"
)

var (
	// ErrMalformed is returned for messages that are not a valid envelope
	ErrMalformed = errors.New("malformed stream message")
	// ErrUnknownType is returned for envelopes with an unrecognized type
	ErrUnknownType = errors.New("unknown stream event type")
)

// Envelope is the JSON object sent for every stream message
type Envelope struct {
	Type      Type            `json:"type"`
	Status    string          `json:"status,omitempty"`
	Timestamp float64         `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type createdPayload struct {
	ID      string `json:"id"`
	ChunkID string `json:"chunk_id"`
	Steps   int    `json:"steps"`
	Status  string `json:"status"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type sourcesPayload struct {
	Sources []session.Source `json:"sources"`
	Status  string           `json:"status"`
}

type tokenPayload struct {
	Token string `json:"token"`
}

type errorPayload struct {
	Code    session.ErrorCode `json:"code"`
	Message string            `json:"message"`
}

// Decode parses one envelope into its event variant. prompt is the text the
// stream was opened with and is stamped into events that need it.
func Decode(data []byte, prompt string) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env.Event(prompt)
}

// Event converts the envelope into its event variant
func (e Envelope) Event(prompt string) (Event, error) {
	switch e.Type {
	case TypeSessionCreated:
		var p createdPayload
		if err := e.unmarshal(&p); err != nil {
			return nil, err
		}
		return SessionCreated{
			ID:      p.ID,
			ChunkID: p.ChunkID,
			Steps:   p.Steps,
			Status:  e.status(p.Status),
			Prompt:  prompt,
		}, nil

	case TypeWebSearchFinished:
		var p sourcesPayload
		if err := e.unmarshal(&p); err != nil {
			return nil, err
		}
		return WebSearchFinished{Sources: p.Sources, Status: e.status(p.Status)}, nil

	case TypeWebResultsFiltered:
		var p statusPayload
		if err := e.unmarshal(&p); err != nil {
			return nil, err
		}
		return WebResultsFiltered{Status: e.status(p.Status)}, nil

	case TypeStatusUpdated:
		var p statusPayload
		if err := e.unmarshal(&p); err != nil {
			return nil, err
		}
		return StatusUpdated{Status: e.status(p.Status)}, nil

	case TypeNewTokenReceived:
		var p tokenPayload
		if err := e.unmarshal(&p); err != nil {
			return nil, err
		}
		return NewTokenReceived{Token: p.Token}, nil

	case TypeCompleted:
		return Completed{}, nil

	case TypeError:
		var p errorPayload
		if err := e.unmarshal(&p); err != nil {
			return nil, err
		}
		return ErrorReceived{Code: p.Code, Message: p.Message, Prompt: prompt}, nil

	case TypeSessionFound:
		var s session.Session
		if err := e.unmarshal(&s); err != nil {
			return nil, err
		}
		return SessionFound{Session: &s}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
}

func (e Envelope) unmarshal(v any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, e.Type, err)
	}
	return nil
}

// status prefers the envelope-level status over the payload's
func (e Envelope) status(fromPayload string) string {
	if e.Status != "" {
		return e.Status
	}
	return fromPayload
}
