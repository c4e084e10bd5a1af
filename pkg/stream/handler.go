package stream

import "github.com/dailydev/searchstream/pkg/session"

// Handler receives snapshots as a session stream is reduced. Calls for one
// stream are made sequentially, in event order.
type Handler interface {
	// OnUpdate is called with the new snapshot after every applied event.
	OnUpdate(snapshot *session.Session, ev Event)

	// OnComplete is called once the active chunk completed successfully,
	// or a resumed session was loaded.
	OnComplete(snapshot *session.Session)

	// OnError is called once the active chunk failed.
	OnError(snapshot *session.Session, err error)
}

// HandlerFunc is a function adapter for Handler interface
type HandlerFunc struct {
	UpdateFunc   func(snapshot *session.Session, ev Event)
	CompleteFunc func(snapshot *session.Session)
	ErrorFunc    func(snapshot *session.Session, err error)
}

// OnUpdate implements Handler
func (h HandlerFunc) OnUpdate(snapshot *session.Session, ev Event) {
	if h.UpdateFunc != nil {
		h.UpdateFunc(snapshot, ev)
	}
}

// OnComplete implements Handler
func (h HandlerFunc) OnComplete(snapshot *session.Session) {
	if h.CompleteFunc != nil {
		h.CompleteFunc(snapshot)
	}
}

// OnError implements Handler
func (h HandlerFunc) OnError(snapshot *session.Session, err error) {
	if h.ErrorFunc != nil {
		h.ErrorFunc(snapshot, err)
	}
}

// Notify dispatches snapshot to h: OnUpdate always, then OnComplete or
// OnError when the snapshot just became terminal.
func Notify(h Handler, snapshot *session.Session, ev Event) {
	if h == nil {
		return
	}
	h.OnUpdate(snapshot, ev)

	switch ev.(type) {
	case ErrorReceived:
		if c := snapshot.Current(); c != nil && c.Error != nil {
			h.OnError(snapshot, *c.Error)
		}
	case Completed:
		h.OnComplete(snapshot)
	case SessionFound:
		c := snapshot.Current()
		switch {
		case c == nil || c.CompletedAt != nil:
			h.OnComplete(snapshot)
		case c.Error != nil:
			h.OnError(snapshot, *c.Error)
		}
	}
}

// Ensure implementations satisfy the interface
var _ Handler = HandlerFunc{}
