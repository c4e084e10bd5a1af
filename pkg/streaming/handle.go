package streaming

import (
	"context"
	"sync"

	"github.com/dailydev/searchstream/pkg/session"
	"github.com/dailydev/searchstream/pkg/stream"
)

// Handle identifies one open stream owned by a consumer. A handle is live
// until it is cancelled, superseded by a newer handle of the same consumer,
// or its stream ends.
type Handle struct {
	ID       string
	Consumer string
	Prompt   string

	mgr    *Manager
	cancel context.CancelFunc
	done   chan struct{}

	// guarded by mgr.mu
	key    session.Key
	seq    stream.Sequence
	closed bool

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// Key returns the snapshot key the handle currently writes to. Before the
// server assigns a session id this is a provisional key.
func (h *Handle) Key() session.Key {
	h.mgr.mu.RLock()
	defer h.mgr.mu.RUnlock()
	return h.key
}

// Done is closed once the handle stops dispatching events
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the stream ends or ctx is done
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err reports a transport failure that ended the stream. Failures reported
// by the server are part of the snapshot, not of Err.
func (h *Handle) Err() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}

func (h *Handle) setErr(err error) {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	if h.err == nil {
		h.err = err
	}
}

// release stops the transport. Safe to call more than once.
func (h *Handle) release(seq stream.Sequence) {
	h.closeOnce.Do(func() {
		h.cancel()
		if seq != nil {
			seq.Close()
		}
	})
}
