package streaming

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dailydev/searchstream/pkg/logger"
	"github.com/dailydev/searchstream/pkg/session"
	"github.com/dailydev/searchstream/pkg/stream"
	"github.com/google/uuid"
)

// ErrNoSessionID is returned by Resume when no session id is given
var ErrNoSessionID = errors.New("session id is required")

// Manager owns the snapshot store. Each consumer has at most one live
// handle; opening a new stream for a consumer supersedes the previous one.
type Manager struct {
	transport Transport
	persister Persister
	reducer   *stream.Reducer
	userID    string
	now       func() time.Time

	mu        sync.RWMutex
	snapshots map[session.Key]*session.Session
	active    map[string]*Handle
	latest    map[string]*Handle
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the clock used to stamp snapshots
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithPersister hands terminal snapshots to p
func WithPersister(p Persister) Option {
	return func(m *Manager) {
		m.persister = p
	}
}

// WithUserID sets the user part of snapshot keys
func WithUserID(id string) Option {
	return func(m *Manager) {
		m.userID = id
	}
}

// NewManager creates a new manager reading streams from transport
func NewManager(transport Transport, opts ...Option) *Manager {
	m := &Manager{
		transport: transport,
		now:       time.Now,
		snapshots: make(map[session.Key]*session.Session),
		active:    make(map[string]*Handle),
		latest:    make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.reducer = stream.NewReducer(m.now)
	return m
}

// Initialize opens a stream for prompt on behalf of consumer and dispatches
// its events to handler until the stream ends. An empty prompt is a no-op
// and returns a nil handle. A failure to open the stream is reported as an
// Unexpected error on the snapshot, like any other transport failure.
func (m *Manager) Initialize(ctx context.Context, consumer, prompt string, handler stream.Handler) (*Handle, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, nil
	}

	streamCtx, h := m.open(ctx, consumer, prompt)
	log := logger.With(logger.Fields{"consumer": consumer, "handle": h.ID})
	log.Debug("opening stream")

	seq, err := m.transport.Open(streamCtx, prompt)
	if err != nil {
		if h.isClosed() {
			m.finish(h)
			return h, nil
		}
		log.WithError(err).Warn("failed to open stream")
		h.setErr(err)
		seq = stream.NewSliceSequence(stream.Unexpected(prompt))
	}

	if !m.attach(h, seq) {
		log.Debug("stream superseded while opening")
		seq.Close()
		m.finish(h)
		return h, nil
	}

	go m.dispatch(streamCtx, h, handler)
	return h, nil
}

// Resume attaches consumer to an existing session. The session is looked up
// through the transport, falling back to the persister when it can load.
func (m *Manager) Resume(ctx context.Context, consumer, sessionID string, handler stream.Handler) (*Handle, error) {
	if sessionID == "" {
		return nil, ErrNoSessionID
	}

	streamCtx, h := m.open(ctx, consumer, "")
	log := logger.With(logger.Fields{"consumer": consumer, "handle": h.ID, "session": sessionID})

	s, err := m.transport.Lookup(streamCtx, sessionID)
	if err != nil {
		if cached, cerr := m.loadCached(streamCtx, sessionID); cerr == nil {
			log.WithError(err).Info("lookup failed, using cached session")
			s, err = cached, nil
		}
	}

	var ev stream.Event = stream.SessionFound{Session: s}
	if err != nil {
		log.WithError(err).Warn("failed to look up session")
		h.setErr(err)
		ev = stream.Unexpected("")
	}

	seq := stream.NewSliceSequence(ev)
	if !m.attach(h, seq) {
		m.finish(h)
		return h, nil
	}

	go m.dispatch(streamCtx, h, handler)
	return h, nil
}

// Cancel closes the handle's transport immediately. Events not yet applied
// are dropped. An unfinished snapshot is marked as stopped by the user and
// persisted. Cancel is idempotent and accepts a nil handle.
func (m *Manager) Cancel(h *Handle) {
	if h == nil {
		return
	}
	m.stop(h)
}

// Release cancels the consumer's live handle and forgets its latest snapshot
// unless another consumer is still viewing the same session.
func (m *Manager) Release(consumer string) {
	m.mu.Lock()
	var seq stream.Sequence
	h := m.active[consumer]
	if h != nil {
		seq = m.closeLocked(h)
	}
	if last := m.latest[consumer]; last != nil {
		delete(m.latest, consumer)
		if !m.viewedLocked(last.key) {
			delete(m.snapshots, last.key)
		}
	}
	m.mu.Unlock()

	if h != nil {
		h.release(seq)
	}
}

// Snapshot returns a copy of the snapshot stored under key
func (m *Manager) Snapshot(key session.Key) (*session.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[key]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Current returns a copy of the snapshot of the consumer's latest handle
func (m *Manager) Current(consumer string) *session.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h := m.latest[consumer]
	if h == nil {
		return nil
	}
	return m.snapshots[h.key].Clone()
}

// Active returns the consumer's live handle, or nil
func (m *Manager) Active(consumer string) *Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[consumer]
}

// open registers a new handle for consumer, superseding the live one. The
// handle starts on a provisional key derived from its id.
func (m *Manager) open(ctx context.Context, consumer, prompt string) (context.Context, *Handle) {
	streamCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ID:       uuid.NewString(),
		Consumer: consumer,
		Prompt:   prompt,
		mgr:      m,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	h.key = session.Key{UserID: m.userID, SessionID: h.ID}

	m.mu.Lock()
	var prevSeq stream.Sequence
	prev := m.active[consumer]
	if prev != nil {
		prevSeq = m.closeLocked(prev)
	}
	if last := m.latest[consumer]; last != nil && last.key.SessionID == last.ID {
		delete(m.snapshots, last.key)
	}
	m.active[consumer] = h
	m.latest[consumer] = h
	m.mu.Unlock()

	if prev != nil {
		logger.With(logger.Fields{"consumer": consumer, "handle": prev.ID}).Debug("stream superseded")
		prev.release(prevSeq)
	}
	return streamCtx, h
}

// attach binds seq to h unless h was closed in the meantime
func (m *Manager) attach(h *Handle, seq stream.Sequence) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.closed {
		return false
	}
	h.seq = seq
	return true
}

// closeLocked marks h closed and returns its sequence for release outside
// the lock. m.mu must be held.
func (m *Manager) closeLocked(h *Handle) stream.Sequence {
	h.closed = true
	if m.active[h.Consumer] == h {
		delete(m.active, h.Consumer)
	}
	return h.seq
}

// viewedLocked reports whether some consumer's latest handle writes to key.
// m.mu must be held.
func (m *Manager) viewedLocked(key session.Key) bool {
	for _, h := range m.latest {
		if h.key == key {
			return true
		}
	}
	return false
}

// stop closes h. When h was still live its unfinished snapshot is marked as
// stopped by the user, which makes it terminal, and persisted.
func (m *Manager) stop(h *Handle) {
	m.mu.Lock()
	var snap *session.Session
	if !h.closed {
		snap = m.stopLocked(h)
	}
	key := h.key
	seq := m.closeLocked(h)
	m.mu.Unlock()

	h.release(seq)
	if snap != nil {
		m.persist(context.Background(), key, snap)
	}
}

// stopLocked applies a StoppedGenerating error to h's snapshot if it is
// still unfinished. m.mu must be held.
func (m *Manager) stopLocked(h *Handle) *session.Session {
	prev := m.snapshots[h.key]
	if c := prev.Current(); c == nil || c.Terminal() {
		return nil
	}
	next, applied := m.reducer.Apply(prev, stream.ErrorReceived{
		Code:   session.ErrorStoppedGenerating,
		Prompt: h.Prompt,
	})
	if !applied {
		return nil
	}
	m.snapshots[h.key] = next
	return next
}

func (h *Handle) isClosed() bool {
	h.mgr.mu.RLock()
	defer h.mgr.mu.RUnlock()
	return h.closed
}

func (m *Manager) dispatch(ctx context.Context, h *Handle, handler stream.Handler) {
	defer m.finish(h)
	log := logger.With(logger.Fields{"consumer": h.Consumer, "handle": h.ID})

	for {
		ev, err := h.seq.Next(ctx)
		if err == io.EOF {
			return
		}
		if err != nil {
			if !h.isClosed() {
				log.WithError(err).Debug("stream stopped")
				h.setErr(err)
				if ctx.Err() != nil {
					m.stop(h)
				}
			}
			return
		}

		snap, key, live := m.apply(h, ev)
		if !live {
			log.WithField("event", ev.Type()).Debug("dropping event from closed stream")
			return
		}
		if snap == nil {
			log.WithField("event", ev.Type()).Debug("event ignored")
			continue
		}

		stream.Notify(handler, snap, ev)

		if stream.Terminal(ev) {
			m.persist(ctx, key, snap)
			return
		}
	}
}

// apply reduces ev into the handle's snapshot. It reports whether h is still
// live; a nil snapshot means the event was ignored.
func (m *Manager) apply(h *Handle, ev stream.Event) (*session.Session, session.Key, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.closed || m.active[h.Consumer] != h {
		return nil, h.key, false
	}

	next, applied := m.reducer.Apply(m.snapshots[h.key], ev)
	if !applied {
		return nil, h.key, true
	}

	switch ev.(type) {
	case stream.SessionCreated, stream.SessionFound:
		if next.ID != "" && next.ID != h.key.SessionID {
			delete(m.snapshots, h.key)
			h.key = session.Key{UserID: m.userID, SessionID: next.ID}
		}
	}

	m.snapshots[h.key] = next
	return next, h.key, true
}

func (m *Manager) persist(ctx context.Context, key session.Key, snap *session.Session) {
	if m.persister == nil || snap.ID == "" {
		return
	}
	if err := m.persister.Save(context.WithoutCancel(ctx), key, snap); err != nil {
		logger.With(logger.Fields{"session": snap.ID}).WithError(err).Warn("failed to persist session")
	}
}

func (m *Manager) loadCached(ctx context.Context, sessionID string) (*session.Session, error) {
	loader, ok := m.persister.(Loader)
	if !ok {
		return nil, errors.New("no session cache")
	}
	return loader.Load(ctx, session.Key{UserID: m.userID, SessionID: sessionID})
}

// finish marks h done once it stops dispatching
func (m *Manager) finish(h *Handle) {
	m.mu.Lock()
	seq := m.closeLocked(h)
	m.mu.Unlock()

	h.release(seq)
	close(h.done)
}
