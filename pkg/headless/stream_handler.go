package headless

import (
	"errors"
	"strings"
	"sync"

	"github.com/dailydev/searchstream/pkg/session"
	"github.com/dailydev/searchstream/pkg/stream"
)

// headlessStreamHandler renders snapshots as they arrive. It prints only
// what changed since the previous snapshot: new status lines and the
// appended part of the response.
type headlessStreamHandler struct {
	output *Output

	mu      sync.Mutex
	printed int
	status  string
	final   *session.Session
	failure error
}

// newHeadlessStreamHandler creates a handler for headless streaming output
func newHeadlessStreamHandler(output *Output) *headlessStreamHandler {
	return &headlessStreamHandler{output: output}
}

// OnUpdate implements stream.Handler
func (h *headlessStreamHandler) OnUpdate(snapshot *session.Session, ev stream.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := snapshot.Current()
	if c == nil {
		return
	}

	if _, ok := ev.(stream.SessionCreated); ok {
		h.printed = 0
		h.status = ""
	}

	if c.Status != h.status && c.Error == nil && c.CompletedAt == nil {
		h.status = c.Status
		h.output.Status(c.Status, c.Progress, c.Steps)
	}

	if len(c.Response) > h.printed {
		h.output.Token(c.Response[h.printed:])
		h.printed = len(c.Response)
	}
}

// OnComplete implements stream.Handler
func (h *headlessStreamHandler) OnComplete(snapshot *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.final = snapshot
	c := snapshot.Current()
	if c == nil {
		return
	}
	if h.printed > 0 && !strings.HasSuffix(c.Response, "\n") {
		h.output.Token("\n")
	}
	h.output.Sources(c.Sources)
}

// OnError implements stream.Handler
func (h *headlessStreamHandler) OnError(snapshot *session.Session, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.final = snapshot
	h.failure = err
	if h.printed > 0 {
		h.output.Token("\n")
	}

	var ce session.ChunkError
	if !errors.As(err, &ce) {
		h.output.Error(err.Error())
		return
	}
	if ce.Stopped() {
		h.output.Status(ce.Message, 0, 0)
		return
	}
	h.output.Error(ce.Message)
}

// Result returns the terminal snapshot and failure, if any
func (h *headlessStreamHandler) Result() (*session.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.final, h.failure
}

var _ stream.Handler = (*headlessStreamHandler)(nil)
