package headless

import (
	"context"
	"errors"
	"fmt"

	"github.com/dailydev/searchstream/pkg/logger"
	"github.com/dailydev/searchstream/pkg/session"
	"github.com/dailydev/searchstream/pkg/stream"
	"github.com/dailydev/searchstream/pkg/streaming"
	"github.com/google/uuid"
)

// ErrEmptyPrompt is returned when asked to run without a prompt
var ErrEmptyPrompt = errors.New("prompt cannot be empty in headless mode")

// Runner drives one stream at a time through a Manager and renders it
type Runner struct {
	manager  *streaming.Manager
	output   *Output
	consumer string
}

// NewRunner creates a new headless runner rendering to output
func NewRunner(manager *streaming.Manager, output *Output) *Runner {
	return &Runner{
		manager:  manager,
		output:   output,
		consumer: "headless-" + uuid.NewString(),
	}
}

// Ask streams the answer to prompt. It returns the final snapshot, and the
// chunk error when the search failed. Cancelling ctx stops the stream.
func (r *Runner) Ask(ctx context.Context, prompt string) (*session.Session, error) {
	handler := newHeadlessStreamHandler(r.output)

	h, err := r.manager.Initialize(ctx, r.consumer, prompt, handler)
	if err != nil {
		return nil, fmt.Errorf("failed to start search: %w", err)
	}
	if h == nil {
		return nil, ErrEmptyPrompt
	}
	logger.Debug("asking %q (handle %s)", prompt, h.ID)

	snap, err := r.wait(ctx, h)
	if err != nil {
		return snap, err
	}

	r.output.Footer(snap)
	if _, failure := handler.Result(); failure != nil {
		return snap, failure
	}
	return snap, nil
}

// Resume loads an existing session and renders it in full
func (r *Runner) Resume(ctx context.Context, sessionID string) (*session.Session, error) {
	h, err := r.manager.Resume(ctx, r.consumer, sessionID, stream.HandlerFunc{})
	if err != nil {
		return nil, err
	}

	snap, err := r.wait(ctx, h)
	if err != nil {
		return snap, err
	}
	if h.Err() != nil {
		r.output.Error(h.Err().Error())
		return snap, fmt.Errorf("failed to resume session %s: %w", sessionID, h.Err())
	}

	r.output.Session(snap)
	return snap, nil
}

// wait blocks until h ends. When ctx ends first the stream is cancelled and
// the partial snapshot returned once the handler has stopped writing.
func (r *Runner) wait(ctx context.Context, h *streaming.Handle) (*session.Session, error) {
	if err := h.Wait(ctx); err != nil && ctx.Err() != nil {
		r.manager.Cancel(h)
		<-h.Done()
		r.output.Token("\n")
		r.output.Status(session.FallbackMessage(session.ErrorStoppedGenerating), 0, 0)
		return r.manager.Current(r.consumer), ctx.Err()
	}

	snap := r.manager.Current(r.consumer)
	if snap == nil {
		return nil, errors.New("stream ended without a session")
	}
	return snap, nil
}
