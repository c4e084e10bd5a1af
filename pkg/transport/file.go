package transport

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dailydev/searchstream/pkg/session"
	"github.com/dailydev/searchstream/pkg/stream"
)

// ErrUnsupported is returned by transports that cannot serve an operation
var ErrUnsupported = errors.New("operation not supported by transport")

// FileTransport replays a captured event stream from disk. Every Open reads
// the same capture.
type FileTransport struct {
	Path string
}

// Open implements the stream transport by reading the capture file
func (f FileTransport) Open(_ context.Context, prompt string) (stream.Sequence, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	return NewSSESequence(file, prompt), nil
}

// Lookup is not available for captures
func (f FileTransport) Lookup(_ context.Context, id string) (*session.Session, error) {
	return nil, fmt.Errorf("%w: lookup of %s", ErrUnsupported, id)
}
