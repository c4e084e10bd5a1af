package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/dailydev/searchstream/pkg/logger"
	"github.com/dailydev/searchstream/pkg/stream"
)

// sseSequence reads a text/event-stream body and decodes each "message"
// event into a stream.Event. Transport failures never escape Next: they are
// turned into one synthetic Error event, after which the sequence ends.
type sseSequence struct {
	mu     sync.Mutex
	body   io.ReadCloser
	reader *bufio.Reader
	prompt string
	done   bool
	closed bool

	// skipLF is set after a CR so that a following LF does not end a
	// second, empty line
	skipLF bool
}

// NewSSESequence creates a sequence reading server-sent events from body.
// prompt is stamped into the events that carry it.
func NewSSESequence(body io.ReadCloser, prompt string) stream.Sequence {
	return &sseSequence{
		body:   body,
		reader: bufio.NewReader(body),
		prompt: prompt,
	}
}

// Next implements stream.Sequence
func (s *sseSequence) Next(ctx context.Context) (stream.Event, error) {
	for {
		if s.finished() {
			return nil, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name, data, err := s.readMessage()
		if err != nil {
			if s.isClosed() {
				return nil, io.EOF
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, io.EOF) {
				logger.Debug("event stream ended before a terminal event")
			} else {
				logger.Warn("event stream failed: %v", err)
			}
			return s.fail(), nil
		}

		if name != "" && name != "message" {
			continue
		}

		ev, err := stream.Decode([]byte(data), s.prompt)
		if errors.Is(err, stream.ErrUnknownType) {
			logger.Debug("skipping event: %v", err)
			continue
		}
		if err != nil {
			logger.Warn("invalid event payload: %v", err)
			return s.fail(), nil
		}

		if stream.Terminal(ev) {
			s.mu.Lock()
			s.done = true
			s.mu.Unlock()
		}
		return ev, nil
	}
}

// Close implements stream.Sequence. It unblocks a pending Next.
func (s *sseSequence) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.body.Close()
}

func (s *sseSequence) fail() stream.Event {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	return stream.Unexpected(s.prompt)
}

func (s *sseSequence) finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done || s.closed
}

func (s *sseSequence) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// readMessage reads lines until a blank line completes an event with data.
// Comment lines and events without data are skipped. Pending data is
// dispatched when the body ends without a trailing blank line.
func (s *sseSequence) readMessage() (event string, data string, err error) {
	var buf strings.Builder
	hasData := false

	for {
		line, readErr := s.readLine()
		if readErr != nil && line == "" {
			if hasData {
				return event, buf.String(), nil
			}
			return "", "", readErr
		}

		if line == "" {
			if hasData {
				return event, buf.String(), nil
			}
			event = ""
		} else if !strings.HasPrefix(line, ":") {
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "data":
				if hasData {
					buf.WriteByte('\n')
				}
				buf.WriteString(value)
				hasData = true
			case "event":
				event = value
			}
		}

		if readErr != nil {
			if hasData {
				return event, buf.String(), nil
			}
			return "", "", readErr
		}
	}
}

// readLine reads one line ended by LF, CR or CRLF and returns it without
// the terminator.
func (s *sseSequence) readLine() (string, error) {
	var line []byte
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return string(line), err
		}
		if s.skipLF {
			s.skipLF = false
			if b == '\n' && len(line) == 0 {
				continue
			}
		}
		switch b {
		case '\n':
			return string(line), nil
		case '\r':
			s.skipLF = true
			return string(line), nil
		}
		line = append(line, b)
	}
}

var _ stream.Sequence = (*sseSequence)(nil)
