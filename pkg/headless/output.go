package headless

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dailydev/searchstream/pkg/config"
	"github.com/dailydev/searchstream/pkg/logger"
	"github.com/dailydev/searchstream/pkg/session"
	"golang.org/x/term"
)

// Options controls how answers are rendered
type Options struct {
	Color     bool
	Highlight bool
	Style     string
	Sources   bool
}

// OptionsFromConfig resolves the output settings for w. The "auto" color
// mode enables color only when w is a terminal.
func OptionsFromConfig(cfg config.OutputConfig, w io.Writer) Options {
	var color bool
	switch strings.ToLower(cfg.Color) {
	case "always":
		color = true
	case "never":
	default:
		color = isTerminal(w)
	}
	return Options{
		Color:     color,
		Highlight: cfg.Highlight,
		Style:     cfg.Style,
		Sources:   cfg.Sources,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Output handles console output for headless mode. Answers go to out;
// progress and errors go to status.
type Output struct {
	out    io.Writer
	status io.Writer
	opts   Options
	format *formatter
}

// NewOutput creates a new output handler
func NewOutput(out, status io.Writer, opts Options) *Output {
	return &Output{
		out:    out,
		status: status,
		opts:   opts,
		format: newFormatter(opts.Color, opts.Highlight, opts.Style),
	}
}

// Token writes streamed answer text as it arrives
func (o *Output) Token(s string) {
	fmt.Fprint(o.out, s)
}

// Status prints a progress line
func (o *Output) Status(s string, progress, steps int) {
	if s == "" {
		return
	}
	if steps > 0 {
		s = fmt.Sprintf("%s (%d/%d)", s, progress, steps)
	}
	fmt.Fprintln(o.status, o.format.Status(s))
}

// Error prints an error message and logs it
func (o *Output) Error(msg string) {
	logger.Debug("reported error: %s", msg)
	fmt.Fprintln(o.status, o.format.Error(msg))
}

// Sources lists the citations of an answer
func (o *Output) Sources(sources []session.Source) {
	if !o.opts.Sources || len(sources) == 0 {
		return
	}
	fmt.Fprintln(o.out)
	fmt.Fprintln(o.out, o.format.Title("Sources"))
	for i, s := range sources {
		name := s.Name
		if name == "" {
			name = s.URL
		}
		fmt.Fprintf(o.out, "  %d. %s %s\n", i+1, name, o.format.Link(s.URL))
	}
}

// Session renders a complete snapshot, as used when resuming or showing a
// cached session.
func (o *Output) Session(s *session.Session) {
	c := s.Current()
	if c == nil {
		return
	}

	fmt.Fprintln(o.out, o.format.Title("> "+c.Prompt))
	fmt.Fprintln(o.out)
	if c.Response != "" {
		answer := o.format.Answer(c.Response)
		fmt.Fprint(o.out, answer)
		if !strings.HasSuffix(answer, "\n") {
			fmt.Fprintln(o.out)
		}
	}
	o.Sources(c.Sources)
	if c.Error != nil {
		o.Error(c.Error.Message)
	}
	o.Footer(s)
}

// Footer prints the session id and state
func (o *Output) Footer(s *session.Session) {
	c := s.Current()
	if c == nil {
		return
	}

	state := "in progress"
	switch {
	case c.Failed():
		state = "failed"
	case c.CompletedAt != nil:
		state = "completed"
	}
	line := fmt.Sprintf("session %s · %s", s.ID, state)
	if c.Feedback != session.FeedbackNone {
		line += " · feedback " + c.Feedback.String()
	}
	fmt.Fprintln(o.status, o.format.Muted(line))
}
