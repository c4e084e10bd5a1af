package headless

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/dailydev/searchstream/pkg/logger"
)

var (
	colorStatus = lipgloss.Color("#61afaf")
	colorError  = lipgloss.Color("#d95f5f")
	colorMuted  = lipgloss.Color("#83715f")
	colorLink   = lipgloss.Color("#6b93b5")
	colorTitle  = lipgloss.Color("#f5b761")
)

// formatter styles answer parts for the terminal. With color disabled every
// method returns its input unchanged.
type formatter struct {
	color     bool
	highlight bool
	style     *chroma.Style
	chroma    chroma.Formatter

	statusStyle lipgloss.Style
	errorStyle  lipgloss.Style
	mutedStyle  lipgloss.Style
	linkStyle   lipgloss.Style
	titleStyle  lipgloss.Style
}

func newFormatter(color, highlight bool, styleName string) *formatter {
	cf := formatters.Get("terminal16m")
	if cf == nil {
		cf = formatters.Fallback
	}
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}

	return &formatter{
		color:       color,
		highlight:   color && highlight,
		style:       style,
		chroma:      cf,
		statusStyle: lipgloss.NewStyle().Foreground(colorStatus).Italic(true),
		errorStyle:  lipgloss.NewStyle().Foreground(colorError).Bold(true),
		mutedStyle:  lipgloss.NewStyle().Foreground(colorMuted),
		linkStyle:   lipgloss.NewStyle().Foreground(colorLink).Underline(true),
		titleStyle:  lipgloss.NewStyle().Foreground(colorTitle).Bold(true),
	}
}

func (f *formatter) render(style lipgloss.Style, s string) string {
	if !f.color {
		return s
	}
	return style.Render(s)
}

func (f *formatter) Status(s string) string { return f.render(f.statusStyle, "» "+s) }
func (f *formatter) Error(s string) string  { return f.render(f.errorStyle, "✗ "+s) }
func (f *formatter) Muted(s string) string  { return f.render(f.mutedStyle, s) }
func (f *formatter) Link(s string) string   { return f.render(f.linkStyle, s) }
func (f *formatter) Title(s string) string  { return f.render(f.titleStyle, s) }

// Answer renders a complete markdown answer, highlighting fenced code blocks
func (f *formatter) Answer(markdown string) string {
	if !f.highlight {
		return markdown
	}

	var out strings.Builder
	var code strings.Builder
	inFence := false
	language := ""

	lines := strings.SplitAfter(markdown, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if !inFence {
				inFence = true
				language = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
				code.Reset()
				out.WriteString(f.Muted(strings.TrimRight(line, "\n")))
				out.WriteString("\n")
				continue
			}
			inFence = false
			out.WriteString(f.Code(code.String(), language))
			out.WriteString(f.Muted(strings.TrimRight(line, "\n")))
			if strings.HasSuffix(line, "\n") {
				out.WriteString("\n")
			}
			continue
		}
		if inFence {
			code.WriteString(line)
			continue
		}
		out.WriteString(line)
	}

	// Unterminated fence: still highlight what arrived
	if inFence {
		out.WriteString(f.Code(code.String(), language))
	}
	return out.String()
}

// Code applies syntax highlighting to content
func (f *formatter) Code(content, language string) string {
	if content == "" || !f.highlight {
		return content
	}

	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		logger.Debug("failed to tokenize code block: %v", err)
		return content
	}

	var buf strings.Builder
	if err := f.chroma.Format(&buf, f.style, iterator); err != nil {
		logger.Debug("failed to format code block: %v", err)
		return content
	}
	return buf.String()
}
