package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// TerminalRenderer converts markdown into ANSI-styled terminal text and
// recreates the underlying renderer when the wrap width changes.
type TerminalRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewTerminalRenderer builds a renderer with the given glamour style name;
// empty means "dark".
func NewTerminalRenderer(style string) *TerminalRenderer {
	style = strings.TrimSpace(style)
	if style == "" {
		style = "dark"
	}
	return &TerminalRenderer{style: style}
}

// Render styles markdown for the terminal at the requested wrap width,
// falling back to the raw markdown when styling fails.
func (r *TerminalRenderer) Render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := width
	if wrapWidth < 24 {
		wrapWidth = 80
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}
