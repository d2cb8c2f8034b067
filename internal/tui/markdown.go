package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minDescriptionWrap keeps glamour output readable on narrow terminals.
const minDescriptionWrap = 24

// markdownRenderer styles issue descriptions for the detail screen. The
// glamour renderer is rebuilt only when the wrap width changes; a render
// failure falls back to the raw markdown so the description never vanishes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(minDescriptionWrap, width)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
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
