package ui

import (
	"github.com/charmbracelet/glamour"
)

// DefaultWrap is the word wrap width for rendered Markdown.
const DefaultWrap = 80

// RenderMarkdown renders md for the terminal, falling back to the raw text
// when the renderer cannot be built or fails.
func RenderMarkdown(md string, width int) string {
	if width <= 0 {
		width = DefaultWrap
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
