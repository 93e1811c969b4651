package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderMarkdown renders the description for the detail pane. Any renderer
// failure falls back to the raw text; the editor must never go blank over a
// styling problem.
func renderMarkdown(src string, width int) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return src
	}
	out, err := r.Render(src)
	if err != nil {
		return src
	}
	return strings.Trim(out, "\n")
}
