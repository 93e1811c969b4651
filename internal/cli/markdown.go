package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"taskpilot-cli/internal/format"
	"taskpilot-cli/internal/model"
)

// renderShowMarkdown renders the description through glamour and appends the
// checklist as plain text. Falls back to plain output when the terminal
// profile cannot be detected.
func renderShowMarkdown(t model.TaskList) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return format.TaskListText(t)
	}
	desc, err := r.Render(t.Description)
	if err != nil {
		return format.TaskListText(t)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", t.Title)
	b.WriteString(desc)
	for _, td := range t.Todos {
		box := "[ ]"
		if td.Checked {
			box = "[x]"
		}
		fmt.Fprintf(&b, "%s %s", box, td.Content)
		if td.Deadline != nil {
			fmt.Fprintf(&b, " | Due: %s", td.Deadline.Format("2006-01-02 15:04"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
