package format

import (
	"strings"

	"taskpilot-cli/internal/model"
)

// TaskListText renders a task list as shareable plain text:
// title, description, then one checkbox line per item.
func TaskListText(t model.TaskList) string {
	var b strings.Builder
	b.WriteString(t.Title)
	b.WriteString("\n")
	if strings.TrimSpace(t.Description) != "" {
		b.WriteString(t.Description)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, td := range t.Todos {
		box := "[ ]"
		if td.Checked {
			box = "[x]"
		}
		b.WriteString(box)
		b.WriteString(" ")
		b.WriteString(td.Content)
		if td.Deadline != nil {
			b.WriteString(" | Due: ")
			b.WriteString(td.Deadline.Format("2006-01-02 15:04"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
