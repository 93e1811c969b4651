package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"taskpilot-cli/internal/model"
)

// taskRow adapts a task list to the bubbles list item interface.
type taskRow struct {
	t model.TaskList
}

func (r taskRow) FilterValue() string { return r.t.Title }

// line renders "done/total  title", with an empty-title placeholder so rows
// stay selectable.
func (r taskRow) line() string {
	done := 0
	for _, td := range r.t.Todos {
		if td.Checked {
			done++
		}
	}
	title := r.t.Title
	if strings.TrimSpace(title) == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%3d/%-3d %s", done, len(r.t.Todos), title)
}

type taskRowDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
}

func newTaskRowDelegate() taskRowDelegate {
	return taskRowDelegate{
		normal:   lipgloss.NewStyle(),
		selected: styleSelected(),
	}
}

func (d taskRowDelegate) Height() int  { return 1 }
func (d taskRowDelegate) Spacing() int { return 0 }
func (d taskRowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d taskRowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 8 {
		fmt.Fprint(w, "")
		return
	}

	row, ok := item.(taskRow)
	if !ok {
		fmt.Fprint(w, "")
		return
	}

	line := row.line()
	lineW := xansi.StringWidth(line)
	if lineW < contentW {
		line += strings.Repeat(" ", contentW-lineW)
	} else if lineW > contentW {
		line = xansi.Cut(line, 0, contentW)
	}

	style := d.normal
	if index == m.Index() {
		style = d.selected
	}
	fmt.Fprint(w, style.Render(line))
}
