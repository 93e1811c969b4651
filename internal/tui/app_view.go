package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

func (m appModel) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")

	switch m.view {
	case viewEditor:
		b.WriteString(m.editorView())
	case viewSettings:
		b.WriteString(m.settingsView())
	default:
		b.WriteString(m.browserView())
	}

	b.WriteString("\n")
	b.WriteString(m.statusView())
	return b.String()
}

func (m appModel) headerView() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorTitle).Render("TaskPilot")
	who := ""
	if m.sess.User != nil {
		who = m.sess.User.Email
	}
	line := title
	if who != "" {
		line += styleMuted().Render("  ·  " + who)
	}
	if m.offline {
		line += styleError().Render("  [offline]")
	}
	return line
}

func (m appModel) statusView() string {
	if m.loading || m.dbsLoading || (m.ed != nil && m.ed.saving) {
		return m.spin.View() + " " + styleMuted().Render(m.keyHints())
	}
	if m.status != "" {
		st := styleMuted()
		if m.statusErr {
			st = styleError()
		}
		return st.Render(m.status)
	}
	return styleMuted().Render(m.keyHints())
}

func (m appModel) keyHints() string {
	switch m.view {
	case viewEditor:
		if m.ed != nil && m.ed.editing {
			return "enter/esc: done"
		}
		return "space: toggle · enter: edit · a: add · d: delete · t/T: due · s: save · e: export · esc: back"
	case viewSettings:
		return "enter: use database · r: reload · esc: back"
	default:
		return "enter: open · n: new · d: delete · /: search · ←/→: page · g: notion · r: reload · q: quit"
	}
}

func (m appModel) browserView() string {
	var b strings.Builder
	if m.searching {
		b.WriteString("search: " + m.search.View() + "\n")
	} else if m.query.Search != "" {
		b.WriteString(styleMuted().Render("search: "+m.query.Search) + "\n")
	}

	if len(m.taskList.Items()) == 0 && !m.loading {
		b.WriteString(styleMuted().Render("no task lists — run `taskpilot extract <file>` or press n"))
		return b.String()
	}
	b.WriteString(m.taskList.View())
	b.WriteString("\n")
	b.WriteString(styleMuted().Render(pageFooter(m.page)))
	return b.String()
}

func (m appModel) editorView() string {
	ed := m.ed
	if ed == nil {
		return ""
	}

	var b strings.Builder

	titleLine := ed.doc.Title
	if strings.TrimSpace(titleLine) == "" {
		titleLine = "(untitled)"
	}
	titleLine = lipgloss.NewStyle().Bold(true).Foreground(colorTitle).Render(titleLine)
	if ed.dirty {
		titleLine += styleMuted().Render(" *")
	}
	b.WriteString(m.editorRow(ed, rowTitle, titleLine))
	b.WriteString("\n")

	// The description row shows rendered markdown until the cursor lands on
	// it; then it collapses to the selectable raw line.
	onDesc := ed.cursor == rowDescription
	switch {
	case onDesc:
		desc := ed.doc.Description
		if strings.TrimSpace(desc) == "" {
			desc = "(no description)"
		}
		b.WriteString(m.editorRow(ed, rowDescription, desc))
	case ed.descMD != "":
		b.WriteString(indentBlock(ed.descMD, "  "))
	default:
		b.WriteString("  " + styleMuted().Render("(no description)"))
	}
	b.WriteString("\n\n")

	if len(ed.doc.Todos) == 0 {
		b.WriteString(styleMuted().Render("no items — press a to add one"))
		b.WriteString("\n")
	}
	for i, td := range ed.doc.Todos {
		box := "[ ]"
		if td.Checked {
			box = lipgloss.NewStyle().Foreground(colorDone).Render("[x]")
		}
		if ed.inFlight(td.ID) {
			box = styleMuted().Render("[…]")
		}
		content := td.Content
		if strings.TrimSpace(content) == "" {
			content = styleMuted().Render("(empty)")
		}
		line := box + " " + content
		if td.Deadline != nil {
			line += styleMuted().Render("  due " + td.Deadline.Format("2006-01-02 15:04"))
		}
		b.WriteString(m.editorRow(ed, firstItemRow+i, line))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// editorRow marks the cursor row and swaps in the live input while editing.
func (m appModel) editorRow(ed *editor, row int, rendered string) string {
	if row != ed.cursor {
		return "  " + m.fitRow(rendered)
	}
	if ed.editing {
		return "> " + ed.input.View()
	}
	return "> " + styleSelected().Render(m.fitRow(rendered))
}

func indentBlock(block, prefix string) string {
	lines := strings.Split(block, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

func (m appModel) fitRow(line string) string {
	if m.width <= 4 {
		return line
	}
	max := m.width - 2
	if xansi.StringWidth(line) > max {
		return xansi.Cut(line, 0, max)
	}
	return line
}

func (m appModel) settingsView() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(colorTitle).Render("Notion settings"))
	b.WriteString("\n\n")

	if m.sess.User != nil {
		if m.sess.User.NotionConnected() {
			b.WriteString("workspace: " + m.sess.User.NotionWorkspaceName + "\n")
		} else {
			b.WriteString(styleMuted().Render("no workspace linked — run `taskpilot notion connect`") + "\n")
		}
	}
	b.WriteString("\n")

	if len(m.dbs) == 0 && !m.dbsLoading {
		b.WriteString(styleMuted().Render("no databases shared with the integration"))
		return b.String()
	}

	current := ""
	if m.sess.User != nil {
		current = m.sess.User.NotionTargetDatabaseID
	}
	for i, db := range m.dbs {
		line := db.Name
		if db.ID == current {
			line += styleMuted().Render("  (current)")
		}
		if i == m.dbCursor {
			b.WriteString("> " + styleSelected().Render(line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
