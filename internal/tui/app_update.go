package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"taskpilot-cli/internal/model"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.taskList.SetSize(msg.Width-2, listHeight(msg.Height))
		if m.ed != nil {
			m.ed.refreshDesc(msg.Width - 4)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading && !m.dbsLoading && (m.ed == nil || !m.ed.saving) {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tasksLoadedMsg:
		return m.onTasksLoaded(msg)

	case taskLoadedMsg:
		return m.onTaskLoaded(msg)

	case docChangedMsg:
		if m.ed != nil {
			m.ed.doc = msg.doc
			m.ed.clampCursor()
			m.ed.refreshDesc(m.width - 4)
		}
		return m, nil

	case noticeMsg:
		cmd := m.setStatus(msg.notice.Message, true)
		return m, cmd

	case saveDoneMsg:
		return m.onSaveDone(msg)

	case deleteDoneMsg:
		if msg.err != nil {
			cmd := m.setStatus("delete failed: "+msg.err.Error(), true)
			return m, cmd
		}
		m.loading = true
		m.loadSeq++
		cmd := m.setStatus("deleted "+msg.taskID, false)
		return m, tea.Batch(cmd, m.spin.Tick, m.loadTasksCmd(m.loadSeq))

	case exportDoneMsg:
		switch {
		case msg.schema:
			cmd := m.setStatus("the selected Notion database is missing required columns; press g to pick another", true)
			return m, cmd
		case msg.err != nil:
			cmd := m.setStatus("export failed, try again", true)
			return m, cmd
		default:
			cmd := m.setStatus("Notion page created for "+msg.taskID, false)
			return m, cmd
		}

	case databasesLoadedMsg:
		m.dbsLoading = false
		if msg.err != nil {
			cmd := m.setStatus("could not load Notion databases: "+msg.err.Error(), true)
			return m, cmd
		}
		m.dbs = msg.dbs
		if m.dbCursor >= len(m.dbs) {
			m.dbCursor = 0
		}
		return m, nil

	case databaseChosenMsg:
		if msg.err != nil {
			cmd := m.setStatus("could not select database: "+msg.err.Error(), true)
			return m, cmd
		}
		if m.sess.User != nil {
			m.sess.User.NotionTargetDatabaseID = msg.db.ID
			m.sess.User.NotionTargetDatabase = msg.db.Name
		}
		cmd := m.setStatus("new exports go to "+msg.db.Name, false)
		return m, cmd

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case tea.KeyMsg:
		return m.onKey(msg)
	}

	return m, nil
}

func (m appModel) onTasksLoaded(msg tasksLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.loadSeq {
		return m, nil
	}
	m.loading = false
	m.offline = msg.err != nil && len(msg.page.Content) > 0
	if msg.err != nil && len(msg.page.Content) == 0 {
		cmd := m.setStatus("could not load task lists: "+msg.err.Error(), true)
		return m, cmd
	}
	m.setTasks(msg.page)
	if m.offline {
		cmd := m.setStatus("backend unreachable, showing offline cache", true)
		return m, cmd
	}
	return m, nil
}

func (m appModel) onTaskLoaded(msg taskLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.loadSeq {
		return m, nil
	}
	m.loading = false
	if msg.err != nil {
		cmd := m.setStatus("could not open task list: "+msg.err.Error(), true)
		return m, cmd
	}
	m.ed = newEditor(msg.task, m.client, m.send)
	m.ed.refreshDesc(m.width - 4)
	m.view = viewEditor
	return m, nil
}

func (m appModel) onSaveDone(msg saveDoneMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.saveSeq {
		return m, nil
	}
	if m.ed == nil {
		// Editor was torn down while the save was in flight; nothing to
		// reconcile locally.
		return m, nil
	}
	m.ed.saving = false
	if msg.err != nil {
		cmd := m.setStatus("save failed, try again", true)
		return m, cmd
	}
	m.ed.dirty = false
	// Swap in the server's copy so temp ids become real ones.
	m.ed.cl.ReplaceAll(msg.task)
	cmd := m.setStatus("saved "+msg.taskID, false)
	return m, cmd
}

func (m appModel) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	switch m.view {
	case viewEditor:
		return m.onEditorKey(msg)
	case viewSettings:
		return m.onSettingsKey(msg)
	default:
		return m.onBrowserKey(msg)
	}
}

func (m appModel) quit() (tea.Model, tea.Cmd) {
	if m.ed != nil {
		m.ed.close()
		m.ed = nil
	}
	return m, tea.Quit
}

func (m appModel) onBrowserKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			return m, nil
		case "enter":
			m.searching = false
			m.search.Blur()
			m.query.Search = m.search.Value()
			m.query.Page = 0
			return m.reloadTasks()
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q":
		return m.quit()
	case "enter":
		t, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		m.loading = true
		m.loadSeq++
		return m, tea.Batch(m.spin.Tick, m.openTaskCmd(m.loadSeq, t.ID))
	case "n":
		m.ed = newEditor(model.TaskList{}, m.client, m.send)
		m.ed.startEdit() // cursor starts on the title row
		m.view = viewEditor
		return m, nil
	case "d":
		t, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		return m, m.deleteTaskCmd(t.ID)
	case "r":
		return m.reloadTasks()
	case "/":
		m.searching = true
		m.search.SetValue(m.query.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case "left", "h":
		if m.query.Page > 0 {
			m.query.Page--
			return m.reloadTasks()
		}
		return m, nil
	case "right", "l":
		if m.query.Page+1 < m.page.TotalPages {
			m.query.Page++
			return m.reloadTasks()
		}
		return m, nil
	case "g":
		m.view = viewSettings
		m.dbsLoading = true
		return m, tea.Batch(m.spin.Tick, m.loadDatabasesCmd())
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m appModel) reloadTasks() (tea.Model, tea.Cmd) {
	m.loading = true
	m.loadSeq++
	return m, tea.Batch(m.spin.Tick, m.loadTasksCmd(m.loadSeq))
}

func (m appModel) onEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ed := m.ed
	if ed == nil {
		m.view = viewBrowser
		return m, nil
	}

	if ed.editing {
		switch msg.String() {
		case "enter", "esc":
			ed.commitEdit()
			return m, nil
		default:
			var cmd tea.Cmd
			ed.input, cmd = ed.input.Update(msg)
			ed.pushEdit()
			return m, cmd
		}
	}

	switch msg.String() {
	case "esc", "q":
		// Teardown is always safe: in-flight patches finish against the
		// closed checklist and go silent.
		ed.close()
		m.ed = nil
		m.view = viewBrowser
		return m.reloadTasks()
	case "up", "k":
		ed.moveUp()
		return m, nil
	case "down", "j":
		ed.moveDown()
		return m, nil
	case "enter":
		ed.startEdit()
		return m, nil
	case " ":
		if !ed.toggle() {
			cmd := m.setStatus("item update still in progress", true)
			return m, cmd
		}
		return m, nil
	case "a":
		ed.addItem()
		return m, nil
	case "d":
		ed.removeItem()
		return m, nil
	case "t":
		due := time.Now().AddDate(0, 0, 1).Truncate(time.Hour)
		ed.setDeadline(&due)
		return m, nil
	case "T":
		ed.setDeadline(nil)
		return m, nil
	case "s":
		if ed.saving {
			return m, nil
		}
		ed.saving = true
		m.saveSeq++
		return m, tea.Batch(m.spin.Tick, m.saveDocCmd(m.saveSeq, ed.saveDocument()))
	case "e":
		if ed.doc.ID == "" {
			cmd := m.setStatus("save the list before exporting", true)
			return m, cmd
		}
		if m.sess.User != nil && !m.sess.User.NotionConnected() {
			cmd := m.setStatus("no Notion workspace linked (run `taskpilot notion connect`)", true)
			return m, cmd
		}
		return m, m.exportTaskCmd(ed.doc.ID)
	}
	return m, nil
}

func (m appModel) onSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "g":
		m.view = viewBrowser
		return m, nil
	case "up", "k":
		if m.dbCursor > 0 {
			m.dbCursor--
		}
		return m, nil
	case "down", "j":
		if m.dbCursor < len(m.dbs)-1 {
			m.dbCursor++
		}
		return m, nil
	case "r":
		m.dbsLoading = true
		return m, tea.Batch(m.spin.Tick, m.loadDatabasesCmd())
	case "enter":
		if m.dbCursor < 0 || m.dbCursor >= len(m.dbs) {
			return m, nil
		}
		return m, m.chooseDatabaseCmd(m.dbs[m.dbCursor])
	}
	return m, nil
}

// listHeight leaves room for the header, footer and status line.
func listHeight(total int) int {
	h := total - 4
	if h < 1 {
		h = 1
	}
	return h
}

func pageFooter(p model.Page[model.TaskList]) string {
	totalPages := p.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}
	return fmt.Sprintf("page %d/%d · %d lists", p.Number+1, totalPages, p.TotalElements)
}
