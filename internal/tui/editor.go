package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"

	"taskpilot-cli/internal/checklist"
	"taskpilot-cli/internal/model"
)

// Editor rows: title first, description second, then one row per item.
const (
	rowTitle = iota
	rowDescription
	firstItemRow
)

// editor is the open-document view state. The checklist owns the document;
// the editor only tracks the cursor, the text input, and the latest published
// snapshot for rendering.
type editor struct {
	cl  *checklist.Checklist
	doc model.TaskList

	cursor  int
	editing bool
	input   textinput.Model

	// descMD is the glamour-rendered description, recomputed when the
	// document or the window width changes.
	descMD string

	dirty  bool
	saving bool
}

func newEditor(task model.TaskList, remote checklist.Remote, send *sender) *editor {
	input := textinput.New()
	input.CharLimit = 500

	ed := &editor{input: input}
	ed.cl = checklist.New(task, remote, checklist.Options{
		OnChange: func(doc model.TaskList) {
			send.Send(docChangedMsg{doc: doc})
		},
		OnNotice: func(n checklist.Notice) {
			send.Send(noticeMsg{notice: n})
		},
	})
	ed.doc = ed.cl.Document()
	return ed
}

func (e *editor) rowCount() int {
	return firstItemRow + len(e.doc.Todos)
}

func (e *editor) itemUnderCursor() (model.Todo, bool) {
	i := e.cursor - firstItemRow
	if i < 0 || i >= len(e.doc.Todos) {
		return model.Todo{}, false
	}
	return e.doc.Todos[i], true
}

func (e *editor) moveUp() {
	if e.cursor > 0 {
		e.cursor--
	}
}

func (e *editor) moveDown() {
	if e.cursor < e.rowCount()-1 {
		e.cursor++
	}
}

func (e *editor) clampCursor() {
	if max := e.rowCount() - 1; e.cursor > max {
		e.cursor = max
	}
	if e.cursor < 0 {
		e.cursor = 0
	}
}

// startEdit opens the text input pre-filled with the row's current value.
func (e *editor) startEdit() {
	switch e.cursor {
	case rowTitle:
		e.input.Placeholder = "Title"
		e.input.SetValue(e.doc.Title)
	case rowDescription:
		e.input.Placeholder = "Description"
		e.input.SetValue(e.doc.Description)
	default:
		td, ok := e.itemUnderCursor()
		if !ok {
			return
		}
		e.input.Placeholder = "Item"
		e.input.SetValue(td.Content)
	}
	e.input.CursorEnd()
	e.input.Focus()
	e.editing = true
}

// pushEdit streams the input's current value into the checklist, where the
// debouncer coalesces keystrokes.
func (e *editor) pushEdit() {
	val := e.input.Value()
	switch e.cursor {
	case rowTitle:
		e.cl.SetTitle(val)
	case rowDescription:
		e.cl.SetDescription(val)
	default:
		if td, ok := e.itemUnderCursor(); ok {
			e.cl.UpdateContent(td.ID, val)
		}
	}
	e.dirty = true
}

// commitEdit is blur: pending debounced edits apply immediately.
func (e *editor) commitEdit() {
	e.pushEdit()
	e.cl.FlushEdits()
	e.input.Blur()
	e.editing = false
}

// toggle flips the item's checked state optimistically. Returns false when
// the row is not an item or a patch for it is still in flight.
func (e *editor) toggle() bool {
	td, ok := e.itemUnderCursor()
	if !ok {
		return false
	}
	return e.cl.SetChecked(td.ID, !td.Checked)
}

func (e *editor) addItem() {
	id := e.cl.AddItem()
	if id == "" {
		return
	}
	e.doc = e.cl.Document()
	e.cursor = firstItemRow + len(e.doc.Todos) - 1
	e.dirty = true
	e.startEdit()
}

func (e *editor) removeItem() {
	td, ok := e.itemUnderCursor()
	if !ok {
		return
	}
	e.cl.RemoveItem(td.ID)
	e.dirty = true
}

func (e *editor) setDeadline(d *time.Time) {
	td, ok := e.itemUnderCursor()
	if !ok {
		return
	}
	e.cl.SetDeadline(td.ID, d)
	e.dirty = true
}

// saveDocument flushes pending edits and returns the document to submit,
// without rows the user added but never typed into.
func (e *editor) saveDocument() model.TaskList {
	doc := e.cl.Document()
	kept := doc.Todos[:0]
	for _, td := range doc.Todos {
		if strings.TrimSpace(td.Content) == "" {
			continue
		}
		kept = append(kept, td)
	}
	doc.Todos = kept
	return doc
}

func (e *editor) refreshDesc(width int) {
	e.descMD = renderMarkdown(e.doc.Description, width)
}

func (e *editor) inFlight(id string) bool {
	return e.cl.InFlight(id)
}

func (e *editor) close() {
	e.cl.Close()
}
