package tui

import (
	"context"
	"testing"
	"time"

	"taskpilot-cli/internal/model"
)

type stubRemote struct {
	unblock chan struct{}
	calls   chan string
}

func newStubRemote() *stubRemote {
	return &stubRemote{
		unblock: make(chan struct{}),
		calls:   make(chan string, 16),
	}
}

func (r *stubRemote) SetTodoChecked(ctx context.Context, todoID string, checked bool) error {
	r.calls <- todoID
	select {
	case <-r.unblock:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func testTask() model.TaskList {
	return model.TaskList{
		ID:    "task-1",
		Title: "Groceries",
		Todos: []model.Todo{
			{ID: "todo-1", Content: "milk"},
			{ID: "todo-2", Content: "eggs", Checked: true},
		},
	}
}

func TestEditorAddRemoveItems(t *testing.T) {
	ed := newEditor(testTask(), newStubRemote(), &sender{})
	defer ed.close()

	ed.addItem()
	ed.doc = ed.cl.Document()
	if len(ed.doc.Todos) != 3 {
		t.Fatalf("todos = %d, want 3", len(ed.doc.Todos))
	}
	if ed.cursor != firstItemRow+2 {
		t.Errorf("cursor = %d, want the new row", ed.cursor)
	}
	if !ed.editing {
		t.Error("adding an item should open the input")
	}
	if !model.IsTempID(ed.doc.Todos[2].ID) {
		t.Errorf("new item id = %q, want temp id", ed.doc.Todos[2].ID)
	}

	ed.input.SetValue("bread")
	ed.commitEdit()
	ed.doc = ed.cl.Document()
	if ed.doc.Todos[2].Content != "bread" {
		t.Errorf("content = %q, want bread", ed.doc.Todos[2].Content)
	}

	ed.cursor = firstItemRow
	ed.removeItem()
	ed.doc = ed.cl.Document()
	if len(ed.doc.Todos) != 2 {
		t.Fatalf("todos after remove = %d, want 2", len(ed.doc.Todos))
	}
	if ed.doc.Todos[0].ID != "todo-2" {
		t.Errorf("remaining first item = %q", ed.doc.Todos[0].ID)
	}
}

func TestEditorEditTitleAndDescription(t *testing.T) {
	ed := newEditor(testTask(), newStubRemote(), &sender{})
	defer ed.close()

	ed.cursor = rowTitle
	ed.startEdit()
	if ed.input.Value() != "Groceries" {
		t.Fatalf("input prefilled with %q", ed.input.Value())
	}
	ed.input.SetValue("Weekend groceries")
	ed.commitEdit()

	ed.cursor = rowDescription
	ed.startEdit()
	ed.input.SetValue("from the market")
	ed.commitEdit()

	ed.doc = ed.cl.Document()
	if ed.doc.Title != "Weekend groceries" {
		t.Errorf("title = %q", ed.doc.Title)
	}
	if ed.doc.Description != "from the market" {
		t.Errorf("description = %q", ed.doc.Description)
	}
	if !ed.dirty {
		t.Error("edits should mark the editor dirty")
	}
}

func TestEditorToggleRejectsWhileInFlight(t *testing.T) {
	remote := newStubRemote()
	ed := newEditor(testTask(), remote, &sender{})
	defer func() {
		close(remote.unblock)
		ed.close()
	}()

	ed.cursor = firstItemRow
	if !ed.toggle() {
		t.Fatal("first toggle should be accepted")
	}
	<-remote.calls

	if !ed.inFlight("todo-1") {
		t.Fatal("patch should be in flight")
	}
	if ed.toggle() {
		t.Error("second toggle for the same item should be rejected")
	}
}

func TestEditorToggleTempItemNeedsNoRemote(t *testing.T) {
	remote := newStubRemote()
	ed := newEditor(testTask(), remote, &sender{})
	defer ed.close()

	ed.addItem()
	ed.commitEdit()
	ed.doc = ed.cl.Document()
	ed.cursor = firstItemRow + 2

	if !ed.toggle() {
		t.Fatal("toggle on a new item should be accepted")
	}
	select {
	case id := <-remote.calls:
		t.Fatalf("unexpected remote call for %s", id)
	case <-time.After(50 * time.Millisecond):
	}
	ed.doc = ed.cl.Document()
	if !ed.doc.Todos[2].Checked {
		t.Error("new item should be checked locally")
	}
}

func TestEditorSaveDocumentDropsEmptyRows(t *testing.T) {
	ed := newEditor(testTask(), newStubRemote(), &sender{})
	defer ed.close()

	ed.addItem()
	ed.commitEdit() // never typed anything
	doc := ed.saveDocument()
	if len(doc.Todos) != 2 {
		t.Fatalf("todos in save payload = %d, want 2", len(doc.Todos))
	}
	for _, td := range doc.Todos {
		if td.Content == "" {
			t.Errorf("empty row %q survived into the save payload", td.ID)
		}
	}
}
