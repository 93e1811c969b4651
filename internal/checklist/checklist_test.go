package checklist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskpilot-cli/internal/model"
)

// fakeRemote records patch calls and blocks each one until the test resolves
// it, so completion order is fully controlled.
type fakeRemote struct {
	mu      sync.Mutex
	calls   []string
	results map[string]chan error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{results: map[string]chan error{}}
}

func (f *fakeRemote) SetTodoChecked(ctx context.Context, todoID string, checked bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, todoID)
	ch, ok := f.results[todoID]
	if !ok {
		ch = make(chan error, 1)
		f.results[todoID] = ch
	}
	f.mu.Unlock()
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeRemote) resolve(todoID string, err error) {
	f.mu.Lock()
	ch, ok := f.results[todoID]
	if !ok {
		ch = make(chan error, 1)
		f.results[todoID] = ch
	}
	f.mu.Unlock()
	ch <- err
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type harness struct {
	cl      *Checklist
	remote  *fakeRemote
	changes chan model.TaskList
	notices chan Notice
}

func newHarness(t *testing.T, doc model.TaskList, window time.Duration) *harness {
	t.Helper()
	h := &harness{
		remote:  newFakeRemote(),
		changes: make(chan model.TaskList, 64),
		notices: make(chan Notice, 64),
	}
	h.cl = New(doc, h.remote, Options{
		Debounce: window,
		OnChange: func(d model.TaskList) { h.changes <- d },
		OnNotice: func(n Notice) { h.notices <- n },
	})
	t.Cleanup(h.cl.Close)
	return h
}

func (h *harness) lastChange(t *testing.T) model.TaskList {
	t.Helper()
	select {
	case d := <-h.changes:
		return d
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a published change")
		return model.TaskList{}
	}
}

func (h *harness) waitNotice(t *testing.T) Notice {
	t.Helper()
	select {
	case n := <-h.notices:
		return n
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a notice")
		return Notice{}
	}
}

func todoByID(t *testing.T, doc model.TaskList, id string) model.Todo {
	t.Helper()
	for _, td := range doc.Todos {
		if td.ID == id {
			return td
		}
	}
	t.Fatalf("todo %s not in published list", id)
	return model.Todo{}
}

func baseDoc() model.TaskList {
	return model.TaskList{
		ID:    "task-1",
		Title: "Groceries",
		Todos: []model.Todo{
			{ID: "todo-a", Content: "Buy milk"},
			{ID: "todo-b", Content: "Buy bread"},
		},
	}
}

func TestSetCheckedPublishesBeforeRemoteResolves(t *testing.T) {
	h := newHarness(t, baseDoc(), 10*time.Millisecond)

	if ok := h.cl.SetChecked("todo-a", true); !ok {
		t.Fatalf("toggle rejected")
	}
	// The publish happened synchronously inside SetChecked; the remote call
	// is still blocked.
	snap := h.lastChange(t)
	if !todoByID(t, snap, "todo-a").Checked {
		t.Fatalf("optimistic value not published before remote resolution")
	}
	if !h.cl.InFlight("todo-a") {
		t.Fatalf("expected todo-a to be in flight")
	}

	h.remote.resolve("todo-a", nil)
	waitNotInFlight(t, h.cl, "todo-a")
	if len(h.changes) != 0 {
		t.Fatalf("success must not publish again; optimistic value was already correct")
	}
}

func TestRollbackOnFailure(t *testing.T) {
	h := newHarness(t, baseDoc(), 10*time.Millisecond)

	h.cl.SetChecked("todo-a", true)
	<-h.changes // optimistic publish

	h.remote.resolve("todo-a", errors.New("503 from upstream"))
	n := h.waitNotice(t)
	if n.ItemID != "todo-a" || n.Message == "" {
		t.Fatalf("unexpected notice %+v", n)
	}
	snap := h.lastChange(t)
	if todoByID(t, snap, "todo-a").Checked {
		t.Fatalf("failed toggle must revert to pre-toggle value")
	}
	if h.cl.InFlight("todo-a") {
		t.Fatalf("in-flight mark must clear on failure")
	}
}

func TestIndependentTogglesRollbackIndependently(t *testing.T) {
	h := newHarness(t, baseDoc(), 10*time.Millisecond)

	h.cl.SetChecked("todo-a", true)
	h.cl.SetChecked("todo-b", true)
	<-h.changes
	<-h.changes

	// B succeeds first, then A fails: A's rollback must not touch B,
	// regardless of completion order.
	h.remote.resolve("todo-b", nil)
	waitNotInFlight(t, h.cl, "todo-b")
	h.remote.resolve("todo-a", errors.New("boom"))
	h.waitNotice(t)

	snap := h.lastChange(t)
	if todoByID(t, snap, "todo-a").Checked {
		t.Fatalf("todo-a should have reverted")
	}
	if !todoByID(t, snap, "todo-b").Checked {
		t.Fatalf("todo-b should have stayed checked")
	}
}

func TestRollbackComputedAgainstCurrentList(t *testing.T) {
	h := newHarness(t, baseDoc(), 5*time.Millisecond)

	h.cl.SetChecked("todo-a", true)
	<-h.changes

	// Concurrent edit while the patch is outstanding.
	h.cl.UpdateContent("todo-b", "Buy oat bread")
	h.cl.FlushEdits()
	<-h.changes

	h.remote.resolve("todo-a", errors.New("boom"))
	h.waitNotice(t)
	snap := h.lastChange(t)
	if todoByID(t, snap, "todo-a").Checked {
		t.Fatalf("todo-a should have reverted")
	}
	if got := todoByID(t, snap, "todo-b").Content; got != "Buy oat bread" {
		t.Fatalf("rollback clobbered a concurrent edit: %q", got)
	}
}

func TestDoubleToggleRejectedWhileInFlight(t *testing.T) {
	h := newHarness(t, baseDoc(), 10*time.Millisecond)

	if ok := h.cl.SetChecked("todo-a", true); !ok {
		t.Fatalf("first toggle rejected")
	}
	if ok := h.cl.SetChecked("todo-a", false); ok {
		t.Fatalf("second toggle on an in-flight item must be rejected")
	}
	h.remote.resolve("todo-a", nil)
	waitNotInFlight(t, h.cl, "todo-a")
	if ok := h.cl.SetChecked("todo-a", false); !ok {
		t.Fatalf("toggle after completion should be accepted")
	}
	h.remote.resolve("todo-a", nil)
}

func TestUnknownItemToggleIsNoop(t *testing.T) {
	h := newHarness(t, baseDoc(), 10*time.Millisecond)
	if ok := h.cl.SetChecked("todo-nope", true); ok {
		t.Fatalf("unknown id must no-op")
	}
	if h.remote.callCount() != 0 {
		t.Fatalf("unknown id must not reach the remote")
	}
}

func TestTempItemToggleSkipsRemote(t *testing.T) {
	h := newHarness(t, baseDoc(), 10*time.Millisecond)
	id := h.cl.AddItem()
	<-h.changes

	if ok := h.cl.SetChecked(id, true); !ok {
		t.Fatalf("toggle on temp item rejected")
	}
	snap := h.lastChange(t)
	if !todoByID(t, snap, id).Checked {
		t.Fatalf("temp item toggle not applied locally")
	}
	if h.remote.callCount() != 0 {
		t.Fatalf("never-persisted item must not be patched remotely")
	}
	if h.cl.InFlight(id) {
		t.Fatalf("temp item must not be marked in flight")
	}
}

func TestDebounceCoalescesToLastValue(t *testing.T) {
	h := newHarness(t, baseDoc(), 40*time.Millisecond)

	h.cl.UpdateContent("todo-a", "Buy m")
	h.cl.UpdateContent("todo-a", "Buy oat m")
	h.cl.UpdateContent("todo-a", "Buy oat milk")

	select {
	case snap := <-h.changes:
		if got := todoByID(t, snap, "todo-a").Content; got != "Buy oat milk" {
			t.Fatalf("expected last value, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("debounced fold never fired")
	}
	// Exactly one fold: no intermediate value may follow.
	select {
	case snap := <-h.changes:
		t.Fatalf("unexpected extra publish: %+v", snap.Todos)
	case <-time.After(120 * time.Millisecond):
	}
}

func TestFieldsDebounceIndependently(t *testing.T) {
	h := newHarness(t, baseDoc(), 30*time.Millisecond)

	h.cl.SetTitle("Groceries (week 12)")
	h.cl.SetDescription("Shopping for the trip")
	h.cl.FlushEdits()

	first := h.lastChange(t)
	second := h.lastChange(t)
	// Two independent folds, order not specified.
	if second.Title != "Groceries (week 12)" || second.Description != "Shopping for the trip" {
		t.Fatalf("both fields should be folded, got %+v then %+v", first, second)
	}
}

func TestIDUniquenessInvariant(t *testing.T) {
	h := newHarness(t, model.TaskList{ID: "task-2", Todos: []model.Todo{
		{ID: "dup", Content: "one"},
		{ID: "dup", Content: "two"},
		{Content: "no id"},
	}}, 10*time.Millisecond)

	h.cl.AddItem()
	h.cl.AddItem()
	<-h.changes
	<-h.changes
	h.cl.ReplaceAll(model.TaskList{ID: "task-2", Todos: []model.Todo{
		{ID: "x", Content: "a"},
		{ID: "x", Content: "b"},
	}})
	snap := h.lastChange(t)

	seen := map[string]bool{}
	for _, td := range snap.Todos {
		if td.ID == "" {
			t.Fatalf("item without id in published list")
		}
		if seen[td.ID] {
			t.Fatalf("duplicate id %q", td.ID)
		}
		seen[td.ID] = true
	}
}

func TestRemoveItemIsLocalOnly(t *testing.T) {
	h := newHarness(t, baseDoc(), 10*time.Millisecond)
	h.cl.RemoveItem("todo-a")
	snap := h.lastChange(t)
	if len(snap.Todos) != 1 || snap.Todos[0].ID != "todo-b" {
		t.Fatalf("unexpected list after removal: %+v", snap.Todos)
	}
	if h.remote.callCount() != 0 {
		t.Fatalf("removal must not call the remote store")
	}
}

func TestSetDeadlineIsLocalOnly(t *testing.T) {
	h := newHarness(t, baseDoc(), 10*time.Millisecond)
	due := time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC)
	h.cl.SetDeadline("todo-a", &due)
	snap := h.lastChange(t)
	got := todoByID(t, snap, "todo-a")
	if got.Deadline == nil || !got.Deadline.Equal(due) {
		t.Fatalf("deadline not applied: %+v", got)
	}
	if h.remote.callCount() != 0 {
		t.Fatalf("deadline must ride with the batch save, not its own call")
	}
}

func TestDocumentIncludesPendingEdits(t *testing.T) {
	h := newHarness(t, baseDoc(), time.Hour) // window long enough to never fire on its own
	h.cl.UpdateContent("todo-a", "Buy oat milk")
	h.cl.SetTitle("Trip prep")

	doc := h.cl.Document()
	if doc.Title != "Trip prep" {
		t.Fatalf("pending title edit missing from snapshot")
	}
	if todoByID(t, doc, "todo-a").Content != "Buy oat milk" {
		t.Fatalf("pending content edit missing from snapshot")
	}
}

func TestTeardownCancelsPendingDebounce(t *testing.T) {
	h := newHarness(t, baseDoc(), 30*time.Millisecond)
	h.cl.UpdateContent("todo-a", "never lands")
	h.cl.Close()

	select {
	case snap := <-h.changes:
		t.Fatalf("publish after Close: %+v", snap.Todos)
	case <-time.After(120 * time.Millisecond):
	}
}

func TestNoCallbacksAfterCloseWithPatchInFlight(t *testing.T) {
	h := newHarness(t, baseDoc(), 10*time.Millisecond)
	h.cl.SetChecked("todo-a", true)
	<-h.changes
	h.cl.Close()
	h.remote.resolve("todo-a", errors.New("late failure"))

	select {
	case n := <-h.notices:
		t.Fatalf("notice after Close: %+v", n)
	case snap := <-h.changes:
		t.Fatalf("publish after Close: %+v", snap.Todos)
	case <-time.After(150 * time.Millisecond):
	}
}

func waitNotInFlight(t *testing.T, cl *Checklist, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !cl.InFlight(id) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("todo %s still in flight", id)
}
