// Package checklist holds the session-local state of one task list and keeps
// the remote store eventually consistent with it.
//
// Mutations apply locally first and publish synchronously, so the UI never
// waits on the network. Checked-state toggles patch the remote per item and
// roll back on failure; content, deadlines and removals only reach the network
// on an explicit whole-document save. That asymmetry is deliberate: checking
// is a high-frequency toggle with a dedicated endpoint, text edits are
// low-frequency and bundled.
package checklist

import (
	"context"
	"sync"
	"time"

	"taskpilot-cli/internal/model"
)

// DefaultDebounce is the window for coalescing rapid field edits.
const DefaultDebounce = 400 * time.Millisecond

const defaultPatchTimeout = 30 * time.Second

// Remote is the slice of the backend API the checklist needs on its own.
// *api.Client satisfies it.
type Remote interface {
	SetTodoChecked(ctx context.Context, todoID string, checked bool) error
}

// Notice is a structured "operation failed, here is why" signal for the
// presentation layer. Raw transport errors never cross this boundary.
type Notice struct {
	ItemID  string
	Message string
	Err     error
}

type Options struct {
	// Debounce overrides DefaultDebounce (tests use short windows).
	Debounce time.Duration
	// PatchTimeout bounds each per-item remote patch.
	PatchTimeout time.Duration
	// OnChange receives a deep copy of the document after every published
	// mutation. Never called after Close.
	OnChange func(model.TaskList)
	// OnNotice receives failure notices. Never called after Close.
	OnNotice func(Notice)
}

type Checklist struct {
	mu     sync.Mutex
	doc    model.TaskList
	busy   map[string]bool
	closed bool

	remote Remote
	deb    *debouncer
	opts   Options
}

// New builds a checklist from a server snapshot (or a zero TaskList for
// new-document creation). Items without an id get a temp id so every item is
// addressable and the id-uniqueness invariant holds from the start.
func New(doc model.TaskList, remote Remote, opts Options) *Checklist {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PatchTimeout <= 0 {
		opts.PatchTimeout = defaultPatchTimeout
	}
	c := &Checklist{
		doc:    doc.Clone(),
		busy:   map[string]bool{},
		remote: remote,
		deb:    newDebouncer(opts.Debounce),
		opts:   opts,
	}
	seen := map[string]bool{}
	for i := range c.doc.Todos {
		id := c.doc.Todos[i].ID
		if id == "" || seen[id] {
			id = model.NewTempID()
			c.doc.Todos[i].ID = id
		}
		seen[id] = true
	}
	return c
}

// Document flushes pending debounced edits and returns the current snapshot.
// This is what the explicit save action submits.
func (c *Checklist) Document() model.TaskList {
	c.deb.FlushAll()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Clone()
}

// AddItem appends an empty unchecked item and returns its temp id. Pure local
// operation; the item is persisted by the next whole-document save, and only
// if it has content by then.
func (c *Checklist) AddItem() string {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ""
	}
	id := model.NewTempID()
	c.doc.Todos = append(c.doc.Todos, model.Todo{ID: id})
	snap := c.doc.Clone()
	c.mu.Unlock()

	c.publish(snap)
	return id
}

// RemoveItem deletes the item locally. Removal reaches the server on the next
// whole-document save (delete-by-omission), never as its own call.
func (c *Checklist) RemoveItem(id string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	c.doc.Todos = append(c.doc.Todos[:idx], c.doc.Todos[idx+1:]...)
	delete(c.busy, id)
	snap := c.doc.Clone()
	c.mu.Unlock()

	c.publish(snap)
}

// UpdateContent folds the item's new text into the document after the
// debounce window; rapid successive edits coalesce to the last value.
func (c *Checklist) UpdateContent(id, text string) {
	c.deb.Schedule("todo:"+id, func() {
		c.fold(func(doc *model.TaskList) bool {
			idx := c.indexOfIn(doc, id)
			if idx < 0 {
				return false
			}
			doc.Todos[idx].Content = text
			return true
		})
	})
}

// SetTitle debounces independently from the description and the items.
func (c *Checklist) SetTitle(title string) {
	c.deb.Schedule("title", func() {
		c.fold(func(doc *model.TaskList) bool {
			doc.Title = title
			return true
		})
	})
}

func (c *Checklist) SetDescription(desc string) {
	c.deb.Schedule("description", func() {
		c.fold(func(doc *model.TaskList) bool {
			doc.Description = desc
			return true
		})
	})
}

// FlushEdits applies pending debounced edits immediately (blur semantics).
func (c *Checklist) FlushEdits() {
	c.deb.FlushAll()
}

// SetDeadline applies locally only; deadlines ride along with the next
// whole-document save, same granularity as content edits.
func (c *Checklist) SetDeadline(id string, deadline *time.Time) {
	c.fold(func(doc *model.TaskList) bool {
		idx := c.indexOfIn(doc, id)
		if idx < 0 {
			return false
		}
		doc.Todos[idx].Deadline = deadline
		return true
	})
}

// SetChecked is the optimistic toggle. The new value publishes synchronously
// before any network I/O; the remote patch runs asynchronously, and a failure
// reverts the item against the list as it stands at failure time. Returns
// false if the item is unknown or already has a patch in flight.
func (c *Checklist) SetChecked(id string, checked bool) bool {
	// Items with temp ids have never been persisted; there is nothing to
	// patch. The value is realized by the next save.
	if model.IsTempID(id) {
		applied := false
		c.fold(func(doc *model.TaskList) bool {
			idx := c.indexOfIn(doc, id)
			if idx < 0 {
				return false
			}
			doc.Todos[idx].Checked = checked
			applied = true
			return true
		})
		return applied
	}

	var prev bool
	return c.runOptimistic(optimisticOp{
		itemID: id,
		mutate: func(doc *model.TaskList) bool {
			idx := c.indexOfIn(doc, id)
			if idx < 0 {
				return false
			}
			prev = doc.Todos[idx].Checked
			doc.Todos[idx].Checked = checked
			return true
		},
		inverse: func(doc *model.TaskList) bool {
			idx := c.indexOfIn(doc, id)
			if idx < 0 {
				return false
			}
			doc.Todos[idx].Checked = prev
			return true
		},
		call: func(ctx context.Context) error {
			return c.remote.SetTodoChecked(ctx, id, checked)
		},
		failMsg: "could not update item, try again",
	})
}

// InFlight reports whether a checked patch for id is still outstanding, so
// controls can show a busy affordance.
func (c *Checklist) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[id]
}

// ReplaceAll swaps in a full server-provided document (after fetch or save).
// Filtering transient empty items is the caller's concern, not this one's.
func (c *Checklist) ReplaceAll(doc model.TaskList) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.doc = doc.Clone()
	seen := map[string]bool{}
	for i := range c.doc.Todos {
		id := c.doc.Todos[i].ID
		if id == "" || seen[id] {
			id = model.NewTempID()
			c.doc.Todos[i].ID = id
		}
		seen[id] = true
	}
	// In-flight marks for ids that no longer exist would leak; their patch
	// completions become no-ops against the new list.
	for id := range c.busy {
		if !seen[id] {
			delete(c.busy, id)
		}
	}
	snap := c.doc.Clone()
	c.mu.Unlock()

	c.publish(snap)
}

// Close abandons pending debounced edits and suppresses all further
// callbacks. Safe to call on view teardown with patches still in flight.
func (c *Checklist) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.deb.Close()
}

// fold applies a mutation to the shared document and publishes when it
// changed anything.
func (c *Checklist) fold(mutate func(doc *model.TaskList) bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if !mutate(&c.doc) {
		c.mu.Unlock()
		return
	}
	snap := c.doc.Clone()
	c.mu.Unlock()

	c.publish(snap)
}

func (c *Checklist) indexOf(id string) int {
	return c.indexOfIn(&c.doc, id)
}

func (c *Checklist) indexOfIn(doc *model.TaskList, id string) int {
	for i := range doc.Todos {
		if doc.Todos[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Checklist) publish(snap model.TaskList) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || c.opts.OnChange == nil {
		return
	}
	c.opts.OnChange(snap)
}

func (c *Checklist) notify(n Notice) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || c.opts.OnNotice == nil {
		return
	}
	c.opts.OnNotice(n)
}
