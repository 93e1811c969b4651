package checklist

import (
	"context"

	"taskpilot-cli/internal/model"
)

// optimisticOp is the reusable optimistic-write shape: apply the mutation
// now, remember its inverse, attempt the remote call, and apply the inverse
// on failure. The inverse runs against the document as it stands at failure
// time, never a request-time snapshot.
type optimisticOp struct {
	itemID  string
	mutate  func(doc *model.TaskList) bool
	inverse func(doc *model.TaskList) bool
	call    func(ctx context.Context) error
	failMsg string
}

// runOptimistic publishes the mutated document synchronously, marks the item
// in flight, and settles the remote call on its own goroutine. Returns false
// when the checklist is closed, the item already has a call outstanding, or
// the mutation did not apply.
func (c *Checklist) runOptimistic(op optimisticOp) bool {
	c.mu.Lock()
	if c.closed || c.busy[op.itemID] {
		c.mu.Unlock()
		return false
	}
	if !op.mutate(&c.doc) {
		c.mu.Unlock()
		return false
	}
	c.busy[op.itemID] = true
	snap := c.doc.Clone()
	c.mu.Unlock()

	c.publish(snap)
	go c.settle(op)
	return true
}

func (c *Checklist) settle(op optimisticOp) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.PatchTimeout)
	defer cancel()
	err := op.call(ctx)

	c.mu.Lock()
	delete(c.busy, op.itemID)
	if err == nil || c.closed {
		c.mu.Unlock()
		return
	}
	// The item may have been removed or replaced while the call was
	// outstanding; the inverse reports whether it still applied.
	var snap model.TaskList
	reverted := op.inverse(&c.doc)
	if reverted {
		snap = c.doc.Clone()
	}
	c.mu.Unlock()

	if reverted {
		c.publish(snap)
	}
	c.notify(Notice{ItemID: op.itemID, Message: op.failMsg, Err: err})
}
