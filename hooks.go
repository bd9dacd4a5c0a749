package demorefresh

import (
	"sync"

	"github.com/agentstation/demorefresh/pkg/reconciler"
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// EventHook is called with the outcome of one desired item.
type EventHook func(ev reconciler.Event)

// Hooks registers callbacks fired once per item, in catalog order, after a
// run's files are saved (or after a dry run reconciles). A run that fails,
// including one whose save fails, fires none.
type Hooks interface {
	// OnItemFetched is called for items whose fresh content was used.
	OnItemFetched(fn EventHook)

	// OnItemCached is called for items that fell back to the cached copy.
	OnItemCached(fn EventHook)

	// OnItemMissing is called for items that were dropped.
	OnItemMissing(fn EventHook)
}

// hooks manages event callbacks.
type hooks struct {
	mu        sync.RWMutex
	onFetched []EventHook
	onCached  []EventHook
	onMissing []EventHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnItemFetched implements Hooks.
func (c *client) OnItemFetched(fn EventHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onFetched = append(c.hooks.onFetched, fn)
}

// OnItemCached implements Hooks.
func (c *client) OnItemCached(fn EventHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onCached = append(c.hooks.onCached, fn)
}

// OnItemMissing implements Hooks.
func (c *client) OnItemMissing(fn EventHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onMissing = append(c.hooks.onMissing, fn)
}

// trigger dispatches events to the registered hooks.
func (h *hooks) trigger(events []reconciler.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ev := range events {
		var fns []EventHook
		switch ev.Decision {
		case reconciler.DecisionFetched:
			fns = h.onFetched
		case reconciler.DecisionCached:
			fns = h.onCached
		case reconciler.DecisionMissing:
			fns = h.onMissing
		}
		for _, fn := range fns {
			fn(ev)
		}
	}
}
