package dom

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// State of a watcher.
// ENUM(idle, draining)
type State int32

// Watcher keeps a live document rewritten: full pass first, then every
// batch of changes host reports. All document mutations happen on the
// goroutine running Run.
type Watcher[N comparable] struct {
	tree    Tree[N]
	changes <-chan []Change[N]
	walker  *Walker[N]
	state   atomic.Int32
	log     *zap.Logger
}

// NewWatcher creates watcher for tree, changes come from n.
func NewWatcher[N comparable](tree Tree[N], n Notifier[N], walker *Walker[N], log *zap.Logger) *Watcher[N] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher[N]{
		tree:    tree,
		changes: n.Changes(),
		walker:  walker,
		log:     log,
	}
}

// State returns current state.
func (w *Watcher[N]) State() State {
	return State(w.state.Load())
}

// Run processes document until ctx is canceled or host closes its change
// channel. Returns ctx.Err() on cancellation and nil otherwise.
func (w *Watcher[N]) Run(ctx context.Context) error {
	w.state.Store(int32(StateDraining))
	stats := w.walker.Walk(w.tree.Root())
	w.state.Store(int32(StateIdle))
	w.log.Debug("Initial pass done", zap.Int("visited", stats.Visited), zap.Int("changed", stats.Changed), zap.Int("failed", stats.Failed))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-w.changes:
			if !ok {
				w.log.Debug("Document is gone, watcher stopped")
				return nil
			}
			w.Drain(batch)
		}
	}
}

// Drain handles a batch of changes in delivery order.
func (w *Watcher[N]) Drain(batch []Change[N]) (stats WalkStats) {
	w.state.Store(int32(StateDraining))
	defer w.state.Store(int32(StateIdle))

	for _, c := range batch {
		stats.Add(w.apply(c))
	}
	if stats.Changed > 0 || stats.Failed > 0 {
		w.log.Debug("Changes drained", zap.Int("batch", len(batch)), zap.Int("changed", stats.Changed), zap.Int("failed", stats.Failed))
	}
	return stats
}

func (w *Watcher[N]) apply(c Change[N]) (stats WalkStats) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Debug("Change skipped", zap.Stringer("kind", c.Kind), zap.Any("panic", r))
			stats.Failed++
		}
	}()

	switch c.Kind {
	case ChangeKindInserted:
		if w.tree.IsText(c.Node) {
			return w.walker.RewriteLeaf(c.Node)
		}
		return w.walker.Walk(c.Node)
	case ChangeKindContent:
		return w.walker.RewriteLeaf(c.Node)
	}
	return stats
}
