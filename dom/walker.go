package dom

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// WalkStats summarizes a pass over document.
type WalkStats struct {
	Visited int
	Changed int
	Failed  int
}

func (s *WalkStats) Add(o WalkStats) {
	s.Visited += o.Visited
	s.Changed += o.Changed
	s.Failed += o.Failed
}

// Walker rewrites text leaves of a tree.
type Walker[N comparable] struct {
	tree   Tree[N]
	filter *Filter[N]
	rw     Rewriter
	log    *zap.Logger
}

// NewWalker creates walker. When filter is nil default exclusions are used.
func NewWalker[N comparable](tree Tree[N], rw Rewriter, filter *Filter[N], log *zap.Logger) *Walker[N] {
	if filter == nil {
		filter = NewFilter(tree, DefaultExcludedTags, DefaultEditableAttr)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Walker[N]{tree: tree, filter: filter, rw: rw, log: log}
}

// Filter returns filter walker uses.
func (w *Walker[N]) Filter() *Filter[N] {
	return w.filter
}

type edit[N comparable] struct {
	leaf N
	text string
}

// Walk rewrites every acceptable text leaf under root. Leaves are collected
// first and modified afterwards, only those whose value actually changed
// are written back. Failure on a leaf never stops the walk.
func (w *Walker[N]) Walk(root N) (stats WalkStats) {
	var (
		edits []edit[N]
		errs  error
	)

	err := guard(func() error {
		for leaf := range w.tree.Leaves(root, w.accept) {
			stats.Visited++
			text, err := w.text(leaf)
			if err != nil {
				stats.Failed++
				errs = multierr.Append(errs, err)
				continue
			}
			if out := w.rw.Rewrite(text); out != text {
				edits = append(edits, edit[N]{leaf: leaf, text: out})
			}
		}
		return nil
	})
	if err != nil {
		stats.Failed++
		errs = multierr.Append(errs, err)
	}

	for _, e := range edits {
		if err := guard(func() error { return w.tree.SetText(e.leaf, e.text) }); err != nil {
			stats.Failed++
			errs = multierr.Append(errs, err)
			continue
		}
		stats.Changed++
	}

	if errs != nil {
		w.log.Debug("Some text was left as found", zap.Int("failed", stats.Failed), zap.Error(errs))
	}
	return stats
}

// RewriteLeaf applies rewriter to a single leaf after the same checks Walk
// does.
func (w *Walker[N]) RewriteLeaf(leaf N) (stats WalkStats) {
	if !w.accept(leaf) {
		return stats
	}
	stats.Visited++

	text, err := w.text(leaf)
	if err == nil {
		out := w.rw.Rewrite(text)
		if out == text {
			return stats
		}
		if err = guard(func() error { return w.tree.SetText(leaf, out) }); err == nil {
			stats.Changed++
			return stats
		}
	}
	stats.Failed++
	w.log.Debug("Text was left as found", zap.Error(err))
	return stats
}

func (w *Walker[N]) accept(n N) (ok bool) {
	if err := guard(func() error {
		ok = w.filter.Accept(n)
		return nil
	}); err != nil {
		w.log.Debug("Unable to check node", zap.Error(err))
		return false
	}
	return ok
}

func (w *Walker[N]) text(leaf N) (text string, err error) {
	err = guard(func() (err error) {
		text, err = w.tree.Text(leaf)
		return err
	})
	return text, err
}
