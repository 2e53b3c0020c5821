// Package dom applies a text rewriter to documents: a one-shot walker over
// a subtree and a watcher reacting to batches of document changes. Actual
// documents are provided by hosts implementing Tree.
package dom

import (
	"errors"
	"fmt"
	"iter"
)

// ErrDetached is returned by hosts when a node is no longer part of the
// document.
var ErrDetached = errors.New("node is detached from document")

// Tree is the set of capabilities a document host provides. N is the host's
// node handle.
type Tree[N comparable] interface {
	// Root returns the node initial pass starts from.
	Root() N
	// Leaves enumerates text leaves under root in document order, keeping
	// only those for which keep returns true. Enumeration works on a
	// snapshot, callers may mutate the document while ranging.
	Leaves(root N, keep func(N) bool) iter.Seq[N]
	// Text returns current value of a text leaf.
	Text(leaf N) (string, error)
	// SetText replaces value of a text leaf.
	SetText(leaf N, text string) error
	// Parent returns parent of n, false for the top of the tree or for
	// detached nodes.
	Parent(n N) (N, bool)
	// Tag returns lower case element name or empty string for non elements.
	Tag(n N) string
	// Attr returns attribute value of an element.
	Attr(n N, name string) (string, bool)
	// IsText reports whether n is a text leaf.
	IsText(n N) bool
}

// ChangeKind tells what happened to a node: inserted node (text or subtree)
// was added to the document, content of a text leaf was modified.
// ENUM(inserted, content)
type ChangeKind int

// Change is a single notification. Hosts deliver them in batches.
type Change[N any] struct {
	Kind ChangeKind
	Node N
}

// Notifier is implemented by hosts able to report document changes.
// Channel is closed when document goes away.
type Notifier[N any] interface {
	Changes() <-chan []Change[N]
}

// Rewriter transforms a single text fragment. Implementations must return
// input unchanged when there is nothing to do and must not fail.
type Rewriter interface {
	Rewrite(text string) string
}

// guard runs host call converting panics into errors.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host failure: %v", r)
		}
	}()
	return fn()
}
