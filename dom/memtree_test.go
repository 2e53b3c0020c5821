package dom

import (
	"errors"
	"iter"
	"strings"
	"sync"
)

// memNode is a minimal document node used to exercise walker and watcher.
type memNode struct {
	tag      string
	attrs    map[string]string
	text     string
	isText   bool
	parent   *memNode
	children []*memNode

	failSet   bool
	panicSet  bool
	panicText bool
}

func el(tag string, attrs map[string]string, children ...*memNode) *memNode {
	n := &memNode{tag: tag, attrs: attrs}
	for _, c := range children {
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

func txt(s string) *memNode {
	return &memNode{text: s, isText: true}
}

type memTree struct {
	mu      sync.Mutex
	root    *memNode
	writes  int
	changes chan []Change[*memNode]
}

func newMemTree(root *memNode) *memTree {
	return &memTree{root: root, changes: make(chan []Change[*memNode], 8)}
}

func (t *memTree) Root() *memNode { return t.root }

func (t *memTree) Leaves(root *memNode, keep func(*memNode) bool) iter.Seq[*memNode] {
	var all []*memNode
	var visit func(n *memNode)
	visit = func(n *memNode) {
		if n.isText {
			all = append(all, n)
			return
		}
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(root)
	return func(yield func(*memNode) bool) {
		for _, n := range all {
			if keep(n) && !yield(n) {
				return
			}
		}
	}
}

func (t *memTree) Text(leaf *memNode) (string, error) {
	if leaf.panicText {
		panic("text exploded")
	}
	return leaf.text, nil
}

func (t *memTree) SetText(leaf *memNode, text string) error {
	if leaf.panicSet {
		panic("set exploded")
	}
	if leaf.failSet {
		return errors.New("read only")
	}
	if leaf.parent == nil {
		return ErrDetached
	}
	t.mu.Lock()
	t.writes++
	t.mu.Unlock()
	leaf.text = text
	return nil
}

func (t *memTree) Parent(n *memNode) (*memNode, bool) {
	return n.parent, n.parent != nil
}

func (t *memTree) Tag(n *memNode) string {
	if n.isText {
		return ""
	}
	return n.tag
}

func (t *memTree) Attr(n *memNode, name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

func (t *memTree) IsText(n *memNode) bool { return n.isText }

func (t *memTree) Changes() <-chan []Change[*memNode] { return t.changes }

// upper is a trivial rewriter: fragments containing "·" are upper-cased.
type upper struct{}

func (upper) Rewrite(s string) string {
	if strings.Contains(s, "·") {
		return strings.ToUpper(s)
	}
	return s
}
