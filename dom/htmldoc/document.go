// Package htmldoc hosts HTML documents parsed with golang.org/x/net/html.
// Besides read/write access for the walker it records insertions and text
// modifications and delivers them in batches, which makes it usable as a
// live document.
package htmldoc

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"sei/dom"
)

// Change is a change notification about HTML node.
type Change = dom.Change[*html.Node]

const queueSize = 64

// Document is an HTML tree safe for concurrent access.
type Document struct {
	mu      sync.Mutex
	root    *html.Node
	enc     encoding.Encoding
	pending []Change
	changes chan []Change
	closed  bool
}

// New wraps already parsed tree.
func New(root *html.Node) *Document {
	return &Document{
		root:    root,
		enc:     unicode.UTF8,
		changes: make(chan []Change, queueSize),
	}
}

// Parse reads HTML document detecting its encoding from BOM, meta tags or
// contentType. Rendering uses the same encoding.
func Parse(r io.Reader, contentType string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read document: %w", err)
	}
	enc, name, _ := charset.DetermineEncoding(data, contentType)

	root, err := html.Parse(enc.NewDecoder().Reader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("unable to parse document (%s): %w", name, err)
	}
	d := New(root)
	d.enc = enc
	return d, nil
}

// Changes implements dom.Notifier.
func (d *Document) Changes() <-chan []Change {
	return d.changes
}

// Flush delivers recorded changes as a single batch. When consumer is
// lagging changes stay queued until next flush.
func (d *Document) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || len(d.pending) == 0 {
		return
	}
	select {
	case d.changes <- d.pending:
		d.pending = nil
	default:
	}
}

// Close stops change delivery, watchers consuming them will stop.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	d.pending = nil
	close(d.changes)
}

func (d *Document) record(kind dom.ChangeKind, n *html.Node) {
	if d.closed {
		return
	}
	d.pending = append(d.pending, Change{Kind: kind, Node: n})
}

// Root returns <body> element if document has one and top node otherwise.
func (d *Document) Root() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()

	if body := find(d.root, atom.Body); body != nil {
		return body
	}
	return d.root
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, a); f != nil {
			return f
		}
	}
	return nil
}

// Leaves implements dom.Tree.
func (d *Document) Leaves(root *html.Node, keep func(*html.Node) bool) iter.Seq[*html.Node] {
	d.mu.Lock()
	var all []*html.Node
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			all = append(all, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	d.mu.Unlock()

	return func(yield func(*html.Node) bool) {
		for _, n := range all {
			if keep(n) && !yield(n) {
				return
			}
		}
	}
}

// Text implements dom.Tree.
func (d *Document) Text(leaf *html.Node) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if leaf.Type != html.TextNode {
		return "", fmt.Errorf("not a text node: %s", leaf.Data)
	}
	return leaf.Data, nil
}

// SetText implements dom.Tree.
func (d *Document) SetText(leaf *html.Node, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if leaf.Type != html.TextNode {
		return fmt.Errorf("not a text node: %s", leaf.Data)
	}
	if !d.attached(leaf) {
		return dom.ErrDetached
	}
	leaf.Data = text
	d.record(dom.ChangeKindContent, leaf)
	return nil
}

func (d *Document) attached(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// Parent implements dom.Tree.
func (d *Document) Parent(n *html.Node) (*html.Node, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return n.Parent, n.Parent != nil
}

// Tag implements dom.Tree.
func (d *Document) Tag(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// Attr implements dom.Tree.
func (d *Document) Attr(n *html.Node, name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, a := range n.Attr {
		if len(a.Namespace) == 0 && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// IsText implements dom.Tree.
func (d *Document) IsText(n *html.Node) bool {
	return n.Type == html.TextNode
}

// AppendChild adds child to parent and records insertion.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent.AppendChild(child)
	d.record(dom.ChangeKindInserted, child)
}

// InsertBefore adds child to parent before ref and records insertion.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent.InsertBefore(child, ref)
	d.record(dom.ChangeKindInserted, child)
}

// RemoveChild detaches child from parent.
func (d *Document) RemoveChild(parent, child *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent.RemoveChild(child)
}

// SetAttr sets attribute of an element.
func (d *Document) SetAttr(n *html.Node, name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range n.Attr {
		if len(n.Attr[i].Namespace) == 0 && strings.EqualFold(n.Attr[i].Key, name) {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// Render writes document in its original encoding.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// characters encoding cannot represent become numeric references
	tw := transform.NewWriter(w, encoding.HTMLEscapeUnsupported(d.enc.NewEncoder()))
	if err := html.Render(tw, d.root); err != nil {
		return fmt.Errorf("unable to render document: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("unable to render document: %w", err)
	}
	return nil
}
