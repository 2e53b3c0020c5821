// Package browser hosts a live page of a real browser. DOM of the page is
// mirrored from Chrome DevTools protocol events (go-rod), text is written
// back with DOM.setNodeValue.
package browser

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
	"go.uber.org/zap"

	"sei/dom"
)

// Change is a change notification about mirrored node.
type Change = dom.Change[proto.DOMNodeID]

// DOM node types we care about.
const (
	elementNode  = 1
	textNode     = 3
	documentNode = 9
)

const (
	queueSize  = 64
	batchDelay = 20 * time.Millisecond
)

// cdp is the part of DevTools protocol page needs.
type cdp interface {
	document() (*proto.DOMNode, error)
	requestChildNodes(id proto.DOMNodeID) error
	setNodeValue(id proto.DOMNodeID, value string) error
}

type rodClient struct {
	page *rod.Page
}

func (c rodClient) document() (*proto.DOMNode, error) {
	res, err := proto.DOMGetDocument{Depth: gson.Int(-1), Pierce: true}.Call(c.page)
	if err != nil {
		return nil, err
	}
	return res.Root, nil
}

func (c rodClient) requestChildNodes(id proto.DOMNodeID) error {
	return proto.DOMRequestChildNodes{NodeID: id, Depth: gson.Int(-1), Pierce: true}.Call(c.page)
}

func (c rodClient) setNodeValue(id proto.DOMNodeID, value string) error {
	return proto.DOMSetNodeValue{NodeID: id, Value: value}.Call(c.page)
}

type node struct {
	typ      int
	name     string
	value    string
	attrs    map[string]string
	parent   proto.DOMNodeID
	children []proto.DOMNodeID
}

// Page mirrors DOM of a browser page.
type Page struct {
	mu      sync.Mutex
	cdp     cdp
	root    proto.DOMNodeID
	nodes   map[proto.DOMNodeID]*node
	pending []Change
	timer   *time.Timer
	changes chan []Change
	closed  bool
	log     *zap.Logger
}

func newPage(c cdp, log *zap.Logger) *Page {
	if log == nil {
		log = zap.NewNop()
	}
	return &Page{
		cdp:     c,
		nodes:   make(map[proto.DOMNodeID]*node),
		changes: make(chan []Change, queueSize),
		log:     log,
	}
}

// reset replaces whole mirror with a fresh document snapshot.
func (p *Page) reset(doc *proto.DOMNode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	clear(p.nodes)
	p.root = doc.NodeID
	p.load(doc, 0)
	// walkers start from body, so the fresh subtree is announced from there
	p.record(dom.ChangeKindInserted, p.body())
}

// load adds n and its known descendants to the mirror, must be called with
// lock held.
func (p *Page) load(n *proto.DOMNode, parent proto.DOMNodeID) {
	m := &node{
		typ:    n.NodeType,
		name:   strings.ToLower(n.LocalName),
		value:  n.NodeValue,
		parent: parent,
	}
	if len(m.name) == 0 && n.NodeType == elementNode {
		m.name = strings.ToLower(n.NodeName)
	}
	if len(n.Attributes) > 0 {
		m.attrs = make(map[string]string, len(n.Attributes)/2)
		for i := 0; i+1 < len(n.Attributes); i += 2 {
			m.attrs[strings.ToLower(n.Attributes[i])] = n.Attributes[i+1]
		}
	}
	p.nodes[n.NodeID] = m

	var kids []*proto.DOMNode
	kids = append(kids, n.ShadowRoots...)
	kids = append(kids, n.Children...)
	if n.ContentDocument != nil {
		kids = append(kids, n.ContentDocument)
	}
	for _, c := range kids {
		p.load(c, n.NodeID)
		m.children = append(m.children, c.NodeID)
	}
}

// forget removes n with its descendants, must be called with lock held.
func (p *Page) forget(id proto.DOMNodeID) {
	n, ok := p.nodes[id]
	if !ok {
		return
	}
	for _, c := range n.children {
		p.forget(c)
	}
	delete(p.nodes, id)
}

// record queues change and arms delivery timer, must be called with lock
// held.
func (p *Page) record(kind dom.ChangeKind, id proto.DOMNodeID) {
	if p.closed {
		return
	}
	p.pending = append(p.pending, Change{Kind: kind, Node: id})
	if p.timer == nil {
		p.timer = time.AfterFunc(batchDelay, p.flush)
	}
}

func (p *Page) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.timer = nil
	if p.closed || len(p.pending) == 0 {
		return
	}
	select {
	case p.changes <- p.pending:
		p.pending = nil
	default:
		// consumer is lagging, try again later
		p.timer = time.AfterFunc(batchDelay, p.flush)
	}
}

// Changes implements dom.Notifier.
func (p *Page) Changes() <-chan []Change {
	return p.changes
}

// Close stops change delivery.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.pending = nil
	close(p.changes)
}

func (p *Page) onSetChildNodes(ev *proto.DOMSetChildNodes) {
	p.mu.Lock()
	defer p.mu.Unlock()

	parent, ok := p.nodes[ev.ParentID]
	if !ok {
		return
	}
	for _, c := range parent.children {
		p.forget(c)
	}
	parent.children = parent.children[:0]
	for _, n := range ev.Nodes {
		p.load(n, ev.ParentID)
		parent.children = append(parent.children, n.NodeID)
		p.record(dom.ChangeKindInserted, n.NodeID)
	}
}

func (p *Page) onChildNodeInserted(ev *proto.DOMChildNodeInserted) {
	if ev.Node == nil {
		return
	}

	p.mu.Lock()
	parent, ok := p.nodes[ev.ParentNodeID]
	if !ok {
		p.mu.Unlock()
		return
	}
	if _, known := p.nodes[ev.Node.NodeID]; known {
		p.forget(ev.Node.NodeID)
		parent.children = slices.DeleteFunc(parent.children, func(id proto.DOMNodeID) bool { return id == ev.Node.NodeID })
	}
	p.load(ev.Node, ev.ParentNodeID)
	at := 0
	if ev.PreviousNodeID != 0 {
		at = slices.Index(parent.children, ev.PreviousNodeID) + 1
	}
	parent.children = slices.Insert(parent.children, at, ev.Node.NodeID)
	p.record(dom.ChangeKindInserted, ev.Node.NodeID)

	// browser reports inserted elements without their subtree
	fetch := ev.Node.NodeType == elementNode && len(ev.Node.Children) == 0 &&
		ev.Node.ChildNodeCount != nil && *ev.Node.ChildNodeCount > 0
	p.mu.Unlock()

	if fetch {
		if err := p.cdp.requestChildNodes(ev.Node.NodeID); err != nil {
			p.log.Debug("Unable to request inserted subtree", zap.Int("node", int(ev.Node.NodeID)), zap.Error(err))
		}
	}
}

func (p *Page) onChildNodeRemoved(ev *proto.DOMChildNodeRemoved) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if parent, ok := p.nodes[ev.ParentNodeID]; ok {
		parent.children = slices.DeleteFunc(parent.children, func(id proto.DOMNodeID) bool { return id == ev.NodeID })
	}
	p.forget(ev.NodeID)
}

func (p *Page) onCharacterDataModified(ev *proto.DOMCharacterDataModified) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.nodes[ev.NodeID]
	if !ok || n.value == ev.CharacterData {
		return
	}
	n.value = ev.CharacterData
	p.record(dom.ChangeKindContent, ev.NodeID)
}

func (p *Page) onAttributeModified(ev *proto.DOMAttributeModified) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n, ok := p.nodes[ev.NodeID]; ok {
		if n.attrs == nil {
			n.attrs = make(map[string]string)
		}
		n.attrs[strings.ToLower(ev.Name)] = ev.Value
	}
}

func (p *Page) onAttributeRemoved(ev *proto.DOMAttributeRemoved) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n, ok := p.nodes[ev.NodeID]; ok {
		delete(n.attrs, strings.ToLower(ev.Name))
	}
}

// onDocumentUpdated handles navigation and document.write: every known
// node id is invalid now.
func (p *Page) onDocumentUpdated(*proto.DOMDocumentUpdated) {
	doc, err := p.cdp.document()
	if err != nil {
		p.log.Debug("Unable to reload document", zap.Error(err))
		return
	}
	p.reset(doc)
}

// Root implements dom.Tree.
func (p *Page) Root() proto.DOMNodeID {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.body()
}

// body finds the top document body, frames are not searched. Falls back to
// document node. Must be called with lock held.
func (p *Page) body() proto.DOMNodeID {
	var find func(id proto.DOMNodeID) proto.DOMNodeID
	find = func(id proto.DOMNodeID) proto.DOMNodeID {
		n, ok := p.nodes[id]
		if !ok {
			return 0
		}
		if n.typ == elementNode && n.name == "body" {
			return id
		}
		// do not descend into frames
		for _, c := range n.children {
			if k, ok := p.nodes[c]; ok && k.typ == documentNode {
				continue
			}
			if f := find(c); f != 0 {
				return f
			}
		}
		return 0
	}
	if body := find(p.root); body != 0 {
		return body
	}
	return p.root
}

// Leaves implements dom.Tree.
func (p *Page) Leaves(root proto.DOMNodeID, keep func(proto.DOMNodeID) bool) iter.Seq[proto.DOMNodeID] {
	p.mu.Lock()
	var all []proto.DOMNodeID
	var visit func(id proto.DOMNodeID)
	visit = func(id proto.DOMNodeID) {
		n, ok := p.nodes[id]
		if !ok {
			return
		}
		if n.typ == textNode {
			all = append(all, id)
			return
		}
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(root)
	p.mu.Unlock()

	return func(yield func(proto.DOMNodeID) bool) {
		for _, id := range all {
			if keep(id) && !yield(id) {
				return
			}
		}
	}
}

// Text implements dom.Tree.
func (p *Page) Text(leaf proto.DOMNodeID) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.nodes[leaf]
	if !ok {
		return "", dom.ErrDetached
	}
	if n.typ != textNode {
		return "", fmt.Errorf("node %d is not a text node", leaf)
	}
	return n.value, nil
}

// SetText implements dom.Tree.
func (p *Page) SetText(leaf proto.DOMNodeID, text string) error {
	p.mu.Lock()
	_, ok := p.nodes[leaf]
	p.mu.Unlock()
	if !ok {
		return dom.ErrDetached
	}

	if err := p.cdp.setNodeValue(leaf, text); err != nil {
		return fmt.Errorf("unable to set node %d value: %w", leaf, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if n, ok := p.nodes[leaf]; ok {
		n.value = text
	}
	return nil
}

// Parent implements dom.Tree.
func (p *Page) Parent(id proto.DOMNodeID) (proto.DOMNodeID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.nodes[id]
	if !ok || n.parent == 0 {
		return 0, false
	}
	return n.parent, true
}

// Tag implements dom.Tree.
func (p *Page) Tag(id proto.DOMNodeID) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n, ok := p.nodes[id]; ok && n.typ == elementNode {
		return n.name
	}
	return ""
}

// Attr implements dom.Tree.
func (p *Page) Attr(id proto.DOMNodeID, name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.nodes[id]
	if !ok {
		return "", false
	}
	v, ok := n.attrs[strings.ToLower(name)]
	return v, ok
}

// IsText implements dom.Tree.
func (p *Page) IsText(id proto.DOMNodeID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.nodes[id]
	return ok && n.typ == textNode
}
