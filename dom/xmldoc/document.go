// Package xmldoc hosts XML based documents (XHTML, FB2) parsed with etree.
// Text leaves are *etree.CharData tokens.
package xmldoc

import (
	"encoding/xml"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"sei/dom"
)

// Document is a static XML tree. It is not safe for concurrent use.
type Document struct {
	doc *etree.Document
}

// Parse reads XML document. Named HTML entities are accepted since many
// e-books use them without declaring.
func Parse(r io.Reader) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Entity:        xml.HTMLEntity,
		Permissive:    true,
	}
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to parse XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("unable to parse XML: no root element")
	}
	return &Document{doc: doc}, nil
}

// WriteTo serializes document.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return d.doc.WriteTo(w)
}

// Root returns <body> of XHTML documents and root element of anything else
// (FB2 has several bodies, all of them are walked).
func (d *Document) Root() etree.Token {
	root := d.doc.Root()
	if strings.EqualFold(root.Tag, "html") {
		if body := root.SelectElement("body"); body != nil {
			return body
		}
	}
	return root
}

// Leaves implements dom.Tree.
func (d *Document) Leaves(root etree.Token, keep func(etree.Token) bool) iter.Seq[etree.Token] {
	var all []etree.Token
	var visit func(t etree.Token)
	visit = func(t etree.Token) {
		switch v := t.(type) {
		case *etree.CharData:
			all = append(all, v)
		case *etree.Element:
			for _, c := range v.Child {
				visit(c)
			}
		}
	}
	visit(root)

	return func(yield func(etree.Token) bool) {
		for _, t := range all {
			if keep(t) && !yield(t) {
				return
			}
		}
	}
}

// Text implements dom.Tree.
func (d *Document) Text(leaf etree.Token) (string, error) {
	cd, ok := leaf.(*etree.CharData)
	if !ok {
		return "", fmt.Errorf("not a text token: %T", leaf)
	}
	return cd.Data, nil
}

// SetText implements dom.Tree.
func (d *Document) SetText(leaf etree.Token, text string) error {
	cd, ok := leaf.(*etree.CharData)
	if !ok {
		return fmt.Errorf("not a text token: %T", leaf)
	}
	if !d.attached(cd) {
		return dom.ErrDetached
	}
	cd.Data = text
	return nil
}

func (d *Document) attached(t etree.Token) bool {
	for e := t.Parent(); e != nil; e = e.Parent() {
		if e == &d.doc.Element {
			return true
		}
	}
	return false
}

// Parent implements dom.Tree.
func (d *Document) Parent(n etree.Token) (etree.Token, bool) {
	// careful with typed nil
	if p := n.Parent(); p != nil {
		return p, true
	}
	return nil, false
}

// Tag implements dom.Tree.
func (d *Document) Tag(n etree.Token) string {
	if e, ok := n.(*etree.Element); ok {
		return strings.ToLower(e.Tag)
	}
	return ""
}

// Attr implements dom.Tree.
func (d *Document) Attr(n etree.Token, name string) (string, bool) {
	e, ok := n.(*etree.Element)
	if !ok {
		return "", false
	}
	if a := e.SelectAttr(name); a != nil {
		return a.Value, true
	}
	return "", false
}

// IsText implements dom.Tree.
func (d *Document) IsText(n etree.Token) bool {
	_, ok := n.(*etree.CharData)
	return ok
}
