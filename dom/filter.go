package dom

import "strings"

// DefaultExcludedTags lists elements whose text is never touched.
var DefaultExcludedTags = []string{
	"script", "style", "noscript", "code", "kbd", "samp", "pre",
	"textarea", "input", "select", "option", "template",
}

// DefaultEditableAttr marks user editable regions.
const DefaultEditableAttr = "contenteditable"

// Filter decides which text leaves are safe to rewrite.
type Filter[N comparable] struct {
	tree     Tree[N]
	excluded map[string]struct{}
	editable string
}

// NewFilter creates filter rejecting leaves under any of excludedTags and
// leaves inside editable regions marked with editableAttr.
func NewFilter[N comparable](tree Tree[N], excludedTags []string, editableAttr string) *Filter[N] {
	f := &Filter[N]{
		tree:     tree,
		excluded: make(map[string]struct{}, len(excludedTags)),
		editable: strings.ToLower(editableAttr),
	}
	for _, t := range excludedTags {
		f.excluded[strings.ToLower(t)] = struct{}{}
	}
	if len(f.editable) == 0 {
		f.editable = DefaultEditableAttr
	}
	return f
}

func isEditableValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "true", "plaintext-only":
		return true
	}
	return false
}

// Editable reports whether n belongs to an editable region: the nearest
// element (n itself included) carrying editable attribute decides.
func (f *Filter[N]) Editable(n N) bool {
	for cur, ok := n, true; ok; cur, ok = f.tree.Parent(cur) {
		if len(f.tree.Tag(cur)) == 0 {
			continue
		}
		if v, has := f.tree.Attr(cur, f.editable); has {
			return isEditableValue(v)
		}
	}
	return false
}

// Accept reports whether leaf may be rewritten: it must be an attached text
// leaf with no excluded element in its ancestry and outside of editable
// regions.
func (f *Filter[N]) Accept(leaf N) bool {
	if !f.tree.IsText(leaf) {
		return false
	}
	p, ok := f.tree.Parent(leaf)
	if !ok {
		return false
	}

	decided := false
	for ; ok; p, ok = f.tree.Parent(p) {
		tag := f.tree.Tag(p)
		if len(tag) == 0 {
			continue
		}
		if _, skip := f.excluded[tag]; skip {
			return false
		}
		if decided {
			continue
		}
		if v, has := f.tree.Attr(p, f.editable); has {
			if isEditableValue(v) {
				return false
			}
			decided = true
		}
	}
	return true
}
