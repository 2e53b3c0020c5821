package xmldoc

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap/zaptest"

	"sei/dom"
	"sei/inclusive"
)

func rewrite(t *testing.T, src string, excluded []string) string {
	t.Helper()

	d, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	filter := dom.NewFilter(d, excluded, dom.DefaultEditableAttr)
	dom.NewWalker(d, inclusive.Default(), filter, zaptest.NewLogger(t)).Walk(d.Root())

	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	return buf.String()
}

func TestDocument_XHTML(t *testing.T) {
	src := `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>ami·e·s</title></head>
<body><p>Les étudiant·e·s&nbsp;!</p><pre>chef·fe·s</pre></body></html>`

	out := rewrite(t, src, dom.DefaultExcludedTags)
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		"<title>ami·e·s</title>",
		"<p>Les étudiants\u00a0!</p>",
		"<pre>chef·fe·s</pre>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestDocument_FB2(t *testing.T) {
	src := `<?xml version="1.0" encoding="UTF-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
<description><title-info><book-title>Les ami·e·s</book-title></title-info></description>
<body><section><p>Cher·e·s lecteur·rice·s</p><p><code>a·e</code></p></section></body>
<body name="notes"><section><p>iels</p></section></body>
<binary id="cover.jpg" content-type="image/jpeg">ami/e</binary>
</FictionBook>`

	out := rewrite(t, src, slices.Concat(dom.DefaultExcludedTags, []string{"binary"}))
	for _, want := range []string{
		"<book-title>Les amis</book-title>",
		"<p>Chers lecteurs</p>",
		"<code>a·e</code>",
		"<p>ils</p>",
		`content-type="image/jpeg">ami/e</binary>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestDocument_SetTextDetached(t *testing.T) {
	d, err := Parse(strings.NewReader("<root><p>a</p></root>"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	orphan := etree.NewElement("p")
	orphan.SetText("x")
	cd := orphan.Child[0]

	if err := d.SetText(cd, "y"); !errors.Is(err, dom.ErrDetached) {
		t.Errorf("SetText() error = %v, want %v", err, dom.ErrDetached)
	}
	if _, ok := d.Parent(d.Root()); !ok {
		t.Error("Parent(root) = false, want document node")
	}
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{"", "just text"} {
		if _, err := Parse(strings.NewReader(src)); err == nil {
			t.Errorf("Parse(%q) error = nil, want error", src)
		}
	}
}
