package convert

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap/zaptest"

	"sei/state"
)

const (
	htmlPage = `<!DOCTYPE html>
<html><head><title>ami·e·s</title></head>
<body><p>Les étudiant·e·s sont arrivé·e·s</p><pre>chef·fe·s</pre></body></html>`

	plainPage = `<!DOCTYPE html>
<html><head><title>Test</title></head><body><p>Rien à changer</p></body></html>`

	fb2Book = `<?xml version="1.0" encoding="UTF-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
<body><section><p>Cher·e·s lecteur·rice·s</p></section></body>
<binary id="cover.jpg" content-type="image/jpeg">ami/e</binary>
</FictionBook>`

	xhtmlChapter = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>1</title></head>
<body><p>toustes les auteur·trice·s</p></body></html>`
)

func testContext(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	env, err := state.NewTestEnv(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTestEnv() error = %v", err)
	}
	return state.ContextWith(t.Context(), env), env
}

type zipEntry struct {
	name   string
	data   string
	method uint16
}

func makeZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := fixzip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&fixzip.FileHeader{Name: e.name, Method: e.method})
		if err != nil {
			t.Fatalf("CreateHeader(%s) error = %v", e.name, err)
		}
		if _, err := w.Write([]byte(e.data)); err != nil {
			t.Fatalf("Write(%s) error = %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func makeEPUB(t *testing.T, chapter string) []byte {
	t.Helper()
	return makeZip(t,
		zipEntry{name: "mimetype", data: "application/epub+zip", method: fixzip.Store},
		zipEntry{name: "META-INF/container.xml", data: `<?xml version="1.0"?><container/>`, method: fixzip.Deflate},
		zipEntry{name: "OEBPS/chapter1.xhtml", data: chapter, method: fixzip.Deflate},
		zipEntry{name: "OEBPS/style.css", data: "p { margin: 0 }", method: fixzip.Deflate},
	)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(data)
}

func TestDetectKind(t *testing.T) {
	_, env := testContext(t)
	exts := &env.Cfg.Document.Extensions
	epub := makeEPUB(t, xhtmlChapter)
	plainZip := makeZip(t, zipEntry{name: "a.html", data: htmlPage})

	tests := []struct {
		name    string
		file    string
		head    []byte
		want    DocKind
		archive bool
	}{
		{"html by extension", "page.HTML", []byte(htmlPage), DocKindHtml, false},
		{"htm", "page.htm", nil, DocKindHtml, false},
		{"xhtml", "chapter.xhtml", nil, DocKindXml, false},
		{"fb2 by extension", "book.fb2", nil, DocKindXml, false},
		{"fb2 by content", "book.bin", []byte(fb2Book), DocKindXml, false},
		{"epub by extension", "book.epub", epub, DocKindEpub, false},
		{"epub by content", "book.dat", epub, DocKindEpub, false},
		{"zip archive", "books.zip", plainZip, DocKindUnknown, true},
		{"plain text", "notes.txt", []byte("ami·e·s"), DocKindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectKind(tt.file, tt.head, exts); got != tt.want {
				t.Errorf("detectKind() = %s, want %s", got, tt.want)
			}
			if got := isArchive(tt.file, tt.head, exts); got != tt.archive {
				t.Errorf("isArchive() = %v, want %v", got, tt.archive)
			}
		})
	}
}

func TestDocKind_Names(t *testing.T) {
	want := []string{"unknown", "html", "xml", "epub"}
	got := DocKindNames()
	if len(got) != len(want) {
		t.Fatalf("DocKindNames() = %v, want %v", got, want)
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("DocKindNames()[%d] = %q, want %q", i, got[i], name)
		}
		if k := DocKind(i); k.String() != name {
			t.Errorf("DocKind(%d).String() = %q, want %q", i, k, name)
		}
	}
}

// localHeader builds a stored zip entry local header followed by data.
func localHeader(name string, extra []byte, data string) []byte {
	h := make([]byte, 30)
	copy(h, "PK\x03\x04")
	binary.LittleEndian.PutUint16(h[26:], uint16(len(name)))
	binary.LittleEndian.PutUint16(h[28:], uint16(len(extra)))
	h = append(h, name...)
	h = append(h, extra...)
	return append(h, data...)
}

func TestIsEPUB(t *testing.T) {
	timestamp := []byte{0x55, 0x54, 0x05, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}

	tests := []struct {
		name string
		head []byte
		want bool
	}{
		{"plain", localHeader("mimetype", nil, epubMime), true},
		{"with extra field", localHeader("mimetype", timestamp, epubMime), true},
		{"written by archiver", makeEPUB(t, xhtmlChapter), true},
		{"other first entry", localHeader("META-INF/container.xml", nil, epubMime), false},
		{"other mime", localHeader("mimetype", nil, "application/zip"), false},
		{"truncated", localHeader("mimetype", timestamp, epubMime)[:45], false},
		{"not zip", []byte("mimetypeapplication/epub+zip"), false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEPUB(tt.head); got != tt.want {
				t.Errorf("isEPUB() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildOutputPath(t *testing.T) {
	_, env := testContext(t)
	dst := filepath.Join("out", "dir")

	tests := []struct {
		name          string
		src           string
		noDirs        bool
		transliterate bool
		want          string
	}{
		{"single file", "page.html", false, false, filepath.Join(dst, "page.html")},
		{"keeps structure", "a/b/page.HTM", false, false, filepath.Join(dst, "a", "b", "page.HTM")},
		{"no dirs", "a/b/page.html", true, false, filepath.Join(dst, "page.html")},
		{"transliterated", "Élèves/Les amis.fb2", false, true, filepath.Join(dst, "eleves", "les-amis.fb2")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.NoDirs = tt.noDirs
			env.Cfg.Document.FileNameTransliterate = tt.transliterate
			if got := buildOutputPath(tt.src, dst, env); got != tt.want {
				t.Errorf("buildOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func newTestRewriter(t *testing.T, env *state.LocalEnv) *rewriter {
	t.Helper()
	excluded, editable := env.Filter()
	return &rewriter{rw: env.Rewriter, excludedTags: excluded, editableAttr: editable, log: zaptest.NewLogger(t)}
}

func TestRewrite_HTML(t *testing.T) {
	_, env := testContext(t)
	r := newTestRewriter(t, env)

	out, stats, err := r.rewrite(DocKindHtml, []byte(htmlPage))
	if err != nil {
		t.Fatalf("rewrite() error = %v", err)
	}
	if stats.Changed != 1 {
		t.Errorf("Changed = %d, want 1", stats.Changed)
	}
	for _, want := range []string{
		"<p>Les étudiants sont arrivés</p>",
		"<pre>chef·fe·s</pre>",
		"<title>ami·e·s</title>",
	} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}

	in := []byte(plainPage)
	out, stats, err = r.rewrite(DocKindHtml, in)
	if err != nil {
		t.Fatalf("rewrite() error = %v", err)
	}
	if stats.Changed != 0 || !bytes.Equal(out, in) {
		t.Errorf("unchanged document was re-rendered: %d changes\n%s", stats.Changed, out)
	}
}

func TestRewrite_FB2(t *testing.T) {
	_, env := testContext(t)
	r := newTestRewriter(t, env)

	out, _, err := r.rewrite(DocKindXml, []byte(fb2Book))
	if err != nil {
		t.Fatalf("rewrite() error = %v", err)
	}
	for _, want := range []string{"<p>Chers lecteurs</p>", ">ami/e</binary>"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestRewrite_EPUB(t *testing.T) {
	_, env := testContext(t)
	r := newTestRewriter(t, env)

	out, stats, err := r.rewrite(DocKindEpub, makeEPUB(t, xhtmlChapter))
	if err != nil {
		t.Fatalf("rewrite() error = %v", err)
	}
	if stats.Changed != 1 {
		t.Errorf("Changed = %d, want 1", stats.Changed)
	}

	zr, err := fixzip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("result is not a zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{"mimetype", "META-INF/container.xml", "OEBPS/chapter1.xhtml", "OEBPS/style.css"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	if zr.File[0].Method != fixzip.Store {
		t.Errorf("mimetype method = %d, want stored", zr.File[0].Method)
	}

	chapter, err := readEntry(zr.File[2])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(chapter), "<p>tous les auteurs</p>") {
		t.Errorf("chapter was not rewritten:\n%s", chapter)
	}
	css, err := readEntry(zr.File[3])
	if err != nil {
		t.Fatal(err)
	}
	if string(css) != "p { margin: 0 }" {
		t.Errorf("style.css = %q", css)
	}
}

func TestRewrite_EPUBBrokenEntry(t *testing.T) {
	_, env := testContext(t)
	r := newTestRewriter(t, env)

	data := makeZip(t,
		zipEntry{name: "mimetype", data: "application/epub+zip"},
		zipEntry{name: "OEBPS/broken.xhtml", data: "<html><p>ami·e·s</html>", method: fixzip.Deflate},
	)
	out, stats, err := r.rewrite(DocKindEpub, data)
	if err != nil {
		t.Fatalf("rewrite() error = %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
	if !bytes.Equal(out, data) {
		t.Error("container with nothing rewritten was changed")
	}
}

func TestProcess_File(t *testing.T) {
	ctx, _ := testContext(t)
	src := filepath.Join(t.TempDir(), "page.html")
	writeFile(t, src, []byte(htmlPage))
	dst := t.TempDir()

	if err := Process(ctx, src, dst, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out := readFile(t, filepath.Join(dst, "page.html")); !strings.Contains(out, "Les étudiants") {
		t.Errorf("output was not rewritten:\n%s", out)
	}
}

func TestProcess_Errors(t *testing.T) {
	ctx, _ := testContext(t)
	dir := t.TempDir()
	text := filepath.Join(dir, "notes.txt")
	writeFile(t, text, []byte("ami·e·s"))

	for name, src := range map[string]string{
		"missing":        filepath.Join(dir, "missing.html"),
		"not a document": text,
		"dir with tail":  filepath.Join(dir, "sub", "page.html"),
	} {
		t.Run(name, func(t *testing.T) {
			if err := Process(ctx, src, t.TempDir(), zaptest.NewLogger(t)); err == nil {
				t.Error("Process() error = nil, want error")
			}
		})
	}
}

func TestProcess_Dir(t *testing.T) {
	ctx, env := testContext(t)
	env.Cfg.Document.Workers = 2

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "page.html"), []byte(htmlPage))
	writeFile(t, filepath.Join(src, "books", "book.fb2"), []byte(fb2Book))
	writeFile(t, filepath.Join(src, "books", "book.epub"), makeEPUB(t, xhtmlChapter))
	writeFile(t, filepath.Join(src, "notes.txt"), []byte("ami·e·s"))
	writeFile(t, filepath.Join(src, "pack.zip"), makeZip(t,
		zipEntry{name: "inner/plain.html", data: plainPage, method: fixzip.Deflate},
		zipEntry{name: "inner/readme.txt", data: "toustes"},
	))
	dst := t.TempDir()

	if err := Process(ctx, src, dst, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if out := readFile(t, filepath.Join(dst, "books", "book.fb2")); !strings.Contains(out, "Chers lecteurs") {
		t.Errorf("book.fb2 was not rewritten:\n%s", out)
	}
	if out := readFile(t, filepath.Join(dst, "inner", "plain.html")); out != plainPage {
		t.Errorf("plain.html = %q, want copy of source", out)
	}
	if _, err := os.Stat(filepath.Join(dst, "books", "book.epub")); err != nil {
		t.Errorf("book.epub was not produced: %v", err)
	}
	for _, skipped := range []string{"notes.txt", filepath.Join("inner", "readme.txt")} {
		if _, err := os.Stat(filepath.Join(dst, skipped)); err == nil {
			t.Errorf("%s should not be produced", skipped)
		}
	}
}

func TestProcess_ArchivePath(t *testing.T) {
	ctx, _ := testContext(t)
	dir := t.TempDir()
	arc := filepath.Join(dir, "pack.zip")
	writeFile(t, arc, makeZip(t,
		zipEntry{name: "one/page.html", data: htmlPage, method: fixzip.Deflate},
		zipEntry{name: "two/book.fb2", data: fb2Book, method: fixzip.Deflate},
	))
	dst := t.TempDir()

	if err := Process(ctx, filepath.Join(arc, "two"), dst, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "two", "book.fb2")); err != nil {
		t.Errorf("book.fb2 was not produced: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "one", "page.html")); err == nil {
		t.Error("page.html outside requested path was produced")
	}
}

func TestProcess_Overwrite(t *testing.T) {
	ctx, env := testContext(t)
	src := filepath.Join(t.TempDir(), "page.html")
	writeFile(t, src, []byte(htmlPage))
	dst := t.TempDir()
	out := filepath.Join(dst, "page.html")
	log := zaptest.NewLogger(t)

	writeFile(t, out, []byte("old"))
	if err := Process(ctx, src, dst, log); err == nil {
		t.Fatal("Process() error = nil, want refusal to overwrite")
	}
	if readFile(t, out) != "old" {
		t.Fatal("existing file was overwritten")
	}

	env.Overwrite = true
	if err := Process(ctx, src, dst, log); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.Contains(readFile(t, out), "Les étudiants") {
		t.Error("existing file was not overwritten")
	}

	// identical result is not an error even without overwrite
	env.Overwrite = false
	if err := Process(ctx, src, dst, log); err != nil {
		t.Errorf("Process() on up to date destination error = %v", err)
	}
}

func TestProcess_InPlace(t *testing.T) {
	ctx, env := testContext(t)
	env.Overwrite = true
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.html")
	writeFile(t, plain, []byte(plainPage))
	writeFile(t, filepath.Join(dir, "sub", "page.html"), []byte(htmlPage))

	before, err := os.Stat(plain)
	if err != nil {
		t.Fatal(err)
	}
	if err := Process(ctx, dir, dir, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if out := readFile(t, filepath.Join(dir, "sub", "page.html")); !strings.Contains(out, "Les étudiants") {
		t.Errorf("page.html was not rewritten in place:\n%s", out)
	}
	after, err := os.Stat(plain)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("unchanged document was written")
	}
}

func TestProcess_Canceled(t *testing.T) {
	ctx, _ := testContext(t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	if err := Process(ctx, t.TempDir(), t.TempDir(), zaptest.NewLogger(t)); err == nil {
		t.Error("Process() error = nil, want context error")
	}
}
