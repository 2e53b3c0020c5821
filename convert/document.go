package convert

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"

	"sei/dom"
	"sei/dom/htmldoc"
	"sei/dom/xmldoc"
)

// rewriter turns a single document into its rewritten form.
type rewriter struct {
	rw           dom.Rewriter
	excludedTags []string
	editableAttr string
	log          *zap.Logger
}

// rewrite returns data unchanged (same slice) when nothing was rewritten.
func (r *rewriter) rewrite(kind DocKind, data []byte) ([]byte, dom.WalkStats, error) {
	switch kind {
	case DocKindHtml:
		return r.rewriteHTML(data)
	case DocKindXml:
		return r.rewriteXML(data)
	case DocKindEpub:
		return r.rewriteEPUB(data)
	}
	return nil, dom.WalkStats{}, fmt.Errorf("unsupported document kind: %s", kind)
}

func (r *rewriter) rewriteHTML(data []byte) ([]byte, dom.WalkStats, error) {
	doc, err := htmldoc.Parse(bytes.NewReader(data), "")
	if err != nil {
		return nil, dom.WalkStats{}, err
	}
	defer doc.Close()

	filter := dom.NewFilter(doc, r.excludedTags, r.editableAttr)
	stats := dom.NewWalker(doc, r.rw, filter, r.log).Walk(doc.Root())
	if stats.Changed == 0 {
		return data, stats, nil
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return nil, stats, err
	}
	return buf.Bytes(), stats, nil
}

func (r *rewriter) rewriteXML(data []byte) ([]byte, dom.WalkStats, error) {
	doc, err := xmldoc.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, dom.WalkStats{}, err
	}

	filter := dom.NewFilter(doc, r.excludedTags, r.editableAttr)
	stats := dom.NewWalker(doc, r.rw, filter, r.log).Walk(doc.Root())
	if stats.Changed == 0 {
		return data, stats, nil
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, stats, fmt.Errorf("unable to write XML: %w", err)
	}
	return buf.Bytes(), stats, nil
}

// epubContent lists entries of EPUB container holding readable text.
var epubContent = []string{".xhtml", ".html", ".htm", ".ncx"}

// rewriteEPUB rewrites content documents of EPUB container. Everything else,
// "mimetype" included, is copied as is in its original position.
func (r *rewriter) rewriteEPUB(data []byte) ([]byte, dom.WalkStats, error) {
	var stats dom.WalkStats

	zr, err := fixzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, stats, fmt.Errorf("unable to read EPUB container: %w", err)
	}

	replaced := make(map[string][]byte)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !slices.Contains(epubContent, strings.ToLower(path.Ext(f.Name))) {
			continue
		}
		in, err := readEntry(f)
		if err != nil {
			return nil, stats, fmt.Errorf("unable to read EPUB entry %s: %w", f.Name, err)
		}
		out, st, err := r.rewriteXML(in)
		if err != nil {
			// broken entry stays as it was
			r.log.Warn("Unable to rewrite EPUB entry", zap.String("entry", f.Name), zap.Error(err))
			stats.Failed++
			continue
		}
		stats.Add(st)
		if st.Changed > 0 {
			replaced[f.Name] = out
		}
	}
	if len(replaced) == 0 {
		return data, stats, nil
	}

	var buf bytes.Buffer
	zw := fixzip.NewWriter(&buf)
	for _, f := range zr.File {
		out, ok := replaced[f.Name]
		if !ok {
			f.Flags &= ^fixzip.FlagDataDescriptor
			if err := zw.CopyFile(f); err != nil {
				return nil, stats, fmt.Errorf("unable to copy EPUB entry %s: %w", f.Name, err)
			}
			continue
		}
		w, err := zw.CreateHeader(&fixzip.FileHeader{
			Name:     f.Name,
			Method:   fixzip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, stats, fmt.Errorf("unable to write EPUB entry %s: %w", f.Name, err)
		}
		if _, err := w.Write(out); err != nil {
			return nil, stats, fmt.Errorf("unable to write EPUB entry %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, stats, fmt.Errorf("unable to finish EPUB container: %w", err)
	}
	return buf.Bytes(), stats, nil
}

func readEntry(f *fixzip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
