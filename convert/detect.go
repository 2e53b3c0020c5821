package convert

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/h2non/filetype"

	"sei/config"
)

// DocKind is a kind of document we know how to rewrite.
// ENUM(unknown, html, xml, epub)
type DocKind int

// headSize is enough for filetype to recognize every format it knows.
const headSize = 8192

var fb2Type = filetype.NewType("fb2", "application/x-fictionbook+xml")

func init() {
	filetype.AddMatcher(fb2Type, func(buf []byte) bool {
		head := buf[:min(len(buf), 1024)]
		return bytes.Contains(head, []byte("<?xml")) && bytes.Contains(head, []byte("<FictionBook"))
	})
}

// detectKind decides document kind by name extension and, for names we do not
// recognize, by content.
func detectKind(name string, head []byte, exts *config.ExtensionsConfig) DocKind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case slices.Contains(exts.EPUB, ext):
		return DocKindEpub
	case slices.Contains(exts.XML, ext):
		return DocKindXml
	case slices.Contains(exts.HTML, ext):
		return DocKindHtml
	case isEPUB(head):
		return DocKindEpub
	case filetype.Is(head, fb2Type.Extension):
		return DocKindXml
	}
	return DocKindUnknown
}

// isArchive reports zip archives which are not EPUB books.
func isArchive(name string, head []byte, exts *config.ExtensionsConfig) bool {
	if !filetype.Is(head, "zip") || isEPUB(head) {
		return false
	}
	return !slices.Contains(exts.EPUB, strings.ToLower(filepath.Ext(name)))
}

// epubMime is the content of the "mimetype" entry every EPUB starts with.
const epubMime = "application/epub+zip"

// isEPUB looks at the first local file header of a zip archive. Unlike
// filetype's fixed offsets this allows the extra field some writers put
// there.
func isEPUB(head []byte) bool {
	const fixed = 30
	if len(head) < fixed || !bytes.HasPrefix(head, []byte("PK\x03\x04")) {
		return false
	}
	nameLen := int(binary.LittleEndian.Uint16(head[26:28]))
	extraLen := int(binary.LittleEndian.Uint16(head[28:30]))
	data := fixed + nameLen + extraLen
	if len(head) < data+len(epubMime) || string(head[fixed:fixed+nameLen]) != "mimetype" {
		return false
	}
	return string(head[data:data+len(epubMime)]) == epubMime
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, headSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	return head[:n], nil
}
