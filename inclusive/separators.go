package inclusive

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator is the canonical doublet separator every notation is mapped to
// before rules are applied.
const Separator = '·'

// separators lists every glyph accepted as a doublet separator. Katakana
// middle dot (U+30FB) is left out on purpose, it only appears in CJK text.
const separators = "·•⋅‧∙·⸱.-"

// IsSeparator reports whether r is one of the accepted separator glyphs.
func IsSeparator(r rune) bool {
	return strings.ContainsRune(separators, r)
}

// separatorClass is a regexp character class matching any separator glyph.
func separatorClass() string {
	var b strings.Builder
	b.WriteByte('[')
	for _, r := range separators {
		if r == '-' || r == '.' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte(']')
	return b.String()
}

// Normalize returns s in NFC with every separator glyph replaced by the
// canonical one.
func Normalize(s string) string {
	return normalize(s).text
}

// fragment is the working form of a text while rules run: canonical text
// plus original glyph of every canonical separator still present, in order.
type fragment struct {
	text   string
	glyphs []string
}

func normalize(s string) fragment {
	s = norm.NFC.String(s)

	var (
		b      strings.Builder
		glyphs []string
	)
	b.Grow(len(s))
	for _, r := range s {
		if IsSeparator(r) {
			glyphs = append(glyphs, string(r))
			b.WriteRune(Separator)
			continue
		}
		b.WriteRune(r)
	}
	return fragment{text: b.String(), glyphs: glyphs}
}

func (f fragment) glyph(i int) string {
	if i < len(f.glyphs) {
		return f.glyphs[i]
	}
	return string(Separator)
}

// denormalize puts original glyphs back in place of canonical separators.
func (f fragment) denormalize() string {
	var (
		b strings.Builder
		i int
	)
	b.Grow(len(f.text))
	for _, r := range f.text {
		if r == Separator {
			b.WriteString(f.glyph(i))
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
