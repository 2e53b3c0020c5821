package inclusive

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

// Keys are made of reserved noncharacters which never appear in
// interchanged text and which no rule pattern matches.
const (
	keyOpen  = '\uFDD0'
	keyClose = '\uFDD1'
)

// ErrPlaceholderClash is returned when a fragment already carries key
// delimiters or when a key did not survive rule application intact.
var ErrPlaceholderClash = errors.New("protected span key clash")

// Protected spans, in the order they are taken out of the text. Earlier
// patterns win, so wider constructs go first.
var protectedPatterns = []string{
	// URLs
	`(?i)(?:\b[a-z][a-z0-9+.\-]*://|\bwww\.)[^\s<>"'«»]+`,
	// e-mail addresses
	`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`,
	// file names with well-known extensions
	`(?i)(?<![\p{L}\p{N}_])[\p{L}\p{N}_\-]+(?:\.[\p{L}\p{N}_\-]+)*\.(?:html?|js|css|json|pdf|txt|md|png|jpe?g|gif|svg|zip|exe|docx?|xlsx?|csv|xml|go|py|php|epub|fb2)(?![\p{L}\p{N}])`,
	// capitals interleaved with periods: E.Leclerc, S.N.C.F.
	`(?<![\p{L}\p{M}\p{N}.\-·])(?:(?:\p{Lu}\.)+\p{Lu}[\p{L}\p{M}]*|(?:\p{Lu}\.){2,})`,
	// capitalized hyphenated compounds with short lowercase particles: Saint-Jean-de-Luz
	`(?<![\p{L}\p{M}\p{N}\-])\p{Lu}[\p{Ll}\p{M}]+(?:-(?:\p{Ll}{1,3}-)*\p{Lu}[\p{Ll}\p{M}]+)+(?![\p{L}\p{M}\p{N}])`,
}

// vault is a per call side table of protected spans.
type vault struct {
	spans []string
}

func key(i int) string {
	return string(keyOpen) + strconv.Itoa(i) + string(keyClose)
}

func hasKeyDelimiters(s string) bool {
	return strings.ContainsRune(s, keyOpen) || strings.ContainsRune(s, keyClose)
}

// protect replaces every protected span of s with a key.
func (v *vault) protect(s string, patterns []*regexp2.Regexp) (string, error) {
	var err error
	for _, re := range patterns {
		s, err = re.ReplaceFunc(s, func(m regexp2.Match) string {
			v.spans = append(v.spans, m.String())
			return key(len(v.spans) - 1)
		}, -1, -1)
		if err != nil {
			return "", err
		}
	}
	return s, nil
}

// restore puts protected spans back. Every key must be found exactly as it
// was issued.
func (v *vault) restore(s string) (string, error) {
	if len(v.spans) == 0 {
		return s, nil
	}

	var (
		b    strings.Builder
		seen int
	)
	b.Grow(len(s))
	for len(s) > 0 {
		open := strings.IndexRune(s, keyOpen)
		if open < 0 {
			if strings.ContainsRune(s, keyClose) {
				return "", ErrPlaceholderClash
			}
			b.WriteString(s)
			break
		}
		b.WriteString(s[:open])
		s = s[open+len(string(keyOpen)):]

		end := strings.IndexRune(s, keyClose)
		if end < 0 {
			return "", ErrPlaceholderClash
		}
		i, err := strconv.Atoi(s[:end])
		if err != nil || i < 0 || i >= len(v.spans) {
			return "", ErrPlaceholderClash
		}
		b.WriteString(v.spans[i])
		s = s[end+len(string(keyClose)):]
		seen++
	}
	if seen != len(v.spans) {
		return "", ErrPlaceholderClash
	}
	return b.String(), nil
}
