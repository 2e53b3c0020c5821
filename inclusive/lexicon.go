package inclusive

import (
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Lexicon maps whole-word inclusive neologisms (lower case) to their
// conventional form.
type Lexicon map[string]string

var defaultLexicon = Lexicon{
	"iel":      "il",
	"iels":     "ils",
	"ielle":    "elle",
	"ielles":   "elles",
	"ille":     "il",
	"illes":    "ils",
	"yel":      "il",
	"yels":     "ils",
	"celleux":  "ceux",
	"ceulles":  "ceux",
	"cellui":   "celui",
	"elleux":   "eux",
	"ellui":    "lui",
	"toustes":  "tous",
	"copaine":  "copain",
	"copaines": "copains",
	"frœur":    "frère",
	"frœurs":   "frères",
}

// DefaultLexicon returns a copy of the built-in lexicon.
func DefaultLexicon() Lexicon {
	return maps.Clone(defaultLexicon)
}

// Merge returns a new lexicon with entries of other added to (or replacing)
// entries of l. Keys are lower-cased, empty keys or values are ignored.
func (l Lexicon) Merge(other map[string]string) Lexicon {
	out := maps.Clone(l)
	if out == nil {
		out = Lexicon{}
	}
	for k, v := range other {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if len(k) == 0 || len(v) == 0 {
			continue
		}
		out[k] = v
	}
	return out
}

// alternation builds regexp alternation of words, longest first so that
// "ielles" is never shadowed by "iel".
func alternation(words []string) string {
	words = slices.Clone(words)
	slices.SortFunc(words, func(a, b string) int {
		if d := utf8.RuneCountInString(b) - utf8.RuneCountInString(a); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp2.Escape(w))
	}
	return strings.Join(quoted, "|")
}

func (l Lexicon) pattern() string {
	return `(?<![\p{L}\p{M}\p{N}])(?:` + alternation(slices.Collect(maps.Keys(l))) + `)(?![\p{L}\p{M}\p{N}])`
}
