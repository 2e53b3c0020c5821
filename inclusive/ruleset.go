package inclusive

import (
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
)

// Building blocks. Token classes never include separators, so quantified
// tokens next to a separator cannot compete for the same text.
const (
	letter = `[\p{L}\p{M}]`
	token  = `[\p{L}\p{M}'’]`

	wordStart = `(?<![\p{L}\p{M}\p{N}'’])`
	wordEnd   = `(?![\p{L}\p{M}\p{N}])(?!·[\p{L}\p{M}])`
	// A doublet never starts right after an inverted verb ("serait-", "a-t-").
	notInverted = `(?<![\p{L}\p{M}]ait·)(?<!·t·)`
	start       = wordStart + notInverted
)

// Longest segment a doublet may carry after a middle dot: "ieille" in
// "vieux·ieille·s".
const maxSegment = 6

// Feminine segments recognized after hyphen or period, which are ordinary
// punctuation too. Any short lower case segment is accepted after a real
// middle dot. "ce" and "le" are left out so that "est-ce" or "dis-le" are
// never taken for doublets.
var feminineSegments = []string{
	"e", "es",
	"ne", "nes", "nne", "nnes", "enne", "ennes", "ienne", "iennes",
	"fe", "fes", "ve", "ves", "ive", "ives",
	"se", "ses", "euse", "euses",
	"ère", "ères", "ière", "ières",
	"te", "tes", "tte", "ttes", "ette", "ettes",
	"esse", "esses", "ine", "ines",
}

// Special phrases spelled with a separator or a slash between full words.
var specialPhrases = []struct {
	words []string
	to    string
}{
	{[]string{"il", "elle", "s"}, "ils"},
	{[]string{"il", "elle"}, "il"},
	{[]string{"elle", "il"}, "il"},
	{[]string{"ils", "elles"}, "ils"},
	{[]string{"elles", "ils"}, "ils"},
	{[]string{"celui", "celle"}, "celui"},
	{[]string{"celle", "celui"}, "celui"},
	{[]string{"ceux", "celles"}, "ceux"},
	{[]string{"celles", "ceux"}, "ceux"},
	{[]string{"lui", "elle"}, "lui"},
	{[]string{"elle", "lui"}, "lui"},
	{[]string{"eux", "elles"}, "eux"},
	{[]string{"elles", "eux"}, "eux"},
	{[]string{"le", "la"}, "le"},
	{[]string{"la", "le"}, "le"},
	{[]string{"un", "une"}, "un"},
	{[]string{"une", "un"}, "un"},
	{[]string{"mon", "ma"}, "mon"},
	{[]string{"ma", "mon"}, "mon"},
	{[]string{"ton", "ta"}, "ton"},
	{[]string{"ta", "ton"}, "ton"},
	{[]string{"son", "sa"}, "son"},
	{[]string{"sa", "son"}, "son"},
}

// Pronouns accepted after an inverted verb and their conventional form.
var invertedPronouns = map[string]string{
	"il·elle":   "il",
	"elle·il":   "il",
	"ils·elles": "ils",
	"elles·ils": "ils",
	"iel":       "il",
	"iels":      "ils",
	"ielle":     "elle",
	"ielles":    "elles",
	"ille":      "il",
	"illes":     "ils",
}

func phrasePattern(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp2.Escape(w))
	}
	return wordStart + strings.Join(quoted, `[·/]`) + wordEnd
}

// weakGlyph reports whether separator glyph doubles as ordinary punctuation.
func weakGlyph(g string) bool {
	return g == "-" || g == "."
}

// acceptDoublet checks segments of a doublet match against glyphs of the
// separators preceding them.
func acceptDoublet(m *regexp2.Match, glyphs []string) bool {
	parts := strings.Split(m.String(), string(Separator))
	if len(parts)-1 != len(glyphs) {
		return false
	}
	upper := ProfileOf(m.String()) == CaseProfileAllUpper
	for i, seg := range parts[1:] {
		low := strings.ToLower(seg)
		if !upper && seg != low {
			return false
		}
		if weakGlyph(glyphs[i]) && low != "s" && !slices.Contains(feminineSegments, low) {
			return false
		}
	}
	return true
}

// noSentenceBreak rejects matches where a period is followed by a capital
// letter: "il.Elle" is two sentences glued together, not a doublet.
func noSentenceBreak(m *regexp2.Match, glyphs []string) bool {
	i := 0
	text := []rune(m.String())
	for k, c := range text {
		if c != Separator {
			continue
		}
		if i < len(glyphs) && glyphs[i] == "." && k+1 < len(text) && unicode.IsUpper(text[k+1]) {
			return false
		}
		i++
	}
	return true
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// buildRules compiles the ordered rule set: special phrases, suffix
// families, generic doublets, parenthesis and slash doublets and finally
// the lexical table.
func buildRules(lex Lexicon) ([]*Rule, error) {
	var (
		rules []*Rule
		segs  = alternation(feminineSegments)
	)

	add := func(r *Rule, err error) error {
		if err != nil {
			return err
		}
		rules = append(rules, r)
		return nil
	}
	// addChecked is add for rules which need to see original glyphs.
	addChecked := func(accept func(*regexp2.Match, []string) bool) func(*Rule, error) error {
		return func(r *Rule, err error) error {
			if err != nil {
				return err
			}
			r.accept = accept
			rules = append(rules, r)
			return nil
		}
	}

	// 1. special phrases

	if err := addChecked(noSentenceBreak)(newComputedRule("inversion",
		wordStart+`(`+letter+`+)(·t)?·(`+alternation(keys(invertedPronouns))+`)`+wordEnd,
		func(m *regexp2.Match) string {
			out := group(m, 1)
			if len(group(m, 2)) > 0 {
				out += "-t"
			}
			return out + "-" + invertedPronouns[strings.ToLower(group(m, 3))]
		})); err != nil {
		return nil, err
	}
	for _, p := range specialPhrases {
		if err := addChecked(noSentenceBreak)(newFixedRule("phrase "+strings.Join(p.words, "·"), phrasePattern(p.words), p.to)); err != nil {
			return nil, err
		}
	}

	// 2. suffix families

	if err := add(newComputedRule("eur",
		start+`(`+token+`*eur)·(?:t?rices?|ices?|euses?|esses?|es?)(?:·s)?`+wordEnd,
		func(m *regexp2.Match) string {
			if endsWithS(m.String()) {
				return plural(group(m, 1))
			}
			return group(m, 1)
		})); err != nil {
		return nil, err
	}
	if err := add(newComputedRule("eurice",
		wordStart+`(`+token+`+eur)ice(s?)(?![\p{L}\p{M}\p{N}])`,
		func(m *regexp2.Match) string {
			if len(group(m, 2)) > 0 {
				return plural(group(m, 1))
			}
			return group(m, 1)
		})); err != nil {
		return nil, err
	}
	if err := add(newComputedRule("al",
		start+`(`+token+`+)al·e·?s`+wordEnd,
		func(m *regexp2.Match) string {
			return group(m, 1) + "aux"
		})); err != nil {
		return nil, err
	}
	if err := add(newComputedRule("aux",
		start+`(`+token+`+?)·?aux·e?lles`+wordEnd,
		func(m *regexp2.Match) string {
			return group(m, 1) + "aux"
		})); err != nil {
		return nil, err
	}
	if err := add(newComputedRule("au",
		start+`(`+token+`+?)·?au·e?lle`+wordEnd,
		func(m *regexp2.Match) string {
			return group(m, 1) + "au"
		})); err != nil {
		return nil, err
	}
	if err := add(newComputedRule("el",
		start+`(`+token+`*l)·l?e(?:·?s)?`+wordEnd,
		func(m *regexp2.Match) string {
			if endsWithS(m.String()) {
				return plural(group(m, 1))
			}
			return group(m, 1)
		})); err != nil {
		return nil, err
	}

	// 3. generic doublet

	if err := addChecked(acceptDoublet)(newComputedRule("doublet",
		start+`(`+token+`+)(?:·`+letter+`{1,`+strconv.Itoa(maxSegment)+`})+`+wordEnd,
		func(m *regexp2.Match) string {
			if endsWithS(m.String()) {
				return plural(group(m, 1))
			}
			return group(m, 1)
		})); err != nil {
		return nil, err
	}

	// 4. parenthesis and slash doublets

	inner := segs + `|t?rices?|ices?`
	if err := add(newComputedRule("parenthesis",
		wordStart+`(`+token+`+)\((?:`+inner+`)(?:·?s)?\)(\(s\)|s)?(?![\p{L}\p{M}\p{N}])`,
		func(m *regexp2.Match) string {
			if len(group(m, 2)) > 0 {
				return plural(group(m, 1))
			}
			return group(m, 1)
		})); err != nil {
		return nil, err
	}
	if err := add(newComputedRule("slash",
		wordStart+`(`+token+`+)/(?:`+inner+`)(/s)?(?![\p{L}\p{M}\p{N}])(?!/[\p{L}\p{M}])`,
		func(m *regexp2.Match) string {
			if len(group(m, 2)) > 0 {
				return plural(group(m, 1))
			}
			return group(m, 1)
		})); err != nil {
		return nil, err
	}

	// 5. lexical table

	if len(lex) > 0 {
		if err := add(newComputedRule("lexicon", lex.pattern(),
			func(m *regexp2.Match) string {
				if to, ok := lex[strings.ToLower(m.String())]; ok {
					return to
				}
				return m.String()
			})); err != nil {
			return nil, err
		}
	}
	return rules, nil
}
