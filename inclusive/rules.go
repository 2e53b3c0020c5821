package inclusive

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// RuleKind selects how replacement is produced: fixed replaces every match
// with a constant text, computed derives it from captured groups.
// ENUM(fixed, computed)
type RuleKind int

// Rule is a single stateless rewrite step. Replacement always receives the
// case profile of the full match.
type Rule struct {
	Name string
	Kind RuleKind

	re      *regexp2.Regexp
	fixed   string
	compute func(m *regexp2.Match) string
	// accept, when set, sees original glyphs of separators consumed by a
	// match. Rejected match is left as is and search resumes one rune later.
	accept func(m *regexp2.Match, glyphs []string) bool
}

func compile(expr string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(expr, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", expr, err)
	}
	return re, nil
}

func newFixedRule(name, expr, replacement string) (*Rule, error) {
	re, err := compile(expr)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", name, err)
	}
	return &Rule{Name: name, Kind: RuleKindFixed, re: re, fixed: replacement}, nil
}

func newComputedRule(name, expr string, fn func(m *regexp2.Match) string) (*Rule, error) {
	re, err := compile(expr)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", name, err)
	}
	return &Rule{Name: name, Kind: RuleKindComputed, re: re, compute: fn}, nil
}

func (r *Rule) setTimeout(d time.Duration) {
	r.re.MatchTimeout = d
}

func (r *Rule) replacement(m *regexp2.Match) string {
	var out string
	switch r.Kind {
	case RuleKindFixed:
		out = r.fixed
	case RuleKindComputed:
		out = r.compute(m)
	}
	return ProfileOf(m.String()).Apply(out)
}

// apply replaces every non-overlapping match in f. Separators consumed by a
// match lend their glyphs to canonical separators of the replacement, all
// others keep theirs.
func (r *Rule) apply(f fragment) (fragment, bool, error) {
	m, err := r.re.FindStringMatch(f.text)
	if err != nil || m == nil {
		return f, false, err
	}

	var (
		src    = []rune(f.text)
		b      strings.Builder
		glyphs = make([]string, 0, len(f.glyphs))
		next   int
		pos    int
	)
	b.Grow(len(f.text))

	keep := func(rs []rune) {
		for _, c := range rs {
			if c == Separator {
				glyphs = append(glyphs, f.glyph(next))
				next++
			}
			b.WriteRune(c)
		}
	}

	for m != nil {
		matched := src[m.Index : m.Index+m.Length]
		consumed := f.glyphsIn(matched, next+countSeparators(src[pos:m.Index]))
		if r.accept != nil && !r.accept(m, consumed) {
			if m, err = r.re.FindRunesMatchStartingAt(src, m.Index+1); err != nil {
				return f, false, err
			}
			continue
		}

		keep(src[pos:m.Index])
		next += len(consumed)

		j := 0
		for _, c := range r.replacement(m) {
			if c == Separator {
				g := string(Separator)
				if j < len(consumed) {
					g = consumed[j]
				}
				glyphs = append(glyphs, g)
				j++
			}
			b.WriteRune(c)
		}
		pos = m.Index + m.Length

		if m, err = r.re.FindNextMatch(m); err != nil {
			return f, false, err
		}
	}
	keep(src[pos:])

	out := b.String()
	if out == f.text {
		return f, false, nil
	}
	return fragment{text: out, glyphs: glyphs}, true, nil
}

func countSeparators(rs []rune) (n int) {
	for _, c := range rs {
		if c == Separator {
			n++
		}
	}
	return n
}

// glyphsIn returns original glyphs of separators in rs, first of them being
// separator number at of the fragment.
func (f fragment) glyphsIn(rs []rune, at int) []string {
	var out []string
	for _, c := range rs {
		if c == Separator {
			out = append(out, f.glyph(at))
			at++
		}
	}
	return out
}

// group returns text captured by group i or empty string when group did not
// participate in the match.
func group(m *regexp2.Match, i int) string {
	g := m.GroupByNumber(i)
	if g == nil || len(g.Captures) == 0 {
		return ""
	}
	return g.String()
}

func endsWithS(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(strings.TrimSuffix(s, ")"))
	return unicode.ToLower(r) == 's'
}

// plural adds "s" unless the word already carries a plural-looking ending.
func plural(base string) string {
	r, _ := utf8.DecodeLastRuneInString(base)
	switch unicode.ToLower(r) {
	case 's', 'x', 'z':
		return base
	}
	return base + "s"
}
