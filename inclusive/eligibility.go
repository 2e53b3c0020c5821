package inclusive

import (
	"time"

	"github.com/dlclark/regexp2"
)

// Classifier is a cheap pre-filter deciding whether a fragment may contain
// inclusive writing at all. It never rewrites anything.
type Classifier struct {
	urlOnly *regexp2.Regexp
	hints   []*regexp2.Regexp
}

func newClassifier(lex Lexicon, timeout time.Duration) (*Classifier, error) {
	sep := separatorClass()
	exprs := []string{
		// separator, parenthesis or slash between letters
		letter + sep + letter,
		letter + `\(` + letter,
		letter + `/` + letter,
		// fused forms: instituteurice
		`(?i)eurices?(?![\p{L}\p{M}])`,
	}
	if len(lex) > 0 {
		exprs = append(exprs, `(?i)`+lex.pattern())
	}

	c := &Classifier{}
	var err error
	if c.urlOnly, err = regexp2.Compile(`(?i)^\s*(?:[a-z][a-z0-9+.\-]*://|www\.)\S*\s*$`, regexp2.None); err != nil {
		return nil, err
	}
	c.urlOnly.MatchTimeout = timeout
	for _, expr := range exprs {
		re, err := regexp2.Compile(expr, regexp2.None)
		if err != nil {
			return nil, err
		}
		re.MatchTimeout = timeout
		c.hints = append(c.hints, re)
	}
	return c, nil
}

// Eligible reports whether text is worth running rules on. Any matching
// failure (including timeout) makes fragment ineligible.
func (c *Classifier) Eligible(text string) bool {
	if len(text) == 0 {
		return false
	}
	if url, err := c.urlOnly.MatchString(text); err != nil || url {
		return false
	}
	for _, re := range c.hints {
		ok, err := re.MatchString(text)
		if err != nil {
			return false
		}
		if ok {
			return true
		}
	}
	return false
}
