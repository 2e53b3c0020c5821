// Package inclusive rewrites French inclusive writing (middle-dot,
// parenthesis and slash doublets, neo-pronouns) into conventional
// single-form text.
package inclusive

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

// DefaultMatchTimeout bounds a single regexp evaluation.
const DefaultMatchTimeout = 50 * time.Millisecond

// Options tune rewriter construction. Zero value is usable.
type Options struct {
	MatchTimeout time.Duration
	ExtraLexicon map[string]string
}

// Rewriter is immutable after construction and safe for concurrent use.
type Rewriter struct {
	classifier *Classifier
	protect    []*regexp2.Regexp
	rules      []*Rule
	spaces     *regexp2.Regexp
	log        *zap.Logger
}

// New compiles classifier, protected span patterns and rule set.
func New(opts Options, log *zap.Logger) (*Rewriter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.MatchTimeout
	if timeout <= 0 {
		timeout = DefaultMatchTimeout
	}
	lex := DefaultLexicon().Merge(opts.ExtraLexicon)

	rw := &Rewriter{log: log.Named("rewriter")}

	var err error
	if rw.classifier, err = newClassifier(lex, timeout); err != nil {
		return nil, fmt.Errorf("unable to build classifier: %w", err)
	}
	for _, expr := range protectedPatterns {
		re, err := regexp2.Compile(expr, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("unable to build protected span pattern %q: %w", expr, err)
		}
		re.MatchTimeout = timeout
		rw.protect = append(rw.protect, re)
	}
	if rw.rules, err = buildRules(lex); err != nil {
		return nil, fmt.Errorf("unable to build rules: %w", err)
	}
	for _, r := range rw.rules {
		r.setTimeout(timeout)
	}
	rw.spaces = regexp2.MustCompile(`[ \t]{2,}`, regexp2.None)
	rw.spaces.MatchTimeout = timeout

	rw.log.Debug("Rewriter ready", zap.Int("rules", len(rw.rules)), zap.Int("lexicon", len(lex)), zap.Duration("timeout", timeout))
	return rw, nil
}

var defaultRewriter = sync.OnceValue(func() *Rewriter {
	rw, err := New(Options{}, nil)
	if err != nil {
		// built-in patterns are constant
		panic(err)
	}
	return rw
})

// Default returns shared rewriter with built-in settings.
func Default() *Rewriter {
	return defaultRewriter()
}

// Rewrite returns text with inclusive writing replaced. When nothing had to
// change, or anything went wrong, text itself is returned.
func (rw *Rewriter) Rewrite(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			rw.log.Debug("Fragment left as found", zap.Any("panic", r))
			out = text
		}
	}()

	res, err := rw.rewrite(text)
	if err != nil {
		rw.log.Debug("Fragment left as found", zap.Error(err))
		return text
	}
	return res
}

// Eligible exposes classifier verdict for text.
func (rw *Rewriter) Eligible(text string) bool {
	return rw.classifier.Eligible(text)
}

// Rules lists rule names in application order.
func (rw *Rewriter) Rules() []string {
	names := make([]string, 0, len(rw.rules))
	for _, r := range rw.rules {
		names = append(names, r.Name)
	}
	return names
}

func (rw *Rewriter) rewrite(text string) (string, error) {
	if !rw.classifier.Eligible(text) {
		return text, nil
	}
	if hasKeyDelimiters(text) {
		return text, ErrPlaceholderClash
	}

	var v vault
	protected, err := v.protect(text, rw.protect)
	if err != nil {
		return text, fmt.Errorf("unable to protect spans: %w", err)
	}

	f := normalize(protected)
	changed := false
	for _, r := range rw.rules {
		next, ok, err := r.apply(f)
		if err != nil {
			return text, fmt.Errorf("rule %s: %w", r.Name, err)
		}
		if ok {
			changed = true
			f = next
		}
	}
	if !changed {
		return text, nil
	}

	out, err := v.restore(f.denormalize())
	if err != nil {
		return text, err
	}
	if strings.Contains(out, "  ") || strings.Contains(out, "\t") {
		if out, err = rw.spaces.Replace(out, " ", -1, -1); err != nil {
			return text, fmt.Errorf("unable to collapse spaces: %w", err)
		}
	}
	if out == text {
		return text, nil
	}
	return out, nil
}
