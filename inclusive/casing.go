package inclusive

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CaseProfile describes capitalization of a matched text so that the same
// shape could be given to its replacement.
// ENUM(other, initialCap, allUpper)
type CaseProfile int

// ProfileOf computes case profile of s looking at letters only.
func ProfileOf(s string) CaseProfile {
	var letters, upper int
	first := true
	firstUpper := false
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
			if first {
				firstUpper = true
			}
		}
		first = false
	}
	switch {
	case letters > 1 && upper == letters:
		return CaseProfileAllUpper
	case firstUpper:
		return CaseProfileInitialCap
	}
	return CaseProfileOther
}

// Apply shapes s according to the profile.
func (p CaseProfile) Apply(s string) string {
	switch p {
	case CaseProfileAllUpper:
		// Caser keeps state, it cannot be shared between goroutines.
		return cases.Upper(language.French).String(s)
	case CaseProfileInitialCap:
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError {
			return s
		}
		return string(unicode.ToUpper(r)) + s[size:]
	}
	return s
}
