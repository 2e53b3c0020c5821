package inclusive

import (
	"errors"
	"strings"
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"directeur-rice", "directeur·rice"},
		{"arrivé.e.s", "arrivé·e·s"},
		{"chef•fe", "chef·fe"},
		{"ami⋅e", "ami·e"},
		{"ami‧e", "ami·e"},
		{"ami∙e", "ami·e"},
		{"arrivé·e", "arrivé·e"},
		{"sans séparateur", "sans séparateur"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_GlyphsRoundTrip(t *testing.T) {
	in := "chef•fe, ami.e et vice-président·e"
	f := normalize(in)
	if diff := cmp.Diff([]string{"•", ".", "-", "·"}, f.glyphs); diff != "" {
		t.Errorf("glyphs mismatch (-want +got):\n%s", diff)
	}
	if got := f.denormalize(); got != in {
		t.Errorf("denormalize() = %q, want %q", got, in)
	}
}

func TestCaseProfile_Text(t *testing.T) {
	if diff := cmp.Diff([]string{"other", "initialCap", "allUpper"}, CaseProfileNames()); diff != "" {
		t.Errorf("CaseProfileNames() mismatch (-want +got):\n%s", diff)
	}
	for _, name := range CaseProfileNames() {
		var p CaseProfile
		if err := p.UnmarshalText([]byte(name)); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", name, err)
		}
		if got, _ := p.MarshalText(); string(got) != name {
			t.Errorf("MarshalText() = %q, want %q", got, name)
		}
	}
	if _, err := ParseCaseProfile("lower"); !errors.Is(err, ErrInvalidCaseProfile) {
		t.Errorf("ParseCaseProfile() error = %v, want %v", err, ErrInvalidCaseProfile)
	}
	if got := CaseProfile(7).String(); got != "CaseProfile(7)" {
		t.Errorf("String() = %q, want %q", got, "CaseProfile(7)")
	}
}

func TestBuildRules_Kinds(t *testing.T) {
	rules, err := buildRules(DefaultLexicon())
	if err != nil {
		t.Fatalf("buildRules() error = %v", err)
	}
	for _, r := range rules {
		if !r.Kind.IsValid() {
			t.Errorf("rule %s has invalid kind %v", r.Name, r.Kind)
		}
		want := RuleKindComputed
		if strings.HasPrefix(r.Name, "phrase ") {
			want = RuleKindFixed
		}
		if r.Kind != want {
			t.Errorf("rule %s kind = %s, want %s", r.Name, r.Kind, want)
		}
	}
}

func TestIsSeparator(t *testing.T) {
	for _, r := range "·•⋅‧∙.-" {
		if !IsSeparator(r) {
			t.Errorf("IsSeparator(%q) = false, want true", r)
		}
	}
	for _, r := range "a/()・ " {
		if IsSeparator(r) {
			t.Errorf("IsSeparator(%q) = true, want false", r)
		}
	}
}

func TestProfileOf(t *testing.T) {
	tests := []struct {
		in   string
		want CaseProfile
	}{
		{"arrivé·e·s", CaseProfileOther},
		{"Cher·e·s", CaseProfileInitialCap},
		{"L'instituteurice", CaseProfileInitialCap},
		{"ÉTUDIANT·E·S", CaseProfileAllUpper},
		{"IEL", CaseProfileAllUpper},
		{"eXtra", CaseProfileOther},
		{"", CaseProfileOther},
	}
	for _, tt := range tests {
		if got := ProfileOf(tt.in); got != tt.want {
			t.Errorf("ProfileOf(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCaseProfileApply(t *testing.T) {
	tests := []struct {
		p    CaseProfile
		in   string
		want string
	}{
		{CaseProfileOther, "il", "il"},
		{CaseProfileInitialCap, "il", "Il"},
		{CaseProfileInitialCap, "été", "Été"},
		{CaseProfileAllUpper, "étudiants", "ÉTUDIANTS"},
		{CaseProfileInitialCap, "", ""},
	}
	for _, tt := range tests {
		if got := tt.p.Apply(tt.in); got != tt.want {
			t.Errorf("%v.Apply(%q) = %q, want %q", tt.p, tt.in, got, tt.want)
		}
	}
}

func compileProtected(t *testing.T) []*regexp2.Regexp {
	t.Helper()
	var out []*regexp2.Regexp
	for _, expr := range protectedPatterns {
		out = append(out, regexp2.MustCompile(expr, regexp2.None))
	}
	return out
}

func TestVault(t *testing.T) {
	patterns := compileProtected(t)

	tests := []struct {
		in    string
		spans []string
	}{
		{"E.Leclerc et Paris-Est", []string{"E.Leclerc", "Paris-Est"}},
		{"voir www.exemple.fr ou écrire à moi@exemple.fr", []string{"www.exemple.fr", "moi@exemple.fr"}},
		{"ouvrir notes.e.txt", []string{"notes.e.txt"}},
		{"Saint-Jean-de-Luz", []string{"Saint-Jean-de-Luz"}},
		{"arrivé·e·s", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var v vault
			protected, err := v.protect(tt.in, patterns)
			if err != nil {
				t.Fatalf("protect() error = %v", err)
			}
			if diff := cmp.Diff(tt.spans, v.spans); diff != "" {
				t.Errorf("spans mismatch (-want +got):\n%s", diff)
			}
			got, err := v.restore(protected)
			if err != nil {
				t.Fatalf("restore() error = %v", err)
			}
			if got != tt.in {
				t.Errorf("restore() = %q, want %q", got, tt.in)
			}
		})
	}
}

func TestVault_RestoreMangled(t *testing.T) {
	v := vault{spans: []string{"Paris-Est", "E.Leclerc"}}

	for _, in := range []string{
		key(0) + " seulement",
		key(0) + key(7),
		string(keyOpen) + "0 sans fin",
		"fin seule" + string(keyClose),
	} {
		if _, err := v.restore(in); !errors.Is(err, ErrPlaceholderClash) {
			t.Errorf("restore(%q) error = %v, want %v", in, err, ErrPlaceholderClash)
		}
	}
}

func TestClassifier(t *testing.T) {
	c, err := newClassifier(DefaultLexicon(), DefaultMatchTimeout)
	if err != nil {
		t.Fatalf("newClassifier() error = %v", err)
	}

	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"Bonjour à tous", false},
		{"https://exemple.fr/les-etudiant.e.s", false},
		{"  www.exemple.fr  ", false},
		{"version 1.2.3", false},
		{"arrivé·e·s", true},
		{"serait-iel prêt", true},
		{"L'instituteurice", true},
		{"copain(ne)s", true},
		{"auteur/trice", true},
		{"iels sont là", true},
		{"TOUSTES", true},
	}
	for _, tt := range tests {
		if got := c.Eligible(tt.in); got != tt.want {
			t.Errorf("Eligible(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLexiconMerge(t *testing.T) {
	base := Lexicon{"iel": "il"}
	got := base.Merge(map[string]string{"ADELPHE": "frère", "": "x", "vide": " "})
	want := Lexicon{"iel": "il", "adelphe": "frère"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
	if len(base) != 1 {
		t.Errorf("Merge() modified receiver: %v", base)
	}
}
