package names

import (
	"slices"
	"testing"
)

func TestClean(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Alan Smith", "Alan Smith"},
		{"War's End", "War\u2019s End"},
		{"'A flight of swans': a lesson in aerodynamics", "\u2018A flight of swans\u2019: a lesson in aerodynamics"},
		{`"A flight of swans": a lesson in aerodynamics`, "\u201cA flight of swans\u201d: a lesson in aerodynamics"},
		{`"'A flight of swans': a lesson in aerodynamics"`, "\u201c\u2018A flight of swans\u2019: a lesson in aerodynamics\u201d"},
		{"'Good-bye dear,' shouted loudly", "\u2018Good-bye dear,\u2019 shouted loudly"},
		{"M\u0101ori", "M\u0101ori"},
		{"Ma\u0304ori", "M\u0101ori"},
	}
	for _, tc := range cases {
		if got := Clean(tc.in); got != tc.want {
			t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAsciify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Alan Smith", "Alan Smith"},
		{"Fran\u00e7ois", "Francois"},
		{"\u00c6gypt", "AEgypt"},
		{"Stra\u00dfe", "Strasse"},
	}
	for _, tc := range cases {
		if got := Asciify(tc.in); got != tc.want {
			t.Errorf("Asciify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUnpunctuate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Alan Smith", "Alan Smith"},
		{"Fran\u00e7ois", "Fran\u00e7ois"},
		{"Smith, Alan", "Smith Alan"},
		{"War's End", "Wars End"},
		{"Never say (again)", "Never say again"},
	}
	for _, tc := range cases {
		if got := Unpunctuate(tc.in); got != tc.want {
			t.Errorf("Unpunctuate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDemacronise(t *testing.T) {
	if got := Demacronise("M\u0101ori"); got != "Maaori" {
		t.Fatalf("Demacronise = %q", got)
	}
	if got := Demacronise("Alan"); got != "Alan" {
		t.Fatalf("unexpected change %q", got)
	}
}

func TestSearchForms(t *testing.T) {
	r := DefaultRegistry()
	got := r.SearchForms("Jane Doe", "en", "Latn")
	if !slices.Equal(got, []string{"Jane Doe", "jane doe"}) {
		t.Fatalf("unexpected forms %q", got)
	}
	got = r.SearchForms("Te M\u0101ori and Sons", "en", "Latn")
	want := []string{
		"Te M\u0101ori and Sons",
		"Te Maori and Sons",
		"Te Maaori and Sons",
		"Te M\u0101ori & Sons",
		"te m\u0101ori and sons",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("forms = %q, want %q", got, want)
	}
	// Non-Latin scripts get no ASCII forms and unknown languages no
	// abbreviation.
	got = r.SearchForms("Smith and Sons", "fr", "Grek")
	if !slices.Equal(got, []string{"Smith and Sons", "smith and sons"}) {
		t.Fatalf("unexpected forms %q", got)
	}
}

func TestAssembleUsesLanguageOrder(t *testing.T) {
	r := DefaultRegistry()
	parts := []Part{{Type: PartFamily, Text: "Doe"}, {Type: PartGiven, Text: "Jane"}, {Type: PartTermsOfAddress, Text: "Dr"}}
	if got := r.Assemble(parts, "en", "Latn"); got != "Dr Jane Doe" {
		t.Fatalf("Assemble = %q", got)
	}
	if got := r.Assemble(parts, "xx", "Zzzz"); got != "Doe Jane Dr" {
		t.Fatalf("neutral Assemble = %q", got)
	}
	if got := r.Assemble(nil, "en", "Latn"); got != "" {
		t.Fatalf("empty parts assembled to %q", got)
	}
}

type dashScript struct{}

func (dashScript) Code() string      { return "Dash" }
func (dashScript) Separator() string { return "-" }

func TestRegisterScript(t *testing.T) {
	r := DefaultRegistry()
	r.RegisterScript(dashScript{})
	parts := []Part{{Type: PartGiven, Text: "Jane"}, {Type: PartFamily, Text: "Doe"}}
	if got := r.Assemble(parts, "en", "Dash"); got != "Jane-Doe" {
		t.Fatalf("Assemble = %q", got)
	}
}

func TestNameSearchForms(t *testing.T) {
	r := DefaultRegistry()
	parts := []Part{{Type: PartGiven, Text: "Jane"}, {Type: PartFamily, Text: "Doe"}}
	got := r.NameSearchForms("Jane Doe", parts, "en", "Latn")
	if !slices.Equal(got, []string{"Jane Doe", "jane doe"}) {
		t.Fatalf("duplicates not collapsed: %q", got)
	}
	got = r.NameSearchForms("", nil, "en", "Latn")
	if len(got) != 0 {
		t.Fatalf("expected no forms, got %q", got)
	}
	got = r.NameSearchForms("", parts, "en", "Latn")
	if len(got) == 0 || slices.Contains(got, "") || !slices.Contains(got, Fold(r.Assemble(parts, "en", "Latn"))) {
		t.Fatalf("assembled forms lack the folded form or hold an empty one: %q", got)
	}
}

func TestVariants(t *testing.T) {
	r := DefaultRegistry()
	if got := r.Variants("J. Doe", nil, "en", "Latn"); !slices.Equal(got, []string{"J. Doe"}) {
		t.Fatalf("display form should win: %q", got)
	}
	parts := []Part{{Type: PartGiven, Text: "Jane Mary"}, {Type: PartFamily, Text: "Doe"}}
	got := r.Variants("", parts, "en", "Latn")
	for _, want := range []string{"Jane Mary Doe", "J. M. Doe", "Doe, Jane M.", "Jane Doe", "Doe, J."} {
		if !slices.Contains(got, want) {
			t.Fatalf("missing variant %q in %q", want, got)
		}
	}
	if got[0] != "Jane Mary Doe" {
		t.Fatalf("assembled form should come first: %q", got)
	}
	if got := r.Variants("", parts, "en", "Grek"); !slices.Equal(got, []string{"Jane Mary Doe"}) {
		t.Fatalf("non-Latin names have no variants: %q", got)
	}
}
