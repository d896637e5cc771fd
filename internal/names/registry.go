package names

import (
	"slices"
	"strings"
	"sync"
)

// Part is one name part labelled with the name of its system name part
// type ("given", "family", "terms of address").
type Part struct {
	Type string
	Text string
}

// Language orders name parts and abbreviates names for one language.
type Language interface {
	Code() string
	SortParts(parts []Part) []Part
	Abbreviate(name string) string
}

// Script joins name parts for one writing system.
type Script interface {
	Code() string
	Separator() string
}

// Registry holds the language and script capabilities names are assembled
// with. Unknown codes resolve to a neutral capability that keeps parts in
// their given order and joins them with a single space.
type Registry struct {
	mu        sync.RWMutex
	languages map[string]Language
	scripts   map[string]Script
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		languages: make(map[string]Language),
		scripts:   make(map[string]Script),
	}
}

// DefaultRegistry returns a registry with English and Latin registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterLanguage(English{})
	r.RegisterScript(Latin{})
	return r
}

// RegisterLanguage adds or replaces the capability for l.Code().
func (r *Registry) RegisterLanguage(l Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.languages[l.Code()] = l
}

// RegisterScript adds or replaces the capability for s.Code().
func (r *Registry) RegisterScript(s Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[s.Code()] = s
}

// Language returns the capability registered for code.
func (r *Registry) Language(code string) Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.languages[code]; ok {
		return l
	}
	return neutralLanguage{code: code}
}

// Script returns the capability registered for code.
func (r *Registry) Script(code string) Script {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.scripts[code]; ok {
		return s
	}
	return neutralScript{code: code}
}

// Clean applies the package level Clean.
func (r *Registry) Clean(name string) string { return Clean(name) }

// Assemble orders the parts for the language, drops empty ones and joins
// the rest with the script separator.
func (r *Registry) Assemble(parts []Part, language, script string) string {
	if len(parts) == 0 {
		return ""
	}
	var texts []string
	for _, p := range r.Language(language).SortParts(parts) {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, r.Script(script).Separator())
}

// SearchForms returns name followed by each derived form that differs from
// it: for Latin script the ASCII and demacronised forms, then the
// language's abbreviated form, the unpunctuated form and the case folded
// form.
func (r *Registry) SearchForms(name, language, script string) []string {
	forms := []string{name}
	add := func(form string) {
		if form != "" && form != name && !slices.Contains(forms, form) {
			forms = append(forms, form)
		}
	}
	if script == latinCode {
		add(Asciify(name))
		add(Demacronise(name))
	}
	add(r.Language(language).Abbreviate(name))
	add(Unpunctuate(name))
	add(Fold(name))
	return forms
}

// NameSearchForms returns the search forms of a name's display form and of
// its assembled parts, without duplicates.
func (r *Registry) NameSearchForms(displayForm string, parts []Part, language, script string) []string {
	var out []string
	for _, base := range []string{displayForm, r.Assemble(parts, language, script)} {
		if base == "" {
			continue
		}
		for _, form := range r.SearchForms(base, language, script) {
			if !slices.Contains(out, form) {
				out = append(out, form)
			}
		}
	}
	return out
}

// Variants returns the display form when there is one. Otherwise it returns
// the assembled form and, for Latin script names, every combination of
// given names and their initials with and without the family name
// inverted.
func (r *Registry) Variants(displayForm string, parts []Part, language, script string) []string {
	if displayForm != "" {
		return []string{displayForm}
	}
	main := r.Assemble(parts, language, script)
	if main == "" {
		return nil
	}
	out := []string{main}
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	if script != latinCode {
		return out
	}
	var given, family, toa string
	for _, p := range parts {
		switch p.Type {
		case PartGiven:
			given = p.Text
		case PartFamily:
			family = p.Text
		case PartTermsOfAddress:
			toa = p.Text
		}
	}
	if toa != "" {
		toa += " "
	}
	components := strings.Fields(given)
	if len(components) == 0 {
		add(toa + family)
		return out
	}
	for _, g := range givenForms(components) {
		add(toa + g + " " + family)
		if family != "" {
			add(family + ", " + toa + g)
		}
	}
	return out
}

// givenForms returns, for each leading given name, the name and its
// initial, each optionally followed by any form of the later given names.
func givenForms(components []string) []string {
	var later []string
	if len(components) > 1 {
		later = givenForms(components[1:])
	}
	first := []rune(components[0])
	var forms []string
	for _, c := range []string{components[0], string(first[0]) + "."} {
		forms = append(forms, c)
		for _, l := range later {
			forms = append(forms, c+" "+l)
		}
	}
	return forms
}

type neutralLanguage struct{ code string }

func (l neutralLanguage) Code() string                { return l.code }
func (neutralLanguage) SortParts(parts []Part) []Part { return parts }
func (neutralLanguage) Abbreviate(name string) string { return name }

type neutralScript struct{ code string }

func (s neutralScript) Code() string    { return s.code }
func (neutralScript) Separator() string { return " " }
