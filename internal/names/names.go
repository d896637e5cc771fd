// Package names cleans names, assembles them from their parts and derives
// the search forms and variants used for lookup.
package names

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const precedingChar = `[\p{L}\p{N}_,;.?!)}\]]`

var (
	rightApos   = regexp.MustCompile(`(` + precedingChar + `)'`)
	rightQuote  = regexp.MustCompile(`(` + precedingChar + `)"`)
	macronVowel = regexp.MustCompile("([aeiouAEIOU])\u0304")

	asciiSubstitutions = strings.NewReplacer(
		"Æ", "AE", "æ", "ae", "Œ", "OE", "œ", "oe", "ß", "ss", "ſ", "s", "‘", "'",
	)
)

// Clean turns ASCII apostrophes and quotation marks into typographic ones
// and returns the name in NFC. A mark that follows a word character or
// closing punctuation closes a quotation; any other mark opens one.
func Clean(name string) string {
	name = rightApos.ReplaceAllString(name, "${1}\u2019")
	name = strings.ReplaceAll(name, "'", "\u2018")
	name = rightQuote.ReplaceAllString(name, "${1}\u201d")
	name = strings.ReplaceAll(name, `"`, "\u201c")
	return norm.NFC.String(name)
}

// Asciify substitutes common ligatures, strips diacritics and drops every
// remaining non-ASCII character.
func Asciify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, asciiSubstitutions.Replace(name))
	if err != nil {
		return ""
	}
	return out
}

// Demacronise writes macronised vowels as doubled vowels ("Māori" becomes
// "Maaori").
func Demacronise(name string) string {
	decomposed := norm.NFD.String(asciiSubstitutions.Replace(name))
	return norm.NFC.String(macronVowel.ReplaceAllString(decomposed, "$1$1"))
}

// Unpunctuate removes every character in a Unicode punctuation category.
func Unpunctuate(name string) string {
	out, _, err := transform.String(runes.Remove(runes.In(unicode.P)), name)
	if err != nil {
		return name
	}
	return out
}

// Fold returns the case folded form used for case insensitive matching.
func Fold(name string) string {
	return cases.Fold().String(name)
}
