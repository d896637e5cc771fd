package names

import "strings"

// System name part type names the built in capabilities understand.
const (
	PartGiven          = "given"
	PartFamily         = "family"
	PartTermsOfAddress = "terms of address"
)

const (
	englishCode = "en"
	latinCode   = "Latn"
)

// English orders parts as terms of address, given name, family name.
// Parts of any other type are not displayed.
type English struct{}

func (English) Code() string { return englishCode }

func (English) SortParts(parts []Part) []Part {
	var title, given, family Part
	for _, p := range parts {
		switch p.Type {
		case PartGiven:
			given = p
		case PartFamily:
			family = p
		case PartTermsOfAddress:
			title = p
		}
	}
	return []Part{title, given, family}
}

// Abbreviate writes " and " as " & ".
func (English) Abbreviate(name string) string {
	return strings.ReplaceAll(name, " and ", " & ")
}

// Latin separates name parts with a space.
type Latin struct{}

func (Latin) Code() string      { return latinCode }
func (Latin) Separator() string { return " " }
