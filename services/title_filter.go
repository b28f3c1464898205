package services

import "unicode/utf8"

// DefaultMinTitleLength is the shortest normalized title used for title matching.
const DefaultMinTitleLength = 10

// boilerplateTitles are section headings that carry no identifying information.
var boilerplateTitles = map[string]struct{}{
	"editorial":   {},
	"index":       {},
	"correction":  {},
	"corrigendum": {},
	"erratum":     {},
	"reply":       {},
	"response":    {},
	"commentary":  {},
	"letter":      {},
	"news":        {},
}

// IsEligibleTitle reports whether a normalized title may take part in exact
// or fuzzy title matching. It never affects identifier matching.
func IsEligibleTitle(title string, minLength int) bool {
	if title == "" {
		return false
	}
	if _, ok := boilerplateTitles[title]; ok {
		return false
	}
	return utf8.RuneCountInString(title) >= minLength
}
