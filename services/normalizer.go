package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"retraction-check/models"
)

// NormalizationRuleset names the identifier and title rules below. Snapshots
// record it so every record of one snapshot is comparable.
const NormalizationRuleset = "doi-prefix-v1/title-ascii-v1"

// identifierPrefixes are resolver and scheme prefixes removed from identifiers.
var identifierPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// missingIdentifiers are placeholder values spreadsheets and exports use for "no value".
var missingIdentifiers = map[string]bool{"": true, "nan": true, "none": true}

var (
	titleDashes     = regexp.MustCompile(`[/\-–—]`)
	titleWhitespace = regexp.MustCompile(`[\s\p{Z}]+`)
	titleDisallowed = regexp.MustCompile(`[^a-z0-9_ ]`)

	ligatures = strings.NewReplacer(
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬀ", "ff",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬆ", "st",
		"œ", "oe",
		"æ", "ae",
		"ß", "ss",
	)
)

// NormalizeIdentifier canonicalizes a DOI into a join key. The second result
// is false when the value is missing. Suffix variants stay distinct.
func NormalizeIdentifier(raw string) (string, bool) {
	s := strings.TrimSpace(strings.ToLower(raw))
	for {
		if missingIdentifiers[s] {
			return "", false
		}
		stripped := false
		for _, prefix := range identifierPrefixes {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
				stripped = true
				break
			}
		}
		if !stripped {
			return s, true
		}
	}
}

// NormalizeTitle canonicalizes a title into lowercase ASCII words separated
// by single spaces. Dashes and slashes separate words; other punctuation is
// dropped. The second result is false when nothing remains.
func NormalizeTitle(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	s := foldDiacritics(strings.ToLower(raw))
	s = titleDashes.ReplaceAllString(s, " ")
	s = titleWhitespace.ReplaceAllString(s, " ")
	s = titleDisallowed.ReplaceAllString(s, "")
	// stripping can leave neighbouring spaces behind
	s = strings.TrimSpace(titleWhitespace.ReplaceAllString(s, " "))
	if s == "" {
		return "", false
	}
	return s, true
}

// foldDiacritics expands ligatures and removes combining marks, so "é" becomes "e".
func foldDiacritics(s string) string {
	s = ligatures.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// NormalizeCandidates returns normalized copies of the uploaded records.
func NormalizeCandidates(records []models.CandidateRecord, minTitleLength int) []models.CandidateRecord {
	out := make([]models.CandidateRecord, len(records))
	for i, rec := range records {
		rec.DOINorm, _ = NormalizeIdentifier(rec.DOI)
		rec.TitleNorm, _ = NormalizeTitle(rec.Title)
		rec.TitleEligible = IsEligibleTitle(rec.TitleNorm, minTitleLength)
		out[i] = rec
	}
	return out
}

// NormalizeReferences returns normalized copies of the reference rows.
func NormalizeReferences(records []models.ReferenceRecord, minTitleLength int) []models.ReferenceRecord {
	out := make([]models.ReferenceRecord, len(records))
	for i, rec := range records {
		rec.DOINorm, _ = NormalizeIdentifier(rec.OriginalPaperDOI)
		rec.TitleNorm, _ = NormalizeTitle(rec.Title)
		rec.TitleEligible = IsEligibleTitle(rec.TitleNorm, minTitleLength)
		out[i] = rec
	}
	return out
}

func rulesetFor(minTitleLength int) string {
	return fmt.Sprintf("%s/min-title-%d", NormalizationRuleset, minTitleLength)
}
