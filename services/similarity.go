package services

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/adrg/strutil/metrics"
)

// indel counts insertions and deletions only; a substitution costs one of each.
var indel = &metrics.Levenshtein{
	CaseSensitive: true,
	InsertCost:    1,
	DeleteCost:    1,
	ReplaceCost:   2,
}

// Ratio is the normalized indel similarity of a and b on a 0-100 scale.
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	return 100 * (1 - float64(indel.Distance(a, b))/float64(total))
}

// tokenSet is the sorted, de-duplicated list of whitespace separated words.
type tokenSet []string

func newTokenSet(s string) tokenSet {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)
	out := fields[:1]
	for _, f := range fields[1:] {
		if f != out[len(out)-1] {
			out = append(out, f)
		}
	}
	return out
}

// TokenSetRatio scores a and b on a 0-100 scale ignoring word order and
// repeated words. A title whose words are a subset of the other's scores 100.
func TokenSetRatio(a, b string) float64 {
	return tokenSetRatio(newTokenSet(a), newTokenSet(b))
}

func tokenSetRatio(a, b tokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			common = append(common, a[i])
			i++
			j++
		case a[i] < b[j]:
			onlyA = append(onlyA, a[i])
			i++
		default:
			onlyB = append(onlyB, b[j])
			j++
		}
	}
	onlyA = append(onlyA, a[i:]...)
	onlyB = append(onlyB, b[j:]...)

	sect := strings.Join(common, " ")
	withA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	return max(Ratio(sect, withA), Ratio(sect, withB), Ratio(withA, withB))
}
