package models

import "fmt"

// Strategy names the method that linked a candidate to a reference.
type Strategy string

const (
	StrategyIdentifier Strategy = "identifier"
	StrategyTitleExact Strategy = "title_exact"
	StrategyTitleFuzzy Strategy = "title_fuzzy"
)

// Strategies lists every strategy in pipeline order.
var Strategies = []Strategy{StrategyIdentifier, StrategyTitleExact, StrategyTitleFuzzy}

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyIdentifier, StrategyTitleExact, StrategyTitleFuzzy:
		return true
	}
	return false
}

// MatchType is the export label of the strategy. Identifier matches are
// exported as "doi".
func (s Strategy) MatchType() string {
	if s == StrategyIdentifier {
		return "doi"
	}
	return string(s)
}

// ParseStrategy accepts both strategy names and export labels.
func ParseStrategy(v string) (Strategy, error) {
	if v == "doi" {
		return StrategyIdentifier, nil
	}
	s := Strategy(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown match strategy %q", v)
	}
	return s, nil
}

// MatchRecord joins one candidate and one reference under a strategy.
// Both sides are kept whole so same-named fields never collide.
type MatchRecord struct {
	Strategy  Strategy        `json:"strategy"`
	Candidate CandidateRecord `json:"candidate"`
	Reference ReferenceRecord `json:"reference"`

	// Fuzzy matches only
	Score        float64 `json:"score,omitempty"`
	MatchedTitle string  `json:"matched_title,omitempty"`
}

// DedupKey identifies a match for presentation purposes.
type DedupKey struct {
	DOINorm  string
	Title    string
	Strategy Strategy
}

// Key returns the presentation deduplication key of the match.
func (m MatchRecord) Key() DedupKey {
	return DedupKey{DOINorm: m.Reference.DOINorm, Title: m.Reference.Title, Strategy: m.Strategy}
}
