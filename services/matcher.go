package services

import "retraction-check/models"

// scoreTolerance absorbs float rounding when comparing scores with a threshold.
const scoreTolerance = 1e-9

// MatchByIdentifier joins candidates and references on the normalized DOI.
// Rows without an identifier are skipped; a candidate matches every
// reference row sharing its identifier.
func MatchByIdentifier(candidates []models.CandidateRecord, references []models.ReferenceRecord) []models.MatchRecord {
	byDOI := make(map[string][]int)
	for i, ref := range references {
		if ref.HasDOI() {
			byDOI[ref.DOINorm] = append(byDOI[ref.DOINorm], i)
		}
	}

	var out []models.MatchRecord
	for _, cand := range candidates {
		if !cand.HasDOI() {
			continue
		}
		for _, i := range byDOI[cand.DOINorm] {
			out = append(out, models.MatchRecord{
				Strategy:  models.StrategyIdentifier,
				Candidate: cand,
				Reference: references[i],
			})
		}
	}
	return out
}

// MatchByExactTitle joins candidates and references on the normalized title.
// Only pairs where both titles are eligible are considered.
func MatchByExactTitle(candidates []models.CandidateRecord, references []models.ReferenceRecord) []models.MatchRecord {
	byTitle := make(map[string][]int)
	for i, ref := range references {
		if ref.TitleEligible && ref.TitleNorm != "" {
			byTitle[ref.TitleNorm] = append(byTitle[ref.TitleNorm], i)
		}
	}

	var out []models.MatchRecord
	for _, cand := range candidates {
		if !cand.TitleEligible || cand.TitleNorm == "" {
			continue
		}
		for _, i := range byTitle[cand.TitleNorm] {
			out = append(out, models.MatchRecord{
				Strategy:  models.StrategyTitleExact,
				Candidate: cand,
				Reference: references[i],
			})
		}
	}
	return out
}

// MatchByFuzzyTitle compares every eligible candidate title with every
// distinct eligible reference title and keeps the best one when it reaches
// threshold. The first reference row carrying the winning title is attached.
//
// The cost is candidates x distinct reference titles; callers should expose
// it as an explicit, timed operation.
func MatchByFuzzyTitle(candidates []models.CandidateRecord, references []models.ReferenceRecord, threshold float64) []models.MatchRecord {
	type refTitle struct {
		title  string
		tokens tokenSet
		row    int
	}

	var titles []refTitle
	seen := make(map[string]bool)
	for i, ref := range references {
		if !ref.TitleEligible || ref.TitleNorm == "" || seen[ref.TitleNorm] {
			continue
		}
		seen[ref.TitleNorm] = true
		titles = append(titles, refTitle{title: ref.TitleNorm, tokens: newTokenSet(ref.TitleNorm), row: i})
	}
	if len(titles) == 0 {
		return nil
	}

	var out []models.MatchRecord
	for _, cand := range candidates {
		if !cand.TitleEligible || cand.TitleNorm == "" {
			continue
		}
		tokens := newTokenSet(cand.TitleNorm)
		best, bestScore := -1, -1.0
		for j, t := range titles {
			score := tokenSetRatio(tokens, t.tokens)
			if score > bestScore {
				best, bestScore = j, score
				if score >= 100 {
					break
				}
			}
		}
		if best < 0 || bestScore+scoreTolerance < threshold {
			continue
		}
		out = append(out, models.MatchRecord{
			Strategy:     models.StrategyTitleFuzzy,
			Candidate:    cand,
			Reference:    references[titles[best].row],
			Score:        bestScore,
			MatchedTitle: titles[best].title,
		})
	}
	return out
}
