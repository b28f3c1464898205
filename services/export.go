package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"retraction-check/models"
)

// ExportFileName is the download name of the CSV export.
const ExportFileName = "retraction_watch_matches.csv"

// ExportHeader lists the CSV columns. Candidate columns carry the ris_
// prefix; reference columns keep the Retraction Watch names.
var ExportHeader = []string{
	"match_type",
	"title_score",
	"matched_title_norm",
	"ris_index",
	"ris_doi",
	"ris_primary_title",
	"ris_doi_norm",
	"ris_title_norm",
	"Record ID",
	"Title",
	"OriginalPaperDOI",
	"RetractionNature",
	"Reason",
	"Author",
	"urls",
	"rw_doi_norm",
	"rw_title_norm",
}

// DOIURL turns an identifier into a resolver link; "" when there is none.
func DOIURL(doi string) string {
	doi = strings.TrimSpace(doi)
	if doi == "" || strings.EqualFold(doi, "nan") {
		return ""
	}
	return "https://doi.org/" + doi
}

func formatScore(m models.MatchRecord) string {
	if m.Strategy != models.StrategyTitleFuzzy {
		return ""
	}
	return strconv.FormatFloat(m.Score, 'f', 2, 64)
}

// WriteExportCSV writes one row per match record, duplicates included.
func WriteExportCSV(w io.Writer, records []models.MatchRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, m := range records {
		c, r := m.Candidate, m.Reference
		row := []string{
			m.Strategy.MatchType(),
			formatScore(m),
			m.MatchedTitle,
			strconv.Itoa(c.Index),
			c.DOI,
			c.Title,
			c.DOINorm,
			c.TitleNorm,
			r.RecordID,
			r.Title,
			r.OriginalPaperDOI,
			r.RetractionNature,
			r.Reason,
			r.Author,
			r.URLs,
			r.DOINorm,
			r.TitleNorm,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MatchRow is the flat display form of a match.
type MatchRow struct {
	MatchType        string  `json:"match_type"`
	RecordID         string  `json:"record_id"`
	Title            string  `json:"title"`
	RetractionNature string  `json:"retraction_nature"`
	Reason           string  `json:"reason"`
	OriginalPaperDOI string  `json:"original_paper_doi"`
	DOIURL           string  `json:"doi_url"`
	DOI              string  `json:"doi"`
	CandidateIndex   int     `json:"candidate_index"`
	CandidateTitle   string  `json:"candidate_title"`
	Score            float64 `json:"score,omitempty"`
	MatchedTitle     string  `json:"matched_title,omitempty"`
}

// DisplayRows flattens matches for tables and JSON responses.
func DisplayRows(records []models.MatchRecord) []MatchRow {
	rows := make([]MatchRow, 0, len(records))
	for _, m := range records {
		rows = append(rows, MatchRow{
			MatchType:        m.Strategy.MatchType(),
			RecordID:         m.Reference.RecordID,
			Title:            m.Reference.Title,
			RetractionNature: m.Reference.RetractionNature,
			Reason:           m.Reference.Reason,
			OriginalPaperDOI: m.Reference.OriginalPaperDOI,
			DOIURL:           DOIURL(m.Reference.DOINorm),
			DOI:              m.Reference.DOINorm,
			CandidateIndex:   m.Candidate.Index,
			CandidateTitle:   m.Candidate.Title,
			Score:            m.Score,
			MatchedTitle:     m.MatchedTitle,
		})
	}
	return rows
}
