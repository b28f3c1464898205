package services

import (
	"fmt"
	"strings"

	"retraction-check/models"
)

const maxListedAuthors = 6

// FormatReference renders an uploaded record as a compact reference string
func FormatReference(c models.CandidateRecord) string {
	// Authors: join with comma; limit to 6 then et al.
	authors := c.Authors
	etAl := ""
	if len(authors) > maxListedAuthors {
		authors = authors[:maxListedAuthors]
		etAl = " et al."
	}
	authorStr := strings.Join(authors, ", ") + etAl
	if authorStr == "" {
		authorStr = "Unknown Authors"
	}
	year := "n.d."
	if strings.TrimSpace(c.Year) != "" {
		year = strings.TrimSpace(c.Year)
	}
	title := c.Title
	if title == "" {
		title = "Untitled"
	}
	tail := ""
	if c.DOI != "" {
		tail = fmt.Sprintf(" doi:%s", c.DOI)
	}
	if c.Journal != "" {
		return fmt.Sprintf("%s (%s). %s. %s.%s", authorStr, year, title, c.Journal, tail)
	}
	return fmt.Sprintf("%s (%s). %s.%s", authorStr, year, title, tail)
}
