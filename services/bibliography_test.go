package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retraction-check/models"
)

func TestFormatReference(t *testing.T) {
	c := models.CandidateRecord{
		Authors: []string{"Doe, J.", "Roe, R."},
		Year:    "2019",
		Title:   "Effects of X on Y",
		Journal: "Journal of Examples",
		DOI:     "10.1/x",
	}
	assert.Equal(t, "Doe, J., Roe, R. (2019). Effects of X on Y. Journal of Examples. doi:10.1/x", FormatReference(c))
}

func TestFormatReferenceFallbacks(t *testing.T) {
	assert.Equal(t, "Unknown Authors (n.d.). Untitled.", FormatReference(models.CandidateRecord{}))

	many := models.CandidateRecord{Authors: []string{"A", "B", "C", "D", "E", "F", "G"}, Title: "T"}
	assert.Equal(t, "A, B, C, D, E, F et al. (n.d.). T.", FormatReference(many))
}
