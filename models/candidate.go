package models

// CandidateRecord is one entry of an uploaded reference list.
type CandidateRecord struct {
	// Position of the record in the upload, starting at 0
	Index int `json:"index"`

	Type    string   `json:"type,omitempty"`
	DOI     string   `json:"doi,omitempty"`
	Title   string   `json:"primary_title,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Year    string   `json:"year,omitempty"`
	Journal string   `json:"journal,omitempty"`

	// Every tag of the source record, unmodified
	Fields map[string][]string `json:"fields,omitempty"`

	// Normalized join keys, empty when missing
	DOINorm       string `json:"doi_norm,omitempty"`
	TitleNorm     string `json:"title_norm,omitempty"`
	TitleEligible bool   `json:"title_eligible"`
}

// HasDOI reports whether the record carries a usable identifier.
func (c CandidateRecord) HasDOI() bool { return c.DOINorm != "" }

// HasTitle reports whether the record carries a normalized title.
func (c CandidateRecord) HasTitle() bool { return c.TitleNorm != "" }
