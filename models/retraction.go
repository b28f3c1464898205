package models

// ReferenceRecord is one row of the Retraction Watch dataset.
type ReferenceRecord struct {
	RecordID         string `json:"record_id"`
	Title            string `json:"title"`
	OriginalPaperDOI string `json:"original_paper_doi,omitempty"`
	RetractionNature string `json:"retraction_nature,omitempty"`
	Reason           string `json:"reason,omitempty"`
	Author           string `json:"author,omitempty"`
	URLs             string `json:"urls,omitempty"`
	Journal          string `json:"journal,omitempty"`
	RetractionDate   string `json:"retraction_date,omitempty"`

	DOINorm       string `json:"doi_norm,omitempty"`
	TitleNorm     string `json:"title_norm,omitempty"`
	TitleEligible bool   `json:"title_eligible"`
}

// HasDOI reports whether the record carries a usable identifier.
func (r ReferenceRecord) HasDOI() bool { return r.DOINorm != "" }
