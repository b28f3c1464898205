package models

import "time"

// DownloadedOnLayout formats the snapshot fetch time for display.
const DownloadedOnLayout = "2006-01-02 15:04:05 UTC"

// Snapshot is an immutable, fully normalized copy of the reference dataset.
type Snapshot struct {
	Records   []ReferenceRecord
	Source    string
	URL       string
	FetchedAt time.Time
	// Ruleset names the normalization rules every record went through
	Ruleset string
	// Title eligibility length the records were filtered with
	MinTitleLength int
	// Number of distinct normalized identifiers
	UniqueDOIs int
}

// SnapshotMeta is the display block describing a snapshot.
type SnapshotMeta struct {
	Source       string    `json:"source"`
	URL          string    `json:"source_url"`
	FetchedAt    time.Time `json:"fetched_at"`
	DownloadedOn string    `json:"downloaded_on"`
	Records      int       `json:"records"`
	UniqueDOIs   int       `json:"unique_dois"`
	Ruleset      string    `json:"ruleset"`
}

// Meta returns the display metadata of the snapshot.
func (s *Snapshot) Meta() SnapshotMeta {
	return SnapshotMeta{
		Source:       s.Source,
		URL:          s.URL,
		FetchedAt:    s.FetchedAt,
		DownloadedOn: s.FetchedAt.UTC().Format(DownloadedOnLayout),
		Records:      len(s.Records),
		UniqueDOIs:   s.UniqueDOIs,
		Ruleset:      s.Ruleset,
	}
}

// Expired reports whether the snapshot is older than ttl at now.
func (s *Snapshot) Expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(s.FetchedAt.Add(ttl))
}
