package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"retraction-check/models"
)

type fakeSource struct {
	records []models.ReferenceRecord
	err     error
	release chan struct{}
	calls   atomic.Int32
}

func (f *fakeSource) Name() string     { return "fake" }
func (f *fakeSource) Location() string { return "memory://fake" }

func (f *fakeSource) Fetch(ctx context.Context) ([]models.ReferenceRecord, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func referenceRows() []models.ReferenceRecord {
	return []models.ReferenceRecord{
		{RecordID: "101", Title: "Effects of X on Y rats", OriginalPaperDOI: "10.1/x", RetractionNature: "Retraction", Reason: "+Duplication of Image;"},
		{RecordID: "102", Title: "Erratum", OriginalPaperDOI: "10.2/erratum", RetractionNature: "Correction"},
		{RecordID: "103", Title: "A Survey of Gradient Methods in Deep Networks", OriginalPaperDOI: "10.3/survey", RetractionNature: "Retraction"},
		{RecordID: "104", Title: "Unrelated Results on Soil Chemistry", OriginalPaperDOI: "", RetractionNature: "Expression of concern"},
	}
}

func candidate(index int, doi, title string) models.CandidateRecord {
	return models.CandidateRecord{Index: index, Type: "JOUR", DOI: doi, Title: title}
}
