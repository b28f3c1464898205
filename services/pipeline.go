package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"retraction-check/metrics"
	"retraction-check/models"
	"retraction-check/ris"
)

// DefaultFuzzyThreshold is the fuzzy score a title needs to count as a match.
const DefaultFuzzyThreshold = 90

// ErrUpload wraps every reason an uploaded reference list is rejected.
var ErrUpload = errors.New("upload rejected")

// RunOptions control a single reconciliation run.
type RunOptions struct {
	// Fuzzy enables the slow fuzzy title strategy.
	Fuzzy bool
	// Threshold is the minimum fuzzy score, 0-100.
	Threshold float64
}

// Summary holds the counts shown next to the results.
type Summary struct {
	Records        int                     `json:"records"`
	MissingDOI     int                     `json:"missing_doi"`
	MissingTitle   int                     `json:"missing_title"`
	EligibleTitles int                     `json:"eligible_titles"`
	Matches        map[models.Strategy]int `json:"matches"`
	ExportRows     int                     `json:"export_rows"`
	FuzzyEnabled   bool                    `json:"fuzzy_enabled"`
	FuzzyThreshold float64                 `json:"fuzzy_threshold"`
	FuzzyElapsed   time.Duration           `json:"fuzzy_elapsed_ns"`
}

// RunResult is everything one run produced. It is owned by the caller and
// never shared between runs.
type RunResult struct {
	RunID      string                   `json:"run_id"`
	Snapshot   models.SnapshotMeta      `json:"snapshot"`
	Candidates []models.CandidateRecord `json:"candidates"`
	Summary    Summary                  `json:"summary"`

	Identifier []models.MatchRecord `json:"-"`
	TitleExact []models.MatchRecord `json:"-"`
	TitleFuzzy []models.MatchRecord `json:"-"`
}

// ByStrategy returns the raw matches of one strategy.
func (r *RunResult) ByStrategy(s models.Strategy) []models.MatchRecord {
	switch s {
	case models.StrategyIdentifier:
		return r.Identifier
	case models.StrategyTitleExact:
		return r.TitleExact
	case models.StrategyTitleFuzzy:
		return r.TitleFuzzy
	}
	return nil
}

// Export returns every match of every strategy, duplicates included.
func (r *RunResult) Export() []models.MatchRecord {
	out := make([]models.MatchRecord, 0, len(r.Identifier)+len(r.TitleExact)+len(r.TitleFuzzy))
	for _, s := range models.Strategies {
		out = append(out, r.ByStrategy(s)...)
	}
	return out
}

// Display returns the matches with one row per (DOI, reference title, strategy).
func (r *RunResult) Display() []models.MatchRecord {
	return Deduplicate(r.Export())
}

// DisplayFor returns the deduplicated matches of one strategy.
func (r *RunResult) DisplayFor(s models.Strategy) []models.MatchRecord {
	return Deduplicate(r.ByStrategy(s))
}

// Deduplicate keeps the first match for every presentation key, in order.
func Deduplicate(records []models.MatchRecord) []models.MatchRecord {
	seen := make(map[models.DedupKey]bool, len(records))
	var out []models.MatchRecord
	for _, rec := range records {
		key := rec.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}

// Reconcile runs every strategy of one run over already parsed candidates.
// Candidates are normalized with the snapshot's title length so both sides
// follow the same rules. It does no I/O; the snapshot is only read.
func Reconcile(candidates []models.CandidateRecord, snap *models.Snapshot, opts RunOptions) *RunResult {
	normalized := NormalizeCandidates(candidates, snap.MinTitleLength)

	result := &RunResult{
		Snapshot:   snap.Meta(),
		Candidates: normalized,
		Summary: Summary{
			Records:      len(normalized),
			FuzzyEnabled: opts.Fuzzy,
		},
	}
	for _, c := range normalized {
		if !c.HasDOI() {
			result.Summary.MissingDOI++
		}
		if !c.HasTitle() {
			result.Summary.MissingTitle++
		}
		if c.TitleEligible {
			result.Summary.EligibleTitles++
		}
	}

	result.Identifier = MatchByIdentifier(normalized, snap.Records)
	result.TitleExact = MatchByExactTitle(normalized, snap.Records)
	if opts.Fuzzy {
		start := time.Now()
		result.TitleFuzzy = MatchByFuzzyTitle(normalized, snap.Records, opts.Threshold)
		result.Summary.FuzzyElapsed = time.Since(start)
		result.Summary.FuzzyThreshold = opts.Threshold
	}

	result.Summary.Matches = make(map[models.Strategy]int, len(models.Strategies))
	for _, s := range models.Strategies {
		result.Summary.Matches[s] = len(result.DisplayFor(s))
	}
	result.Summary.ExportRows = len(result.Identifier) + len(result.TitleExact) + len(result.TitleFuzzy)
	return result
}

// Pipeline turns an uploaded RIS file into a RunResult.
type Pipeline struct {
	Snapshots *SnapshotCache
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// NewPipeline creates a pipeline reading reference data from snapshots.
func NewPipeline(snapshots *SnapshotCache, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{Snapshots: snapshots, Logger: logger, Metrics: m}
}

// Run parses upload, loads the reference snapshot and reconciles the two.
// A malformed upload or an unavailable snapshot fails the run without
// partial results. With opts.Fuzzy the call blocks until fuzzy matching is
// done.
func (p *Pipeline) Run(ctx context.Context, upload io.Reader, opts RunOptions) (*RunResult, error) {
	runID := uuid.NewString()
	log := p.Logger.With(zap.String("run_id", runID))

	candidates, err := ris.ReadCandidates(upload)
	if err != nil {
		p.Metrics.RunFinished("rejected", 0)
		log.Warn("Upload rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}

	snap, err := p.Snapshots.Get(ctx)
	if err != nil {
		p.Metrics.RunFinished("failed", len(candidates))
		return nil, err
	}

	if opts.Fuzzy {
		log.Info("Fuzzy title matching enabled, this may take a while",
			zap.Int("candidates", len(candidates)),
			zap.Int("references", len(snap.Records)),
			zap.Float64("threshold", opts.Threshold))
	}

	result := Reconcile(candidates, snap, opts)
	result.RunID = runID

	for _, s := range models.Strategies {
		p.Metrics.MatchesFound(string(s), len(result.ByStrategy(s)))
	}
	if opts.Fuzzy {
		p.Metrics.FuzzyObserved(result.Summary.FuzzyElapsed)
	}
	p.Metrics.RunFinished("ok", len(candidates))

	log.Info("Run completed",
		zap.Int("records", result.Summary.Records),
		zap.Int("identifier", len(result.Identifier)),
		zap.Int("title_exact", len(result.TitleExact)),
		zap.Int("title_fuzzy", len(result.TitleFuzzy)),
		zap.Duration("fuzzy_elapsed", result.Summary.FuzzyElapsed))
	return result, nil
}
