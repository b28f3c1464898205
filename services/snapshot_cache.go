package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"retraction-check/metrics"
	"retraction-check/models"
	"retraction-check/providers"
)

// ErrSnapshot wraps every failure to obtain the reference dataset.
var ErrSnapshot = errors.New("reference dataset unavailable")

// DefaultSnapshotTTL is how long a downloaded dataset is reused.
const DefaultSnapshotTTL = 24 * time.Hour

// BuildSnapshot normalizes raw reference rows into an immutable snapshot.
func BuildSnapshot(records []models.ReferenceRecord, source, url string, fetchedAt time.Time, minTitleLength int) *models.Snapshot {
	normalized := NormalizeReferences(records, minTitleLength)
	unique := make(map[string]struct{})
	for _, rec := range normalized {
		if rec.HasDOI() {
			unique[rec.DOINorm] = struct{}{}
		}
	}
	return &models.Snapshot{
		Records:        normalized,
		Source:         source,
		URL:            url,
		FetchedAt:      fetchedAt,
		Ruleset:        rulesetFor(minTitleLength),
		MinTitleLength: minTitleLength,
		UniqueDOIs:     len(unique),
	}
}

// SnapshotCache keeps the most recent snapshot for a bounded time. An expired
// snapshot is replaced wholesale by the next Get; concurrent callers share
// one download.
type SnapshotCache struct {
	source         providers.Source
	ttl            time.Duration
	minTitleLength int
	now            func() time.Time
	logger         *zap.Logger
	metrics        *metrics.Metrics

	mu      sync.RWMutex
	current *models.Snapshot
	group   singleflight.Group
}

// CacheOption configures a SnapshotCache.
type CacheOption func(*SnapshotCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *SnapshotCache) { c.now = now }
}

// WithMinTitleLength sets the title eligibility length used when building snapshots.
func WithMinTitleLength(n int) CacheOption {
	return func(c *SnapshotCache) { c.minTitleLength = n }
}

// WithMetrics records downloads in m.
func WithMetrics(m *metrics.Metrics) CacheOption {
	return func(c *SnapshotCache) { c.metrics = m }
}

// NewSnapshotCache creates an empty cache in front of source.
func NewSnapshotCache(source providers.Source, ttl time.Duration, logger *zap.Logger, opts ...CacheOption) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &SnapshotCache{
		source:         source,
		ttl:            ttl,
		minTitleLength: DefaultMinTitleLength,
		now:            time.Now,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached snapshot, downloading a new one when none is cached
// or the cached one expired. A failed download never returns stale data.
//
// Concurrent callers share one download. The download is detached from the
// caller's cancellation; a cancelled caller stops waiting while the others
// still receive the result.
func (c *SnapshotCache) Get(ctx context.Context) (*models.Snapshot, error) {
	if snap := c.fresh(); snap != nil {
		return snap, nil
	}
	ch := c.group.DoChan("snapshot", func() (any, error) {
		if snap := c.fresh(); snap != nil {
			return snap, nil
		}
		return c.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Snapshot), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrSnapshot, ctx.Err())
	}
}

// Current returns the cached snapshot without downloading, even when expired.
func (c *SnapshotCache) Current() (*models.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.current != nil
}

// Invalidate drops the cached snapshot so the next Get downloads again.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

func (c *SnapshotCache) fresh() *models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil || c.current.Expired(c.now(), c.ttl) {
		return nil
	}
	return c.current
}

func (c *SnapshotCache) refresh(ctx context.Context) (*models.Snapshot, error) {
	log := c.logger.With(zap.String("source", c.source.Name()), zap.String("url", c.source.Location()))
	start := time.Now()

	records, err := c.source.Fetch(ctx)
	if err != nil {
		c.metrics.SnapshotFetched(false, 0)
		log.Error("Reference dataset download failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrSnapshot, c.source.Name(), err)
	}

	snap := BuildSnapshot(records, c.source.Name(), c.source.Location(), c.now(), c.minTitleLength)

	c.mu.Lock()
	c.current = snap
	c.mu.Unlock()

	c.metrics.SnapshotFetched(true, len(snap.Records))
	log.Info("Reference dataset snapshot replaced",
		zap.Int("records", len(snap.Records)),
		zap.Int("unique_dois", snap.UniqueDOIs),
		zap.Duration("elapsed", time.Since(start)))
	return snap, nil
}
