package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"retraction-check/config"
	"retraction-check/metrics"
	"retraction-check/providers/retractionwatch"
	"retraction-check/services"
	"retraction-check/storage"
)

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, cfgErr := config.Load()

	logging, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	if cfgErr != nil {
		logging.Fatal("Config load error", zap.Error(cfgErr))
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Reference dataset, fetched lazily and reused until the TTL expires
	fetcher := retractionwatch.NewFetcher(cfg, logging)
	snapshots := services.NewSnapshotCache(fetcher, cfg.SnapshotTTL, logging,
		services.WithMetrics(m),
		services.WithMinTitleLength(cfg.MinTitleLength))
	pipeline := services.NewPipeline(snapshots, logging, m)

	a := &api{cfg: cfg, pipeline: pipeline, snapshots: snapshots, log: logging}
	if cfg.ExportArchiveEnabled() {
		archive, err := storage.OpenExportArchive(context.Background(), cfg, logging)
		if err != nil {
			logging.Fatal("Export archive setup failed", zap.Error(err))
		}
		a.archive = archive
		logging.Info("Export archive enabled",
			zap.String("bucket", cfg.ExportS3Bucket),
			zap.String("prefix", cfg.ExportS3Prefix),
			zap.Int("keep", cfg.ExportKeep))
	}

	router := newRouter(a)

	logging.Info("Starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("source", fetcher.Name()),
		zap.String("url", fetcher.Location()),
		zap.Duration("snapshot_ttl", cfg.SnapshotTTL))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       60 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// fuzzy matching runs inside the request
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}
