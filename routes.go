package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"retraction-check/config"
	"retraction-check/models"
	"retraction-check/services"
	"retraction-check/storage"
)

// archiver is implemented by *storage.ExportArchive.
type archiver interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
	Rotate(ctx context.Context) (int, error)
}

type api struct {
	cfg       *config.Config
	pipeline  *services.Pipeline
	snapshots *services.SnapshotCache
	archive   archiver
	log       *zap.Logger
}

type matchForm struct {
	Fuzzy     bool     `form:"fuzzy"`
	Threshold *float64 `form:"threshold"`
	Archive   bool     `form:"archive"`
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func newRouter(a *api) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(apiKeyAuthMiddleware(a.cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupHealthRoutes(router, a.snapshots)
	setupSnapshotRoutes(router, a.snapshots, a.log)
	setupMatchRoutes(router, a)
	return router
}

func setupHealthRoutes(router *gin.Engine, snapshots *services.SnapshotCache) {
	router.GET("/health", func(c *gin.Context) {
		resp := gin.H{"status": "ok", "snapshot_loaded": false}
		if snap, ok := snapshots.Current(); ok {
			resp["snapshot_loaded"] = true
			resp["snapshot_downloaded_on"] = snap.Meta().DownloadedOn
		}
		c.JSON(http.StatusOK, resp)
	})
}

func setupSnapshotRoutes(router *gin.Engine, snapshots *services.SnapshotCache, log *zap.Logger) {
	router.GET("/snapshot", func(c *gin.Context) {
		snap, err := snapshots.Get(c.Request.Context())
		if err != nil {
			log.Error("Snapshot unavailable", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snap.Meta())
	})
}

func setupMatchRoutes(router *gin.Engine, a *api) {
	rg := router.Group("/matches")

	// POST - Run a reconciliation and return the deduplicated results
	rg.POST("", func(c *gin.Context) {
		result, _, ok := a.run(c)
		if !ok {
			return
		}
		matches := make(map[models.Strategy][]services.MatchRow, len(models.Strategies))
		for _, s := range models.Strategies {
			matches[s] = services.DisplayRows(result.DisplayFor(s))
		}
		c.JSON(http.StatusOK, gin.H{
			"run_id":     result.RunID,
			"snapshot":   result.Snapshot,
			"summary":    result.Summary,
			"matches":    matches,
			"candidates": result.Candidates,
		})
	})

	// POST - Run a reconciliation and download every match as CSV
	rg.POST("/export", func(c *gin.Context) {
		result, form, ok := a.run(c)
		if !ok {
			return
		}

		var buf bytes.Buffer
		if err := services.WriteExportCSV(&buf, result.Export()); err != nil {
			a.log.Error("Failed to write export", zap.String("run_id", result.RunID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write export"})
			return
		}

		if form.Archive {
			link, err := a.archive.Upload(c.Request.Context(), storage.ObjectName(result.RunID, time.Now()), buf.Bytes())
			if err != nil {
				a.log.Error("Failed to archive export", zap.String("run_id", result.RunID), zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to archive export"})
				return
			}
			c.Header("X-Archive-Location", link)
			if deleted, err := a.archive.Rotate(c.Request.Context()); err != nil {
				a.log.Warn("Export rotation incomplete", zap.Int("count", deleted), zap.Error(err))
			}
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.ExportFileName))
		c.Header("X-Run-ID", result.RunID)
		c.Header("X-Fuzzy-Elapsed", result.Summary.FuzzyElapsed.String())
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	})
}

// run binds the upload form and executes the pipeline. It writes the error
// response itself and reports false when the request is done.
func (a *api) run(c *gin.Context) (*services.RunResult, matchForm, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.cfg.MaxUploadBytes)

	var form matchForm
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit)})
			return nil, form, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form: " + err.Error()})
		return nil, form, false
	}

	threshold := a.cfg.FuzzyThreshold
	if form.Threshold != nil {
		threshold = *form.Threshold
	}
	if threshold < 0 || threshold > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be between 0 and 100"})
		return nil, form, false
	}
	if form.Archive && a.archive == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Export archive is not configured"})
		return nil, form, false
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A RIS file is required in the 'file' field"})
		return nil, form, false
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
		return nil, form, false
	}
	defer f.Close()

	a.log.Info("Starting run",
		zap.String("file", header.Filename),
		zap.Int64("size", header.Size),
		zap.Bool("fuzzy", form.Fuzzy),
		zap.Float64("threshold", threshold))

	result, err := a.pipeline.Run(c.Request.Context(), f, services.RunOptions{Fuzzy: form.Fuzzy, Threshold: threshold})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return nil, form, false
	}
	return result, form, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUpload):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSnapshot):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
