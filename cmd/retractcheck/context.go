package main

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"retraction-check/config"
	"retraction-check/providers"
	"retraction-check/providers/retractionwatch"
	"retraction-check/services"
)

type commandContext struct {
	jsonOutput bool
	verbose    bool
	datasetURL string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// source replaces the Retraction Watch fetcher when set
	source providers.Source
	logger *zap.Logger
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if url := strings.TrimSpace(c.datasetURL); url != "" {
			cfg.RetractionWatchURL = url
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) JSONMode() bool {
	return c.jsonOutput
}

func (c *commandContext) log() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	c.logger = zap.NewNop()
	if c.verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			c.logger = l
		}
	}
	return c.logger
}

func (c *commandContext) snapshotCache() (*services.SnapshotCache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	src := c.source
	if src == nil {
		src = retractionwatch.NewFetcher(cfg, c.log())
	}
	return services.NewSnapshotCache(src, cfg.SnapshotTTL, c.log(),
		services.WithMinTitleLength(cfg.MinTitleLength)), nil
}
