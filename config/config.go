package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting read from the environment.
type Config struct {
	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	RetractionWatchURL    string        `envconfig:"RETRACTION_WATCH_URL" default:"https://gitlab.com/crossref/retraction-watch-data/-/raw/main/retraction_watch.csv"`
	RetractionWatchSource string        `envconfig:"RETRACTION_WATCH_SOURCE" default:"Retraction Watch public CSV"`
	SnapshotTTL           time.Duration `envconfig:"SNAPSHOT_TTL" default:"24h"`
	FetchTimeout          time.Duration `envconfig:"FETCH_TIMEOUT" default:"2m"`

	FuzzyThreshold float64 `envconfig:"FUZZY_THRESHOLD" default:"90"`
	MinTitleLength int     `envconfig:"MIN_TITLE_LENGTH" default:"10"`
	MaxUploadBytes int64   `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"`

	LogDevelopment bool `envconfig:"LOG_DEVELOPMENT" default:"false"`

	// Optional S3-compatible archive for CSV exports
	ExportS3URL    string `envconfig:"EXPORT_S3_URL"`
	ExportS3Region string `envconfig:"EXPORT_S3_REGION" default:"us-east-1"`
	ExportS3Key    string `envconfig:"EXPORT_S3_KEY"`
	ExportS3Secret string `envconfig:"EXPORT_S3_SECRET"`
	ExportS3Bucket string `envconfig:"EXPORT_S3_BUCKET"`
	ExportS3Prefix string `envconfig:"EXPORT_S3_PREFIX" default:"exports/"`
	ExportKeep     int    `envconfig:"EXPORT_KEEP" default:"20"`
}

// ExportArchiveEnabled reports whether the S3 export archive is configured.
func (c *Config) ExportArchiveEnabled() bool {
	return c.ExportS3URL != "" && c.ExportS3Bucket != "" && c.ExportS3Key != "" && c.ExportS3Secret != ""
}

// Validate checks value ranges envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		errs = append(errs, errors.New("FUZZY_THRESHOLD must be between 0 and 100"))
	}
	if c.SnapshotTTL <= 0 {
		errs = append(errs, errors.New("SNAPSHOT_TTL must be positive"))
	}
	if c.MinTitleLength < 0 {
		errs = append(errs, errors.New("MIN_TITLE_LENGTH must not be negative"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return &c, err
	}
	return &c, c.Validate()
}
