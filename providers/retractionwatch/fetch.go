package retractionwatch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"retraction-check/config"
	"retraction-check/models"
)

const userAgent = "retraction-check/1.0 (+https://retractionwatch.com)"

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Column names of the Retraction Watch CSV.
const (
	colRecordID         = "Record ID"
	colTitle            = "Title"
	colOriginalPaperDOI = "OriginalPaperDOI"
	colRetractionNature = "RetractionNature"
	colReason           = "Reason"
	colAuthor           = "Author"
	colURLs             = "urls"
	colJournal          = "Journal"
	colRetractionDate   = "RetractionDate"
)

var requiredColumns = []string{
	colRecordID, colTitle, colOriginalPaperDOI, colRetractionNature, colReason, colAuthor, colURLs,
}

// userAgentTransport sets the User-Agent header on every request.
type userAgentTransport struct {
	Transport http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}

// Fetcher downloads the Retraction Watch dataset.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	client *http.Client
}

// NewFetcher creates a Retraction Watch fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		client: &http.Client{
			Timeout:   cfg.FetchTimeout,
			Transport: &userAgentTransport{Transport: http.DefaultTransport},
		},
	}
}

// Name returns the dataset label.
func (f *Fetcher) Name() string {
	return f.Config.RetractionWatchSource
}

// Location returns the dataset URL.
func (f *Fetcher) Location() string {
	return f.Config.RetractionWatchURL
}

// Fetch downloads and parses the full CSV. Any transport or format problem
// fails the whole download.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.ReferenceRecord, error) {
	log := f.Logger.With(zap.String("url", f.Location()))
	log.Info("Downloading Retraction Watch dataset.")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Location(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Error("Dataset download returned non-200 status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("download dataset: status %d", resp.StatusCode)
	}

	records, err := ParseCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	log.Info("Retraction Watch dataset downloaded", zap.Int("records", len(records)))
	return records, nil
}

// ParseCSV reads Retraction Watch rows. The header must contain every
// required column; Journal and RetractionDate are optional.
func ParseCSV(r io.Reader) ([]models.ReferenceRecord, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("retraction watch csv: empty file")
		}
		return nil, fmt.Errorf("retraction watch csv: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("retraction watch csv: %w %q", ErrMissingColumn, col)
		}
	}

	get := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []models.ReferenceRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("retraction watch csv: %w", err)
		}
		records = append(records, models.ReferenceRecord{
			RecordID:         get(row, colRecordID),
			Title:            get(row, colTitle),
			OriginalPaperDOI: get(row, colOriginalPaperDOI),
			RetractionNature: get(row, colRetractionNature),
			Reason:           get(row, colReason),
			Author:           get(row, colAuthor),
			URLs:             get(row, colURLs),
			Journal:          get(row, colJournal),
			RetractionDate:   get(row, colRetractionDate),
		})
	}
	if len(records) == 0 {
		return nil, errors.New("retraction watch csv: no data rows")
	}
	return records, nil
}
