package retractionwatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retraction-check/config"
)

const sampleCSV = "Record ID,Title,Journal,Author,urls,RetractionDate,OriginalPaperDOI,RetractionNature,Reason\n" +
	"101,\"Effects of X on Y, revisited\",J Ex,\"Doe, Jane\",https://example.test/a,1/2/2020,10.1000/ABC,Retraction,+Data fabrication;\n" +
	"102,Erratum,J Ex,Roe,,3/4/2021,unavailable,Correction,\n"

func testConfig(url string) *config.Config {
	return &config.Config{
		RetractionWatchURL:    url,
		RetractionWatchSource: "Retraction Watch public CSV",
		FetchTimeout:          5 * time.Second,
	}
}

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "101", first.RecordID)
	assert.Equal(t, "Effects of X on Y, revisited", first.Title)
	assert.Equal(t, "10.1000/ABC", first.OriginalPaperDOI)
	assert.Equal(t, "Retraction", first.RetractionNature)
	assert.Equal(t, "+Data fabrication;", first.Reason)
	assert.Equal(t, "Doe, Jane", first.Author)
	assert.Equal(t, "J Ex", first.Journal)
	assert.Empty(t, first.DOINorm, "parsing does not normalize")
}

func TestParseCSVRejectsMissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Record ID,Title\n1,Something\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseCSVRejectsMalformedRows(t *testing.T) {
	input := "Record ID,Title,OriginalPaperDOI,RetractionNature,Reason,Author,urls\n" +
		"1,\"unterminated,10.1/x,Retraction,,A,\n"
	_, err := ParseCSV(strings.NewReader(input))
	assert.Error(t, err)
}

func TestParseCSVRejectsHeaderOnly(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Record ID,Title,OriginalPaperDOI,RetractionNature,Reason,Author,urls\n"))
	assert.Error(t, err)
}

func TestFetchDownloadsDataset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	f := NewFetcher(testConfig(server.URL), zap.NewNop())
	records, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, server.URL, f.Location())
	assert.Equal(t, "Retraction Watch public CSV", f.Name())
}

func TestFetchFailsOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewFetcher(testConfig(server.URL), zap.NewNop())
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
