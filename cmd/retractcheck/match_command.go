package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"retraction-check/models"
	"retraction-check/services"
	"retraction-check/storage"
)

type matchOutput struct {
	RunID      string                                  `json:"run_id"`
	Snapshot   models.SnapshotMeta                     `json:"snapshot"`
	Summary    services.Summary                        `json:"summary"`
	Matches    map[models.Strategy][]services.MatchRow `json:"matches"`
	Candidates []models.CandidateRecord                `json:"candidates,omitempty"`
	ExportPath string                                  `json:"export_path,omitempty"`
	ExportRows int                                     `json:"export_rows,omitempty"`
	Archive    string                                  `json:"archive,omitempty"`
}

var strategyHeadings = map[models.Strategy]string{
	models.StrategyIdentifier: "DOI matches",
	models.StrategyTitleExact: "Exact title matches",
	models.StrategyTitleFuzzy: "Fuzzy title matches",
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var fuzzy bool
	var threshold float64
	var exportPath string
	var listRecords bool
	var archive bool

	cmd := &cobra.Command{
		Use:   "match FILE",
		Short: "Match a RIS file against retracted publications",
		Long: `Match a RIS file against retracted publications.

Records are matched by normalized DOI and by exact normalized title. With
--fuzzy every eligible title is also compared with every distinct title in
the dataset; this is slow on large libraries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.FuzzyThreshold
			}
			if threshold < 0 || threshold > 100 {
				return fmt.Errorf("threshold must be between 0 and 100, got %g", threshold)
			}
			if archive && !cfg.ExportArchiveEnabled() {
				return fmt.Errorf("%w, set EXPORT_S3_URL, EXPORT_S3_BUCKET, EXPORT_S3_KEY and EXPORT_S3_SECRET", storage.ErrArchiveDisabled)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open upload: %w", err)
			}
			defer f.Close()

			cache, err := ctx.snapshotCache()
			if err != nil {
				return err
			}
			pipeline := services.NewPipeline(cache, ctx.log(), nil)

			if fuzzy && !ctx.JSONMode() {
				fmt.Fprintf(cmd.ErrOrStderr(), "Fuzzy title matching enabled (threshold %g), this may take a while...\n", threshold)
			}
			result, err := pipeline.Run(cmd.Context(), f, services.RunOptions{Fuzzy: fuzzy, Threshold: threshold})
			if err != nil {
				return err
			}

			records := result.Export()
			var csvData bytes.Buffer
			if err := services.WriteExportCSV(&csvData, records); err != nil {
				return err
			}
			exportRows := 0
			if exportPath != "" {
				if err := os.WriteFile(exportPath, csvData.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				exportRows = len(records)
			}
			var archiveLink string
			if archive {
				archiveLink, err = archiveExport(cmd.Context(), ctx, result.RunID, csvData.Bytes())
				if err != nil {
					return err
				}
			}

			if ctx.JSONMode() {
				out := matchOutput{
					RunID:      result.RunID,
					Snapshot:   result.Snapshot,
					Summary:    result.Summary,
					Matches:    make(map[models.Strategy][]services.MatchRow, len(models.Strategies)),
					ExportPath: exportPath,
					ExportRows: exportRows,
					Archive:    archiveLink,
				}
				for _, s := range models.Strategies {
					out.Matches[s] = services.DisplayRows(result.DisplayFor(s))
				}
				if listRecords {
					out.Candidates = result.Candidates
				}
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			renderMatchResult(w, result)
			if listRecords {
				renderCandidates(w, result.Candidates)
			}
			if exportPath != "" {
				fmt.Fprintf(w, "\nExport: %d rows written to %s\n", exportRows, exportPath)
			}
			if archiveLink != "" {
				fmt.Fprintf(w, "Archived: %s\n", archiveLink)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "Also match titles by token-set similarity")
	cmd.Flags().Float64Var(&threshold, "threshold", services.DefaultFuzzyThreshold, "Minimum fuzzy score, 0-100")
	cmd.Flags().StringVarP(&exportPath, "export", "o", "", "Write every match to a CSV file")
	cmd.Flags().BoolVar(&listRecords, "list", false, "List the uploaded records")
	cmd.Flags().BoolVar(&archive, "archive", false, "Upload the CSV export to the configured S3 archive")

	return cmd
}

func archiveExport(ctx context.Context, cc *commandContext, runID string, data []byte) (string, error) {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return "", err
	}
	archive, err := storage.OpenExportArchive(ctx, cfg, cc.log())
	if err != nil {
		return "", fmt.Errorf("open export archive: %w", err)
	}
	link, err := archive.Upload(ctx, storage.ObjectName(runID, time.Now()), data)
	if err != nil {
		return "", err
	}
	if deleted, err := archive.Rotate(ctx); err != nil {
		cc.log().Warn("Export rotation incomplete", zap.Int("count", deleted), zap.Error(err))
	}
	return link, nil
}

func renderMatchResult(w io.Writer, result *services.RunResult) {
	meta := result.Snapshot
	fmt.Fprintf(w, "Reference dataset: %s (downloaded %s)\n", meta.Source, meta.DownloadedOn)
	fmt.Fprintf(w, "Records in dataset: %d, unique DOIs: %d\n\n", meta.Records, meta.UniqueDOIs)

	s := result.Summary
	rows := [][]string{
		{"Records", strconv.Itoa(s.Records)},
		{"Missing DOI", strconv.Itoa(s.MissingDOI)},
		{"Missing title", strconv.Itoa(s.MissingTitle)},
		{"Eligible titles", strconv.Itoa(s.EligibleTitles)},
	}
	for _, st := range models.Strategies {
		if st == models.StrategyTitleFuzzy && !s.FuzzyEnabled {
			continue
		}
		rows = append(rows, []string{strategyHeadings[st], strconv.Itoa(s.Matches[st])})
	}
	rows = append(rows, []string{"Export rows", strconv.Itoa(s.ExportRows)})
	fmt.Fprintln(w, renderTable([]string{"Check", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	for _, st := range models.Strategies {
		if st == models.StrategyTitleFuzzy && !s.FuzzyEnabled {
			continue
		}
		renderStrategy(w, st, services.DisplayRows(result.DisplayFor(st)))
	}
	if s.FuzzyEnabled {
		fmt.Fprintf(w, "\nFuzzy matching took %s (threshold %g)\n", s.FuzzyElapsed.Round(time.Millisecond), s.FuzzyThreshold)
	}
}

func renderStrategy(w io.Writer, st models.Strategy, rows []services.MatchRow) {
	fmt.Fprintf(w, "\n%s (%d)\n", strategyHeadings[st], len(rows))
	if len(rows) == 0 {
		fmt.Fprintln(w, "No matches.")
		return
	}

	headers := []string{"#", "Record ID", "Title", "Nature", "DOI"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}
	if st == models.StrategyTitleFuzzy {
		headers = append(headers, "Score")
		aligns = append(aligns, alignRight)
	}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := []string{strconv.Itoa(r.CandidateIndex), r.RecordID, r.Title, r.RetractionNature, r.DOIURL}
		if st == models.StrategyTitleFuzzy {
			row = append(row, strconv.FormatFloat(r.Score, 'f', 2, 64))
		}
		cells = append(cells, row)
	}
	fmt.Fprintln(w, renderTable(headers, cells, aligns))
}

func renderCandidates(w io.Writer, candidates []models.CandidateRecord) {
	fmt.Fprintf(w, "\nUploaded records (%d)\n", len(candidates))
	for _, c := range candidates {
		flags := make([]string, 0, 2)
		if !c.HasDOI() {
			flags = append(flags, "no DOI")
		}
		if !c.TitleEligible {
			flags = append(flags, "title not matchable")
		}
		line := fmt.Sprintf("  [%d] %s", c.Index, services.FormatReference(c))
		if len(flags) > 0 {
			line += " (" + strings.Join(flags, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
}
