package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Download the reference dataset and show its metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.snapshotCache()
			if err != nil {
				return err
			}
			snap, err := cache.Get(cmd.Context())
			if err != nil {
				return err
			}
			meta := snap.Meta()
			if ctx.JSONMode() {
				return writeJSON(cmd, meta)
			}

			rows := [][]string{
				{"Source", meta.Source},
				{"URL", meta.URL},
				{"Downloaded", meta.DownloadedOn},
				{"Records", strconv.Itoa(meta.Records)},
				{"Unique DOIs", strconv.Itoa(meta.UniqueDOIs)},
				{"Ruleset", meta.Ruleset},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}
