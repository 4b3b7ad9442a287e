package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AVSync/internal/storage"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pair outcomes from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.JournalPath == "" {
				return errors.New("journal disabled: set paths.journal_path")
			}
			client, err := storage.NewDBClient(cfg.Paths.JournalPath)
			if err != nil {
				return err
			}
			defer client.Close()

			entries, err := client.Recent(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Journal is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				method := e.Method
				if e.Unresolved {
					method = "unresolved"
				}
				rows = append(rows, []string{
					e.CreatedAt.Local().Format("2006-01-02 15:04"),
					filepath.Base(e.First),
					filepath.Base(e.Second),
					formatOffset(e.OffsetSec),
					method,
					e.Status,
					firstLine(e.Error),
				})
			}
			headers := []string{"When", "First", "Second", "Offset", "Method", "Status", "Error"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))

			counts, err := client.CountByStatus()
			if err != nil {
				return err
			}
			statuses := make([]string, 0, len(counts))
			for status := range counts {
				statuses = append(statuses, status)
			}
			sort.Strings(statuses)
			parts := make([]string, 0, len(statuses))
			for _, status := range statuses {
				parts = append(parts, fmt.Sprintf("%s=%d", status, counts[status]))
			}
			fmt.Fprintf(out, "Totals: %s\n", strings.Join(parts, " "))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}
