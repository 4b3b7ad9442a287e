package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/AVSync/pkg/avsync"
	"github.com/himanishpuri/AVSync/pkg/models"
)

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3fs", v)
}

func formatOffset(v float64) string {
	return fmt.Sprintf("%+.3fs", v)
}

func methodLabel(r models.ResolvedOffset) string {
	if r.Unresolved {
		return "unresolved"
	}
	return string(r.Method)
}

func beepLabel(b models.BeepResult) string {
	if !b.Found {
		return "none"
	}
	return formatSeconds(b.Time)
}

// printPairResult writes a human-readable summary of one pair.
func printPairResult(out io.Writer, res models.PairResult) {
	fmt.Fprintf(out, "Run:      %s\n", res.RunID)
	fmt.Fprintf(out, "First:    %s\n", res.First)
	fmt.Fprintf(out, "Second:   %s\n", res.Second)
	for _, est := range res.Estimates {
		fmt.Fprintf(out, "Estimate: %-18s %s\n", est.Method, formatOffset(est.Seconds))
	}
	fmt.Fprintf(out, "Beeps:    %s / %s\n", beepLabel(res.Beeps[0]), beepLabel(res.Beeps[1]))
	for _, d := range res.Resolved.Discarded {
		fmt.Fprintf(out, "Discarded: %s %s (exceeds sanity bound)\n", d.Method, formatOffset(d.Seconds))
	}
	fmt.Fprintf(out, "Offset:   %s via %s (%s)\n",
		formatOffset(res.Resolved.Seconds), methodLabel(res.Resolved), res.Resolved.Leader())

	if res.Skipped {
		fmt.Fprintf(out, "Skipped:  %s\n", res.SkipReason)
		return
	}
	if res.Err != nil {
		fmt.Fprintf(out, "Error:    %v\n", res.Err)
	}
	if res.Plan.Duration > 0 {
		fmt.Fprintf(out, "Plan:     start %s / %s, duration %s\n",
			formatSeconds(res.Plan.Start1), formatSeconds(res.Plan.Start2), formatSeconds(res.Plan.Duration))
	}
	for _, o := range res.Outputs {
		line := fmt.Sprintf("Output:   %s (%s", o.OutputPath, o.Precision)
		if o.MeasuredDuration > 0 {
			line += ", drift " + formatOffset(o.Drift())
		}
		fmt.Fprintln(out, line+")")
	}
}

func batchRows(results []models.PairResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		offset := "-"
		if !res.Resolved.Unresolved && res.Resolved.Method != "" {
			offset = formatOffset(res.Resolved.Seconds)
		}
		duration := "-"
		if res.Plan.Duration > 0 {
			duration = formatSeconds(res.Plan.Duration)
		}
		note := res.SkipReason
		if res.Err != nil && note == "" {
			note = firstLine(res.Err.Error())
		}
		rows = append(rows, []string{
			filepath.Base(res.First),
			filepath.Base(res.Second),
			offset,
			methodLabel(res.Resolved),
			duration,
			avsync.StatusOf(res),
			note,
		})
	}
	return rows
}

func printBatchResults(out io.Writer, results []models.PairResult) {
	headers := []string{"First", "Second", "Offset", "Method", "Duration", "Status", "Note"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignLeft}
	fmt.Fprintln(out, renderTable(headers, batchRows(results), aligns))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
