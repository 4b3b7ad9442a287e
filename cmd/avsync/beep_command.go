package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AVSync/internal/analysis"
	"github.com/himanishpuri/AVSync/pkg/avsync"
)

func newBeepCommand(ctx *commandContext) *cobra.Command {
	var trim bool

	cmd := &cobra.Command{
		Use:   "beep <video>",
		Short: "Locate the calibration beep in a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return ctx.withService(func(svc avsync.Service) error {
				if !trim {
					res, err := svc.DetectBeep(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Beep at %s\n", formatSeconds(res.Time))
					return nil
				}
				res, err := svc.TrimToBeep(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Beep at %s, wrote %s (%s long)\n",
					formatSeconds(res.Start), res.OutputPath, formatSeconds(res.Duration))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&trim, "trim", false, "Write a copy that starts at the beep")
	return cmd
}

func newToneCommand(ctx *commandContext) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "tone <video>",
		Short: "List the dominant frequencies of a recording's beep window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc avsync.Service) error {
				peaks, err := svc.DominantFrequencies(cmd.Context(), args[0], count)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(peaks))
				for i, p := range peaks {
					rows = append(rows, []string{
						fmt.Sprintf("%d", i+1),
						fmt.Sprintf("%.1f", p.Frequency),
						fmt.Sprintf("%.4g", p.Magnitude),
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"#", "Hz", "Magnitude"}, rows,
					[]columnAlignment{alignRight, alignRight, alignRight}))
				if lo, hi, err := analysis.SuggestBand(peaks); err == nil {
					fmt.Fprintf(out, "Suggested beep band: %.0f-%.0f Hz\n", lo, hi)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "Number of peaks to list")
	return cmd
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var pngPath string

	cmd := &cobra.Command{
		Use:   "inspect <video>",
		Short: "Show metadata and beep diagnostics for a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc avsync.Service) error {
				info, err := svc.Inspect(cmd.Context(), args[0], pngPath)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				m := info.Metadata
				fmt.Fprintf(out, "File:       %s\n", m.Filename)
				fmt.Fprintf(out, "Format:     %s\n", m.Format)
				fmt.Fprintf(out, "Duration:   %s\n", formatSeconds(m.DurationSec))
				fmt.Fprintf(out, "Frame rate: %.3f fps\n", m.FrameRate)
				fmt.Fprintf(out, "Streams:    video=%s audio=%s\n", yesNo(m.HasVideo), yesNo(m.HasAudio))
				fmt.Fprintf(out, "Analysed:   %s\n", formatSeconds(info.AnalysedSec))
				if info.BeepErr != nil {
					fmt.Fprintf(out, "Beep:       error: %v\n", info.BeepErr)
				} else {
					fmt.Fprintf(out, "Beep:       %s\n", beepLabel(info.Beep))
				}
				if info.SpectrogramAt != "" {
					fmt.Fprintf(out, "Spectrogram: %s\n", info.SpectrogramAt)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pngPath, "png", "", "Render the analysed window as a spectrogram PNG")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
