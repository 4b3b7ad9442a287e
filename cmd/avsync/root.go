package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	return newRootCommandWith(newCommandContext())
}

func newRootCommandWith(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "avsync",
		Short:         "Align and trim recordings of the same event by their audio",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVarP(&ctx.outputFlag, "output-dir", "o", "", "Directory for trimmed outputs")
	flags.StringVar(&ctx.precisionFlag, "precision", "", "Trim precision (stream_copy or frame_accurate)")
	flags.Float64Var(&ctx.thresholdDB, "threshold-db", 0, "Beep band energy threshold in dB (default from config, -30)")
	flags.StringVar(&ctx.freqRange, "freq-range", "", "Beep frequency band in Hz, e.g. 5000-7000")
	flags.Float64Var(&ctx.minDurationMs, "min-duration-ms", 0, "Minimum beep length in milliseconds")
	flags.Float64Var(&ctx.beepWindow, "beep-window", 0, "Seconds from the start searched for the beep")
	flags.Float64Var(&ctx.searchWindow, "search-window", 0, "Seconds of leading audio used for cross-correlation")
	flags.Float64Var(&ctx.sanityBound, "sanity-bound", 0, "Largest plausible cross-correlation offset in seconds")
	ctx.flags = flags

	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newBeepCommand(ctx))
	rootCmd.AddCommand(newToneCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
