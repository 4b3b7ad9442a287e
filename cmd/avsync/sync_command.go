package main

import (
	"github.com/spf13/cobra"

	"github.com/himanishpuri/AVSync/pkg/avsync"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var noBeep bool

	cmd := &cobra.Command{
		Use:   "sync <first> <second>",
		Short: "Align two recordings and write trimmed copies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []avsync.Option
			if noBeep {
				opts = append(opts, avsync.WithoutBeepDetection())
			}
			return ctx.withService(func(svc avsync.Service) error {
				res, err := svc.SyncPair(cmd.Context(), args[0], args[1])
				printPairResult(cmd.OutOrStdout(), res)
				return err
			}, opts...)
		},
	}
	cmd.Flags().BoolVar(&noBeep, "no-beep", false, "Disable the calibration-beep fallback")
	return cmd
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <first> <second>",
		Short: "Resolve the offset and trim plan without writing outputs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc avsync.Service) error {
				res, err := svc.Analyze(cmd.Context(), args[0], args[1])
				printPairResult(cmd.OutOrStdout(), res)
				return err
			})
		},
	}
}
