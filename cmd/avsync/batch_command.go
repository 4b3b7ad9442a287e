package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/AVSync/pkg/avsync"
)

const lockFileName = ".avsync.lock"

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var pairsFile string
	var workers int

	cmd := &cobra.Command{
		Use:   "batch [first second]...",
		Short: "Sync many pairs with bounded parallelism",
		Long: "Pairs come from --pairs (one \"first,second\" or \"first second\" per line, # comments)\n" +
			"or from an even number of positional arguments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := collectPairs(pairsFile, args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lockDir := cfg.Paths.OutputDir
			if lockDir == "" {
				if lockDir, err = os.Getwd(); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(lockDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			lock := flock.New(filepath.Join(lockDir, lockFileName))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another batch is writing to %s", lockDir)
			}
			defer lock.Unlock()

			var opts []avsync.Option
			if workers > 0 {
				opts = append(opts, avsync.WithWorkers(workers))
			}
			return ctx.withService(func(svc avsync.Service) error {
				results := svc.SyncBatch(cmd.Context(), pairs)
				printBatchResults(cmd.OutOrStdout(), results)

				failed := 0
				for _, res := range results {
					if avsync.StatusOf(res) == "failed" {
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d pairs failed", failed, len(results))
				}
				return cmd.Context().Err()
			}, opts...)
		},
	}

	cmd.Flags().StringVarP(&pairsFile, "pairs", "p", "", "File listing pairs to sync")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent pairs (overrides batch.workers)")
	return cmd
}

func collectPairs(pairsFile string, args []string) ([]avsync.Pair, error) {
	var pairs []avsync.Pair
	if pairsFile != "" {
		f, err := os.Open(pairsFile)
		if err != nil {
			return nil, fmt.Errorf("open pairs file: %w", err)
		}
		defer f.Close()
		if pairs, err = parsePairs(f); err != nil {
			return nil, fmt.Errorf("%s: %w", pairsFile, err)
		}
	}
	if len(args)%2 != 0 {
		return nil, errors.New("positional arguments must come in pairs")
	}
	for i := 0; i < len(args); i += 2 {
		pairs = append(pairs, avsync.Pair{First: args[i], Second: args[i+1]})
	}
	if len(pairs) == 0 {
		return nil, errors.New("no pairs given")
	}
	return pairs, nil
}

func parsePairs(r io.Reader) ([]avsync.Pair, error) {
	var pairs []avsync.Pair
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var fields []string
		if first, second, ok := strings.Cut(line, ","); ok {
			fields = []string{strings.TrimSpace(first), strings.TrimSpace(second)}
		} else {
			fields = strings.Fields(line)
		}
		if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
			return nil, fmt.Errorf("line %d: expected two paths, got %q", lineNo, line)
		}
		pairs = append(pairs, avsync.Pair{First: fields[0], Second: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}
