package avsync

import (
	"context"

	"github.com/himanishpuri/AVSync/pkg/models"
)

type Service interface {
	// SyncPair aligns two recordings and, unless trimming is disabled, writes
	// both trimmed outputs.
	SyncPair(ctx context.Context, first, second string) (models.PairResult, error)
	// SyncBatch runs SyncPair over pairs with bounded parallelism. A failing
	// pair is recorded in its result and never stops the batch.
	SyncBatch(ctx context.Context, pairs []Pair) []models.PairResult
	// Analyze resolves the offset and plan for a pair without trimming.
	Analyze(ctx context.Context, first, second string) (models.PairResult, error)
	DetectBeep(ctx context.Context, path string) (models.BeepResult, error)
	// TrimToBeep cuts a single recording so that it starts at its calibration beep.
	TrimToBeep(ctx context.Context, path string) (models.TrimResult, error)
	DominantFrequencies(ctx context.Context, path string, n int) ([]Peak, error)
	Inspect(ctx context.Context, path, pngPath string) (Inspection, error)
	Close() error
}

// Journal receives one entry per finished pair. It is never read by the service.
type Journal interface {
	Record(entry models.JournalEntry) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
