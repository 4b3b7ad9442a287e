package trim

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/AVSync/internal/audio"
	"github.com/himanishpuri/AVSync/pkg/models"
)

const (
	DefaultPreset = "medium"
	DefaultCRF    = 18
)

// Request describes one cut.
type Request struct {
	Input     string
	Output    string
	Start     float64 // seconds
	Duration  float64 // seconds; <= 0 keeps everything after Start
	Precision models.Precision
}

// Executor cuts recordings with ffmpeg and checks the result with ffprobe.
type Executor struct {
	FFmpeg  string
	Prober  *audio.Prober
	Timeout time.Duration
	Preset  string
	CRF     int
	Run     audio.Runner
}

func (e *Executor) binary() string {
	if b := strings.TrimSpace(e.FFmpeg); b != "" {
		return b
	}
	return "ffmpeg"
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Args returns the ffmpeg arguments for req.
func (e *Executor) Args(req Request) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(req.Start),
		"-i", req.Input,
	}
	if req.Duration > 0 {
		args = append(args, "-t", formatSeconds(req.Duration))
	}

	switch req.Precision {
	case models.PrecisionFrameAccurate:
		preset := e.Preset
		if preset == "" {
			preset = DefaultPreset
		}
		crf := e.CRF
		if crf <= 0 {
			crf = DefaultCRF
		}
		args = append(args,
			"-c:v", "libx264",
			"-preset", preset,
			"-crf", strconv.Itoa(crf),
			"-c:a", "aac",
			"-b:a", "192k",
		)
	default:
		args = append(args,
			"-c", "copy",
			"-avoid_negative_ts", "1",
		)
	}
	return append(args, req.Output)
}

// Trim runs one cut. Stream copies report their measured drift without
// failing; frame accurate cuts must land within one frame (or one time base
// unit, whichever is larger) of the requested duration.
func (e *Executor) Trim(ctx context.Context, req Request) (models.TrimResult, error) {
	if req.Precision == "" {
		req.Precision = models.PrecisionStreamCopy
	}
	result := models.TrimResult{
		OutputPath: req.Output,
		Start:      req.Start,
		Duration:   req.Duration,
		Precision:  req.Precision,
	}

	if !req.Precision.Valid() {
		return result, models.Wrap(models.ErrTrim, "trim", "", fmt.Sprintf("unknown precision %q", req.Precision), nil)
	}
	if req.Start < 0 {
		return result, models.Wrap(models.ErrTrim, "trim", "", fmt.Sprintf("negative start %.3f", req.Start), nil)
	}
	if samePath(req.Input, req.Output) {
		return result, models.Wrap(models.ErrTrim, "trim", "", "input and output paths must differ: "+req.Input, nil)
	}

	runCtx := ctx
	if e.Timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
			defer cancel()
		}
	}

	run := e.Run
	if run == nil {
		run = audio.ExecRunner
	}
	if out, err := run(runCtx, e.binary(), e.Args(req)...); err != nil {
		if runCtx.Err() != nil {
			return result, models.Wrap(models.ErrTrim, "trim", "ffmpeg", req.Input, runCtx.Err())
		}
		return result, models.Wrap(models.ErrTrim, "trim", "ffmpeg",
			fmt.Sprintf("%s (%s)", req.Input, strings.TrimSpace(string(out))), err)
	}

	if e.Prober == nil {
		return result, nil
	}
	meta, err := e.Prober.Probe(ctx, req.Output)
	if err != nil {
		if req.Precision == models.PrecisionFrameAccurate {
			return result, models.Wrap(models.ErrTrim, "trim", "verify", req.Output, err)
		}
		return result, nil
	}
	result.MeasuredDuration = meta.DurationSec
	if req.Precision != models.PrecisionFrameAccurate {
		return result, nil
	}
	if meta.DurationSec <= 0 {
		return result, models.Wrap(models.ErrTrim, "trim", "verify",
			fmt.Sprintf("%s: ffprobe reported no duration, cut cannot be verified", req.Output), nil)
	}

	if req.Duration > 0 {
		tolerance := Tolerance(meta)
		if drift := result.Drift(); drift > tolerance {
			return result, models.Wrap(models.ErrTrim, "trim", "verify",
				fmt.Sprintf("%s: duration %.3fs differs from requested %.3fs by more than %.4fs",
					req.Output, meta.DurationSec, req.Duration, tolerance), nil)
		}
	}
	return result, nil
}

// fallbackTolerance applies when the output reports neither frame rate nor time base.
const fallbackTolerance = 1.0 / 24

// Tolerance is the largest acceptable duration drift for a frame accurate cut.
func Tolerance(meta audio.Metadata) float64 {
	tol := math.Max(meta.FrameDuration(), meta.TimeBase)
	if tol <= 0 {
		return fallbackTolerance
	}
	return tol
}

func samePath(a, b string) bool {
	ca, errA := filepath.Abs(a)
	cb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ca == cb
}

// OutputPath returns dir/<stem><suffix><ext> for input.
func OutputPath(input, dir, suffix string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, stem+suffix+ext)
}
