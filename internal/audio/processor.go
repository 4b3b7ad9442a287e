package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/himanishpuri/AVSync/pkg/models"
)

const DefaultSampleRate = 44100

// Runner executes an external binary and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the binary with exec.CommandContext.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Extractor pulls a mono PCM signal out of a video container with ffmpeg.
type Extractor struct {
	FFmpeg     string
	SampleRate int
	Timeout    time.Duration
	Run        Runner
}

func (e *Extractor) binary() string {
	if b := strings.TrimSpace(e.FFmpeg); b != "" {
		return b
	}
	return "ffmpeg"
}

func (e *Extractor) rate() int {
	if e.SampleRate > 0 {
		return e.SampleRate
	}
	return DefaultSampleRate
}

// Args returns the ffmpeg arguments that decode videoPath into a mono s16le WAV
// at the extractor's sample rate. limitSec > 0 stops decoding after that many seconds.
func (e *Extractor) Args(videoPath, outPath string, limitSec float64) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
	}
	if limitSec > 0 {
		args = append(args, "-t", strconv.FormatFloat(limitSec, 'f', 3, 64))
	}
	args = append(args,
		"-i", videoPath,
		"-vn", // no video
		"-sn",
		"-dn",
		"-ac", "1", // mono
		"-ar", strconv.Itoa(e.rate()),
		"-c:a", "pcm_s16le",
		outPath,
	)
	return args
}

// Extract decodes the audio of videoPath into dir and loads it. The
// intermediate WAV is removed before returning.
func (e *Extractor) Extract(ctx context.Context, videoPath, dir string, limitSec float64) (models.AudioSignal, error) {
	if e.Timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.Timeout)
			defer cancel()
		}
	}

	if _, err := os.Stat(videoPath); err != nil {
		return models.AudioSignal{}, models.Wrap(models.ErrExtraction, "extract", "stat", videoPath, err)
	}

	outPath := filepath.Join(dir, uuid.NewString()+".wav")
	defer os.Remove(outPath)

	run := e.Run
	if run == nil {
		run = ExecRunner
	}
	if out, err := run(ctx, e.binary(), e.Args(videoPath, outPath, limitSec)...); err != nil {
		if ctx.Err() != nil {
			return models.AudioSignal{}, models.Wrap(models.ErrExtraction, "extract", "ffmpeg", videoPath, ctx.Err())
		}
		return models.AudioSignal{}, models.Wrap(models.ErrExtraction, "extract", "ffmpeg",
			fmt.Sprintf("%s (%s)", videoPath, strings.TrimSpace(string(out))), err)
	}

	sig, err := ReadWAV(outPath)
	if err != nil {
		return models.AudioSignal{}, models.Wrap(models.ErrExtraction, "extract", "decode", videoPath, err)
	}
	if len(sig.Samples) == 0 {
		return models.AudioSignal{}, models.Wrap(models.ErrExtraction, "extract", "decode", videoPath+": no audio samples", nil)
	}
	if sig.SampleRate != e.rate() {
		return models.AudioSignal{}, models.Wrap(models.ErrExtraction, "extract", "decode",
			fmt.Sprintf("%s: sample rate %d, expected %d", videoPath, sig.SampleRate, e.rate()), nil)
	}
	return sig, nil
}
