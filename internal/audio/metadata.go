package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Metadata is the subset of ffprobe output the sync pipeline needs.
type Metadata struct {
	Filename    string
	DurationSec float64
	HasAudio    bool
	HasVideo    bool
	FrameRate   float64 // frames per second of the first video stream, 0 if unknown
	TimeBase    float64 // seconds per tick of the first video stream, 0 if unknown
	Format      string
}

// FrameDuration is the length of one video frame in seconds, or 0 if unknown.
func (m Metadata) FrameDuration() float64 {
	if m.FrameRate <= 0 {
		return 0
	}
	return 1 / m.FrameRate
}

type ffprobeOutput struct {
	Format struct {
		Filename string `json:"filename"`
		Duration string `json:"duration"`
		Format   string `json:"format_name"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	Duration     string `json:"duration"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	TimeBase     string `json:"time_base"`
}

// Prober inspects containers with ffprobe.
type Prober struct {
	FFprobe string
	Timeout time.Duration
	Run     Runner
}

// Probe returns container metadata for path.
func (p *Prober) Probe(ctx context.Context, path string) (Metadata, error) {
	if p.Timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}
	}

	binary := strings.TrimSpace(p.FFprobe)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Metadata{}, errors.New("ffprobe: empty path")
	}

	run := p.Run
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, binary,
		"-v", "error",
		"-hide_banner",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"--", path,
	)
	if err != nil {
		if ctx.Err() != nil {
			return Metadata{}, ctx.Err()
		}
		return Metadata{}, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return parseProbe(path, out)
}

func parseProbe(path string, out []byte) (Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return Metadata{}, fmt.Errorf("ffprobe parse: %w", err)
	}

	meta := Metadata{
		Filename:    filepath.Base(path),
		DurationSec: parseFloat(probe.Format.Duration),
		Format:      probe.Format.Format,
	}
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "audio":
			meta.HasAudio = true
		case "video":
			if meta.HasVideo {
				continue
			}
			meta.HasVideo = true
			meta.FrameRate = parseRatio(s.AvgFrameRate)
			if meta.FrameRate == 0 {
				meta.FrameRate = parseRatio(s.RFrameRate)
			}
			meta.TimeBase = parseRatio(s.TimeBase)
			if meta.DurationSec == 0 {
				meta.DurationSec = parseFloat(s.Duration)
			}
		}
	}
	return meta, nil
}

func parseFloat(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// parseRatio parses ffprobe rationals such as "30000/1001" or "1/90000".
func parseRatio(value string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return parseFloat(num)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}
