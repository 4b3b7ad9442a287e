package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/himanishpuri/AVSync/internal/audio"
	"github.com/himanishpuri/AVSync/pkg/models"
)

// FakeSource describes what the fake transcoder returns for one input path.
type FakeSource struct {
	Signal    models.AudioSignal
	Duration  float64
	FrameRate string // e.g. "30/1"; defaults to "30/1"
	FailWith  error  // returned for every ffmpeg call reading this source
	// OutputDrift is added to the duration of outputs cut from this source.
	OutputDrift float64
}

// FakeTranscoder stands in for ffmpeg and ffprobe. Extraction calls write the
// configured signal as WAV to the requested output, trim calls write a
// placeholder file and remember the request, probe calls answer with JSON.
type FakeTranscoder struct {
	mu      sync.Mutex
	Sources map[string]FakeSource
	Calls   [][]string
}

func NewFakeTranscoder() *FakeTranscoder {
	return &FakeTranscoder{Sources: make(map[string]FakeSource)}
}

// AddSource registers path and creates an empty placeholder file for it.
func (f *FakeTranscoder) AddSource(t testing.TB, path string, src FakeSource) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sources[path] = src
}

// CallsTo returns the recorded argument lists of calls to binary.
func (f *FakeTranscoder) CallsTo(binary string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.Calls {
		if len(c) > 0 && c[0] == binary {
			out = append(out, c[1:])
		}
	}
	return out
}

// Run implements audio.Runner.
func (f *FakeTranscoder) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Calls = append(f.Calls, append([]string{name}, args...))
	f.mu.Unlock()

	if strings.Contains(filepath.Base(name), "ffprobe") {
		return f.probe(args)
	}
	return f.ffmpeg(args)
}

func (f *FakeTranscoder) source(path string) (FakeSource, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.Sources[path]
	return src, ok
}

func (f *FakeTranscoder) probe(args []string) ([]byte, error) {
	path := args[len(args)-1]
	src, ok := f.source(path)
	if !ok {
		return []byte("No such file"), errors.New("exit status 1")
	}
	rate := src.FrameRate
	if rate == "" {
		rate = "30/1"
	}
	payload := fmt.Sprintf(`{"format":{"filename":%q,"duration":"%.6f","format_name":"mov,mp4"},`+
		`"streams":[{"codec_type":"video","avg_frame_rate":%q,"time_base":"1/90000"},{"codec_type":"audio"}]}`,
		path, src.Duration, rate)
	return []byte(payload), nil
}

func (f *FakeTranscoder) ffmpeg(args []string) ([]byte, error) {
	input := argValue(args, "-i")
	output := args[len(args)-1]
	src, ok := f.source(input)
	if !ok {
		return []byte(input + ": No such file or directory"), errors.New("exit status 1")
	}
	if src.FailWith != nil {
		return []byte("fake failure"), src.FailWith
	}

	if strings.HasSuffix(output, ".wav") {
		sig := src.Signal
		if limit, err := strconv.ParseFloat(argValue(args, "-t"), 64); err == nil && limit > 0 {
			sig = sig.Truncate(limit)
		}
		if rate, err := strconv.Atoi(argValue(args, "-ar")); err == nil && rate != sig.SampleRate {
			return []byte("fake transcoder cannot resample"), errors.New("exit status 1")
		}
		if err := audio.WriteWAV(output, sig); err != nil {
			return []byte(err.Error()), err
		}
		return nil, nil
	}

	// Trim: the output is a container of the requested duration.
	dur, _ := strconv.ParseFloat(argValue(args, "-t"), 64)
	if err := os.WriteFile(output, []byte("trimmed"), 0o644); err != nil {
		return []byte(err.Error()), err
	}
	f.mu.Lock()
	if dur <= 0 {
		start, _ := strconv.ParseFloat(argValue(args, "-ss"), 64)
		dur = src.Duration - start
	}
	f.Sources[output] = FakeSource{Duration: dur + src.OutputDrift, FrameRate: src.FrameRate}
	f.mu.Unlock()
	return nil, nil
}

func argValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// RequireBinary skips the test when name is not on PATH.
func RequireBinary(t testing.TB, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not found on PATH", name)
	}
	return path
}
