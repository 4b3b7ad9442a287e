package audio_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/AVSync/internal/audio"
	"github.com/himanishpuri/AVSync/internal/testsupport"
	"github.com/himanishpuri/AVSync/pkg/models"
)

func TestExtractWithFakeTranscoder(t *testing.T) {
	dir := t.TempDir()
	fake := testsupport.NewFakeTranscoder()
	input := filepath.Join(dir, "front.mp4")
	sig := testsupport.AddTone(testsupport.Silence(8000, 2), 440, 0.5, 0, 2)
	fake.AddSource(t, input, testsupport.FakeSource{Signal: sig, Duration: 2})

	ext := &audio.Extractor{SampleRate: 8000, Run: fake.Run}
	got, err := ext.Extract(context.Background(), input, dir, 0)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got.SampleRate != 8000 {
		t.Errorf("expected rate 8000, got %d", got.SampleRate)
	}
	if len(got.Samples) != len(sig.Samples) {
		t.Fatalf("expected %d samples, got %d", len(sig.Samples), len(got.Samples))
	}
	for i := 0; i < len(sig.Samples); i += 97 {
		if math.Abs(got.Samples[i]-sig.Samples[i]) > 1e-3 {
			t.Fatalf("sample %d: expected %f, got %f", i, sig.Samples[i], got.Samples[i])
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".wav" {
			t.Errorf("intermediate WAV %s was not removed", e.Name())
		}
	}
}

func TestExtractHonoursLimit(t *testing.T) {
	dir := t.TempDir()
	fake := testsupport.NewFakeTranscoder()
	input := filepath.Join(dir, "long.mp4")
	fake.AddSource(t, input, testsupport.FakeSource{Signal: testsupport.Noise(8000, 5, 0.3, 1), Duration: 5})

	ext := &audio.Extractor{SampleRate: 8000, Run: fake.Run}
	got, err := ext.Extract(context.Background(), input, dir, 1.5)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got.DurationSec() != 1.5 {
		t.Errorf("expected 1.5s of audio, got %f", got.DurationSec())
	}
	calls := fake.CallsTo("ffmpeg")
	if len(calls) != 1 {
		t.Fatalf("expected 1 ffmpeg call, got %d", len(calls))
	}
}

func TestExtractErrors(t *testing.T) {
	dir := t.TempDir()
	fake := testsupport.NewFakeTranscoder()

	failing := filepath.Join(dir, "broken.mp4")
	fake.AddSource(t, failing, testsupport.FakeSource{FailWith: errors.New("exit status 1")})

	empty := filepath.Join(dir, "empty.mp4")
	fake.AddSource(t, empty, testsupport.FakeSource{Signal: models.AudioSignal{SampleRate: 8000}})

	tests := []struct {
		name  string
		input string
	}{
		{name: "Missing input", input: filepath.Join(dir, "nope.mp4")},
		{name: "Transcoder failure", input: failing},
		{name: "No audio samples", input: empty},
	}

	ext := &audio.Extractor{SampleRate: 8000, Run: fake.Run}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ext.Extract(context.Background(), tt.input, dir, 0)
			if err == nil {
				t.Fatal("expected error but got nil")
			}
			if !errors.Is(err, models.ErrExtraction) {
				t.Errorf("expected extraction error, got %v", err)
			}
		})
	}
}

func TestExtractCancelled(t *testing.T) {
	dir := t.TempDir()
	fake := testsupport.NewFakeTranscoder()
	input := filepath.Join(dir, "clip.mp4")
	fake.AddSource(t, input, testsupport.FakeSource{Signal: testsupport.Noise(8000, 1, 0.3, 2), Duration: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ext := &audio.Extractor{SampleRate: 8000, Run: fake.Run}
	_, err := ext.Extract(ctx, input, dir, 0)
	if !errors.Is(err, models.ErrExtraction) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancelled extraction error, got %v", err)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	sig := testsupport.AddTone(testsupport.Silence(16000, 0.5), 1000, 0.8, 0, 0.5)
	if err := audio.WriteWAV(path, sig); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}
	got, err := audio.ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if got.SampleRate != 16000 || len(got.Samples) != len(sig.Samples) {
		t.Fatalf("unexpected signal: rate %d, %d samples", got.SampleRate, len(got.Samples))
	}
}

func TestExtractRealFFmpeg(t *testing.T) {
	ffmpeg := testsupport.RequireBinary(t, "ffmpeg")
	dir := t.TempDir()

	wav := filepath.Join(dir, "source.wav")
	if err := audio.WriteWAV(wav, testsupport.AddTone(testsupport.Silence(22050, 1), 440, 0.5, 0, 1)); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	ext := &audio.Extractor{FFmpeg: ffmpeg, SampleRate: 16000}
	got, err := ext.Extract(context.Background(), wav, dir, 0)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got.SampleRate != 16000 {
		t.Errorf("expected rate 16000, got %d", got.SampleRate)
	}
	if d := got.DurationSec(); d < 0.95 || d > 1.05 {
		t.Errorf("expected about 1s of audio, got %f", d)
	}
}
