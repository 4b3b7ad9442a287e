package avsync_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/himanishpuri/AVSync/internal/testsupport"
	"github.com/himanishpuri/AVSync/pkg/avsync"
	"github.com/himanishpuri/AVSync/pkg/logger"
	"github.com/himanishpuri/AVSync/pkg/models"
)

// Two STFT strides at 16 kHz with a 1024/512 window.
const beepTolerance = 0.064

type memJournal struct {
	mu      sync.Mutex
	entries []models.JournalEntry
	closed  bool
}

func (j *memJournal) Record(e models.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) Close() error {
	j.closed = true
	return nil
}

func (j *memJournal) statuses() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Status)
	}
	return out
}

type fixture struct {
	fake    *testsupport.FakeTranscoder
	journal *memJournal
	dir     string
	tmp     string
	out     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		fake:    testsupport.NewFakeTranscoder(),
		journal: &memJournal{},
		dir:     dir,
		tmp:     filepath.Join(dir, "tmp"),
		out:     filepath.Join(dir, "out"),
	}
	if err := os.MkdirAll(f.tmp, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return f
}

func (f *fixture) service(t *testing.T, opts ...avsync.Option) avsync.Service {
	t.Helper()
	base := []avsync.Option{
		avsync.WithRunner(f.fake.Run),
		avsync.WithTempDir(f.tmp),
		avsync.WithOutputDir(f.out),
		avsync.WithJournal(f.journal),
		avsync.WithLogger(logger.Discard()),
		avsync.WithSampleRate(16000),
	}
	svc, err := avsync.NewService(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func (f *fixture) add(t *testing.T, name string, sig models.AudioSignal, duration float64) string {
	t.Helper()
	path := filepath.Join(f.dir, "in", name)
	f.fake.AddSource(t, path, testsupport.FakeSource{Signal: sig, Duration: duration})
	return path
}

func (f *fixture) assertTempClean(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.tmp)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected temp dir to be empty, found %d entries", len(entries))
	}
}

func mix(dst, src models.AudioSignal, at float64) {
	start := int(at * float64(dst.SampleRate))
	for i, v := range src.Samples {
		if start+i < len(dst.Samples) {
			dst.Samples[start+i] += v
		}
	}
}

// correlatedPair returns recordings whose shared content is a 1 kHz tone over
// noise, with the second recording starting shift seconds later.
func correlatedPair(rate int, shift float64) (models.AudioSignal, models.AudioSignal) {
	a := testsupport.Noise(rate, 20, 0.3, 11)
	testsupport.AddTone(a, 1000, 0.4, 0, 20)
	return a, testsupport.Advance(a, shift)
}

// beepPair returns independent recordings with calibration beeps at beep1 and
// beep2 and a loud shared burst placed so that cross-correlation lands at +8s.
func beepPair(beep1, beep2 float64, withBeeps bool) (models.AudioSignal, models.AudioSignal) {
	a := testsupport.Noise(16000, 16, 0.001, 1)
	b := testsupport.Noise(16000, 16, 0.001, 2)
	burst := testsupport.Noise(16000, 2, 0.5, 99)
	mix(a, burst, 12)
	mix(b, burst, 4)
	if withBeeps {
		testsupport.AddTone(a, 6000, 0.5, beep1, 0.3)
		testsupport.AddTone(b, 6000, 0.5, beep2, 0.3)
	}
	return a, b
}

func TestSyncPairCrossCorrelation(t *testing.T) {
	f := newFixture(t)
	a, b := correlatedPair(8000, 2.5)
	first := f.add(t, "front.mp4", a, 60)
	second := f.add(t, "rear.mp4", b, 55)

	svc := f.service(t, avsync.WithSampleRate(8000), avsync.WithoutBeepDetection())
	res, err := svc.SyncPair(context.Background(), first, second)
	if err != nil {
		t.Fatalf("SyncPair failed: %v", err)
	}

	if res.Resolved.Method != models.MethodCrossCorrelation {
		t.Errorf("expected cross-correlation, got %q", res.Resolved.Method)
	}
	if math.Abs(res.Resolved.Seconds-2.5) > 1e-9 {
		t.Errorf("expected offset 2.5, got %f", res.Resolved.Seconds)
	}
	if res.Resolved.Leader() != models.LeaderFirst {
		t.Errorf("expected first recording to lead, got %s", res.Resolved.Leader())
	}
	want := models.TrimPlan{Start1: 2.5, Start2: 0, Duration: 55}
	if math.Abs(res.Plan.Start1-want.Start1) > 1e-9 || res.Plan.Start2 != 0 || math.Abs(res.Plan.Duration-want.Duration) > 1e-9 {
		t.Errorf("expected plan %+v, got %+v", want, res.Plan)
	}

	if len(res.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(res.Outputs))
	}
	if res.Outputs[0].OutputPath != filepath.Join(f.out, "front_synced.mp4") {
		t.Errorf("unexpected output path %s", res.Outputs[0].OutputPath)
	}
	if res.Outputs[1].OutputPath != filepath.Join(f.out, "rear_synced.mp4") {
		t.Errorf("unexpected output path %s", res.Outputs[1].OutputPath)
	}
	for _, o := range res.Outputs {
		if _, err := os.Stat(o.OutputPath); err != nil {
			t.Errorf("output missing: %v", err)
		}
		if o.Precision != models.PrecisionStreamCopy {
			t.Errorf("expected stream copy, got %s", o.Precision)
		}
	}

	var sawFirstTrim bool
	for _, call := range f.fake.CallsTo("ffmpeg") {
		joined := strings.Join(call, " ")
		if strings.Contains(joined, "-ss 2.500 -i "+first) && strings.Contains(joined, "-t 55.000") {
			sawFirstTrim = true
		}
		if strings.Contains(joined, "-i "+first) && strings.HasSuffix(joined, ".wav") && !strings.Contains(joined, "-t 10.000") {
			t.Errorf("extraction not bounded to the search window: %s", joined)
		}
	}
	if !sawFirstTrim {
		t.Error("expected the first recording to be cut at 2.5s for 55s")
	}

	if got := f.journal.statuses(); len(got) != 1 || got[0] != "ok" {
		t.Errorf("expected one ok journal entry, got %v", got)
	}
	f.assertTempClean(t)
}

// Recording 2 delayed by 2.5s: its audio is recording 1's right-shifted, so
// recording 2 is the one that started early and gets cut.
func TestSyncPairSecondRecordingDelayed(t *testing.T) {
	f := newFixture(t)
	a := testsupport.Noise(8000, 30, 0.3, 21)
	testsupport.AddTone(a, 1000, 0.4, 0, 30)
	b := testsupport.Delay(a, 2.5)
	first := f.add(t, "front.mp4", a, 30)
	second := f.add(t, "rear.mp4", b, 30)

	svc := f.service(t, avsync.WithSampleRate(8000), avsync.WithoutBeepDetection(), avsync.WithTrim(false))
	res, err := svc.SyncPair(context.Background(), first, second)
	if err != nil {
		t.Fatalf("SyncPair failed: %v", err)
	}
	if math.Abs(res.Resolved.Seconds+2.5) > 0.02 {
		t.Errorf("expected offset -2.5, got %f", res.Resolved.Seconds)
	}
	if res.Plan.Start1 != 0 || math.Abs(res.Plan.Start2-2.5) > 0.02 || math.Abs(res.Plan.Duration-27.5) > 0.02 {
		t.Errorf("expected plan {0 2.5 27.5}, got %+v", res.Plan)
	}
}

func TestSyncPairLogsCarryRunID(t *testing.T) {
	f := newFixture(t)
	a, b := correlatedPair(8000, 1)
	first := f.add(t, "front.mp4", a, 30)
	second := f.add(t, "rear.mp4", b, 30)

	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: logger.DEBUG, Output: &buf})
	svc := f.service(t, avsync.WithSampleRate(8000), avsync.WithoutBeepDetection(), avsync.WithLogger(log))
	res, err := svc.SyncPair(context.Background(), first, second)
	if err != nil {
		t.Fatalf("SyncPair failed: %v", err)
	}

	tag := "run=" + res.RunID[:8]
	for _, want := range []string{tag + " syncing", tag + " offset 1.000s via cross_correlation"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in log:\n%s", want, buf.String())
		}
	}
}

func TestSyncPairBeepFallback(t *testing.T) {
	tests := []struct {
		name         string
		beep1, beep2 float64
		wantOffset   float64
		wantLeader   models.Leader
	}{
		{name: "First recording started earlier", beep1: 3.5, beep2: 1.0, wantOffset: 2.5, wantLeader: models.LeaderFirst},
		{name: "Second recording started earlier", beep1: 1.0, beep2: 3.5, wantOffset: -2.5, wantLeader: models.LeaderSecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			a, b := beepPair(tt.beep1, tt.beep2, true)
			first := f.add(t, "front.mp4", a, 60)
			second := f.add(t, "rear.mp4", b, 60)

			svc := f.service(t, avsync.WithSearchWindow(15), avsync.WithTrim(false))
			res, err := svc.SyncPair(context.Background(), first, second)
			if err != nil {
				t.Fatalf("SyncPair failed: %v", err)
			}

			if !res.Resolved.SanityExceeded {
				t.Error("expected the cross-correlation estimate to exceed the sanity bound")
			}
			if len(res.Resolved.Discarded) != 1 || math.Abs(res.Resolved.Discarded[0].Seconds-8) > 1e-9 {
				t.Errorf("expected discarded correlation at 8s, got %+v", res.Resolved.Discarded)
			}
			if res.Resolved.Method != models.MethodBeepDetection {
				t.Fatalf("expected beep detection, got %q", res.Resolved.Method)
			}
			if math.Abs(res.Resolved.Seconds-tt.wantOffset) > beepTolerance {
				t.Errorf("expected offset near %f, got %f", tt.wantOffset, res.Resolved.Seconds)
			}
			if res.Resolved.Leader() != tt.wantLeader {
				t.Errorf("expected leader %s, got %s", tt.wantLeader, res.Resolved.Leader())
			}
			if !res.Beeps[0].Found || !res.Beeps[1].Found {
				t.Errorf("expected both beeps found, got %+v", res.Beeps)
			}

			lead := res.Plan.Start1
			if tt.wantLeader == models.LeaderSecond {
				lead = res.Plan.Start2
			}
			if math.Abs(lead-2.5) > beepTolerance {
				t.Errorf("expected the leading recording to start near 2.5s, got %+v", res.Plan)
			}
			if d := math.Min(60-res.Plan.Start1, 60-res.Plan.Start2); d != res.Plan.Duration {
				t.Errorf("plan duration %f does not match overlap %f", res.Plan.Duration, d)
			}
			if len(res.Outputs) != 0 || len(f.fake.CallsTo("ffmpeg")) != 2 {
				t.Error("expected no trim calls when trimming is disabled")
			}
		})
	}
}

func TestSyncPairUnresolved(t *testing.T) {
	tests := []struct {
		name        string
		policy      avsync.UnresolvedPolicy
		wantSkipped bool
		wantErr     bool
		wantStatus  string
	}{
		{name: "Skip", policy: avsync.OnUnresolvedSkip, wantSkipped: true, wantErr: true, wantStatus: "skipped"},
		{name: "Proceed", policy: avsync.OnUnresolvedProceed, wantStatus: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			a, b := beepPair(0, 0, false)
			first := f.add(t, "front.mp4", a, 40)
			second := f.add(t, "rear.mp4", b, 30)

			// Keep the beep search ahead of the shared burst so no beep is found.
			params := avsync.DefaultBeepParams()
			params.SearchWindow = 3
			svc := f.service(t,
				avsync.WithSearchWindow(15),
				avsync.WithBeepDetection(params),
				avsync.WithOnUnresolved(tt.policy),
			)
			res, err := svc.SyncPair(context.Background(), first, second)

			if tt.wantErr {
				if !errors.Is(err, models.ErrOffsetUnresolved) {
					t.Fatalf("expected unresolved error, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.Resolved.Unresolved || res.Resolved.Seconds != 0 {
				t.Errorf("expected unresolved zero offset, got %+v", res.Resolved)
			}
			if res.Skipped != tt.wantSkipped {
				t.Errorf("expected Skipped=%v, got %v", tt.wantSkipped, res.Skipped)
			}
			if tt.wantSkipped {
				if len(res.Outputs) != 0 {
					t.Error("skipped pair must not be trimmed")
				}
			} else {
				if res.Plan != (models.TrimPlan{Duration: 30}) {
					t.Errorf("expected zero-offset plan, got %+v", res.Plan)
				}
				if len(res.Outputs) != 2 {
					t.Errorf("expected 2 outputs, got %d", len(res.Outputs))
				}
			}
			if got := f.journal.statuses(); len(got) != 1 || got[0] != tt.wantStatus {
				t.Errorf("expected journal status %s, got %v", tt.wantStatus, got)
			}
			f.assertTempClean(t)
		})
	}
}

func TestSyncPairExtractionFailure(t *testing.T) {
	f := newFixture(t)
	a, _ := correlatedPair(16000, 1)
	first := f.add(t, "front.mp4", a, 60)
	second := filepath.Join(f.dir, "in", "missing.mp4")

	svc := f.service(t)
	res, err := svc.SyncPair(context.Background(), first, second)
	if !errors.Is(err, models.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if !models.Fatal(err) {
		t.Error("extraction failures are fatal for the pair")
	}
	if res.Err == nil {
		t.Error("expected error recorded on the result")
	}
	if got := f.journal.statuses(); len(got) != 1 || got[0] != "failed" {
		t.Errorf("expected one failed journal entry, got %v", got)
	}
	f.assertTempClean(t)
}

func TestSyncPairPlanningFailure(t *testing.T) {
	f := newFixture(t)
	a, b := correlatedPair(8000, 2.5)
	first := f.add(t, "front.mp4", a, 2)
	second := f.add(t, "rear.mp4", b, 60)

	svc := f.service(t, avsync.WithSampleRate(8000), avsync.WithoutBeepDetection())
	if _, err := svc.SyncPair(context.Background(), first, second); !errors.Is(err, models.ErrPlanning) {
		t.Fatalf("expected planning error, got %v", err)
	}
}

func TestAnalyzeDoesNotTrim(t *testing.T) {
	f := newFixture(t)
	a, b := correlatedPair(8000, 1.5)
	first := f.add(t, "front.mp4", a, 30)
	second := f.add(t, "rear.mp4", b, 30)

	svc := f.service(t, avsync.WithSampleRate(8000), avsync.WithoutBeepDetection())
	res, err := svc.Analyze(context.Background(), first, second)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if math.Abs(res.Resolved.Seconds-1.5) > 1e-9 {
		t.Errorf("expected 1.5, got %f", res.Resolved.Seconds)
	}
	if len(res.Outputs) != 0 {
		t.Error("Analyze must not write outputs")
	}
	if _, err := os.Stat(f.out); !os.IsNotExist(err) {
		t.Error("Analyze must not create the output directory")
	}
}

func TestSyncBatch(t *testing.T) {
	f := newFixture(t)
	var pairs []avsync.Pair
	for i, shift := range []float64{0.5, 1.0, 1.5} {
		a, b := correlatedPair(8000, shift)
		dir := string(rune('a' + i))
		pairs = append(pairs, avsync.Pair{
			First:  f.add(t, filepath.Join(dir, "front.mp4"), a, 30),
			Second: f.add(t, filepath.Join(dir, "rear.mp4"), b, 30),
		})
	}
	pairs = append(pairs[:1], append([]avsync.Pair{{First: pairs[0].First, Second: filepath.Join(f.dir, "nope.mp4")}}, pairs[1:]...)...)

	svc := f.service(t,
		avsync.WithSampleRate(8000),
		avsync.WithoutBeepDetection(),
		avsync.WithTrim(false),
		avsync.WithWorkers(2),
	)
	results := svc.SyncBatch(context.Background(), pairs)
	if len(results) != len(pairs) {
		t.Fatalf("expected %d results, got %d", len(pairs), len(results))
	}

	wantOffsets := []float64{0.5, 0, 1.0, 1.5}
	for i, r := range results {
		if r.First != pairs[i].First || r.Second != pairs[i].Second {
			t.Errorf("result %d out of order", i)
		}
		if i == 1 {
			if !errors.Is(r.Err, models.ErrExtraction) {
				t.Errorf("expected extraction error for pair 1, got %v", r.Err)
			}
			if avsync.StatusOf(r) != "failed" {
				t.Errorf("expected failed status, got %s", avsync.StatusOf(r))
			}
			continue
		}
		if r.Err != nil {
			t.Errorf("pair %d failed: %v", i, r.Err)
			continue
		}
		if math.Abs(r.Resolved.Seconds-wantOffsets[i]) > 1e-9 {
			t.Errorf("pair %d: expected %f, got %f", i, wantOffsets[i], r.Resolved.Seconds)
		}
	}
	if got := f.journal.statuses(); len(got) != len(pairs) {
		t.Errorf("expected %d journal entries, got %d", len(pairs), len(got))
	}
	f.assertTempClean(t)
}

func TestSyncBatchCancelled(t *testing.T) {
	f := newFixture(t)
	a, b := correlatedPair(8000, 1)
	pair := avsync.Pair{First: f.add(t, "front.mp4", a, 30), Second: f.add(t, "rear.mp4", b, 30)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := f.service(t, avsync.WithSampleRate(8000), avsync.WithoutBeepDetection())
	results := svc.SyncBatch(ctx, []avsync.Pair{pair, pair})
	for i, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("pair %d: expected cancellation, got %v", i, r.Err)
		}
	}
}

func TestDetectBeepAndTrimToBeep(t *testing.T) {
	f := newFixture(t)
	sig := testsupport.Noise(16000, 10, 0.001, 5)
	testsupport.AddTone(sig, 6000, 0.5, 2, 0.3)
	path := f.add(t, "clip.mp4", sig, 30)
	silent := f.add(t, "quiet.mp4", testsupport.Noise(16000, 10, 0.001, 6), 30)

	svc := f.service(t)

	beep, err := svc.DetectBeep(context.Background(), path)
	if err != nil {
		t.Fatalf("DetectBeep failed: %v", err)
	}
	if !beep.Found || beep.Time > 2 || beep.Time < 2-0.1 {
		t.Errorf("expected beep near 2s, got %+v", beep)
	}

	res, err := svc.TrimToBeep(context.Background(), path)
	if err != nil {
		t.Fatalf("TrimToBeep failed: %v", err)
	}
	if res.OutputPath != filepath.Join(f.out, "clip_trimmed.mp4") {
		t.Errorf("unexpected output %s", res.OutputPath)
	}
	if res.Start != beep.Time || math.Abs(res.Duration-(30-beep.Time)) > 1e-9 {
		t.Errorf("unexpected trim window start=%f duration=%f", res.Start, res.Duration)
	}

	if _, err := svc.DetectBeep(context.Background(), silent); !errors.Is(err, models.ErrBeepNotFound) {
		t.Errorf("expected beep-not-found, got %v", err)
	}
	if _, err := svc.TrimToBeep(context.Background(), silent); !errors.Is(err, models.ErrBeepNotFound) {
		t.Errorf("expected beep-not-found from TrimToBeep, got %v", err)
	}
	f.assertTempClean(t)
}

func TestDominantFrequenciesAndInspect(t *testing.T) {
	f := newFixture(t)
	sig := testsupport.Noise(16000, 4, 0.001, 8)
	testsupport.AddTone(sig, 6000, 0.5, 1, 2)
	path := f.add(t, "calibration.mp4", sig, 4)

	svc := f.service(t)
	peaks, err := svc.DominantFrequencies(context.Background(), path, 3)
	if err != nil {
		t.Fatalf("DominantFrequencies failed: %v", err)
	}
	if len(peaks) != 3 || math.Abs(peaks[0].Frequency-6000) > 1 {
		t.Errorf("expected strongest peak at 6 kHz, got %+v", peaks)
	}

	png := filepath.Join(f.dir, "png", "calibration.png")
	info, err := svc.Inspect(context.Background(), path, png)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.Metadata.DurationSec != 4 || !info.Metadata.HasVideo {
		t.Errorf("unexpected metadata %+v", info.Metadata)
	}
	if !info.Beep.Found || info.BeepErr != nil {
		t.Errorf("expected beep found, got %+v (%v)", info.Beep, info.BeepErr)
	}
	if info.SpectrogramAt != png {
		t.Errorf("expected spectrogram at %s, got %s", png, info.SpectrogramAt)
	}
	if _, err := os.Stat(png); err != nil {
		t.Errorf("spectrogram not written: %v", err)
	}
}

func TestNewServiceValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []avsync.Option
	}{
		{name: "Beep band above Nyquist", opts: []avsync.Option{avsync.WithSampleRate(8000)}},
		{name: "Unknown precision", opts: []avsync.Option{avsync.WithPrecision("lossless")}},
		{name: "Unknown policy", opts: []avsync.Option{avsync.WithOnUnresolved("retry")}},
		{name: "Zero search window", opts: []avsync.Option{avsync.WithSearchWindow(0)}},
		{name: "Negative sanity bound", opts: []avsync.Option{avsync.WithSanityBound(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := avsync.NewService(append([]avsync.Option{avsync.WithLogger(logger.Discard())}, tt.opts...)...)
			if !errors.Is(err, models.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestServiceOwnsJournal(t *testing.T) {
	f := newFixture(t)
	a, b := correlatedPair(8000, 0.5)
	first := f.add(t, "front.mp4", a, 30)
	second := f.add(t, "rear.mp4", b, 30)

	dbPath := filepath.Join(f.dir, "journal.sqlite3")
	svc, err := avsync.NewService(
		avsync.WithRunner(f.fake.Run),
		avsync.WithTempDir(f.tmp),
		avsync.WithLogger(logger.Discard()),
		avsync.WithSampleRate(8000),
		avsync.WithoutBeepDetection(),
		avsync.WithTrim(false),
		avsync.WithJournalPath(dbPath),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if _, err := svc.SyncPair(context.Background(), first, second); err != nil {
		t.Fatalf("SyncPair failed: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("journal not created: %v", err)
	}
}
