package avsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/himanishpuri/AVSync/internal/align"
	"github.com/himanishpuri/AVSync/internal/analysis"
	"github.com/himanishpuri/AVSync/internal/audio"
	"github.com/himanishpuri/AVSync/internal/trim"
	"github.com/himanishpuri/AVSync/pkg/logger"
	"github.com/himanishpuri/AVSync/pkg/models"
	"golang.org/x/sync/errgroup"
)

const (
	syncedSuffix  = "_synced"
	trimmedSuffix = "_trimmed"
)

// syncService is the default implementation of the Service interface.
type syncService struct {
	config     *Config
	log        Logger
	journal    Journal
	ownJournal bool

	extractor *audio.Extractor
	prober    *audio.Prober
	trimmer   *trim.Executor
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.New(logger.DefaultConfig())
	}

	svc := &syncService{
		config:  cfg,
		log:     cfg.Logger,
		journal: cfg.Journal,
	}
	if svc.journal == nil && cfg.JournalPath != "" {
		j, err := NewSQLiteJournal(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		svc.journal = j
		svc.ownJournal = true
	}

	svc.prober = &audio.Prober{FFprobe: cfg.FFprobe, Timeout: cfg.Timeout, Run: cfg.Runner}
	svc.extractor = &audio.Extractor{FFmpeg: cfg.FFmpeg, SampleRate: cfg.SampleRate, Timeout: cfg.Timeout, Run: cfg.Runner}
	svc.trimmer = &trim.Executor{
		FFmpeg:  cfg.FFmpeg,
		Prober:  svc.prober,
		Timeout: cfg.Timeout,
		Preset:  cfg.Preset,
		CRF:     cfg.CRF,
		Run:     cfg.Runner,
	}
	return svc, nil
}

func validateConfig(cfg *Config) error {
	bad := func(msg string, args ...any) error {
		return models.Wrap(models.ErrConfiguration, "config", "", fmt.Sprintf(msg, args...), nil)
	}
	switch {
	case cfg.SampleRate <= 0:
		return bad("sample rate must be positive, got %d", cfg.SampleRate)
	case cfg.SearchWindow <= 0:
		return bad("search window must be positive, got %.2f", cfg.SearchWindow)
	case cfg.SanityBound < 0:
		return bad("sanity bound must not be negative, got %.2f", cfg.SanityBound)
	case !cfg.Precision.Valid():
		return bad("unknown precision %q", cfg.Precision)
	case !cfg.OnUnresolved.Valid():
		return bad("unknown on_unresolved policy %q", cfg.OnUnresolved)
	}
	if err := cfg.Beep.Validate(); err != nil {
		return models.Wrap(models.ErrConfiguration, "config", "beep", "", err)
	}
	if nyquist := float64(cfg.SampleRate) / 2; cfg.BeepEnabled && cfg.Beep.FreqMax > nyquist {
		return bad("beep band up to %.0f Hz needs a sample rate above %.0f Hz", cfg.Beep.FreqMax, 2*cfg.Beep.FreqMax)
	}
	return nil
}

// scoped tags every message with prefix when the logger supports it.
func scoped(l Logger, prefix string) Logger {
	if p, ok := l.(interface{ With(string) *logger.Logger }); ok {
		return p.With(prefix)
	}
	return l
}

// analysisWindow is how much leading audio the pair pipeline needs.
func (s *syncService) analysisWindow() float64 {
	w := s.config.SearchWindow
	if s.config.BeepEnabled && s.config.Beep.SearchWindow > w {
		w = s.config.Beep.SearchWindow
	}
	return w
}

func (s *syncService) SyncPair(ctx context.Context, first, second string) (models.PairResult, error) {
	return s.run(ctx, first, second, s.config.Trim)
}

func (s *syncService) Analyze(ctx context.Context, first, second string) (models.PairResult, error) {
	return s.run(ctx, first, second, false)
}

func (s *syncService) run(ctx context.Context, first, second string, doTrim bool) (models.PairResult, error) {
	res := models.PairResult{RunID: uuid.NewString(), First: first, Second: second}
	log := scoped(s.log, "run="+res.RunID[:8])
	fail := func(err error) (models.PairResult, error) {
		res.Err = err
		log.Errorf("%s + %s: %v", filepath.Base(first), filepath.Base(second), err)
		s.record(res)
		return res, err
	}

	log.Infof("syncing %s and %s", first, second)

	tmp, err := os.MkdirTemp(s.config.TempDir, "avsync-"+res.RunID+"-*")
	if err != nil {
		return fail(models.Wrap(models.ErrExtraction, "sync", "tempdir", s.config.TempDir, err))
	}
	defer os.RemoveAll(tmp)

	recs, err := s.loadPair(ctx, tmp, first, second)
	if err != nil {
		return fail(err)
	}

	in := align.Inputs{SanityBound: s.config.SanityBound}
	est, err := analysis.CrossCorrelate(recs[0].Signal, recs[1].Signal, s.config.SearchWindow)
	if err != nil {
		if !s.config.BeepEnabled {
			return fail(err)
		}
		log.Warnf("cross-correlation failed, falling back to beep detection: %v", err)
	} else {
		log.Debugf("cross-correlation offset %.3fs", est.Seconds)
		res.Estimates = append(res.Estimates, est)
		in.Correlation = &est
	}

	if s.config.BeepEnabled {
		for i, rec := range recs {
			b, err := analysis.DetectBeep(rec.Signal, s.config.Beep)
			if err != nil {
				log.Warnf("beep detection failed for %s: %v", filepath.Base(rec.Path), err)
				continue
			}
			if b.Found {
				log.Debugf("beep in %s at %.3fs", filepath.Base(rec.Path), b.Time)
			}
			res.Beeps[i] = b
		}
		in.Beep1, in.Beep2 = &res.Beeps[0], &res.Beeps[1]
		if est, ok := align.BeepOffset(res.Beeps[0], res.Beeps[1]); ok {
			res.Estimates = append(res.Estimates, est)
		}
	}

	resolved, rerr := align.Resolve(in)
	res.Resolved = resolved
	for _, d := range resolved.Discarded {
		log.Warnf("discarded %s offset %.3fs outside the %.1fs sanity bound", d.Method, d.Seconds, s.config.SanityBound)
	}
	if rerr != nil {
		if s.config.OnUnresolved == OnUnresolvedSkip {
			res.Skipped = true
			res.SkipReason = rerr.Error()
			log.Warnf("skipping pair: %v", rerr)
			s.record(res)
			return res, rerr
		}
		log.Warnf("%v; proceeding with zero offset", rerr)
	} else {
		log.Infof("offset %.3fs via %s, %s recording started first", resolved.Seconds, resolved.Method, resolved.Leader())
	}

	plan, err := align.Plan(resolved, recs[0].Duration, recs[1].Duration)
	if err != nil {
		return fail(err)
	}
	res.Plan = plan
	log.Debugf("plan start1=%.3fs start2=%.3fs duration=%.3fs", plan.Start1, plan.Start2, plan.Duration)

	if doTrim {
		outputs, err := s.trimPair(ctx, recs, plan)
		res.Outputs = outputs
		if err != nil {
			return fail(err)
		}
		for _, o := range outputs {
			log.Infof("wrote %s", o.OutputPath)
		}
	}

	s.record(res)
	return res, nil
}

// loadPair extracts both recordings concurrently; analysis starts only after both finish.
func (s *syncService) loadPair(ctx context.Context, dir, first, second string) ([2]models.Recording, error) {
	var recs [2]models.Recording
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range []string{first, second} {
		i, path := i, path
		g.Go(func() error {
			rec, err := s.load(gctx, dir, path, s.analysisWindow())
			if err != nil {
				return err
			}
			recs[i] = rec
			return nil
		})
	}
	return recs, g.Wait()
}

func (s *syncService) load(ctx context.Context, dir, path string, limit float64) (models.Recording, error) {
	sig, err := s.extractor.Extract(ctx, path, dir, limit)
	if err != nil {
		return models.Recording{}, err
	}
	meta, err := s.prober.Probe(ctx, path)
	if err != nil {
		return models.Recording{}, models.Wrap(models.ErrExtraction, "probe", "ffprobe", path, err)
	}
	dur := meta.DurationSec
	if dur <= 0 {
		dur = sig.DurationSec()
		s.log.Warnf("ffprobe reported no duration for %s, using %.3fs of decoded audio", path, dur)
	}
	return models.Recording{Path: path, Signal: sig, Duration: dur}, nil
}

func (s *syncService) outputDir() error {
	if s.config.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.config.OutputDir, 0o755); err != nil {
		return models.Wrap(models.ErrTrim, "trim", "mkdir", s.config.OutputDir, err)
	}
	return nil
}

func (s *syncService) trimPair(ctx context.Context, recs [2]models.Recording, plan models.TrimPlan) ([]models.TrimResult, error) {
	if err := s.outputDir(); err != nil {
		return nil, err
	}

	outs := [2]string{
		trim.OutputPath(recs[0].Path, s.config.OutputDir, syncedSuffix),
		trim.OutputPath(recs[1].Path, s.config.OutputDir, syncedSuffix),
	}
	if outs[0] == outs[1] {
		outs[0] = trim.OutputPath(recs[0].Path, s.config.OutputDir, syncedSuffix+"_1")
		outs[1] = trim.OutputPath(recs[1].Path, s.config.OutputDir, syncedSuffix+"_2")
	}
	starts := [2]float64{plan.Start1, plan.Start2}

	results := make([]models.TrimResult, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i := range recs {
		i := i
		g.Go(func() error {
			r, err := s.trimmer.Trim(gctx, trim.Request{
				Input:     recs[i].Path,
				Output:    outs[i],
				Start:     starts[i],
				Duration:  plan.Duration,
				Precision: s.config.Precision,
			})
			results[i] = r
			if err == nil && r.Drift() > 0 {
				s.log.Debugf("%s: measured %.3fs for requested %.3fs", filepath.Base(r.OutputPath), r.MeasuredDuration, r.Duration)
			}
			return err
		})
	}
	return results, g.Wait()
}

func (s *syncService) SyncBatch(ctx context.Context, pairs []Pair) []models.PairResult {
	results := make([]models.PairResult, len(pairs))

	var g errgroup.Group
	g.SetLimit(s.config.Workers)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = models.PairResult{First: p.First, Second: p.Second, Err: err}
				return nil
			}
			res, err := s.SyncPair(ctx, p.First, p.Second)
			if err != nil && !res.Skipped && res.Err == nil {
				res.Err = err
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var failed, skipped int
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Err != nil:
			failed++
		}
	}
	s.log.Infof("batch finished: %d pairs, %d synced, %d skipped, %d failed", len(pairs), len(pairs)-failed-skipped, skipped, failed)
	return results
}

func (s *syncService) DetectBeep(ctx context.Context, path string) (models.BeepResult, error) {
	tmp, err := os.MkdirTemp(s.config.TempDir, "avsync-beep-*")
	if err != nil {
		return models.BeepResult{}, models.Wrap(models.ErrExtraction, "beep", "tempdir", s.config.TempDir, err)
	}
	defer os.RemoveAll(tmp)

	sig, err := s.extractor.Extract(ctx, path, tmp, s.config.Beep.SearchWindow)
	if err != nil {
		return models.BeepResult{}, err
	}
	res, err := analysis.DetectBeep(sig, s.config.Beep)
	if err != nil {
		return res, err
	}
	if !res.Found {
		return res, models.Wrap(models.ErrBeepNotFound, "beep", "", fmt.Sprintf("%s: no beep in the first %.0fs", path, s.config.Beep.SearchWindow), nil)
	}
	s.log.Infof("beep in %s at %.3fs", filepath.Base(path), res.Time)
	return res, nil
}

func (s *syncService) TrimToBeep(ctx context.Context, path string) (models.TrimResult, error) {
	beep, err := s.DetectBeep(ctx, path)
	if err != nil {
		return models.TrimResult{}, err
	}
	meta, err := s.prober.Probe(ctx, path)
	if err != nil {
		return models.TrimResult{}, models.Wrap(models.ErrExtraction, "probe", "ffprobe", path, err)
	}

	var dur float64
	if meta.DurationSec > 0 {
		dur = meta.DurationSec - beep.Time
		if dur <= 0 {
			return models.TrimResult{}, models.Wrap(models.ErrPlanning, "trim", "",
				fmt.Sprintf("%s: beep at %.3fs is past the end (%.3fs)", path, beep.Time, meta.DurationSec), nil)
		}
	}

	if err := s.outputDir(); err != nil {
		return models.TrimResult{}, err
	}
	res, err := s.trimmer.Trim(ctx, trim.Request{
		Input:     path,
		Output:    trim.OutputPath(path, s.config.OutputDir, trimmedSuffix),
		Start:     beep.Time,
		Duration:  dur,
		Precision: s.config.Precision,
	})
	if err != nil {
		return res, err
	}
	s.log.Infof("wrote %s starting at %.3fs", res.OutputPath, res.Start)
	return res, nil
}

func (s *syncService) DominantFrequencies(ctx context.Context, path string, n int) ([]Peak, error) {
	tmp, err := os.MkdirTemp(s.config.TempDir, "avsync-tone-*")
	if err != nil {
		return nil, models.Wrap(models.ErrExtraction, "tone", "tempdir", s.config.TempDir, err)
	}
	defer os.RemoveAll(tmp)

	sig, err := s.extractor.Extract(ctx, path, tmp, s.config.Beep.SearchWindow)
	if err != nil {
		return nil, err
	}
	return analysis.DominantFrequencies(sig, n)
}

func (s *syncService) Inspect(ctx context.Context, path, pngPath string) (Inspection, error) {
	var out Inspection
	meta, err := s.prober.Probe(ctx, path)
	if err != nil {
		return out, models.Wrap(models.ErrExtraction, "probe", "ffprobe", path, err)
	}
	out.Metadata = meta

	tmp, err := os.MkdirTemp(s.config.TempDir, "avsync-inspect-*")
	if err != nil {
		return out, models.Wrap(models.ErrExtraction, "inspect", "tempdir", s.config.TempDir, err)
	}
	defer os.RemoveAll(tmp)

	sig, err := s.extractor.Extract(ctx, path, tmp, s.config.Beep.SearchWindow)
	if err != nil {
		return out, err
	}
	out.AnalysedSec = sig.DurationSec()
	out.Beep, out.BeepErr = analysis.DetectBeep(sig, s.config.Beep)

	if pngPath != "" {
		if err := analysis.RenderSpectrogram(sig, pngPath, analysis.DefaultRenderOptions()); err != nil {
			return out, fmt.Errorf("rendering spectrogram: %w", err)
		}
		out.SpectrogramAt = pngPath
	}
	return out, nil
}

func (s *syncService) record(res models.PairResult) {
	if s.journal == nil {
		return
	}
	entry := models.JournalEntry{
		RunID:          res.RunID,
		First:          res.First,
		Second:         res.Second,
		Method:         string(res.Resolved.Method),
		OffsetSec:      res.Resolved.Seconds,
		SanityExceeded: res.Resolved.SanityExceeded,
		Unresolved:     res.Resolved.Unresolved,
		Start1:         res.Plan.Start1,
		Start2:         res.Plan.Start2,
		DurationSec:    res.Plan.Duration,
		Status:         StatusOf(res),
		CreatedAt:      time.Now(),
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	} else if res.Skipped {
		entry.Error = res.SkipReason
	}
	if err := s.journal.Record(entry); err != nil {
		s.log.Warnf("journal: %v", err)
	}
}

// StatusOf classifies a pair result as ok, skipped or failed.
func StatusOf(res models.PairResult) string {
	switch {
	case res.Skipped:
		return "skipped"
	case res.Err != nil:
		return "failed"
	default:
		return "ok"
	}
}

func (s *syncService) Close() error {
	if s.ownJournal && s.journal != nil {
		return s.journal.Close()
	}
	return nil
}
