package avsync

import (
	"os"
	"time"

	"github.com/himanishpuri/AVSync/internal/analysis"
	"github.com/himanishpuri/AVSync/internal/audio"
	"github.com/himanishpuri/AVSync/pkg/models"
)

// BeepParams configures calibration-beep detection.
type BeepParams = analysis.BeepParams

// DefaultBeepParams matches a 5-7 kHz beep of at least 200 ms in the first 20 seconds.
func DefaultBeepParams() BeepParams {
	return analysis.DefaultBeepParams()
}

// Runner executes ffmpeg and ffprobe. Tests substitute a fake.
type Runner = audio.Runner

// UnresolvedPolicy decides what happens to a pair when no offset could be trusted.
type UnresolvedPolicy string

const (
	// OnUnresolvedProceed trims with a zero offset and flags the result.
	OnUnresolvedProceed UnresolvedPolicy = "proceed"
	// OnUnresolvedSkip leaves the pair untouched.
	OnUnresolvedSkip UnresolvedPolicy = "skip"
)

func (p UnresolvedPolicy) Valid() bool {
	return p == OnUnresolvedProceed || p == OnUnresolvedSkip
}

type Config struct {
	TempDir     string
	OutputDir   string // empty writes next to the inputs
	JournalPath string // empty disables the journal unless Journal is set

	FFmpeg     string
	FFprobe    string
	Timeout    time.Duration
	SampleRate int

	SearchWindow float64 // seconds of audio correlated
	SanityBound  float64 // seconds; larger correlation offsets are discarded

	BeepEnabled bool
	Beep        BeepParams

	Trim         bool
	Precision    models.Precision
	Preset       string
	CRF          int
	Workers      int
	OnUnresolved UnresolvedPolicy

	Logger  Logger
	Journal Journal
	Runner  Runner
}

type Option func(*Config)

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithOutputDir(dir string) Option {
	return func(c *Config) {
		c.OutputDir = dir
	}
}

func WithJournalPath(path string) Option {
	return func(c *Config) {
		c.JournalPath = path
	}
}

func WithJournal(j Journal) Option {
	return func(c *Config) {
		c.Journal = j
	}
}

func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(c *Config) {
		c.FFmpeg = ffmpeg
		c.FFprobe = ffprobe
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithSearchWindow(seconds float64) Option {
	return func(c *Config) {
		c.SearchWindow = seconds
	}
}

func WithSanityBound(seconds float64) Option {
	return func(c *Config) {
		c.SanityBound = seconds
	}
}

// WithBeepDetection enables the beep fallback with params.
func WithBeepDetection(params BeepParams) Option {
	return func(c *Config) {
		c.BeepEnabled = true
		c.Beep = params
	}
}

func WithoutBeepDetection() Option {
	return func(c *Config) {
		c.BeepEnabled = false
	}
}

// WithTrim controls whether SyncPair writes trimmed outputs.
func WithTrim(enabled bool) Option {
	return func(c *Config) {
		c.Trim = enabled
	}
}

func WithPrecision(p models.Precision) Option {
	return func(c *Config) {
		c.Precision = p
	}
}

func WithEncoder(preset string, crf int) Option {
	return func(c *Config) {
		c.Preset = preset
		c.CRF = crf
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithOnUnresolved(p UnresolvedPolicy) Option {
	return func(c *Config) {
		c.OnUnresolved = p
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithRunner(run Runner) Option {
	return func(c *Config) {
		c.Runner = run
	}
}

func defaultConfig() *Config {
	return &Config{
		TempDir:      os.TempDir(),
		Timeout:      10 * time.Minute,
		SampleRate:   audio.DefaultSampleRate,
		SearchWindow: analysis.DefaultSearchWindow,
		SanityBound:  analysis.DefaultSanityBound,
		BeepEnabled:  true,
		Beep:         analysis.DefaultBeepParams(),
		Trim:         true,
		Precision:    models.PrecisionStreamCopy,
		Workers:      2,
		OnUnresolved: OnUnresolvedSkip,
	}
}
