package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/AVSync/pkg/avsync"
	"github.com/himanishpuri/AVSync/pkg/models"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TempDir     string `toml:"temp_dir"`
	OutputDir   string `toml:"output_dir"`
	JournalPath string `toml:"journal_path"`
}

// Transcoder contains ffmpeg/ffprobe settings and the trim precision.
type Transcoder struct {
	FFmpeg         string `toml:"ffmpeg"`
	FFprobe        string `toml:"ffprobe"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Precision      string `toml:"precision"`
	Preset         string `toml:"preset"`
	CRF            int    `toml:"crf"`
}

// Audio contains extraction settings.
type Audio struct {
	SampleRate int `toml:"sample_rate"`
}

// Correlation contains cross-correlation settings.
type Correlation struct {
	SearchWindowS float64 `toml:"search_window_s"`
	SanityBoundS  float64 `toml:"sanity_bound_s"`
}

// Beep contains calibration-beep detection settings.
type Beep struct {
	Enabled       bool    `toml:"enabled"`
	ThresholdDB   float64 `toml:"threshold_db"`
	FreqMin       float64 `toml:"freq_min"`
	FreqMax       float64 `toml:"freq_max"`
	MinDurationMs float64 `toml:"min_duration_ms"`
	SearchWindowS float64 `toml:"search_window_s"`
	FFTWindow     int     `toml:"fft_window"`
	FFTOverlap    int     `toml:"fft_overlap"`
}

// Batch contains batch processing settings.
type Batch struct {
	Workers      int    `toml:"workers"`
	OnUnresolved string `toml:"on_unresolved"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level string `toml:"level"`
	Color string `toml:"color"` // auto | always | never
}

// Config encapsulates all configuration values for AVSync.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Transcoder  Transcoder  `toml:"transcoder"`
	Audio       Audio       `toml:"audio"`
	Correlation Correlation `toml:"correlation"`
	Beep        Beep        `toml:"beep"`
	Batch       Batch       `toml:"batch"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error: defaults (plus environment overrides) are returned with
// exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("avsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Timeout returns the per-subprocess timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Transcoder.TimeoutSeconds) * time.Second
}

// BeepParams returns the beep section as detector parameters.
func (c *Config) BeepParams() avsync.BeepParams {
	return avsync.BeepParams{
		ThresholdDB:   c.Beep.ThresholdDB,
		FreqMin:       c.Beep.FreqMin,
		FreqMax:       c.Beep.FreqMax,
		MinDurationMs: c.Beep.MinDurationMs,
		SearchWindow:  c.Beep.SearchWindowS,
		FFTWindow:     c.Beep.FFTWindow,
		FFTOverlap:    c.Beep.FFTOverlap,
	}
}

// ServiceOptions converts the file configuration into service options.
func (c *Config) ServiceOptions() []avsync.Option {
	opts := []avsync.Option{
		avsync.WithTempDir(c.Paths.TempDir),
		avsync.WithOutputDir(c.Paths.OutputDir),
		avsync.WithJournalPath(c.Paths.JournalPath),
		avsync.WithBinaries(c.Transcoder.FFmpeg, c.Transcoder.FFprobe),
		avsync.WithTimeout(c.Timeout()),
		avsync.WithPrecision(models.Precision(c.Transcoder.Precision)),
		avsync.WithEncoder(c.Transcoder.Preset, c.Transcoder.CRF),
		avsync.WithSampleRate(c.Audio.SampleRate),
		avsync.WithSearchWindow(c.Correlation.SearchWindowS),
		avsync.WithSanityBound(c.Correlation.SanityBoundS),
		avsync.WithWorkers(c.Batch.Workers),
		avsync.WithOnUnresolved(avsync.UnresolvedPolicy(c.Batch.OnUnresolved)),
	}
	if c.Beep.Enabled {
		opts = append(opts, avsync.WithBeepDetection(c.BeepParams()))
	} else {
		opts = append(opts, avsync.WithoutBeepDetection())
	}
	return opts
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
