package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/pflag"

	"github.com/himanishpuri/AVSync/internal/config"
	"github.com/himanishpuri/AVSync/pkg/avsync"
	"github.com/himanishpuri/AVSync/pkg/logger"
	"github.com/himanishpuri/AVSync/pkg/models"
)

type commandContext struct {
	configFlag    string
	logLevelFlag  string
	outputFlag    string
	precisionFlag string

	// Analysis tuning; applied only when the flag was set.
	flags         *pflag.FlagSet
	thresholdDB   float64
	freqRange     string
	minDurationMs float64
	beepWindow    float64
	searchWindow  float64
	sanityBound   float64

	// Set by tests to replace ffmpeg/ffprobe and to capture logs.
	runner    avsync.Runner
	logOutput io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if err := c.applyFlags(cfg); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// applyFlags lets persistent flags override the file configuration.
func (c *commandContext) applyFlags(cfg *config.Config) error {
	if level := strings.TrimSpace(c.logLevelFlag); level != "" {
		if _, ok := logger.ParseLevel(level); !ok {
			return fmt.Errorf("invalid --log-level %q", level)
		}
		cfg.Logging.Level = strings.ToLower(level)
	}
	if dir := strings.TrimSpace(c.outputFlag); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("resolve --output-dir: %w", err)
		}
		cfg.Paths.OutputDir = expanded
	}
	if p := strings.TrimSpace(c.precisionFlag); p != "" {
		if !models.Precision(p).Valid() {
			return fmt.Errorf("invalid --precision %q", p)
		}
		cfg.Transcoder.Precision = p
	}

	if c.changed("threshold-db") {
		cfg.Beep.ThresholdDB = c.thresholdDB
	}
	if c.changed("freq-range") {
		lo, hi, err := parseFreqRange(c.freqRange)
		if err != nil {
			return fmt.Errorf("invalid --freq-range: %w", err)
		}
		cfg.Beep.FreqMin, cfg.Beep.FreqMax = lo, hi
	}
	if c.changed("min-duration-ms") {
		cfg.Beep.MinDurationMs = c.minDurationMs
	}
	if c.changed("beep-window") {
		cfg.Beep.SearchWindowS = c.beepWindow
	}
	if c.changed("search-window") {
		cfg.Correlation.SearchWindowS = c.searchWindow
	}
	if c.changed("sanity-bound") {
		cfg.Correlation.SanityBoundS = c.sanityBound
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func (c *commandContext) changed(name string) bool {
	return c.flags != nil && c.flags.Changed(name)
}

// parseFreqRange parses "<min>-<max>" in Hz.
func parseFreqRange(value string) (float64, float64, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(value), "-")
	if !ok {
		return 0, 0, fmt.Errorf("expected <min>-<max>, got %q", value)
	}
	lower, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad minimum %q", lo)
	}
	upper, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad maximum %q", hi)
	}
	if lower < 0 || upper <= lower {
		return 0, 0, fmt.Errorf("range %q must satisfy 0 <= min < max", value)
	}
	return lower, upper, nil
}

func (c *commandContext) newLogger(cfg *config.Config) *logger.Logger {
	out := c.logOutput
	if out == nil {
		out = os.Stderr
	}
	level, _ := logger.ParseLevel(cfg.Logging.Level)
	lc := logger.DefaultConfig()
	lc.Level = level
	lc.Output = out
	lc.Colorize = shouldColorize(out, cfg.Logging.Color)
	return logger.New(lc)
}

// newService builds a service from the loaded configuration plus extra options.
func (c *commandContext) newService(opts ...avsync.Option) (avsync.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	all := cfg.ServiceOptions()
	all = append(all, avsync.WithLogger(c.newLogger(cfg)))
	if c.runner != nil {
		all = append(all, avsync.WithRunner(c.runner))
	}
	all = append(all, opts...)
	return avsync.NewService(all...)
}

func (c *commandContext) withService(fn func(avsync.Service) error, opts ...avsync.Option) error {
	svc, err := c.newService(opts...)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func shouldColorize(writer io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	return logger.IsTerminal(writer)
}
