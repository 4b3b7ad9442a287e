package config

import (
	"errors"
	"fmt"

	"github.com/himanishpuri/AVSync/pkg/avsync"
	"github.com/himanishpuri/AVSync/pkg/logger"
	"github.com/himanishpuri/AVSync/pkg/models"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscoder(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateCorrelation(); err != nil {
		return err
	}
	if err := c.validateBeep(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranscoder() error {
	if c.Transcoder.TimeoutSeconds <= 0 {
		return errors.New("transcoder.timeout_seconds must be positive")
	}
	if !models.Precision(c.Transcoder.Precision).Valid() {
		return fmt.Errorf("transcoder.precision must be %q or %q, got %q",
			models.PrecisionStreamCopy, models.PrecisionFrameAccurate, c.Transcoder.Precision)
	}
	if c.Transcoder.CRF < 0 || c.Transcoder.CRF > 51 {
		return fmt.Errorf("transcoder.crf must be between 0 and 51, got %d", c.Transcoder.CRF)
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.SampleRate < 8000 {
		return fmt.Errorf("audio.sample_rate must be at least 8000, got %d", c.Audio.SampleRate)
	}
	return nil
}

func (c *Config) validateCorrelation() error {
	if c.Correlation.SearchWindowS < 1 {
		return errors.New("correlation.search_window_s must be at least 1")
	}
	if c.Correlation.SanityBoundS <= 0 {
		return errors.New("correlation.sanity_bound_s must be positive")
	}
	return nil
}

func (c *Config) validateBeep() error {
	if err := c.BeepParams().Validate(); err != nil {
		return fmt.Errorf("beep: %w", err)
	}
	if c.Beep.Enabled && c.Beep.FreqMax > float64(c.Audio.SampleRate)/2 {
		return fmt.Errorf("beep.freq_max %.0f Hz is above the Nyquist frequency of audio.sample_rate %d",
			c.Beep.FreqMax, c.Audio.SampleRate)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Workers < 1 {
		return errors.New("batch.workers must be at least 1")
	}
	if !avsync.UnresolvedPolicy(c.Batch.OnUnresolved).Valid() {
		return fmt.Errorf("batch.on_unresolved must be %q or %q, got %q",
			avsync.OnUnresolvedProceed, avsync.OnUnresolvedSkip, c.Batch.OnUnresolved)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, ok := logger.ParseLevel(c.Logging.Level); !ok {
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Color {
	case "auto", "always", "never":
		return nil
	default:
		return fmt.Errorf("logging.color must be auto, always or never, got %q", c.Logging.Color)
	}
}
