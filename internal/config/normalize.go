package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscoder()
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("AVSYNC_TEMP_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.TempDir = value
	}
	if value, ok := os.LookupEnv("AVSYNC_JOURNAL_PATH"); ok {
		c.Paths.JournalPath = value
	}

	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = os.TempDir()
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	// An empty journal path disables the journal.
	if c.Paths.JournalPath, err = expandPath(strings.TrimSpace(c.Paths.JournalPath)); err != nil {
		return fmt.Errorf("paths.journal_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscoder() {
	c.Transcoder.FFmpeg = strings.TrimSpace(c.Transcoder.FFmpeg)
	if c.Transcoder.FFmpeg == "" {
		c.Transcoder.FFmpeg = defaultFFmpeg
	}
	c.Transcoder.FFprobe = strings.TrimSpace(c.Transcoder.FFprobe)
	if c.Transcoder.FFprobe == "" {
		c.Transcoder.FFprobe = defaultFFprobe
	}
	c.Transcoder.Precision = strings.ToLower(strings.TrimSpace(c.Transcoder.Precision))
	if c.Transcoder.Precision == "" {
		c.Transcoder.Precision = defaultPrecision
	}
	c.Transcoder.Preset = strings.TrimSpace(c.Transcoder.Preset)
	if c.Transcoder.Preset == "" {
		c.Transcoder.Preset = defaultPreset
	}
}

func (c *Config) normalizeBatch() {
	c.Batch.OnUnresolved = strings.ToLower(strings.TrimSpace(c.Batch.OnUnresolved))
	if c.Batch.OnUnresolved == "" {
		c.Batch.OnUnresolved = defaultOnUnresolved
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Color = strings.ToLower(strings.TrimSpace(c.Logging.Color))
	if c.Logging.Color == "" {
		c.Logging.Color = defaultLogColor
	}
}
