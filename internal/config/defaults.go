package config

import "os"

const (
	defaultConfigPath     = "~/.config/avsync/config.toml"
	defaultJournalPath    = "~/.local/share/avsync/journal.sqlite3"
	defaultFFmpeg         = "ffmpeg"
	defaultFFprobe        = "ffprobe"
	defaultTimeoutSeconds = 600
	defaultPrecision      = "stream_copy"
	defaultPreset         = "medium"
	defaultCRF            = 18
	defaultSampleRate     = 44100
	defaultSearchWindowS  = 10.0
	defaultSanityBoundS   = 5.0
	defaultBeepThreshold  = -30.0
	defaultBeepFreqMin    = 5000.0
	defaultBeepFreqMax    = 7000.0
	defaultBeepMinMs      = 200.0
	defaultBeepWindowS    = 20.0
	defaultFFTWindow      = 1024
	defaultFFTOverlap     = 512
	defaultWorkers        = 2
	defaultOnUnresolved   = "skip"
	defaultLogLevel       = "info"
	defaultLogColor       = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:     os.TempDir(),
			JournalPath: defaultJournalPath,
		},
		Transcoder: Transcoder{
			FFmpeg:         defaultFFmpeg,
			FFprobe:        defaultFFprobe,
			TimeoutSeconds: defaultTimeoutSeconds,
			Precision:      defaultPrecision,
			Preset:         defaultPreset,
			CRF:            defaultCRF,
		},
		Audio: Audio{
			SampleRate: defaultSampleRate,
		},
		Correlation: Correlation{
			SearchWindowS: defaultSearchWindowS,
			SanityBoundS:  defaultSanityBoundS,
		},
		Beep: Beep{
			Enabled:       true,
			ThresholdDB:   defaultBeepThreshold,
			FreqMin:       defaultBeepFreqMin,
			FreqMax:       defaultBeepFreqMax,
			MinDurationMs: defaultBeepMinMs,
			SearchWindowS: defaultBeepWindowS,
			FFTWindow:     defaultFFTWindow,
			FFTOverlap:    defaultFFTOverlap,
		},
		Batch: Batch{
			Workers:      defaultWorkers,
			OnUnresolved: defaultOnUnresolved,
		},
		Logging: Logging{
			Level: defaultLogLevel,
			Color: defaultLogColor,
		},
	}
}
