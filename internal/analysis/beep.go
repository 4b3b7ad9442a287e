package analysis

import (
	"fmt"
	"math"

	"github.com/himanishpuri/AVSync/pkg/models"
)

// BeepParams configures DetectBeep.
type BeepParams struct {
	ThresholdDB   float64 // band energy must exceed this, in dB relative to full scale
	FreqMin       float64 // Hz, inclusive
	FreqMax       float64 // Hz, inclusive
	MinDurationMs float64
	SearchWindow  float64 // seconds from the start of the signal
	FFTWindow     int
	FFTOverlap    int
}

// DefaultBeepParams matches a 5-7 kHz calibration beep of at least 200 ms in
// the first 20 seconds.
func DefaultBeepParams() BeepParams {
	return BeepParams{
		ThresholdDB:   -30,
		FreqMin:       5000,
		FreqMax:       7000,
		MinDurationMs: 200,
		SearchWindow:  20,
		FFTWindow:     WindowSize,
		FFTOverlap:    WindowSize - HopSize,
	}
}

// Validate checks the parameters for internal consistency.
func (p BeepParams) Validate() error {
	switch {
	case p.FFTWindow <= 0:
		return fmt.Errorf("fft window must be positive, got %d", p.FFTWindow)
	case p.FFTOverlap < 0 || p.FFTOverlap >= p.FFTWindow:
		return fmt.Errorf("fft overlap must be in [0, %d), got %d", p.FFTWindow, p.FFTOverlap)
	case p.FreqMin < 0 || p.FreqMax < p.FreqMin:
		return fmt.Errorf("invalid frequency range %.0f-%.0f Hz", p.FreqMin, p.FreqMax)
	case p.MinDurationMs < 0:
		return fmt.Errorf("min duration must not be negative, got %.0f", p.MinDurationMs)
	case p.SearchWindow <= 0:
		return fmt.Errorf("search window must be positive, got %.2f", p.SearchWindow)
	}
	return nil
}

const energyFloor = 1e-12

// BandEnergyDB returns, per frame, 10*log10 of the summed power of bins whose
// frequency lies in [fmin, fmax].
func BandEnergyDB(spec *Spectrogram, fmin, fmax float64) []float64 {
	out := make([]float64, len(spec.Power))
	for i, frame := range spec.Power {
		var e float64
		for k, p := range frame {
			f := spec.BinFrequency(k)
			if f >= fmin && f <= fmax {
				e += p
			}
		}
		out[i] = 10 * math.Log10(e+energyFloor)
	}
	return out
}

// DetectBeep finds the first run of frames whose band energy stays above the
// threshold for at least MinDurationMs and returns the start time of that run.
// The samples are expected at full scale, not normalized.
func DetectBeep(sig models.AudioSignal, params BeepParams) (models.BeepResult, error) {
	if err := params.Validate(); err != nil {
		return models.BeepResult{}, models.Wrap(models.ErrConfiguration, "beep", "params", "", err)
	}
	if sig.SampleRate <= 0 {
		return models.BeepResult{}, models.Wrap(models.ErrAnalysis, "beep", "", "invalid sample rate", nil)
	}

	window := sig.Truncate(params.SearchWindow)
	if len(window.Samples) < params.FFTWindow {
		return models.BeepResult{}, models.Wrap(models.ErrAnalysis, "beep", "",
			fmt.Sprintf("signal of %d samples is shorter than the %d-sample FFT window", len(window.Samples), params.FFTWindow), nil)
	}

	spec, err := STFT(window.Samples, sig.SampleRate, params.FFTWindow, params.FFTWindow-params.FFTOverlap)
	if err != nil {
		return models.BeepResult{}, models.Wrap(models.ErrAnalysis, "beep", "stft", "", err)
	}
	energy := BandEnergyDB(spec, params.FreqMin, params.FreqMax)

	stride := spec.Stride()
	required := int(math.Max(1, math.RoundToEven(params.MinDurationMs/1000/stride)))
	searchFrames := len(energy)
	if n := int(params.SearchWindow / stride); n < searchFrames {
		searchFrames = n
	}

	run := 0
	for i := 0; i < searchFrames; i++ {
		if energy[i] <= params.ThresholdDB {
			run = 0
			continue
		}
		run++
		if run >= required {
			first := i - required + 1
			return models.BeepResult{Found: true, Time: math.Max(0, spec.FrameStart(first))}, nil
		}
	}
	return models.BeepResult{Found: false}, nil
}
