package analysis

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Tunables
const (
	WindowSize = 1024
	HopSize    = 512
)

// Spectrogram is a one-sided power spectrogram, time-major: Power[frame][bin].
type Spectrogram struct {
	Power      [][]float64
	SampleRate int
	Window     int
	Hop        int
}

// PeriodicHann returns an n-point periodic Hann window, the variant used for
// spectral analysis (the symmetric window of n+1 points without its last sample).
func PeriodicHann(n int) []float64 {
	if n <= 1 {
		return window.Hann(n)
	}
	return window.Hann(n + 1)[:n]
}

// BinFrequency returns the centre frequency of bin k in Hz.
func (s *Spectrogram) BinFrequency(k int) float64 {
	return float64(k) * float64(s.SampleRate) / float64(s.Window)
}

// FrameStart returns the time in seconds of the first sample of frame i.
func (s *Spectrogram) FrameStart(i int) float64 {
	return float64(i*s.Hop) / float64(s.SampleRate)
}

// Stride is the time between consecutive frames in seconds.
func (s *Spectrogram) Stride() float64 {
	return float64(s.Hop) / float64(s.SampleRate)
}

// PowerSpectrum converts one FFT frame into a one-sided power spectrum scaled by
// scale. Bins other than DC and Nyquist are doubled to fold in the negative half.
func PowerSpectrum(spectrum []complex128, scale float64) []float64 {
	n := len(spectrum)
	half := n/2 + 1
	out := make([]float64, half)
	for i := 0; i < half; i++ {
		m := cmplx.Abs(spectrum[i])
		p := m * m * scale
		if i != 0 && !(n%2 == 0 && i == n/2) {
			p *= 2
		}
		out[i] = p
	}
	return out
}

// STFT computes the power spectrogram of samples with a periodic Hann window.
// Each segment has its mean removed before windowing.
func STFT(samples []float64, sampleRate, windowSize, hopSize int) (*Spectrogram, error) {
	if windowSize <= 0 || hopSize <= 0 {
		return nil, errors.New("window and hop size must be positive")
	}
	if len(samples) < windowSize {
		return nil, errors.New("input shorter than window size")
	}

	win := PeriodicHann(windowSize)
	var wsum float64
	for _, w := range win {
		wsum += w
	}
	scale := 1 / (wsum * wsum)

	spec := &Spectrogram{SampleRate: sampleRate, Window: windowSize, Hop: hopSize}
	frame := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		seg := samples[start : start+windowSize]
		var mean float64
		for _, x := range seg {
			mean += x
		}
		mean /= float64(windowSize)
		for i, x := range seg {
			frame[i] = (x - mean) * win[i]
		}
		spec.Power = append(spec.Power, PowerSpectrum(fft.FFTReal(frame), scale))
	}
	return spec, nil
}
