package analysis

import (
	"fmt"
	"math"

	"github.com/himanishpuri/AVSync/internal/audio"
	"github.com/himanishpuri/AVSync/pkg/models"
	"github.com/mjibson/go-dsp/fft"
)

const (
	DefaultSearchWindow = 10.0
	DefaultSanityBound  = 5.0

	// minCorrelationSeconds is the shortest window worth correlating.
	minCorrelationSeconds = 1.0

	// Below this many multiply-adds the direct method beats the FFT setup.
	directThreshold = 1 << 16
)

// CrossCorrelate estimates how much later the shared audio appears in a than in b.
// Both signals are cut to their leading windowSeconds and z-normalized first.
// A positive offset means the first recording started earlier.
func CrossCorrelate(a, b models.AudioSignal, windowSeconds float64) (models.OffsetEstimate, error) {
	if a.SampleRate <= 0 || a.SampleRate != b.SampleRate {
		return models.OffsetEstimate{}, models.Wrap(models.ErrAnalysis, "correlate", "",
			fmt.Sprintf("sample rate mismatch: %d vs %d", a.SampleRate, b.SampleRate), nil)
	}
	if windowSeconds <= 0 {
		windowSeconds = DefaultSearchWindow
	}
	rate := a.SampleRate

	wa := a.Truncate(windowSeconds)
	wb := b.Truncate(windowSeconds)
	minSamples := int(minCorrelationSeconds * float64(rate))
	if len(wa.Samples) < minSamples || len(wb.Samples) < minSamples {
		return models.OffsetEstimate{}, models.Wrap(models.ErrAnalysis, "correlate", "",
			fmt.Sprintf("need at least %.0fs of audio, have %.2fs and %.2fs",
				minCorrelationSeconds, wa.DurationSec(), wb.DurationSec()), nil)
	}

	na, err := audio.Normalize(wa.Samples)
	if err != nil {
		return models.OffsetEstimate{}, fmt.Errorf("first signal: %w", err)
	}
	nb, err := audio.Normalize(wb.Samples)
	if err != nil {
		return models.OffsetEstimate{}, fmt.Errorf("second signal: %w", err)
	}

	var corr []float64
	if len(na)*len(nb) <= directThreshold {
		corr = crossCorrelateDirect(na, nb)
	} else {
		corr = crossCorrelateFFT(na, nb)
	}

	lag := argmax(corr) - (len(nb) - 1)
	return models.OffsetEstimate{
		Seconds: float64(lag) / float64(rate),
		Method:  models.MethodCrossCorrelation,
	}, nil
}

// crossCorrelateFFT returns the full linear cross-correlation
// r[k] = sum_n a[n+k-(len(b)-1)] * b[n] for k in [0, len(a)+len(b)-1).
func crossCorrelateFFT(a, b []float64) []float64 {
	full := len(a) + len(b) - 1
	size := nextPow2(full)

	pa := make([]float64, size)
	pb := make([]float64, size)
	copy(pa, a)
	copy(pb, b)

	fa := fft.FFTReal(pa)
	fb := fft.FFTReal(pb)
	for i := range fa {
		re, im := real(fb[i]), imag(fb[i])
		fa[i] *= complex(re, -im)
	}
	circ := fft.IFFT(fa)

	// circ holds non-negative lags at the front and negative lags wrapped to the end.
	out := make([]float64, full)
	shift := len(b) - 1
	for k := range out {
		idx := k - shift
		if idx < 0 {
			idx += size
		}
		out[k] = real(circ[idx])
	}
	return out
}

// crossCorrelateDirect computes the same result as crossCorrelateFFT in O(n*m).
func crossCorrelateDirect(a, b []float64) []float64 {
	full := len(a) + len(b) - 1
	out := make([]float64, full)
	shift := len(b) - 1
	for k := 0; k < full; k++ {
		m := k - shift
		var sum float64
		for n := 0; n < len(b); n++ {
			j := n + m
			if j < 0 || j >= len(a) {
				continue
			}
			sum += a[j] * b[n]
		}
		out[k] = sum
	}
	return out
}

// argmax returns the first index of the maximum value.
func argmax(values []float64) int {
	best := 0
	bestVal := math.Inf(-1)
	for i, v := range values {
		if v > bestVal {
			best, bestVal = i, v
		}
	}
	return best
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
