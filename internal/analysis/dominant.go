package analysis

import (
	"errors"
	"math/cmplx"
	"sort"

	"github.com/himanishpuri/AVSync/pkg/models"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Peak is one spectral component of a signal.
type Peak struct {
	Frequency float64 // Hz
	Magnitude float64
}

// bandMargin widens a suggested beep band on each side, in Hz.
const bandMargin = 100.0

// DominantFrequencies returns the n strongest positive-frequency components of
// the whole signal, strongest first.
func DominantFrequencies(sig models.AudioSignal, n int) ([]Peak, error) {
	if len(sig.Samples) < 2 || sig.SampleRate <= 0 {
		return nil, models.Wrap(models.ErrAnalysis, "tone", "", "signal too short", nil)
	}
	if n <= 0 {
		return nil, nil
	}

	size := len(sig.Samples)
	fft := fourier.NewFFT(size)
	coeff := fft.Coefficients(nil, sig.Samples)

	peaks := make([]Peak, 0, len(coeff))
	for k := 1; k < len(coeff); k++ {
		peaks = append(peaks, Peak{
			Frequency: fft.Freq(k) * float64(sig.SampleRate),
			Magnitude: cmplx.Abs(coeff[k]) / float64(size),
		})
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Magnitude > peaks[j].Magnitude })
	if len(peaks) > n {
		peaks = peaks[:n]
	}
	return peaks, nil
}

// SuggestBand returns a detection band spanning the given peaks plus a margin.
func SuggestBand(peaks []Peak) (float64, float64, error) {
	if len(peaks) == 0 {
		return 0, 0, errors.New("no dominant frequencies")
	}
	lo, hi := peaks[0].Frequency, peaks[0].Frequency
	for _, p := range peaks[1:] {
		if p.Frequency < lo {
			lo = p.Frequency
		}
		if p.Frequency > hi {
			hi = p.Frequency
		}
	}
	lo -= bandMargin
	if lo < 0 {
		lo = 0
	}
	return lo, hi + bandMargin, nil
}
