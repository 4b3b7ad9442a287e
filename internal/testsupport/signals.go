package testsupport

import (
	"math"
	"math/rand"

	"github.com/himanishpuri/AVSync/pkg/models"
)

// Silence returns seconds of zeros at rate.
func Silence(rate int, seconds float64) models.AudioSignal {
	return models.AudioSignal{Samples: make([]float64, int(seconds*float64(rate))), SampleRate: rate}
}

// Noise returns deterministic uniform noise in [-amp, amp].
func Noise(rate int, seconds, amp float64, seed int64) models.AudioSignal {
	rng := rand.New(rand.NewSource(seed))
	sig := Silence(rate, seconds)
	for i := range sig.Samples {
		sig.Samples[i] = amp * (2*rng.Float64() - 1)
	}
	return sig
}

// AddTone mixes a sine of freq Hz and amplitude amp into sig over [start, start+dur) seconds.
func AddTone(sig models.AudioSignal, freq, amp, start, dur float64) models.AudioSignal {
	rate := float64(sig.SampleRate)
	from := int(start * rate)
	to := int((start + dur) * rate)
	if from < 0 {
		from = 0
	}
	if to > len(sig.Samples) {
		to = len(sig.Samples)
	}
	for i := from; i < to; i++ {
		t := float64(i-from) / rate
		sig.Samples[i] += amp * math.Sin(2*math.Pi*freq*t)
	}
	return sig
}

// Advance drops the first seconds of sig and pads the tail with zeros, so an
// event at time t in sig appears at t-seconds in the result.
func Advance(sig models.AudioSignal, seconds float64) models.AudioSignal {
	k := int(math.Round(seconds * float64(sig.SampleRate)))
	out := make([]float64, len(sig.Samples))
	if k < len(sig.Samples) {
		copy(out, sig.Samples[k:])
	}
	return models.AudioSignal{Samples: out, SampleRate: sig.SampleRate}
}

// Delay right-shifts sig by seconds, zero-padding the head and keeping the
// length, so an event at time t in sig appears at t+seconds in the result.
func Delay(sig models.AudioSignal, seconds float64) models.AudioSignal {
	k := int(math.Round(seconds * float64(sig.SampleRate)))
	out := make([]float64, len(sig.Samples))
	if k < len(sig.Samples) {
		copy(out[k:], sig.Samples)
	}
	return models.AudioSignal{Samples: out, SampleRate: sig.SampleRate}
}

// Clone returns a deep copy of sig.
func Clone(sig models.AudioSignal) models.AudioSignal {
	out := make([]float64, len(sig.Samples))
	copy(out, sig.Samples)
	return models.AudioSignal{Samples: out, SampleRate: sig.SampleRate}
}
