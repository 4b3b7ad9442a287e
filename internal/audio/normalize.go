package audio

import (
	"math"

	"github.com/himanishpuri/AVSync/pkg/models"
)

// silenceFloor is the standard deviation below which a signal counts as silent.
const silenceFloor = 1e-9

// Normalize returns (x - mean(x)) / std(x). A silent or empty input cannot be
// compared and yields an analysis error.
func Normalize(samples []float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, models.Wrap(models.ErrAnalysis, "normalize", "", "empty signal", nil)
	}
	mean, std := MeanStd(samples)
	if std < silenceFloor || math.IsNaN(std) {
		return nil, models.Wrap(models.ErrAnalysis, "normalize", "", "signal is silent (zero variance)", nil)
	}
	out := make([]float64, len(samples))
	for i, x := range samples {
		out[i] = (x - mean) / std
	}
	return out, nil
}

// MeanStd returns the mean and population standard deviation.
func MeanStd(samples []float64) (float64, float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range samples {
		sum += x
	}
	mean := sum / float64(len(samples))

	var sq float64
	for _, x := range samples {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(samples)))
}
