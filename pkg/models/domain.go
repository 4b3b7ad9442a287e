package models

import "math"

// Method identifies the estimator that produced an offset.
type Method string

const (
	MethodCrossCorrelation Method = "cross_correlation"
	MethodBeepDetection    Method = "beep_detection"
)

// Confidence is derived from the method only. Beep detection depends on a
// calibration tone being present, so it ranks below cross-correlation.
func (m Method) Confidence() float64 {
	switch m {
	case MethodCrossCorrelation:
		return 1.0
	case MethodBeepDetection:
		return 0.5
	default:
		return 0
	}
}

// AudioSignal is a mono PCM signal with samples scaled to [-1, 1].
type AudioSignal struct {
	Samples    []float64
	SampleRate int
}

// DurationSec returns the signal length in seconds.
func (s AudioSignal) DurationSec() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Truncate returns the leading window of at most seconds. The backing array is shared.
func (s AudioSignal) Truncate(seconds float64) AudioSignal {
	if seconds <= 0 || s.SampleRate <= 0 {
		return s
	}
	n := int(seconds * float64(s.SampleRate))
	if n >= len(s.Samples) {
		return s
	}
	return AudioSignal{Samples: s.Samples[:n], SampleRate: s.SampleRate}
}

// Recording is a source video together with its derived audio.
type Recording struct {
	Path     string
	Signal   AudioSignal
	Duration float64 // seconds, container duration
}

// OffsetEstimate is a signed offset in seconds. A positive value means the
// first recording's audio event occurs later than the second's, i.e. the first
// recording started earlier and has to be trimmed forward.
type OffsetEstimate struct {
	Seconds float64
	Method  Method
}

func (e OffsetEstimate) Confidence() float64 { return e.Method.Confidence() }

// BeepResult distinguishes "found at t=0" from "not found".
type BeepResult struct {
	Found bool
	Time  float64 // seconds from the start of the signal, valid when Found
}

// Leader names the recording that started first.
type Leader int

const (
	LeaderNone Leader = iota // already aligned
	LeaderFirst
	LeaderSecond
)

func (l Leader) String() string {
	switch l {
	case LeaderFirst:
		return "first"
	case LeaderSecond:
		return "second"
	default:
		return "none"
	}
}

// ResolvedOffset is the single offset chosen for a pair.
type ResolvedOffset struct {
	Seconds float64
	Method  Method // empty when Unresolved

	// SanityExceeded is set when an estimate was discarded for exceeding the sanity bound.
	SanityExceeded bool
	// Unresolved is set when no estimate was usable and zero was substituted.
	Unresolved bool
	Discarded  []OffsetEstimate
}

// Leader reports which recording started earlier.
func (r ResolvedOffset) Leader() Leader {
	switch {
	case r.Seconds > 0:
		return LeaderFirst
	case r.Seconds < 0:
		return LeaderSecond
	default:
		return LeaderNone
	}
}

// TrimPlan holds the start offset of each recording and the shared output duration.
type TrimPlan struct {
	Start1   float64
	Start2   float64
	Duration float64
}

// Precision is the accuracy tier of a trim.
type Precision string

const (
	// PrecisionStreamCopy cuts without re-encoding; start times snap to keyframes.
	PrecisionStreamCopy Precision = "stream_copy"
	// PrecisionFrameAccurate re-encodes so the cut lands on the requested frame.
	PrecisionFrameAccurate Precision = "frame_accurate"
)

func (p Precision) Valid() bool {
	return p == PrecisionStreamCopy || p == PrecisionFrameAccurate
}

// TrimResult describes one produced output.
type TrimResult struct {
	OutputPath       string
	Start            float64
	Duration         float64
	MeasuredDuration float64 // 0 when the output could not be probed
	Precision        Precision
}

// Drift is the difference between the measured and the planned duration.
func (r TrimResult) Drift() float64 {
	if r.MeasuredDuration == 0 {
		return 0
	}
	return math.Abs(r.MeasuredDuration - r.Duration)
}

// PairResult is the outcome of one synchronization run.
type PairResult struct {
	RunID      string
	First      string
	Second     string
	Estimates  []OffsetEstimate
	Beeps      [2]BeepResult
	Resolved   ResolvedOffset
	Plan       TrimPlan
	Outputs    []TrimResult
	Skipped    bool
	SkipReason string
	Err        error
}
