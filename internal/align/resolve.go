package align

import (
	"fmt"
	"math"

	"github.com/himanishpuri/AVSync/pkg/models"
)

// Inputs is everything the resolver can choose from. Nil fields mean the
// corresponding estimator did not run.
type Inputs struct {
	Correlation *models.OffsetEstimate
	Beep1       *models.BeepResult
	Beep2       *models.BeepResult
	SanityBound float64 // seconds; <= 0 disables the bound
}

// BeepOffset converts two beep detections into an offset estimate using the
// same sign convention as cross-correlation: positive when the first
// recording's beep comes later.
func BeepOffset(b1, b2 models.BeepResult) (models.OffsetEstimate, bool) {
	if !b1.Found || !b2.Found {
		return models.OffsetEstimate{}, false
	}
	return models.OffsetEstimate{Seconds: b1.Time - b2.Time, Method: models.MethodBeepDetection}, true
}

// Resolve picks the offset to use for a pair. Cross-correlation wins when it
// lies within the sanity bound, beep detection is the fallback. When neither
// is usable the result is zero with Unresolved set, and the returned error
// wraps ErrOffsetUnresolved; the result is still meaningful to callers that
// choose to proceed.
func Resolve(in Inputs) (models.ResolvedOffset, error) {
	var out models.ResolvedOffset

	if cc := in.Correlation; cc != nil {
		if in.SanityBound <= 0 || math.Abs(cc.Seconds) <= in.SanityBound {
			out.Seconds = cc.Seconds
			out.Method = cc.Method
			return out, nil
		}
		out.SanityExceeded = true
		out.Discarded = append(out.Discarded, *cc)
	}

	if in.Beep1 != nil && in.Beep2 != nil {
		if est, ok := BeepOffset(*in.Beep1, *in.Beep2); ok {
			out.Seconds = est.Seconds
			out.Method = est.Method
			return out, nil
		}
	}

	out.Seconds = 0
	out.Method = ""
	out.Unresolved = true
	return out, models.Wrap(models.ErrOffsetUnresolved, "resolve", "", reason(in, out), nil)
}

func reason(in Inputs, out models.ResolvedOffset) string {
	switch {
	case out.SanityExceeded && in.Beep1 == nil:
		return fmt.Sprintf("cross-correlation offset %.3fs exceeds %.1fs bound and beep detection is disabled",
			out.Discarded[0].Seconds, in.SanityBound)
	case out.SanityExceeded:
		return fmt.Sprintf("cross-correlation offset %.3fs exceeds %.1fs bound and no beep was found in both recordings",
			out.Discarded[0].Seconds, in.SanityBound)
	case in.Correlation == nil && in.Beep1 == nil:
		return "no estimator produced an offset"
	default:
		return "no beep found in both recordings"
	}
}
