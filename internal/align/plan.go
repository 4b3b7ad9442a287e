package align

import (
	"fmt"
	"math"

	"github.com/himanishpuri/AVSync/pkg/models"
)

// Plan turns a resolved offset into start times and a shared duration. The
// recording that started earlier is trimmed forward by |offset|; the output
// duration is what both recordings can cover from their start.
func Plan(resolved models.ResolvedOffset, d1, d2 float64) (models.TrimPlan, error) {
	offset := resolved.Seconds
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return models.TrimPlan{}, models.Wrap(models.ErrPlanning, "plan", "", fmt.Sprintf("invalid offset %v", offset), nil)
	}

	var plan models.TrimPlan
	switch {
	case offset > 0:
		plan.Start1 = offset
	case offset < 0:
		plan.Start2 = -offset
	}

	plan.Duration = math.Min(d1-plan.Start1, d2-plan.Start2)
	if plan.Duration <= 0 {
		return plan, models.Wrap(models.ErrPlanning, "plan", "",
			fmt.Sprintf("no overlap: durations %.3fs and %.3fs with starts %.3fs and %.3fs",
				d1, d2, plan.Start1, plan.Start2), nil)
	}
	return plan, nil
}
