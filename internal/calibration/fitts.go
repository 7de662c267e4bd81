package calibration

import (
	"math"
	"slices"

	"lightdark-study/internal/models"
)

// IndexOfDifficulty is log2(distance/width + 1).
func IndexOfDifficulty(distance, width float64) float64 {
	return math.Log2(distance/width + 1)
}

// FittsPolicy keeps successful trials and, when more than TrimAbove remain,
// drops the TrimCount fastest and slowest before fitting ID against MT.
func FittsPolicy(p Params) Policy[models.FittsTrialResult] {
	return Policy[models.FittsTrialResult]{
		Keep: func(t models.FittsTrialResult) bool { return t.Success },
		Trim: func(trials []models.FittsTrialResult) []models.FittsTrialResult {
			if len(trials) <= p.TrimAbove {
				return trials
			}
			sorted := slices.Clone(trials)
			slices.SortStableFunc(sorted, func(a, b models.FittsTrialResult) int {
				switch {
				case a.MovementTimeMs < b.MovementTimeMs:
					return -1
				case a.MovementTimeMs > b.MovementTimeMs:
					return 1
				}
				return 0
			})
			if len(sorted) <= 2*p.TrimCount {
				return nil
			}
			return sorted[p.TrimCount : len(sorted)-p.TrimCount]
		},
		Points: func(trials []models.FittsTrialResult) []Point {
			points := make([]Point, len(trials))
			for i, t := range trials {
				points[i] = Point{X: t.IndexOfDifficulty, Y: t.MovementTimeMs}
			}
			return points
		},
		MinTrials: p.MinTrials,
		Fallback:  p.Fallback,
	}
}

// FitFitts fits MT = a + b·ID over the trials.
func FitFitts(trials []models.FittsTrialResult, p Params) Result {
	return Fit(trials, FittsPolicy(p))
}

// PredictFitts returns a + b·ID(distance, width), floored at zero.
func PredictFitts(eq models.Equation, distance, width float64) float64 {
	return math.Max(0, eq.A+eq.B*IndexOfDifficulty(distance, width))
}
