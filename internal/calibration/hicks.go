package calibration

import (
	"math"
	"slices"

	"lightdark-study/internal/models"
)

// HicksPolicy keeps correct trials inside the reaction window and fits one
// point per choice level: x = log2(n), y = mean RT at that level.
func HicksPolicy(p Params) Policy[models.HicksTrialResult] {
	return Policy[models.HicksTrialResult]{
		Keep: func(t models.HicksTrialResult) bool {
			return t.Correct && t.ReactionTimeMs >= p.MinReactionMs && t.ReactionTimeMs <= p.MaxReactionMs
		},
		Points: func(trials []models.HicksTrialResult) []Point {
			levels := LevelMeans(trials)
			points := make([]Point, len(levels))
			for i, l := range levels {
				points[i] = Point{X: math.Log2(float64(l.NumChoices)), Y: l.MeanMs}
			}
			return points
		},
		MinTrials: p.MinTrials,
		MinPoints: p.MinLevels,
		Fallback:  p.Fallback,
	}
}

// FitHicks fits RT = a + b·log2(n) over the trials.
func FitHicks(trials []models.HicksTrialResult, p Params) Result {
	return Fit(trials, HicksPolicy(p))
}

// PredictHicks returns a + b·log2(n), floored at zero.
func PredictHicks(eq models.Equation, numChoices float64) float64 {
	return math.Max(0, eq.A+eq.B*math.Log2(numChoices))
}

// LevelMean is the mean reaction time at one choice level.
type LevelMean struct {
	NumChoices int
	MeanMs     float64
	Count      int
}

// LevelMeans groups trials by choice count, ascending.
func LevelMeans(trials []models.HicksTrialResult) []LevelMean {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, t := range trials {
		sums[t.NumChoices] += t.ReactionTimeMs
		counts[t.NumChoices]++
	}

	levels := make([]int, 0, len(counts))
	for n := range counts {
		levels = append(levels, n)
	}
	slices.Sort(levels)

	out := make([]LevelMean, len(levels))
	for i, n := range levels {
		out[i] = LevelMean{NumChoices: n, MeanMs: sums[n] / float64(counts[n]), Count: counts[n]}
	}
	return out
}
