package calibration

import (
	"slices"

	"lightdark-study/internal/metrics"
	"lightdark-study/internal/models"
)

// FittsCell summarises the trials of one width/distance combination.
type FittsCell struct {
	Width             float64                 `json:"width"`
	Distance          float64                 `json:"distance"`
	IndexOfDifficulty float64                 `json:"indexOfDifficulty"`
	MovementTime      metrics.ReactionSummary `json:"movementTime"`
	SuccessRate       metrics.MetricResult    `json:"successRate"`
}

// HicksLevel summarises the trials of one choice level.
type HicksLevel struct {
	NumChoices   int                     `json:"numChoices"`
	ReactionTime metrics.ReactionSummary `json:"reactionTime"`
	Accuracy     metrics.MetricResult    `json:"accuracy"`
}

// Summary is the per-condition breakdown of the raw calibration trials.
// Timing statistics only include successful or correct trials.
type Summary struct {
	Fitts []FittsCell  `json:"fitts"`
	Hicks []HicksLevel `json:"hicks"`
}

func Summarize(fitts []models.FittsTrialResult, hicks []models.HicksTrialResult) Summary {
	return Summary{Fitts: summarizeFitts(fitts), Hicks: summarizeHicks(hicks)}
}

func summarizeFitts(trials []models.FittsTrialResult) []FittsCell {
	type key struct{ w, d float64 }
	times := make(map[key][]float64)
	totals := make(map[key]int)
	hits := make(map[key]int)
	var order []key

	for _, t := range trials {
		k := key{t.TargetWidth, t.TargetDistance}
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k]++
		if t.Success {
			hits[k]++
			times[k] = append(times[k], t.MovementTimeMs)
		}
	}

	slices.SortFunc(order, func(a, b key) int {
		ia, ib := IndexOfDifficulty(a.d, a.w), IndexOfDifficulty(b.d, b.w)
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		}
		return 0
	})

	cells := make([]FittsCell, 0, len(order))
	for _, k := range order {
		cells = append(cells, FittsCell{
			Width:             k.w,
			Distance:          k.d,
			IndexOfDifficulty: IndexOfDifficulty(k.d, k.w),
			MovementTime:      metrics.ReactionStats(times[k]),
			SuccessRate:       metrics.Rate(hits[k], totals[k]),
		})
	}
	return cells
}

func summarizeHicks(trials []models.HicksTrialResult) []HicksLevel {
	times := make(map[int][]float64)
	totals := make(map[int]int)
	hits := make(map[int]int)

	for _, t := range trials {
		totals[t.NumChoices]++
		if t.Correct {
			hits[t.NumChoices]++
			times[t.NumChoices] = append(times[t.NumChoices], t.ReactionTimeMs)
		}
	}

	levels := make([]int, 0, len(totals))
	for n := range totals {
		levels = append(levels, n)
	}
	slices.Sort(levels)

	out := make([]HicksLevel, 0, len(levels))
	for _, n := range levels {
		out = append(out, HicksLevel{
			NumChoices:   n,
			ReactionTime: metrics.ReactionStats(times[n]),
			Accuracy:     metrics.Rate(hits[n], totals[n]),
		})
	}
	return out
}
