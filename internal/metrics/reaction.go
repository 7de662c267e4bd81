package metrics

import (
	"math"
)

// ReactionSummary describes a set of timings in milliseconds.
type ReactionSummary struct {
	Mean   MetricResult `json:"mean"`
	StdDev MetricResult `json:"stdDev"`
}

// ReactionStats returns the mean and population standard deviation of values.
// The SD needs at least two values.
func ReactionStats(values []float64) ReactionSummary {
	if len(values) == 0 {
		return ReactionSummary{}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))

	summary := ReactionSummary{
		Mean: MetricResult{Value: avg, Calculated: true, SampleSize: len(values)},
	}
	if len(values) <= 1 {
		return summary
	}

	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - avg
		sumSquaredDiff += diff * diff
	}

	variance := sumSquaredDiff / float64(len(values))
	summary.StdDev = MetricResult{Value: math.Sqrt(variance), Calculated: true, SampleSize: len(values)}
	return summary
}

// Rate is hits/total, or an uncalculated result when total is zero.
func Rate(hits, total int) MetricResult {
	if total == 0 {
		return MetricResult{}
	}
	return MetricResult{
		Value:      float64(hits) / float64(total),
		Calculated: true,
		SampleSize: total,
	}
}
