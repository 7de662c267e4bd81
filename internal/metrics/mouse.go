package metrics

import (
	"math"
	"sort"

	"lightdark-study/internal/models"
)

// CursorDistance is the summed length of the path's segments, rounded to
// whole pixels. Paths with fewer than two samples have length 0.
func CursorDistance(path []models.CursorSample) float64 {
	if len(path) < 2 {
		return 0
	}

	distance := 0.0
	for i := 1; i < len(path); i++ {
		distance += segment(path[i-1], path[i])
	}
	return math.Round(distance)
}

// PathEfficiency is straight-line distance over travelled distance between
// the first and last sample, capped at 1.
func PathEfficiency(path []models.CursorSample) MetricResult {
	// Need at least 2 samples to calculate a path
	if len(path) < 2 {
		return MetricResult{
			Value:      0.0,
			Calculated: false,
			SampleSize: 0,
		}
	}

	first, last := path[0], path[len(path)-1]
	directDistance := segment(first, last)

	// If direct distance is very small, efficiency is meaningless
	if directDistance < 10.0 { // 10 pixels minimum threshold
		return MetricResult{
			Value:      0.0,
			Calculated: false,
			SampleSize: len(path),
		}
	}

	// Calculate actual path distance with filtering for small movements
	actualDistance := 0.0
	prev := first
	for i := 1; i < len(path); i++ {
		segmentDist := segment(prev, path[i])

		// Filter out tiny movements that could be noise
		if segmentDist > 1.0 { // 1 pixel minimum threshold
			actualDistance += segmentDist
			prev = path[i]
		}
	}

	// The last sample may have been swallowed by the noise filter
	if finalDist := segment(prev, last); finalDist > 0 {
		actualDistance += finalDist
	}

	if actualDistance <= 0 {
		return MetricResult{
			Value:      0.0,
			Calculated: false,
			SampleSize: len(path),
		}
	}

	efficiency := directDistance / actualDistance
	if efficiency > 1.0 {
		efficiency = 1.0 // Cap at 100% efficiency
	}

	return MetricResult{
		Value:      efficiency,
		Calculated: true,
		SampleSize: len(path),
	}
}

// AverageVelocity is the trimmed mean cursor speed in px/s. Samples without
// increasing timestamps contribute nothing.
func AverageVelocity(path []models.CursorSample) MetricResult {
	if len(path) < 2 {
		return MetricResult{
			Value:      0.0,
			Calculated: false,
			SampleSize: 0,
		}
	}

	var velocities []float64

	for i := 1; i < len(path); i++ {
		dt := (path[i].Timestamp - path[i-1].Timestamp) / 1000 // Convert to seconds
		if dt <= 0 {
			continue
		}

		distance := segment(path[i-1], path[i])

		// Filter out extremely small movements (likely noise)
		if distance < 1.0 {
			continue
		}

		velocity := distance / dt

		// Skip unrealistically high velocities
		if velocity < 10000 {
			velocities = append(velocities, velocity)
		}
	}

	if len(velocities) == 0 {
		return MetricResult{
			Value:      0.0,
			Calculated: false,
			SampleSize: 0,
		}
	}

	// Calculate trimmed mean (remove top and bottom 5%) if we have enough samples
	if len(velocities) > 10 {
		sort.Float64s(velocities)
		trimIndex := int(math.Floor(float64(len(velocities)) * 0.05))
		if trimIndex > 0 {
			velocities = velocities[trimIndex : len(velocities)-trimIndex]
		}
	}

	var sum float64
	for _, v := range velocities {
		sum += v
	}

	return MetricResult{
		Value:      sum / float64(len(velocities)),
		Calculated: true,
		SampleSize: len(velocities),
	}
}

func segment(a, b models.CursorSample) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}
