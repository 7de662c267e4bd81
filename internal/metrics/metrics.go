package metrics

import (
	"lightdark-study/internal/models"
)

type MetricResult struct {
	Value      float64 `json:"value"`
	Calculated bool    `json:"calculated"`
	SampleSize int     `json:"sampleSize,omitempty"`
}

// CursorMetrics are the values derived from one task's raw cursor path.
type CursorMetrics struct {
	DistancePx      float64      `json:"distancePx"`
	PathEfficiency  MetricResult `json:"pathEfficiency"`
	AverageVelocity MetricResult `json:"averageVelocity"`
}

// CalculateCursorMetrics computes all cursor metrics for a path. Samples are
// taken in the order the widget reported them.
func CalculateCursorMetrics(path []models.CursorSample) CursorMetrics {
	return CursorMetrics{
		DistancePx:      CursorDistance(path),
		PathEfficiency:  PathEfficiency(path),
		AverageVelocity: AverageVelocity(path),
	}
}
