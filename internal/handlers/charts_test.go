package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightdark-study/internal/models"
)

func TestGenerateFittsChart(t *testing.T) {
	trials := []models.FittsTrialResult{
		{TargetWidth: 20, TargetDistance: 100, MovementTimeMs: 600, Success: true},
		{TargetWidth: 100, TargetDistance: 100, MovementTimeMs: 300, Success: true},
		{TargetWidth: 20, TargetDistance: 500, MovementTimeMs: 2000, Success: false},
	}
	chart := generateFittsChart(trials, models.Equation{A: 100, B: 150, R2: 0.9})
	chart.Validate()

	options := chart.JSON()
	require.Contains(t, options, "series")
	assert.Len(t, chart.MultiSeries, 2, "trial points plus the fitted line")
	assert.Len(t, chart.MultiSeries[0].Data, 2, "failed trials are not plotted")
}

func TestGenerateHicksChart_Empty(t *testing.T) {
	chart := generateHicksChart(nil, models.Equation{A: 200, B: 150})
	chart.Validate()
	assert.Len(t, chart.MultiSeries, 1, "no fitted line without points")
}
