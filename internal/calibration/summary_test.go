package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightdark-study/internal/models"
)

func TestSummarize(t *testing.T) {
	fitts := []models.FittsTrialResult{
		{TargetWidth: 20, TargetDistance: 500, MovementTimeMs: 900, Success: true},
		{TargetWidth: 100, TargetDistance: 100, MovementTimeMs: 300, Success: true},
		{TargetWidth: 100, TargetDistance: 100, MovementTimeMs: 500, Success: true},
		{TargetWidth: 20, TargetDistance: 500, MovementTimeMs: 2000, Success: false},
	}
	hicks := []models.HicksTrialResult{
		{NumChoices: 3, ReactionTimeMs: 400, Correct: true},
		{NumChoices: 2, ReactionTimeMs: 300, Correct: true},
		{NumChoices: 2, ReactionTimeMs: 350, Correct: false},
	}

	s := Summarize(fitts, hicks)

	require.Len(t, s.Fitts, 2)
	assert.Equal(t, 100.0, s.Fitts[0].Width, "cells are ordered by difficulty")
	assert.InDelta(t, 400, s.Fitts[0].MovementTime.Mean.Value, 1e-9)
	assert.InDelta(t, 100, s.Fitts[0].MovementTime.StdDev.Value, 1e-9)
	assert.InDelta(t, 1, s.Fitts[0].SuccessRate.Value, 1e-9)
	assert.InDelta(t, 0.5, s.Fitts[1].SuccessRate.Value, 1e-9)
	assert.Equal(t, 1, s.Fitts[1].MovementTime.Mean.SampleSize)

	require.Len(t, s.Hicks, 2)
	assert.Equal(t, 2, s.Hicks[0].NumChoices)
	assert.InDelta(t, 300, s.Hicks[0].ReactionTime.Mean.Value, 1e-9)
	assert.InDelta(t, 0.5, s.Hicks[0].Accuracy.Value, 1e-9)
	assert.False(t, s.Hicks[1].ReactionTime.StdDev.Calculated)
}
