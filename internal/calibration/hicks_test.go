package calibration

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightdark-study/internal/models"
)

func hicksTrial(n int, rt float64, correct bool) models.HicksTrialResult {
	return models.HicksTrialResult{NumChoices: n, ReactionTimeMs: rt, Correct: correct}
}

func TestFitHicks_Filters(t *testing.T) {
	trials := []models.HicksTrialResult{
		hicksTrial(2, 320, true),
		hicksTrial(3, 390, true),
		hicksTrial(4, 440, true),
		hicksTrial(2, 100, true),  // anticipatory
		hicksTrial(3, 1600, true), // lapse
		hicksTrial(4, 450, false), // wrong key, plausible timing
		hicksTrial(5, 500, false), // wrong key on a level nobody else covers
		hicksTrial(2, 150, true),  // window edges are inclusive
		hicksTrial(4, 1500, true),
	}

	res := FitHicks(trials, DefaultParams())
	require.True(t, res.Calibrated)
	assert.Equal(t, 5, res.Kept)
	assert.Equal(t, 3, res.Points)
}

func TestFitHicks_TooFewTrials(t *testing.T) {
	trials := []models.HicksTrialResult{
		hicksTrial(2, 300, true),
		hicksTrial(3, 350, true),
		hicksTrial(4, 100, true),
		hicksTrial(5, 400, false),
	}

	res := FitHicks(trials, DefaultParams())
	assert.False(t, res.Calibrated)
	assert.Equal(t, ReasonTooFewTrials, res.Reason)
	assert.Equal(t, models.Equation{A: 200, B: 150, R2: 0}, res.Equation)
}

func TestFitHicks_TwoLevelsFallsBack(t *testing.T) {
	var trials []models.HicksTrialResult
	for i := 0; i < 8; i++ {
		trials = append(trials, hicksTrial(2, 320, true), hicksTrial(4, 440, true))
	}

	res := FitHicks(trials, DefaultParams())
	assert.False(t, res.Calibrated)
	assert.Equal(t, ReasonTooFewPoints, res.Reason)
	assert.Equal(t, 2, res.Points)
	assert.Equal(t, models.Equation{A: 200, B: 150, R2: 0}, res.Equation)
}

func TestFitHicks_RecoversParticipant(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	var trials []models.HicksTrialResult
	for _, n := range []int{2, 3, 4, 5} {
		for rep := 0; rep < 8; rep++ {
			noise := (rng.Float64()*2 - 1) * 25
			trials = append(trials, hicksTrial(n, 200+120*math.Log2(float64(n))+noise, true))
		}
	}

	res := FitHicks(trials, DefaultParams())
	require.True(t, res.Calibrated)
	assert.Equal(t, 4, res.Points)
	assert.InEpsilon(t, 200, res.Equation.A, 0.15)
	assert.InEpsilon(t, 120, res.Equation.B, 0.15)
	assert.Greater(t, res.Equation.R2, 0.8)
}

func TestLevelMeans(t *testing.T) {
	levels := LevelMeans([]models.HicksTrialResult{
		hicksTrial(4, 400, true),
		hicksTrial(2, 300, true),
		hicksTrial(4, 500, true),
	})

	require.Len(t, levels, 2)
	assert.Equal(t, LevelMean{NumChoices: 2, MeanMs: 300, Count: 1}, levels[0])
	assert.Equal(t, LevelMean{NumChoices: 4, MeanMs: 450, Count: 2}, levels[1])
}

func TestPredictHicks(t *testing.T) {
	eq := models.Equation{A: 200, B: 120}
	assert.InDelta(t, 440, PredictHicks(eq, 4), 1e-9)
	assert.InDelta(t, 200, PredictHicks(eq, 1), 1e-9)
}
