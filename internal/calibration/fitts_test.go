package calibration

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightdark-study/internal/models"
)

func fittsTrial(i int, id, mt float64, success bool) models.FittsTrialResult {
	return models.FittsTrialResult{
		TrialIndex:        i,
		IndexOfDifficulty: id,
		MovementTimeMs:    mt,
		Success:           success,
	}
}

func TestIndexOfDifficulty(t *testing.T) {
	assert.InDelta(t, 1.0, IndexOfDifficulty(100, 100), 1e-12)
	assert.InDelta(t, math.Log2(26), IndexOfDifficulty(500, 20), 1e-12)
	assert.InDelta(t, 0.0, IndexOfDifficulty(0, 40), 1e-12)

	widths := []float64{20, 40, 60, 80, 100}
	distances := []float64{100, 200, 300, 400, 500}
	for _, w := range widths {
		for i := 1; i < len(distances); i++ {
			assert.Greater(t, IndexOfDifficulty(distances[i], w), IndexOfDifficulty(distances[i-1], w))
		}
	}
	for _, d := range distances {
		for i := 1; i < len(widths); i++ {
			assert.Less(t, IndexOfDifficulty(d, widths[i]), IndexOfDifficulty(d, widths[i-1]))
		}
	}
}

func TestFitFitts_TooFewSuccessful(t *testing.T) {
	trials := []models.FittsTrialResult{
		fittsTrial(0, 1, 300, true),
		fittsTrial(1, 2, 450, true),
		fittsTrial(2, 3, 600, false),
		fittsTrial(3, 4, 750, false),
	}

	res := FitFitts(trials, DefaultParams())
	assert.Equal(t, models.Equation{A: 200, B: 150, R2: 0}, res.Equation)
	assert.False(t, res.Calibrated)
	assert.Equal(t, 2, res.Kept)
	assert.Equal(t, ReasonTooFewTrials, res.Reason)
}

func TestFitFitts_SmallSetIsNotTrimmed(t *testing.T) {
	var trials []models.FittsTrialResult
	for i := 0; i < 10; i++ {
		id := 1 + float64(i%5)
		trials = append(trials, fittsTrial(i, id, 100+100*id, true))
	}

	res := FitFitts(trials, DefaultParams())
	require.True(t, res.Calibrated)
	assert.Equal(t, 10, res.Kept)
	assert.InDelta(t, 100, res.Equation.A, 1e-9)
	assert.InDelta(t, 100, res.Equation.B, 1e-9)
}

func TestFitFitts_TrimsFastestAndSlowest(t *testing.T) {
	var trials []models.FittsTrialResult
	// five on the line MT = 100 + 100·ID
	for i, id := range []float64{1, 2, 3, 4, 5} {
		trials = append(trials, fittsTrial(i, id, 100+100*id, true))
	}
	// five premature clicks on the hardest targets
	for i := 0; i < 5; i++ {
		trials = append(trials, fittsTrial(5+i, 5, 10+float64(i), true))
	}
	// five lapses on the easiest targets
	for i := 0; i < 5; i++ {
		trials = append(trials, fittsTrial(10+i, 1, 2000+float64(i), true))
	}

	res := FitFitts(trials, DefaultParams())
	require.True(t, res.Calibrated)
	assert.Equal(t, 5, res.Kept)
	assert.InDelta(t, 100, res.Equation.A, 1e-9)
	assert.InDelta(t, 100, res.Equation.B, 1e-9)
	assert.InDelta(t, 1, res.Equation.R2, 1e-9)

	var xs, ys []float64
	for _, tr := range trials {
		xs = append(xs, tr.IndexOfDifficulty)
		ys = append(ys, tr.MovementTimeMs)
	}
	untrimmed := Regress(xs, ys)
	assert.Less(t, untrimmed.B, 0.0, "outliers should pull the untrimmed slope negative")
}

func TestFitFitts_TrimLeavesTooFew(t *testing.T) {
	var trials []models.FittsTrialResult
	for i := 0; i < 12; i++ {
		id := 1 + float64(i%4)
		trials = append(trials, fittsTrial(i, id, 180+140*id, true))
	}

	res := FitFitts(trials, DefaultParams())
	assert.False(t, res.Calibrated)
	assert.Equal(t, ReasonTrimmed, res.Reason)
	assert.Equal(t, DefaultParams().Fallback, res.Equation)
}

func TestFitFitts_IgnoresFailedTrialsWhenTrimming(t *testing.T) {
	var trials []models.FittsTrialResult
	for i := 0; i < 8; i++ {
		id := 1 + float64(i%4)
		trials = append(trials, fittsTrial(i, id, 100+50*id, true))
	}
	for i := 0; i < 8; i++ {
		trials = append(trials, fittsTrial(8+i, 2, 5000, false))
	}

	res := FitFitts(trials, DefaultParams())
	require.True(t, res.Calibrated)
	assert.Equal(t, 8, res.Kept)
	assert.InDelta(t, 50, res.Equation.B, 1e-9)
}

func TestFitFitts_RecoversGeneratedParticipant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	gen := NewGenerator(DefaultDesign(), rng)

	var trials []models.FittsTrialResult
	for i, spec := range gen.FittsTrials() {
		id := IndexOfDifficulty(spec.Distance, spec.Width)
		noise := (rng.Float64()*2 - 1) * 15
		trials = append(trials, models.FittsTrialResult{
			TrialIndex:        i,
			TargetWidth:       spec.Width,
			TargetDistance:    spec.Distance,
			IndexOfDifficulty: id,
			MovementTimeMs:    180 + 140*id + noise,
			Success:           true,
		})
	}

	res := FitFitts(trials, DefaultParams())
	require.True(t, res.Calibrated)
	assert.Equal(t, 40, res.Kept)
	assert.InEpsilon(t, 180, res.Equation.A, 0.2)
	assert.InEpsilon(t, 140, res.Equation.B, 0.2)
	assert.Greater(t, res.Equation.R2, 0.8)
}

func TestPredictFitts(t *testing.T) {
	eq := models.Equation{A: 100, B: 50}
	assert.InDelta(t, 100+50*math.Log2(3), PredictFitts(eq, 200, 100), 1e-9)
	assert.Zero(t, PredictFitts(models.Equation{A: -500, B: 10}, 100, 100))
}
