package calibration

import "lightdark-study/internal/models"

// Fallback reasons reported in Result.Reason.
const (
	ReasonTooFewTrials = "too few usable trials"
	ReasonTrimmed      = "too few trials left after trimming"
	ReasonTooFewPoints = "too few distinct points"
)

// Params are the thresholds shared by the Fitts' and Hick's fits.
type Params struct {
	// MinTrials is the number of usable trials below which the fallback is used.
	MinTrials int
	// TrimAbove enables trimming when more than this many trials are kept.
	TrimAbove int
	// TrimCount trials are dropped from each end of the sorted sequence.
	TrimCount int
	// MinLevels is the number of distinct choice levels Hick's fit requires.
	MinLevels     int
	MinReactionMs float64
	MaxReactionMs float64
	Fallback      models.Equation
}

func DefaultParams() Params {
	return Params{
		MinTrials:     3,
		TrimAbove:     10,
		TrimCount:     5,
		MinLevels:     3,
		MinReactionMs: 150,
		MaxReactionMs: 1500,
		Fallback:      models.Equation{A: 200, B: 150, R2: 0},
	}
}

// Policy describes how raw trials of type T become regression points.
// Keep filters trials, Trim (optional) drops outliers from the kept set,
// and Points turns the survivors into (x, y) samples.
type Policy[T any] struct {
	Keep      func(T) bool
	Trim      func([]T) []T
	Points    func([]T) []Point
	MinTrials int
	MinPoints int
	Fallback  models.Equation
}

// Result is a fitted equation plus what went into it. Calibrated is false
// whenever Equation is the fallback.
type Result struct {
	Equation   models.Equation `json:"equation"`
	Calibrated bool            `json:"calibrated"`
	Kept       int             `json:"kept"`
	Points     int             `json:"points"`
	Reason     string          `json:"reason,omitempty"`
}

// Fit applies the policy to trials. It never fails: insufficient data
// produces the policy's fallback equation.
func Fit[T any](trials []T, p Policy[T]) Result {
	kept := make([]T, 0, len(trials))
	for _, t := range trials {
		if p.Keep == nil || p.Keep(t) {
			kept = append(kept, t)
		}
	}
	if len(kept) < p.MinTrials {
		return fallback(p.Fallback, len(kept), ReasonTooFewTrials)
	}

	if p.Trim != nil {
		kept = p.Trim(kept)
		if len(kept) < p.MinTrials {
			return fallback(p.Fallback, len(kept), ReasonTrimmed)
		}
	}

	points := p.Points(kept)
	if len(points) < p.MinPoints {
		res := fallback(p.Fallback, len(kept), ReasonTooFewPoints)
		res.Points = len(points)
		return res
	}

	return Result{
		Equation:   LinearRegression(points),
		Calibrated: true,
		Kept:       len(kept),
		Points:     len(points),
	}
}

func fallback(eq models.Equation, kept int, reason string) Result {
	return Result{Equation: eq, Kept: kept, Reason: reason}
}
