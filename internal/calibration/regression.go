package calibration

import (
	"math"

	"lightdark-study/internal/models"
)

// Point is one (x, y) sample fed to the regression.
type Point struct {
	X float64
	Y float64
}

// LinearRegression fits y = a + b*x over points. See Regress.
func LinearRegression(points []Point) models.Equation {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	return Regress(xs, ys)
}

// Regress fits y = a + b*x by ordinary least squares over paired samples.
// Extra values in the longer slice are ignored.
//
// Fewer than two pairs yield the zero equation. When every x is the same
// the slope is undefined and the result is the flat line through mean(y)
// with r2 = 0. R² below zero is reported as zero.
func Regress(xs, ys []float64) models.Equation {
	count := min(len(xs), len(ys))
	if count < 2 {
		return models.Equation{}
	}
	xs, ys = xs[:count], ys[:count]
	n := float64(count)

	var sumX, sumY, sumXY, sumX2 float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
	}

	denominator := n*sumX2 - sumX*sumX
	if isZero(denominator, n*sumX2) {
		return models.Equation{A: sumY / n}
	}

	b := (n*sumXY - sumX*sumY) / denominator
	a := (sumY - b*sumX) / n

	meanY := sumY / n
	var ssTotal, ssResidual float64
	for i := range xs {
		ssTotal += (ys[i] - meanY) * (ys[i] - meanY)
		residual := ys[i] - (a + b*xs[i])
		ssResidual += residual * residual
	}

	r2 := 0.0
	if ssTotal > 0 {
		r2 = 1 - ssResidual/ssTotal
	}
	return models.Equation{A: a, B: b, R2: math.Max(0, r2)}
}

// isZero treats v as zero when it is within rounding noise of scale. Identical
// x values like log2(3) do not cancel exactly in n·Σx² − (Σx)².
func isZero(v, scale float64) bool {
	return math.Abs(v) <= 1e-9*math.Max(1, math.Abs(scale))
}
