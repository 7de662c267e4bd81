package handlers

import (
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"lightdark-study/internal/calibration"
	"lightdark-study/internal/models"
)

// generateFittsChart plots movement time against index of difficulty for
// the successful pointing trials.
func generateFittsChart(trials []models.FittsTrialResult, eq models.Equation) *charts.Scatter {
	var xs, ys []float64
	for _, t := range trials {
		if !t.Success {
			continue
		}
		xs = append(xs, calibration.IndexOfDifficulty(t.TargetDistance, t.TargetWidth))
		ys = append(ys, t.MovementTimeMs)
	}
	return generateFitChart("Fitts' Law", "Index of Difficulty (bits)", "Movement Time (ms)", xs, ys, eq)
}

// generateHicksChart plots reaction time against log2 of the choice count
// for the correct choice trials.
func generateHicksChart(trials []models.HicksTrialResult, eq models.Equation) *charts.Scatter {
	var xs, ys []float64
	for _, t := range trials {
		if !t.Correct {
			continue
		}
		xs = append(xs, math.Log2(float64(t.NumChoices)))
		ys = append(ys, t.ReactionTimeMs)
	}
	return generateFitChart("Hick's Law", "log2(choices)", "Reaction Time (ms)", xs, ys, eq)
}

func generateFitChart(title, xName, yName string, xs, ys []float64, eq models.Equation) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("y = %.2f + %.2f·x, R² = %.3f", eq.A, eq.B, eq.R2),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "value",
			Name: xName,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Name:  yName,
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	items := make([]opts.ScatterData, 0, len(xs))
	for i := range xs {
		items = append(items, opts.ScatterData{Value: []interface{}{xs[i], ys[i]}})
	}
	scatter.AddSeries("Trials", items)

	if len(xs) > 0 {
		lo, hi := xs[0], xs[0]
		for _, x := range xs[1:] {
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
		line := charts.NewLine()
		line.AddSeries("Fit", []opts.LineData{
			{Value: []interface{}{lo, eq.A + eq.B*lo}},
			{Value: []interface{}{hi, eq.A + eq.B*hi}},
		}).SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
		scatter.Overlap(line)
	}
	return scatter
}
