package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lightdark-study/internal/models"
)

var (
	fittsColumns = []string{"trialType", "trialIndex", "targetWidth", "targetDistance", "indexOfDifficulty", "movementTimeMs", "success", "timestamp"}
	hicksColumns = []string{"trialType", "trialIndex", "numChoices", "targetKey", "reactionTimeMs", "correct", "timestamp"}
)

// WriteCalibrationCSV writes both trial logs as one document with '#'
// section comments and a trailing equation summary.
func WriteCalibrationCSV(w io.Writer, data *models.CalibrationData) error {
	if data == nil {
		data = &models.CalibrationData{}
	}

	cw := csv.NewWriter(w)
	comment := func(lines ...string) error {
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
		return nil
	}
	write := func(record []string) error {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write calibration row: %w", err)
		}
		return nil
	}

	if err := comment("# Fitts' Law Trials"); err != nil {
		return err
	}
	if err := write(fittsColumns); err != nil {
		return err
	}
	for _, t := range data.FittsTrials {
		err := write([]string{
			"fitts",
			strconv.Itoa(t.TrialIndex),
			formatFloat(t.TargetWidth),
			formatFloat(t.TargetDistance),
			strconv.FormatFloat(t.IndexOfDifficulty, 'f', 3, 64),
			formatFloat(t.MovementTimeMs),
			strconv.FormatBool(t.Success),
			formatTime(t.Timestamp),
		})
		if err != nil {
			return err
		}
	}

	if err := comment("", "# Hick's Law Trials"); err != nil {
		return err
	}
	if err := write(hicksColumns); err != nil {
		return err
	}
	for _, t := range data.HicksTrials {
		err := write([]string{
			"hicks",
			strconv.Itoa(t.TrialIndex),
			strconv.Itoa(t.NumChoices),
			t.TargetKey,
			formatFloat(t.ReactionTimeMs),
			strconv.FormatBool(t.Correct),
			formatTime(t.Timestamp),
		})
		if err != nil {
			return err
		}
	}

	return comment(
		"",
		"# Fitts' Law Equation: MT = a + b * log2(D/W + 1)",
		equationLine(data.FittsEquation),
		"",
		"# Hick's Law Equation: RT = a + b * log2(n)",
		equationLine(data.HicksEquation),
	)
}

// CalibrationCSV renders the calibration document as text.
func CalibrationCSV(data *models.CalibrationData) (string, error) {
	var b strings.Builder
	if err := WriteCalibrationCSV(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func equationLine(eq *models.Equation) string {
	if eq == nil {
		return "# Not computed"
	}
	return fmt.Sprintf("# a=%.2f, b=%.2f, R²=%.3f", eq.A, eq.B, eq.R2)
}
