package export

import (
	"fmt"
	"time"

	"lightdark-study/internal/models"
	"lightdark-study/internal/utils"
)

type Kind string

const (
	KindResults     Kind = "results"
	KindCalibration Kind = "calibration"
	KindJSON        Kind = "json"
)

// Filename is the download name of an export of the given kind.
func Filename(kind Kind, participantID string) string {
	var name string
	switch kind {
	case KindResults:
		name = "study-results-" + participantID + ".csv"
	case KindCalibration:
		name = "calibration-" + participantID + ".csv"
	default:
		name = "study-data-" + participantID + ".json"
	}
	return utils.SafeFilename(name)
}

// ContentType is the MIME type of an export kind.
func ContentType(kind Kind) string {
	if kind == KindJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Bundle holds all three documents of a session.
type Bundle struct {
	Results     string
	Calibration string
	JSON        string
}

// Get returns the document of the given kind.
func (b Bundle) Get(kind Kind) (string, error) {
	switch kind {
	case KindResults:
		return b.Results, nil
	case KindCalibration:
		return b.Calibration, nil
	case KindJSON:
		return b.JSON, nil
	}
	return "", fmt.Errorf("unknown export kind %q", kind)
}

// Build renders every export document of a session.
func Build(p *models.ParticipantData, data *models.CalibrationData, rs []models.TaskResult, now time.Time) (Bundle, error) {
	results, err := ResultsCSV(rs)
	if err != nil {
		return Bundle{}, err
	}
	calibration, err := CalibrationCSV(data)
	if err != nil {
		return Bundle{}, err
	}
	doc, err := NewDocument(p, data, rs, now).JSON()
	if err != nil {
		return Bundle{}, fmt.Errorf("failed to encode study document: %w", err)
	}
	return Bundle{
		Results:     results,
		Calibration: calibration,
		JSON:        string(doc),
	}, nil
}
