package export

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"lightdark-study/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CalibrationSummary is the calibration part of the study document: the
// fitted equations and trial counts, not the raw trials.
type CalibrationSummary struct {
	FittsEquation    *models.Equation `json:"fittsEquation,omitempty"`
	HicksEquation    *models.Equation `json:"hicksEquation,omitempty"`
	FittsTrialsCount int              `json:"fittsTrialsCount"`
	HicksTrialsCount int              `json:"hicksTrialsCount"`
}

// Document is the full JSON export of one session.
type Document struct {
	Participant *models.ParticipantData `json:"participant"`
	Calibration *CalibrationSummary     `json:"calibration"`
	Results     []models.TaskResult     `json:"results"`
	ExportedAt  time.Time               `json:"exportedAt"`
}

func NewDocument(p *models.ParticipantData, data *models.CalibrationData, rs []models.TaskResult, now time.Time) Document {
	doc := Document{Participant: p, Results: rs, ExportedAt: now}
	if doc.Results == nil {
		doc.Results = []models.TaskResult{}
	}
	if data != nil {
		doc.Calibration = &CalibrationSummary{
			FittsEquation:    data.FittsEquation,
			HicksEquation:    data.HicksEquation,
			FittsTrialsCount: len(data.FittsTrials),
			HicksTrialsCount: len(data.HicksTrials),
		}
	}
	return doc
}

// JSON renders the document indented by two spaces.
func (d Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// ParseDocument decodes a document produced by JSON.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	err := json.Unmarshal(data, &doc)
	return doc, err
}
