package models

import (
	"time"

	"gorm.io/gorm"
)

// ArchivedSession is one completed participant run. The three export
// documents are stored verbatim so an operator can re-download them.
type ArchivedSession struct {
	gorm.Model
	ParticipantID    string               `gorm:"uniqueIndex;size:64"`
	StartTime        time.Time
	EndTime          time.Time
	ConditionOrder   string
	FittsA           *float64
	FittsB           *float64
	FittsR2          *float64
	HicksA           *float64
	HicksB           *float64
	HicksR2          *float64
	FittsTrialsCount int
	HicksTrialsCount int
	ResultsCSV       string               `gorm:"type:text"`
	CalibrationCSV   string               `gorm:"type:text"`
	StudyJSON        string               `gorm:"type:text"`
	TaskResults      []ArchivedTaskResult `gorm:"foreignKey:SessionID"`
}

// ArchivedTaskResult is one row of the results log of an archived session.
type ArchivedTaskResult struct {
	ID               uint   `gorm:"primaryKey"`
	SessionID        uint   `gorm:"index"`
	ParticipantID    string `gorm:"index;size:64"`
	TaskID           string
	TaskType         string `gorm:"index"`
	ConditionLabel   string `gorm:"index"`
	InterfaceMode    string
	RoomCondition    string
	CompletionTimeMs float64
	TotalClicks      int
	IncorrectClicks  int
	CursorDistancePx float64
	Success          bool
	PredictedTimeMs  *float64
	Efficiency       *float64
	PathEfficiency   *float64
	AverageVelocity  *float64
	RecordedAt       time.Time
}

// NewArchivedTaskResult flattens a task result into its archive row.
func NewArchivedTaskResult(r TaskResult) ArchivedTaskResult {
	return ArchivedTaskResult{
		ParticipantID:    r.ParticipantID,
		TaskID:           r.TaskID,
		TaskType:         string(r.TaskType),
		ConditionLabel:   r.ConditionLabel,
		InterfaceMode:    string(r.InterfaceMode),
		RoomCondition:    string(r.RoomCondition),
		CompletionTimeMs: r.CompletionTimeMs,
		TotalClicks:      r.TotalClicks,
		IncorrectClicks:  r.IncorrectClicks,
		CursorDistancePx: r.CursorDistancePx,
		Success:          r.Success,
		PredictedTimeMs:  r.PredictedTimeMs,
		Efficiency:       r.Efficiency,
		PathEfficiency:   r.PathEfficiency,
		AverageVelocity:  r.AverageVelocityPxPerSec,
		RecordedAt:       r.Timestamp,
	}
}

// EfficiencySummary is one aggregated row of archived results.
type EfficiencySummary struct {
	ConditionLabel       string   `json:"conditionLabel"`
	TaskType             string   `json:"taskType"`
	Count                int      `json:"count"`
	MeanCompletionTimeMs float64  `json:"meanCompletionTimeMs"`
	MeanEfficiency       *float64 `json:"meanEfficiency,omitempty"`
	SuccessRate          float64  `json:"successRate"`
}
