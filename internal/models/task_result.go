// internal/models/task_result.go
package models

import "time"

// CursorSample is one pointer position reported by the task widget.
type CursorSample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// Geometry holds the task-specific measurements a widget may report.
// Every field is optional; predictors treat a nil field as "not measured".
type Geometry struct {
	TargetDistancePx  *float64 `json:"targetDistancePx,omitempty"`
	TargetWidthPx     *float64 `json:"targetWidthPx,omitempty"`
	AcquireDistancePx *float64 `json:"acquireDistancePx,omitempty"`
	AcquireWidthPx    *float64 `json:"acquireWidthPx,omitempty"`
	DragDistancePx    *float64 `json:"dragDistancePx,omitempty"`
	DropWidthPx       *float64 `json:"dropWidthPx,omitempty"`
	NumChoices        *int     `json:"numChoices,omitempty"`
	DistractorCount   *int     `json:"distractorCount,omitempty"`
	CharacterCount    *int     `json:"characterCount,omitempty"`
}

// TaskInput is the raw metric set a task widget emits on completion.
type TaskInput struct {
	TaskID           string         `json:"taskId"`
	TaskType         TaskType       `json:"taskType"`
	CompletionTimeMs float64        `json:"completionTimeMs"`
	TotalClicks      int            `json:"totalClicks"`
	IncorrectClicks  int            `json:"incorrectClicks"`
	CursorDistancePx *float64       `json:"cursorDistancePx,omitempty"`
	CursorPath       []CursorSample `json:"cursorPath,omitempty"`
	Success          bool           `json:"success"`
	TargetText       string         `json:"targetText,omitempty"`
	Geometry
}

// TaskResult is one completed task as stored in the results log.
type TaskResult struct {
	ParticipantID    string        `json:"participantId"`
	TaskID           string        `json:"taskId"`
	TaskType         TaskType      `json:"taskType"`
	ConditionLabel   string        `json:"conditionLabel"`
	InterfaceMode    InterfaceMode `json:"interfaceMode"`
	RoomCondition    RoomCondition `json:"roomCondition"`
	CompletionTimeMs float64       `json:"completionTimeMs"`
	TotalClicks      int           `json:"totalClicks"`
	IncorrectClicks  int           `json:"incorrectClicks"`
	CursorDistancePx float64       `json:"cursorDistancePx"`
	Success          bool          `json:"success"`
	Timestamp        time.Time     `json:"timestamp"`
	Geometry
	TargetText              string   `json:"targetText,omitempty"`
	PathEfficiency          *float64 `json:"pathEfficiency,omitempty"`
	AverageVelocityPxPerSec *float64 `json:"averageVelocityPxPerSec,omitempty"`
	PredictedTimeMs         *float64 `json:"predictedTimeMs,omitempty"`
	Efficiency              *float64 `json:"efficiency,omitempty"`
}

// Float returns a pointer to v, for filling optional fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for filling optional fields.
func Int(v int) *int { return &v }
