package models

import "time"

type InterfaceMode string

const (
	InterfaceLight   InterfaceMode = "light"
	InterfaceDark    InterfaceMode = "dark"
	InterfaceNeutral InterfaceMode = "neutral"
)

type RoomCondition string

const (
	RoomBright RoomCondition = "bright"
	RoomDark   RoomCondition = "dark"
)

// Condition is one cell of the interface mode × room lighting design.
type Condition struct {
	InterfaceMode InterfaceMode `json:"interfaceMode" yaml:"interface_mode"`
	RoomCondition RoomCondition `json:"roomCondition" yaml:"room_condition"`
	Label         string        `json:"label" yaml:"label"`
}

type TaskType string

const (
	TaskButtonClick    TaskType = "button-click"
	TaskDragDrop       TaskType = "drag-drop"
	TaskListSelect     TaskType = "list-select"
	TaskFormInput      TaskType = "form-input"
	TaskVisualSearch   TaskType = "visual-search"
	TaskChoiceReaction TaskType = "choice-reaction"
)

// TaskTypes lists every task type the battery knows about.
var TaskTypes = []TaskType{
	TaskButtonClick,
	TaskDragDrop,
	TaskListSelect,
	TaskFormInput,
	TaskVisualSearch,
	TaskChoiceReaction,
}

func (t TaskType) Valid() bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Task is one instance of the battery presented inside a condition.
// ConfigError is set when the task definition cannot produce meaningful
// metrics; such a task must not be run.
type Task struct {
	ID          string   `json:"id"`
	Type        TaskType `json:"type"`
	Instruction string   `json:"instruction"`
	TargetValue string   `json:"targetValue,omitempty"`
	ConfigError string   `json:"configError,omitempty"`
}

type ParticipantData struct {
	ParticipantID  string     `json:"participantId"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	ConditionOrder []string   `json:"conditionOrder"`
	Completed      bool       `json:"completed"`
}
