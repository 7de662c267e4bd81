// internal/models/protocol.go
package models

import (
	"fmt"
	"math/rand"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// TaskDefinition describes one task of the battery as written in the protocol file.
type TaskDefinition struct {
	ID          string     `yaml:"id"`
	Type        TaskType   `yaml:"type"`
	Instruction string     `yaml:"instruction"`
	Target      string     `yaml:"target,omitempty"`
	OptionSets  [][]string `yaml:"option_sets,omitempty"`
}

// Protocol holds the condition design and task battery for a study run.
type Protocol struct {
	Conditions []Condition         `yaml:"conditions"`
	Tasks      []TaskDefinition    `yaml:"tasks"`
	Templates  map[TaskType]string `yaml:"instruction_templates,omitempty"`
}

var defaultOptionSets = map[TaskType][][]string{
	TaskButtonClick:    {{"Cancel", "Submit", "Continue", "Reset"}},
	TaskListSelect:     {{"Option A", "Option B", "Option C", "Option D"}, {"Red", "Green", "Blue", "Yellow", "Purple"}},
	TaskDragDrop:       {{"target-zone"}},
	TaskVisualSearch:   {{"●", "■", "▲", "◆", "★", "○", "□", "△", "◇", "☆"}},
	TaskChoiceReaction: {{"circle", "square", "triangle", "diamond", "star"}},
}

var defaultTemplates = map[TaskType]string{
	TaskButtonClick:    "Click the %s button",
	TaskListSelect:     "Select \"%s\" from the list",
	TaskChoiceReaction: "Press SPACE when the %s shape appears",
	TaskDragDrop:       "Drag the item to the highlighted target zone",
	TaskVisualSearch:   "Find and click the highlighted target symbol",
}

// DefaultProtocol returns the standard 2×2 design and ten-task battery.
func DefaultProtocol() *Protocol {
	return &Protocol{
		Conditions: []Condition{
			{InterfaceMode: InterfaceLight, RoomCondition: RoomBright, Label: "Light Interface / Bright Room"},
			{InterfaceMode: InterfaceLight, RoomCondition: RoomDark, Label: "Light Interface / Dark Room"},
			{InterfaceMode: InterfaceDark, RoomCondition: RoomBright, Label: "Dark Interface / Bright Room"},
			{InterfaceMode: InterfaceDark, RoomCondition: RoomDark, Label: "Dark Interface / Dark Room"},
		},
		Tasks: []TaskDefinition{
			{ID: "btn-1", Type: TaskButtonClick, Instruction: "Click the target button"},
			{ID: "btn-2", Type: TaskButtonClick, Instruction: "Click the target button"},
			{ID: "drag-1", Type: TaskDragDrop, Instruction: "Drag the item to the target zone"},
			{ID: "list-1", Type: TaskListSelect, Instruction: "Select the target item from the list"},
			{ID: "list-2", Type: TaskListSelect, Instruction: "Select the target item from the list"},
			{ID: "form-1", Type: TaskFormInput, Instruction: "Type the shown sentence exactly and submit"},
			{ID: "visual-1", Type: TaskVisualSearch, Instruction: "Find and click the target symbol"},
			{ID: "visual-2", Type: TaskVisualSearch, Instruction: "Find and click the target symbol"},
			{ID: "choice-1", Type: TaskChoiceReaction, Instruction: "Press SPACE when the target shape appears"},
			{ID: "choice-2", Type: TaskChoiceReaction, Instruction: "Press SPACE when the target shape appears"},
		},
	}
}

// LoadProtocol reads and parses a protocol YAML file.
func LoadProtocol(path string) (*Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read protocol file: %w", err)
	}

	var protocol Protocol
	if err := yaml.Unmarshal(data, &protocol); err != nil {
		return nil, fmt.Errorf("failed to unmarshal protocol YAML: %w", err)
	}
	if err := protocol.Validate(); err != nil {
		return nil, err
	}
	return &protocol, nil
}

// Validate checks the structural parts of the protocol. Pinned targets that
// fall outside their option sets are not rejected here; they surface as a
// ConfigError on the built task so the operator sees which task is broken.
func (p *Protocol) Validate() error {
	if len(p.Conditions) == 0 {
		return fmt.Errorf("protocol has no conditions")
	}
	if len(p.Tasks) == 0 {
		return fmt.Errorf("protocol has no tasks")
	}
	seen := make(map[string]bool, len(p.Tasks))
	for _, def := range p.Tasks {
		if def.ID == "" {
			return fmt.Errorf("protocol task without id")
		}
		if seen[def.ID] {
			return fmt.Errorf("duplicate task id %q", def.ID)
		}
		seen[def.ID] = true
		if !def.Type.Valid() {
			return fmt.Errorf("task %q has unknown type %q", def.ID, def.Type)
		}
	}
	return nil
}

// ConditionOrder returns the conditions shuffled for a new session.
func (p *Protocol) ConditionOrder(r *rand.Rand) []Condition {
	conditions := slices.Clone(p.Conditions)
	r.Shuffle(len(conditions), func(i, j int) {
		conditions[i], conditions[j] = conditions[j], conditions[i]
	})
	return conditions
}

// BuildTasks instantiates the battery with fresh target values, shuffled.
func (p *Protocol) BuildTasks(r *rand.Rand) []Task {
	tasks := make([]Task, 0, len(p.Tasks))
	for _, def := range p.Tasks {
		tasks = append(tasks, p.buildTask(def, r))
	}
	r.Shuffle(len(tasks), func(i, j int) {
		tasks[i], tasks[j] = tasks[j], tasks[i]
	})
	return tasks
}

func (p *Protocol) buildTask(def TaskDefinition, r *rand.Rand) Task {
	task := Task{ID: def.ID, Type: def.Type, Instruction: def.Instruction}

	sets := def.OptionSets
	if len(sets) == 0 {
		sets = defaultOptionSets[def.Type]
	}

	switch {
	case def.Target != "":
		if len(sets) > 0 && !inOptionSets(def.Target, sets) {
			task.ConfigError = fmt.Sprintf("target %q is not an option of task %s", def.Target, def.ID)
			return task
		}
		task.TargetValue = def.Target
	case len(sets) > 0:
		set := sets[r.Intn(len(sets))]
		if len(set) == 0 {
			task.ConfigError = fmt.Sprintf("task %s has an empty option set", def.ID)
			return task
		}
		task.TargetValue = set[r.Intn(len(set))]
	}

	if task.TargetValue != "" {
		task.Instruction = p.instruction(def.Type, task.TargetValue, def.Instruction)
	}
	return task
}

func (p *Protocol) instruction(t TaskType, target, fallback string) string {
	tmpl, ok := p.Templates[t]
	if !ok {
		tmpl, ok = defaultTemplates[t]
	}
	if !ok {
		return fallback
	}
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	return fmt.Sprintf(tmpl, target)
}

func inOptionSets(value string, sets [][]string) bool {
	for _, set := range sets {
		if slices.Contains(set, value) {
			return true
		}
	}
	return false
}
