package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"lightdark-study/internal/models"
)

// column is one field of the results table. get returns false when the
// field is absent from a result.
type column struct {
	name string
	get  func(r models.TaskResult) (string, bool)
}

func always(f func(r models.TaskResult) string) func(models.TaskResult) (string, bool) {
	return func(r models.TaskResult) (string, bool) { return f(r), true }
}

func optFloat(f func(r models.TaskResult) *float64) func(models.TaskResult) (string, bool) {
	return func(r models.TaskResult) (string, bool) {
		v := f(r)
		if v == nil {
			return "", false
		}
		return formatFloat(*v), true
	}
}

func optInt(f func(r models.TaskResult) *int) func(models.TaskResult) (string, bool) {
	return func(r models.TaskResult) (string, bool) {
		v := f(r)
		if v == nil {
			return "", false
		}
		return strconv.Itoa(*v), true
	}
}

// resultColumns is the canonical column order of the results table.
var resultColumns = []column{
	{"participantId", always(func(r models.TaskResult) string { return r.ParticipantID })},
	{"taskId", always(func(r models.TaskResult) string { return r.TaskID })},
	{"taskType", always(func(r models.TaskResult) string { return string(r.TaskType) })},
	{"conditionLabel", always(func(r models.TaskResult) string { return r.ConditionLabel })},
	{"interfaceMode", always(func(r models.TaskResult) string { return string(r.InterfaceMode) })},
	{"roomCondition", always(func(r models.TaskResult) string { return string(r.RoomCondition) })},
	{"completionTimeMs", always(func(r models.TaskResult) string { return formatFloat(r.CompletionTimeMs) })},
	{"totalClicks", always(func(r models.TaskResult) string { return strconv.Itoa(r.TotalClicks) })},
	{"incorrectClicks", always(func(r models.TaskResult) string { return strconv.Itoa(r.IncorrectClicks) })},
	{"cursorDistancePx", always(func(r models.TaskResult) string { return formatFloat(r.CursorDistancePx) })},
	{"success", always(func(r models.TaskResult) string { return strconv.FormatBool(r.Success) })},
	{"timestamp", always(func(r models.TaskResult) string { return formatTime(r.Timestamp) })},
	{"targetDistancePx", optFloat(func(r models.TaskResult) *float64 { return r.TargetDistancePx })},
	{"targetWidthPx", optFloat(func(r models.TaskResult) *float64 { return r.TargetWidthPx })},
	{"acquireDistancePx", optFloat(func(r models.TaskResult) *float64 { return r.AcquireDistancePx })},
	{"acquireWidthPx", optFloat(func(r models.TaskResult) *float64 { return r.AcquireWidthPx })},
	{"dragDistancePx", optFloat(func(r models.TaskResult) *float64 { return r.DragDistancePx })},
	{"dropWidthPx", optFloat(func(r models.TaskResult) *float64 { return r.DropWidthPx })},
	{"numChoices", optInt(func(r models.TaskResult) *int { return r.NumChoices })},
	{"distractorCount", optInt(func(r models.TaskResult) *int { return r.DistractorCount })},
	{"characterCount", optInt(func(r models.TaskResult) *int { return r.CharacterCount })},
	{"targetText", func(r models.TaskResult) (string, bool) { return r.TargetText, r.TargetText != "" }},
	{"pathEfficiency", optFloat(func(r models.TaskResult) *float64 { return r.PathEfficiency })},
	{"averageVelocityPxPerSec", optFloat(func(r models.TaskResult) *float64 { return r.AverageVelocityPxPerSec })},
	{"predictedTimeMs", optFloat(func(r models.TaskResult) *float64 { return r.PredictedTimeMs })},
	{"efficiency", optFloat(func(r models.TaskResult) *float64 { return r.Efficiency })},
}

// ResultColumns returns the header of the results table for rs: the
// canonical columns that at least one result carries.
func ResultColumns(rs []models.TaskResult) []string {
	var header []string
	for _, col := range resultColumns {
		for _, r := range rs {
			if _, ok := col.get(r); ok {
				header = append(header, col.name)
				break
			}
		}
	}
	return header
}

// WriteResultsCSV writes one row per result. Nothing is written for an
// empty log.
func WriteResultsCSV(w io.Writer, rs []models.TaskResult) error {
	if len(rs) == 0 {
		return nil
	}

	header := ResultColumns(rs)
	byName := make(map[string]column, len(resultColumns))
	for _, col := range resultColumns {
		byName[col.name] = col
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write results header: %w", err)
	}
	row := make([]string, len(header))
	for _, r := range rs {
		for i, name := range header {
			v, _ := byName[name].get(r)
			row[i] = v
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write results row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ResultsCSV renders the results log as CSV text.
func ResultsCSV(rs []models.TaskResult) (string, error) {
	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, rs); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Table is a parsed CSV document.
type Table struct {
	Header []string
	Rows   []map[string]string
}

// ParseResultsCSV reads a results table back. Empty cells are dropped from
// the row maps so absent fields stay absent.
func ParseResultsCSV(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse results csv: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	table := &Table{Header: records[0]}
	for _, rec := range records[1:] {
		row := make(map[string]string, len(rec))
		for i, v := range rec {
			if i < len(table.Header) && v != "" {
				row[table.Header[i]] = v
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
