package repository

import (
	"context"

	"lightdark-study/internal/models"
)

// efficiencySummaryQuery works on both sqlite and postgres; success is
// stored as a boolean on postgres and as 0/1 on sqlite.
const efficiencySummaryQuery = `
	SELECT
		r.condition_label,
		r.task_type,
		COUNT(*) AS count,
		AVG(r.completion_time_ms) AS mean_completion_time_ms,
		AVG(r.efficiency) AS mean_efficiency,
		AVG(CASE WHEN r.success THEN 1.0 ELSE 0.0 END) AS success_rate
	FROM archived_task_results r
	JOIN archived_sessions s ON r.session_id = s.id
	WHERE s.deleted_at IS NULL
	GROUP BY r.condition_label, r.task_type
	ORDER BY r.condition_label, r.task_type;
`

// EfficiencySummary aggregates archived results per condition and task type.
// Mean efficiency is nil for groups without any predicted result.
func (r *ArchiveRepository) EfficiencySummary(ctx context.Context) ([]models.EfficiencySummary, error) {
	var rows []models.EfficiencySummary
	err := r.db.WithContext(ctx).Raw(efficiencySummaryQuery).Scan(&rows).Error
	return rows, err
}
