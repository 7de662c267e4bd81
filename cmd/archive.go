package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lightdark-study/internal/apperrors"
	"lightdark-study/internal/config"
	"lightdark-study/internal/database"
	"lightdark-study/internal/export"
	"lightdark-study/internal/models"
	"lightdark-study/internal/repository"
	"lightdark-study/internal/utils"
)

func newArchiveCmd(a *app) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect completed sessions stored in the archive database.",
	}
	archiveCmd.AddCommand(newArchiveListCmd(a), newArchiveExportCmd(a), newArchiveSummaryCmd(a))
	return archiveCmd
}

func (a *app) openArchive() (*repository.ArchiveRepository, func(), error) {
	db, err := database.Open(a.root, config.Conf.Database, a.log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return repository.NewArchiveRepository(db), closeFn, nil
}

func newArchiveListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived participant sessions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := a.openArchive()
			if err != nil {
				return err
			}
			defer closeFn()

			sessions, err := repo.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list archived sessions: %w", err)
			}
			return writeSessionTable(cmd.OutOrStdout(), sessions)
		},
	}
}

func writeSessionTable(out io.Writer, sessions []models.ArchivedSession) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PARTICIPANT\tSTARTED\tFINISHED\tFITTS\tHICKS\tCONDITIONS")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ParticipantID,
			s.StartTime.UTC().Format("2006-01-02 15:04"),
			s.EndTime.UTC().Format("2006-01-02 15:04"),
			equationCell(s.FittsA, s.FittsB, s.FittsR2),
			equationCell(s.HicksA, s.HicksB, s.HicksR2),
			s.ConditionOrder,
		)
	}
	return w.Flush()
}

func equationCell(a, b, r2 *float64) string {
	if a == nil || b == nil || r2 == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f+%.1fx (R²=%.3f)", *a, *b, *r2)
}

func newArchiveExportCmd(a *app) *cobra.Command {
	var kind, output string

	exportCmd := &cobra.Command{
		Use:   "export <participant-id>",
		Short: "Write one export document of an archived session.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !utils.IsValidParticipantID(args[0]) {
				return fmt.Errorf("malformed participant id %q: %w", args[0], apperrors.ErrInvalidInput)
			}
			repo, closeFn, err := a.openArchive()
			if err != nil {
				return err
			}
			defer closeFn()

			body, err := archivedDocument(cmd.Context(), repo, args[0], export.Kind(kind))
			if err != nil {
				return err
			}

			if output == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), body)
				return err
			}
			if err := os.WriteFile(output, []byte(body), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&kind, "kind", string(export.KindResults), "document to export: results, calibration or json")
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "file to write instead of stdout")
	return exportCmd
}

func archivedDocument(ctx context.Context, repo *repository.ArchiveRepository, participantID string, kind export.Kind) (string, error) {
	s, err := repo.Get(ctx, participantID)
	if err != nil {
		return "", err
	}
	bundle := export.Bundle{Results: s.ResultsCSV, Calibration: s.CalibrationCSV, JSON: s.StudyJSON}
	return bundle.Get(kind)
}

func newArchiveSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show mean completion time and efficiency per condition and task type.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := a.openArchive()
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := repo.EfficiencySummary(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to summarize archive: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CONDITION\tTASK\tN\tMEAN MS\tEFFICIENCY\tSUCCESS")
			for _, r := range rows {
				efficiency := "-"
				if r.MeanEfficiency != nil {
					efficiency = fmt.Sprintf("%.3f", *r.MeanEfficiency)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%.0f\t%s\t%.0f%%\n",
					r.ConditionLabel, r.TaskType, r.Count, r.MeanCompletionTimeMs, efficiency, r.SuccessRate*100)
			}
			return w.Flush()
		},
	}
}
