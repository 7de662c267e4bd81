package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"lightdark-study/internal/apperrors"
	"lightdark-study/internal/calibration"
	"lightdark-study/internal/config"
	"lightdark-study/internal/database"
	"lightdark-study/internal/models"
	"lightdark-study/internal/repository"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seedArchive(t *testing.T, root string) {
	t.Helper()
	db, err := database.Open(root, config.DatabaseConfig{Driver: "sqlite", Path: "data/archive.db"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	}()

	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repository.NewArchiveRepository(db).Save(context.Background(), &models.ArchivedSession{
		ParticipantID:  "P_SEED_000001",
		StartTime:      start,
		EndTime:        start.Add(35 * time.Minute),
		ConditionOrder: "Dark Interface / Dark Room",
		FittsA:         models.Float(110),
		FittsB:         models.Float(145),
		FittsR2:        models.Float(0.93),
		ResultsCSV:     "participantId,taskId\nP_SEED_000001,btn-1\n",
		CalibrationCSV: "# Fitts' Law Trials\n",
		StudyJSON:      "{}",
		TaskResults: []models.ArchivedTaskResult{{
			ParticipantID:    "P_SEED_000001",
			TaskID:           "btn-1",
			TaskType:         string(models.TaskButtonClick),
			ConditionLabel:   "Dark Interface / Dark Room",
			CompletionTimeMs: 850,
			Success:          true,
			Efficiency:       models.Float(0.95),
		}},
	}))
}

func TestArchiveList(t *testing.T) {
	root := t.TempDir()
	seedArchive(t, root)

	out, err := runCmd(t, "--root", root, "archive", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PARTICIPANT")
	assert.Contains(t, out, "P_SEED_000001")
	assert.Contains(t, out, "110.0+145.0x (R²=0.930)")
	assert.FileExists(t, filepath.Join(root, "logs", time.Now().Format("2006-01-02")+"-info.log"))
}

func TestArchiveExport(t *testing.T) {
	root := t.TempDir()
	seedArchive(t, root)

	out, err := runCmd(t, "--root", root, "archive", "export", "P_SEED_000001", "--kind", "calibration")
	require.NoError(t, err)
	assert.Contains(t, out, "# Fitts' Law Trials")

	target := filepath.Join(root, "results.csv")
	_, err = runCmd(t, "--root", root, "archive", "export", "P_SEED_000001", "-o", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "participantId,taskId\nP_SEED_000001,btn-1\n", string(data))

	_, err = runCmd(t, "--root", root, "archive", "export", "P_MISSING")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = runCmd(t, "--root", root, "archive", "export", "P_NOPE_000000")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = runCmd(t, "--root", root, "archive", "export", "P_SEED_000001", "--kind", "xml")
	assert.Error(t, err)
}

func TestArchiveSummary(t *testing.T) {
	root := t.TempDir()
	seedArchive(t, root)

	out, err := runCmd(t, "--root", root, "archive", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Dark Interface / Dark Room")
	assert.Contains(t, out, "0.950")
	assert.Contains(t, out, "100%")
}

func TestInvalidConfigFails(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "config.yaml"),
		[]byte("study:\n  calibration:\n    fitts_widths: [0]\n"), 0o644))

	_, err := runCmd(t, "--root", root, "archive", "list")
	assert.Error(t, err)
}

func TestSessionEnvFollowsCurrentConfig(t *testing.T) {
	c, err := config.Load(t.TempDir())
	require.NoError(t, err)
	c.Server.Debug = true
	config.Set(c)

	protocol := models.DefaultProtocol()
	env := sessionEnv(protocol)()
	assert.True(t, env.Debug)
	assert.Equal(t, calibration.DefaultDesign(), env.Design)
	assert.Same(t, protocol, env.Protocol)
	assert.NotEqual(t, env.NewEpoch(), env.NewEpoch())

	d := delaysFrom(c.Study.Calibration)
	assert.Equal(t, 500*time.Millisecond, d.FittsReady)
	assert.Equal(t, 2*time.Second, d.HicksMax)
}

func TestLoadProtocol(t *testing.T) {
	a := &app{root: t.TempDir()}
	p, err := a.loadProtocol("")
	require.NoError(t, err)
	assert.Len(t, p.Tasks, 10)

	_, err = a.loadProtocol("missing.yaml")
	assert.Error(t, err)
}
