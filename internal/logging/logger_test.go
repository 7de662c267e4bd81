package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lightdark-study/internal/config"
)

func TestInit_WritesPerLevelFiles(t *testing.T) {
	root := t.TempDir()
	log, err := Init(root, config.LoggingConfig{Directory: "logs", Level: "info", MaxSize: 1})
	require.NoError(t, err)

	log.Info("hello")
	log.Warn("careful")
	_ = log.Sync()

	day := time.Now().Format("2006-01-02")
	assert.FileExists(t, filepath.Join(root, "logs", day+"-info.log"))
	assert.FileExists(t, filepath.Join(root, "logs", day+"-warn.log"))
	_, err = os.Stat(filepath.Join(root, "logs", day+"-debug.log"))
	assert.True(t, os.IsNotExist(err), "debug core is skipped below the configured level")
}

func TestInit_BadLevel(t *testing.T) {
	_, err := Init(t.TempDir(), config.LoggingConfig{Directory: "logs", Level: "loud"})
	assert.Error(t, err)
}

func TestGormZapLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormZapLogger(zap.New(core))

	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len(), "record not found is not an error")

	l.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)

	silent := l.LogMode(logger.Silent)
	silent.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Equal(t, 2, logs.Len())
}
