package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lightdark-study/internal/config"
	logging "lightdark-study/internal/logging"
	"lightdark-study/internal/models"
)

// Dialector picks the GORM driver for the configured archive database.
// Relative sqlite paths are resolved against projectRoot.
func Dialector(projectRoot string, dbConf config.DatabaseConfig) (gorm.Dialector, error) {
	switch dbConf.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port, dbConf.SSLMode)
		return postgres.Open(dsn), nil
	case "sqlite":
		path := dbConf.Path
		if path != ":memory:" && !filepath.IsAbs(path) {
			path = filepath.Join(projectRoot, path)
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("could not create archive directory: %w", err)
			}
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbConf.Driver)
	}
}

// Open connects to the archive database and migrates its schema.
func Open(projectRoot string, dbConf config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(projectRoot, dbConf)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.NewGormZapLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to archive database: %w", err)
	}
	log.Info("Archive database connection established.", zap.String("driver", dbConf.Driver))

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Archive migrations completed successfully.")
	return db, nil
}

// Migrate creates the archive tables and the summary index.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.ArchivedSession{}, &models.ArchivedTaskResult{}); err != nil {
		return fmt.Errorf("failed to run archive migrations: %w", err)
	}

	summaryIndex := `CREATE INDEX IF NOT EXISTS idx_archived_results_summary ON archived_task_results (condition_label, task_type);`
	if err := db.Exec(summaryIndex).Error; err != nil {
		return fmt.Errorf("failed to create summary index: %w", err)
	}
	return nil
}
