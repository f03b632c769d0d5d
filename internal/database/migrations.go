package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// gooseLogger routes goose output through zap
type gooseLogger struct {
	sugar *zap.SugaredLogger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.sugar.Fatalf(format, v...) }
func (l gooseLogger) Printf(format string, v ...interface{}) { l.sugar.Infof(format, v...) }

func setup(migrations fs.FS, logger *zap.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{sugar: logger.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// RunMigrations executes all pending database migrations
func RunMigrations(ctx context.Context, db *sql.DB, migrations fs.FS, logger *zap.Logger) error {
	if err := setup(migrations, logger); err != nil {
		return err
	}

	logger.Info("Checking for pending migrations...")

	if err := goose.UpContext(ctx, db, "."); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	logger.Info("Migrations completed successfully", zap.Int64("version", version))
	return nil
}

// GetMigrationStatus logs the applied state of every migration
func GetMigrationStatus(ctx context.Context, db *sql.DB, migrations fs.FS, logger *zap.Logger) error {
	if err := setup(migrations, logger); err != nil {
		return err
	}

	return goose.StatusContext(ctx, db, ".")
}

// ResetMigrations rolls back every applied migration
func ResetMigrations(ctx context.Context, db *sql.DB, migrations fs.FS, logger *zap.Logger) error {
	if err := setup(migrations, logger); err != nil {
		return err
	}

	if err := goose.ResetContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to reset migrations: %w", err)
	}
	return nil
}
