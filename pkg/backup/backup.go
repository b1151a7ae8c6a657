package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"dreamshare/pkg/logger"
	"dreamshare/pkg/scheduler"
)

// Config selects what to back up and where.
type Config struct {
	Driver   string // "sqlite" or "mysql"
	DSN      string
	Path     string
	Schedule string // cron expression
}

// Start registers the backup job on the given cron scheduler.
func Start(cr *scheduler.Cron, cfg Config) error {
	_, err := cr.AddFunc(cfg.Schedule, func(ctx context.Context) {
		if err := Execute(cfg); err != nil {
			logger.Warn("backup failed", zap.Error(err))
		} else {
			logger.Info("backup completed")
		}
	})
	return err
}

// Execute performs one backup according to the configured driver.
func Execute(cfg Config) error {
	stamp := time.Now().Format("20060102_150405")
	switch cfg.Driver {
	case "", "sqlite":
		dst := filepath.Join(cfg.Path, fmt.Sprintf("dreams_backup_%s.db", stamp))
		return backupSQLite(cfg.DSN, dst)
	case "mysql":
		dst := filepath.Join(cfg.Path, fmt.Sprintf("dreams_backup_%s.sql", stamp))
		return backupMySQL(dst)
	default:
		return fmt.Errorf("unsupported backup driver: %s", cfg.Driver)
	}
}

// backupSQLite copies the database file. Safe for sqlite in WAL mode with
// a quiescent writer; good enough for a nightly snapshot.
func backupSQLite(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening database file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating backup file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying database: %w", err)
	}
	return nil
}

// backupMySQL shells out to mysqldump; credentials come from the extra
// defaults file so they never appear on the process command line.
func backupMySQL(dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating backup file: %w", err)
	}
	defer out.Close()

	cmd := exec.Command("mysqldump", "--defaults-extra-file=/etc/mysql/backup.cnf", "--all-databases")
	cmd.Stdout = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mysqldump failed: %w", err)
	}
	return nil
}
