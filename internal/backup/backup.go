// Package backup copies the database file around. No lock is taken against
// concurrent use; restoring while the application is live is an accepted
// hazard that requires a restart.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/seikyu-app/seikyu/internal/settings"
)

// SettingsPort reads the stored backup policy.
type SettingsPort interface {
	Load(ctx context.Context) (settings.MainConfig, error)
}

// Service performs backup and restore of the database file.
type Service struct {
	dbPath     string
	defaultDir string
	store      SettingsPort
	log        *slog.Logger
}

// NewService constructs Service. defaultDir is used when no backup directory
// is configured.
func NewService(dbPath, defaultDir string, store SettingsPort, log *slog.Logger) *Service {
	return &Service{dbPath: dbPath, defaultDir: defaultDir, store: store, log: log}
}

// Backup copies the database file to the given destination path.
func (s *Service) Backup(dst string) error {
	if err := copyFile(s.dbPath, dst); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	s.log.Info("database backed up", slog.String("dst", dst))
	return nil
}

// Restore replaces the database file with src, after a best-effort safety
// copy of the current file. A failed safety copy never blocks the restore.
func (s *Service) Restore(src string) error {
	opID := uuid.NewString()
	safety := s.dbPath + ".pre-restore-" + opID[:8]
	if err := copyFile(s.dbPath, safety); err != nil {
		s.log.Warn("safety copy failed, restoring anyway",
			slog.String("op", opID),
			slog.String("error", err.Error()))
	}

	if err := copyFile(src, s.dbPath); err != nil {
		return fmt.Errorf("backup: restore: %w", err)
	}
	s.log.Info("database restored, restart required",
		slog.String("op", opID),
		slog.String("src", src))
	return nil
}

// AutoBackup runs the shutdown-time backup when the stored configuration
// enables it, writing a timestamped file into the configured or default
// directory.
func (s *Service) AutoBackup(ctx context.Context) error {
	cfg, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("backup: load policy: %w", err)
	}
	if !cfg.AutoBackup {
		return nil
	}

	dir := cfg.BackupDir
	if dir == "" {
		dir = s.defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("backup: %w", err)
	}

	name := fmt.Sprintf("seikyu-%s.db", time.Now().Format("20060102-150405"))
	return s.Backup(filepath.Join(dir, name))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
