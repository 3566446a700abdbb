// Package settings stores application configuration as a single keyed JSON
// blob with existence-checked upsert semantics.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/seikyu-app/seikyu/internal/platform/db"
)

// MainConfigKey is the key under which the application configuration lives.
const MainConfigKey = "MainConfig"

// MainConfig is the stored application configuration.
type MainConfig struct {
	AutoBackup     bool   `json:"autoBackup"`
	BackupDir      string `json:"backupDir"`
	CompanyName    string `json:"companyName"`
	CompanyAddress string `json:"companyAddress"`
	LogoPath       string `json:"logoPath"`
}

// StorePort abstracts the settings store.
type StorePort interface {
	Load(ctx context.Context) (MainConfig, error)
	Save(ctx context.Context, cfg MainConfig) error
}

// Store persists settings through the gateway.
type Store struct {
	gw *db.Gateway
}

// NewStore constructs Store.
func NewStore(gw *db.Gateway) *Store {
	return &Store{gw: gw}
}

// Load reads the main configuration; a missing row yields the zero config.
func (s *Store) Load(ctx context.Context) (MainConfig, error) {
	var raw string
	err := s.gw.ReadRow(ctx, `SELECT value FROM settings WHERE key = ?`,
		[]any{MainConfigKey}, func(rows *sql.Rows) error {
			return rows.Scan(&raw)
		})
	if errors.Is(err, sql.ErrNoRows) {
		return MainConfig{}, nil
	}
	if err != nil {
		return MainConfig{}, err
	}
	var cfg MainConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return MainConfig{}, err
	}
	return cfg, nil
}

// Save upserts the main configuration: check existence, then update or insert.
func (s *Store) Save(ctx context.Context, cfg MainConfig) error {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	var count int
	err = s.gw.ReadRow(ctx, `SELECT COUNT(*) FROM settings WHERE key = ?`,
		[]any{MainConfigKey}, func(rows *sql.Rows) error {
			return rows.Scan(&count)
		})
	if err != nil {
		return err
	}

	if count > 0 {
		_, err = s.gw.Write(ctx, `UPDATE settings SET value = ? WHERE key = ?`, string(encoded), MainConfigKey)
		return err
	}
	_, err = s.gw.Write(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)`, MainConfigKey, string(encoded))
	return err
}
