package app

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	DBPath    string `envconfig:"DB_PATH" default:"seikyu.db"`
	BackupDir string `envconfig:"BACKUP_DIR" default:"backups"`

	GatewayReadAttempts int           `envconfig:"GATEWAY_READ_ATTEMPTS" default:"3"`
	GatewayReadBackoff  time.Duration `envconfig:"GATEWAY_READ_BACKOFF" default:"200ms"`
	WriteSettleDelay    time.Duration `envconfig:"WRITE_SETTLE_DELAY" default:"500ms"`
	StockWriteThrottle  time.Duration `envconfig:"STOCK_WRITE_THROTTLE" default:"100ms"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
