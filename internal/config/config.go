// Package config handles runtime configuration for all binaries.
// It uses Viper to read settings from environment variables or a .env file,
// with environment taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/theleanbow/meroshare-automation/internal/common"
)

// Config stores all configuration for the application.
//
// SecretSeed derives the vault key and must be present: a missing seed makes
// every encrypted record unreadable, so it is rejected here rather than on
// first use. DatabaseDSN is optional; when set, accounts and history are
// stored in Postgres instead of the JSON files.
type Config struct {
	SecretSeed string `mapstructure:"SECRET_SEED"`

	BaseURL     string `mapstructure:"BASE_URL"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	TargetScrip  string `mapstructure:"TARGET_SCRIP"`
	AppliedKitta int    `mapstructure:"APPLIED_KITTA"`

	AccountsPath string `mapstructure:"ACCOUNTS_PATH"`
	HistoryPath  string `mapstructure:"HISTORY_PATH"`
	DatabaseDSN  string `mapstructure:"DATABASE_DSN"`

	HTTPTimeout       time.Duration `mapstructure:"HTTP_TIMEOUT"`
	UIWaitTimeout     time.Duration `mapstructure:"UI_WAIT_TIMEOUT"`
	SettleDelay       time.Duration `mapstructure:"SETTLE_DELAY"`
	AccountPacing     time.Duration `mapstructure:"ACCOUNT_PACING"`
	RecordPacing      time.Duration `mapstructure:"RECORD_PACING"`
	Headless          bool          `mapstructure:"HEADLESS"`
	ReconcileSchedule string        `mapstructure:"RECONCILE_CRON"`

	AdminAddr         string `mapstructure:"ADMIN_ADDR"`
	AdminUser         string `mapstructure:"ADMIN_USER"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`
}

// Load reads configuration from a .env file (if present) and the
// environment, applies defaults, and validates required values.
func Load() (*Config, error) {
	v := viper.New()

	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("BASE_URL", "https://webbackend.cdsc.com.np/api/meroShare")
	v.SetDefault("FRONTEND_URL", "https://meroshare.cdsc.com.np")
	v.SetDefault("APPLIED_KITTA", 10)
	v.SetDefault("ACCOUNTS_PATH", "accounts.json")
	v.SetDefault("HISTORY_PATH", "history.json")
	v.SetDefault("HTTP_TIMEOUT", 30*time.Second)
	v.SetDefault("UI_WAIT_TIMEOUT", 30*time.Second)
	v.SetDefault("SETTLE_DELAY", time.Second)
	v.SetDefault("ACCOUNT_PACING", 9*time.Second)
	v.SetDefault("RECORD_PACING", 5*time.Second)
	v.SetDefault("HEADLESS", true)
	v.SetDefault("ADMIN_ADDR", ":3000")

	// Bind envs explicitly so containers pick them up reliably.
	for _, key := range []string{
		"SECRET_SEED", "BASE_URL", "FRONTEND_URL", "TARGET_SCRIP",
		"APPLIED_KITTA", "ACCOUNTS_PATH", "HISTORY_PATH", "DATABASE_DSN",
		"HTTP_TIMEOUT", "UI_WAIT_TIMEOUT", "SETTLE_DELAY", "ACCOUNT_PACING",
		"RECORD_PACING", "HEADLESS", "RECONCILE_CRON",
		"ADMIN_ADDR", "ADMIN_USER", "ADMIN_PASSWORD_HASH",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.SecretSeed) == "" {
		return fmt.Errorf("%w: SECRET_SEED is required", common.ErrConfiguration)
	}
	if c.AppliedKitta <= 0 {
		return fmt.Errorf("%w: APPLIED_KITTA must be positive", common.ErrConfiguration)
	}
	return nil
}
