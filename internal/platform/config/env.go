// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the condition server settings.
type Config struct {
	ListenAddr  string        `env:"KAIRO_LISTEN_ADDR" envDefault:":8080"`
	GameID      string        `env:"KAIRO_GAME_ID" envDefault:"season-1"`
	DBDriver    string        `env:"KAIRO_DB_DRIVER" envDefault:"sqlite"`
	DBPath      string        `env:"KAIRO_DB_PATH" envDefault:"kairo.db"`
	DSN         string        `env:"KAIRO_DSN"`
	RosterPath  string        `env:"KAIRO_ROSTER" envDefault:"roster.yaml"`
	Seed        int64         `env:"KAIRO_SEED" envDefault:"0"`
	DayInterval time.Duration `env:"KAIRO_DAY_INTERVAL" envDefault:"1m"`
	BackupEvery time.Duration `env:"KAIRO_BACKUP_INTERVAL" envDefault:"5m"`
	CacheSize   int           `env:"KAIRO_CACHE_SIZE" envDefault:"256"`
	Profile     string        `env:"KAIRO_PROFILE" envDefault:"default"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "memory":
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("KAIRO_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported KAIRO_DB_DRIVER %q", c.DBDriver)
	}
	if c.DayInterval <= 0 {
		return fmt.Errorf("KAIRO_DAY_INTERVAL must be positive, got %s", c.DayInterval)
	}
	if c.BackupEvery <= 0 {
		return fmt.Errorf("KAIRO_BACKUP_INTERVAL must be positive, got %s", c.BackupEvery)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("KAIRO_CACHE_SIZE must be positive, got %d", c.CacheSize)
	}
	if _, ok := profiles[c.Profile]; !ok {
		return fmt.Errorf("unknown KAIRO_PROFILE %q", c.Profile)
	}
	return nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
