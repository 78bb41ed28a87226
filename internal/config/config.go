// Package config loads runtime configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"os"
	"os/user"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds everything the CLI and server need at startup.
type Config struct {
	// DSN selects the ledger backend. Empty means SQLite at DBPath;
	// a postgres:// URL selects the PostgreSQL driver.
	DSN string

	// DBPath is the SQLite database file.
	DBPath string

	// StateDir holds local process state, notably the active-session
	// breadcrumb used for orphan recovery. Defaults to the directory
	// containing DBPath.
	StateDir string

	// UserID identifies the acting agent in the ledger. Sessions are
	// always written under this id.
	UserID string

	// HTTPAddr is the listen address for `timekeep serve`.
	HTTPAddr string

	// LogLevel is a logrus level name ("debug", "info", ...).
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored if present; missing is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	stateDir := filepath.Join(home, ".timekeep")

	cfg := Config{
		DSN:      os.Getenv("TIMEKEEP_DB_DSN"),
		DBPath:   filepath.Join(stateDir, "timekeep.db"),
		StateDir: stateDir,
		UserID:   os.Getenv("TIMEKEEP_USER"),
		HTTPAddr: os.Getenv("TIMEKEEP_HTTP_ADDR"),
		LogLevel: os.Getenv("TIMEKEEP_LOG_LEVEL"),
	}

	if p := os.Getenv("TIMEKEEP_DB"); p != "" {
		cfg.DBPath = p
		cfg.StateDir = filepath.Dir(p)
	}
	if d := os.Getenv("TIMEKEEP_STATE_DIR"); d != "" {
		cfg.StateDir = d
	}
	if cfg.UserID == "" {
		if u, err := user.Current(); err == nil && u.Username != "" {
			cfg.UserID = u.Username
		} else {
			cfg.UserID = "local"
		}
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8974"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}

	return cfg, nil
}
