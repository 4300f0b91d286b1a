package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sensiblebit/certwatch"
	"github.com/sensiblebit/certwatch/internal/certstore"
	"gopkg.in/yaml.v3"
)

// Config represents the YAML configuration file.
type Config struct {
	Database          string   `yaml:"database,omitempty"`          // SQLite file for hidden names; ":memory:" keeps them unpersisted
	AlmostExpiredDays int      `yaml:"almostExpiredDays,omitempty"` // warning window in days
	LogLevel          string   `yaml:"logLevel,omitempty"`
	TrustStore        string   `yaml:"trustStore,omitempty"` // "mozilla", "system" or "none"
	Anchors           []string `yaml:"anchors,omitempty"`    // extra anchor files (PEM, DER, P7B, JKS, P12)
	Passwords         []string `yaml:"passwords,omitempty"`  // passwords for anchor stores
	ChainDir          string   `yaml:"chainDir,omitempty"`   // directory holding one chain file per request ID
}

// DefaultDatabasePath returns the hidden-name database under the user's
// configuration directory, falling back to the working directory when the
// platform has none.
func DefaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		slog.Debug("no user config directory, using working directory for database", "error", err)
		return "certwatch.db"
	}
	return filepath.Join(dir, "certwatch", "certwatch.db")
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Database:          DefaultDatabasePath(),
		AlmostExpiredDays: int(certwatch.DefaultPolicy().Window() / certwatch.Day),
		LogLevel:          "info",
		TrustStore:        TrustStoreMozilla,
	}
}

// LoadConfig loads the configuration from the specified YAML file. Fields the
// file leaves out keep their defaults. An empty path or a missing file yields
// the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("config file not found, using defaults", "path", path)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that cannot be corrected silently.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database must not be empty (use %s to keep hidden names unpersisted)", certstore.MemoryDatabase)
	}
	if c.AlmostExpiredDays < 0 {
		return fmt.Errorf("almostExpiredDays must not be negative, got %d", c.AlmostExpiredDays)
	}
	switch c.TrustStore {
	case "", TrustStoreMozilla, TrustStoreSystem, TrustStoreNone:
	default:
		return fmt.Errorf("unsupported trustStore %q (use mozilla, system or none)", c.TrustStore)
	}
	return nil
}

// Policy returns the classification policy for the configured window. Zero
// days falls back to the default window.
func (c Config) Policy() certwatch.Policy {
	return certwatch.Policy{AlmostExpiredWindow: time.Duration(c.AlmostExpiredDays) * certwatch.Day}
}
