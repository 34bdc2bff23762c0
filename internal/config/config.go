package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all calsift configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`

	// Timezone is the IANA zone used to parse event times and to bucket them
	// into days and hours. Empty means the host's local zone.
	Timezone string `yaml:"timezone"`

	LogLevel string `yaml:"log_level"`

	// ImportDir is the directory `calsift watch` monitors for new exports.
	ImportDir string `yaml:"import_dir"`

	// Rescan is a cron spec for periodic full rescans of ImportDir.
	// Empty disables rescans.
	Rescan string `yaml:"rescan"`

	IgnorePatterns []string `yaml:"ignore_patterns"`

	// TopCategories bounds the weekly series and legend in reports.
	TopCategories int `yaml:"top_categories"`

	// DateLayouts are extra Go time layouts tried before the built-in ones.
	DateLayouts []string `yaml:"date_layouts"`

	// ICSHorizonDays is how far back recurring iCalendar events are expanded.
	ICSHorizonDays int `yaml:"ics_horizon_days"`
}

// DefaultDataDir returns the default data directory (~/.calsift).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".calsift")
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		DataDir:        dataDir,
		DBPath:         filepath.Join(dataDir, "calsift.db"),
		LogLevel:       "info",
		ImportDir:      filepath.Join(dataDir, "inbox"),
		Rescan:         "*/15 * * * *",
		IgnorePatterns: []string{".DS_Store", "*.swp", "*~", "*.tmp", ".~lock.*"},
		TopCategories:  8,
		ICSHorizonDays: 365,
	}
}

// Normalize fills zero values with defaults so partial files still behave.
func (c *Config) Normalize() {
	def := Default()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	// Re-derive paths if DataDir was overridden but db/import paths were not.
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "calsift.db")
	}
	if c.ImportDir == "" {
		c.ImportDir = filepath.Join(c.DataDir, "inbox")
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.IgnorePatterns == nil {
		c.IgnorePatterns = def.IgnorePatterns
	}
	if c.TopCategories <= 0 {
		c.TopCategories = def.TopCategories
	}
	if c.ICSHorizonDays <= 0 {
		c.ICSHorizonDays = def.ICSHorizonDays
	}
}

// Load reads configuration from a YAML file, falling back to defaults
// for any unset fields. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML with owner-only permissions.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Location resolves Timezone. Empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// EnsureDataDir creates the data directory if it does not exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// ConfigPath returns the default path to the config file.
func ConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}
