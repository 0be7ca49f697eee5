package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/anthropic/edit-attribution/internal/detection"
)

// Config holds all daemon and CLI configuration.
type Config struct {
	DataDir    string `json:"data_dir"`
	SocketPath string `json:"socket_path"`
	DBPath     string `json:"db_path"`

	// LogDir is where the capture layer writes *.ndjson event logs.
	LogDir string `json:"log_dir"`

	// RepoPath is an optional git repository for commit corroboration.
	RepoPath string `json:"repo_path"`

	// Detection overrides the built-in heuristic configuration when set.
	Detection *detection.Patch `json:"detection,omitempty"`
}

// DefaultDataDir returns the default data directory (~/.editattr).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".editattr")
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		DataDir:    dataDir,
		SocketPath: filepath.Join(dataDir, "editattr.sock"),
		DBPath:     filepath.Join(dataDir, "editattr.db"),
		LogDir:     filepath.Join(dataDir, "logs"),
	}
}

// Load reads configuration from a JSON file, falling back to defaults
// for any unset fields.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file is fine, use defaults.
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Re-derive paths if DataDir was overridden but the others were not.
	if cfg.SocketPath == "" {
		cfg.SocketPath = filepath.Join(cfg.DataDir, "editattr.sock")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "editattr.db")
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.DataDir, "logs")
	}

	return cfg, nil
}

// DetectionConfig resolves the effective engine configuration: built-in
// defaults with any file overrides applied, validated.
func (c *Config) DetectionConfig() (detection.Config, error) {
	cfg := detection.DefaultConfig()
	if c.Detection != nil {
		cfg = c.Detection.Apply(cfg)
	}
	if err := detection.ValidateConfig(cfg); err != nil {
		return detection.Config{}, err
	}
	return cfg, nil
}

// EnsureDataDir creates the data directory if it does not exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// ConfigPath returns the default path to the config file.
func ConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.json")
}
