// Package config handles workspace discovery and the per-workspace
// config.yaml. The workspace marker is a .chainlink directory found by
// walking up from the current directory, the way git finds .git.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// WorkspaceDir is the marker directory holding the store and artifacts.
const WorkspaceDir = ".chainlink"

// ConfigFile is the config file name inside the workspace directory.
const ConfigFile = "config.yaml"

// DBFile is the store file name inside the workspace directory.
const DBFile = "issues.db"

// ErrNoWorkspace means no .chainlink directory was found walking up from
// the starting directory.
var ErrNoWorkspace = errors.New("no .chainlink workspace found (run 'chainlink init')")

// Config is the per-workspace configuration.
type Config struct {
	// DBPath overrides the store file location. Relative paths resolve
	// against the workspace directory.
	DBPath string `yaml:"db_path" mapstructure:"db_path"`

	// DefaultPriority applies to issues created without an explicit
	// priority.
	DefaultPriority string `yaml:"default_priority" mapstructure:"default_priority"`

	// FlushInterval is the daemon's flush cadence.
	FlushInterval time.Duration `yaml:"flush_interval" mapstructure:"flush_interval"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		DBPath:          DBFile,
		DefaultPriority: "medium",
		FlushInterval:   30 * time.Second,
	}
}

// FindWorkspace walks up from start looking for a .chainlink directory and
// returns its path. Fails with ErrNoWorkspace at the filesystem root.
func FindWorkspace(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, WorkspaceDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoWorkspace
		}
		dir = parent
	}
}

// Load reads the workspace config, falling back to defaults for missing
// keys or a missing file entirely.
func Load(workspace string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(filepath.Join(workspace, ConfigFile))
	v.SetConfigType("yaml")
	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("default_priority", cfg.DefaultPriority)
	v.SetDefault("flush_interval", cfg.FlushInterval)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// DBPathFor resolves the store file path for a workspace under cfg.
func (c *Config) DBPathFor(workspace string) string {
	if filepath.IsAbs(c.DBPath) {
		return c.DBPath
	}
	return filepath.Join(workspace, c.DBPath)
}

// Init creates the workspace directory under root and writes the default
// config file. Re-running on an initialized workspace is a no-op.
func Init(root string) (string, error) {
	workspace := filepath.Join(root, WorkspaceDir)
	if err := os.MkdirAll(workspace, 0755); err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}

	path := filepath.Join(workspace, ConfigFile)
	if _, err := os.Stat(path); err == nil {
		return workspace, nil
	}

	// Durations go out as strings ("30s"), the form viper parses back.
	def := Default()
	data, err := yaml.Marshal(map[string]string{
		"db_path":          def.DBPath,
		"default_priority": def.DefaultPriority,
		"flush_interval":   def.FlushInterval.String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return workspace, nil
}
