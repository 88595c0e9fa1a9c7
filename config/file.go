// Package config handles the application's persistent configuration: the
// optional YAML file with environment defaults and the SQLite-backed user
// settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HarvestConfig holds batch-run defaults from the config file. Durations are
// strings ("8s", "1m") parsed at the point of use.
type HarvestConfig struct {
	OutputDir     string `yaml:"output_dir"`
	Format        string `yaml:"format"`
	DelayMin      string `yaml:"delay_min"`
	DelayMax      string `yaml:"delay_max"`
	PageTimeout   string `yaml:"page_timeout"`
	ReadySelector string `yaml:"ready_selector"`
}

// FileConfig represents the structure of ~/.chatharvest/config.yaml.
type FileConfig struct {
	SessionDir string        `yaml:"session_dir"`
	Headless   *bool         `yaml:"headless"`
	Harvest    HarvestConfig `yaml:"harvest"`
}

// LoadConfigFile loads configuration from ~/.chatharvest/config.yaml. Returns
// nil if the file doesn't exist (not an error). Returns error if the file
// exists but cannot be parsed.
func LoadConfigFile() (*FileConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".chatharvest", "config.yaml")

	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	// Read file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Dir returns the application directory (~/.chatharvest), creating it if
// needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".chatharvest")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// DatabasePath returns the SQLite database that holds templates and settings.
func DatabasePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chatharvest.db"), nil
}
