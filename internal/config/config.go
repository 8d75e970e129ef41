package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	DataDirectory string `json:"data_directory"`
	DatabasePath  string `json:"database_path,omitempty"`

	// ReadOnly rejects mutating statements at the persistence layer,
	// for replica deployments that only serve search.
	ReadOnly bool `json:"read_only"`
	Debug    bool `json:"debug"`

	HTTPHost string `json:"http_host"`
	HTTPPort int    `json:"http_port"`

	// Search queries slower than this are logged (never preempted).
	SlowQueryThresholdMs int64 `json:"slow_query_threshold_ms"`
}

// getDefaultConfig returns a fresh copy of the default configuration
func getDefaultConfig() Config {
	return Config{
		DataDirectory:        "", // Will be set to ~/.local/share/trellis
		ReadOnly:             false,
		Debug:                false,
		HTTPHost:             "127.0.0.1",
		HTTPPort:             8297,
		SlowQueryThresholdMs: 500,
	}
}

// GetConfigPath returns the path of the JSON config file.
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "trellis", "config.json"), nil
}

func defaultDataDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "trellis"), nil
}

// Load reads the config file, filling in defaults for unset fields.
// A missing config file yields the default configuration.
func Load() (*Config, error) {
	cfg := getDefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if cfg.DataDirectory == "" {
		cfg.DataDirectory, err = defaultDataDirectory()
		if err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Save writes the config to disk, creating the config directory if needed.
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// InitializeConfig writes a fresh config with the given data directory.
func InitializeConfig(dataDir string) (*Config, error) {
	cfg := getDefaultConfig()

	var err error
	if dataDir != "" {
		cfg.DataDirectory = dataDir
	} else {
		cfg.DataDirectory, err = defaultDataDirectory()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(cfg.DataDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := Save(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// GetDatabasePath returns the SQLite database path for this deployment.
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.DataDirectory, "trellis.db")
}
