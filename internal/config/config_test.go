package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func isolateConfigDir(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)
	t.Setenv("HOME", tempDir)
	return tempDir
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	isolateConfigDir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPHost != "127.0.0.1" || cfg.HTTPPort != 8297 {
		t.Errorf("Unexpected HTTP defaults: %s:%d", cfg.HTTPHost, cfg.HTTPPort)
	}
	if cfg.SlowQueryThresholdMs != 500 {
		t.Errorf("SlowQueryThresholdMs = %d", cfg.SlowQueryThresholdMs)
	}
	if cfg.ReadOnly || cfg.Debug {
		t.Error("ReadOnly and Debug must default to false")
	}
	if cfg.DataDirectory == "" {
		t.Error("DataDirectory must be filled in")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	isolateConfigDir(t)

	cfg := getDefaultConfig()
	cfg.DataDirectory = "/tmp/trellis-test"
	cfg.HTTPPort = 9000
	cfg.Debug = true
	cfg.SlowQueryThresholdMs = 250
	if err := Save(&cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.DataDirectory != "/tmp/trellis-test" {
		t.Errorf("DataDirectory = %s", loaded.DataDirectory)
	}
	if loaded.HTTPPort != 9000 || !loaded.Debug || loaded.SlowQueryThresholdMs != 250 {
		t.Errorf("Round trip lost fields: %+v", loaded)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	isolateConfigDir(t)

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("Expected error for malformed config file")
	}
}

func TestInitializeConfigCreatesDataDirectory(t *testing.T) {
	tempDir := isolateConfigDir(t)
	dataDir := filepath.Join(tempDir, "data")

	cfg, err := InitializeConfig(dataDir)
	if err != nil {
		t.Fatalf("InitializeConfig failed: %v", err)
	}
	if cfg.DataDirectory != dataDir {
		t.Errorf("DataDirectory = %s", cfg.DataDirectory)
	}
	if _, err := os.Stat(dataDir); err != nil {
		t.Errorf("Data directory not created: %v", err)
	}

	// The written file loads back.
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.DataDirectory != dataDir {
		t.Errorf("Persisted DataDirectory = %s", loaded.DataDirectory)
	}
}

func TestGetDatabasePath(t *testing.T) {
	cfg := &Config{DataDirectory: "/data"}
	if got := cfg.GetDatabasePath(); !strings.HasSuffix(got, filepath.Join("/data", "trellis.db")) {
		t.Errorf("GetDatabasePath = %s", got)
	}

	cfg.DatabasePath = "/elsewhere/custom.db"
	if got := cfg.GetDatabasePath(); got != "/elsewhere/custom.db" {
		t.Errorf("Override ignored: %s", got)
	}
}
