package config

import (
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Default()
	cfg.General.InstallDir = "/var/lib/vpncoord"
	return cfg
}

func TestDefaultConfigValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestValidateRejectsRelativeInstallDir(t *testing.T) {
	cfg := validConfig()
	cfg.General.InstallDir = "relative/path"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for relative install dir")
	}
}

func TestValidateRejectsBadPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Server.PortRangeStart = 20000
	cfg.Server.PortRangeEnd = 10000
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for inverted port range")
	}

	cfg = validConfig()
	cfg.Server.PortRangeStart = 80
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for port below 1024")
	}
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Monitoring.CPUAlertThreshold = 150
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for threshold > 100")
	}
}

func TestValidateRejectsZeroRetentionDays(t *testing.T) {
	cfg := validConfig()
	cfg.Monitoring.RetentionDays = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for zero retention days")
	}
}

func TestValidateRejectsNoRuntimeEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Runtime.DockerEnabled = false
	cfg.Runtime.EmbeddedEnabled = false
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error when no runtime is enabled")
	}
}

func TestValidateRejectsZeroTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Runtime.StopTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for zero stop timeout")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := validConfig()
	cfg.General.NodeName = "test-node"
	cfg.Monitoring.StatsInterval = 45 * time.Second

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.General.NodeName != "test-node" {
		t.Errorf("General.NodeName = %q, want test-node", loaded.General.NodeName)
	}
	if loaded.Monitoring.StatsInterval != 45*time.Second {
		t.Errorf("Monitoring.StatsInterval = %v, want 45s", loaded.Monitoring.StatsInterval)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := validConfig()
	cfg.Monitoring.RetentionDays = -1
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
}
