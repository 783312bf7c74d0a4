// Package config loads and validates the coordinator's TOML configuration
// file (SPEC_FULL.md §6): sections general, server, ui, monitoring,
// security, runtime.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
)

// General holds install-wide identity and paths.
type General struct {
	InstallDir string `toml:"install_dir"`
	NodeName   string `toml:"node_name"`
	LogLevel   string `toml:"log_level"`
}

// Server holds the coordinator's listen configuration.
type Server struct {
	BindAddress   string        `toml:"bind_address"`
	PortRangeStart int          `toml:"port_range_start"`
	PortRangeEnd   int          `toml:"port_range_end"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// UI holds the operator-facing surface's configuration.
type UI struct {
	Enabled        bool          `toml:"enabled"`
	OutputFormat   string        `toml:"output_format"`
	RefreshInterval time.Duration `toml:"refresh_interval"`
}

// Monitoring holds health/stats/alerting configuration.
type Monitoring struct {
	HealthCheckInterval time.Duration `toml:"health_check_interval"`
	StatsInterval       time.Duration `toml:"stats_interval"`
	RetentionDays       int           `toml:"retention_days"`
	CPUAlertThreshold   float64       `toml:"cpu_alert_threshold"`
	MemoryAlertThreshold float64      `toml:"memory_alert_threshold"`
}

// Security holds certificate and key rotation configuration.
type Security struct {
	CertRotationInterval time.Duration `toml:"cert_rotation_interval"`
	RequireMTLS          bool          `toml:"require_mtls"`
}

// Runtime toggles which container runtime drivers are available and their
// timeouts.
type Runtime struct {
	DockerEnabled   bool          `toml:"docker_enabled"`
	EmbeddedEnabled bool          `toml:"embedded_enabled"`
	StopTimeout     time.Duration `toml:"stop_timeout"`
}

// Config is the root of the coordinator's TOML configuration file.
type Config struct {
	General    General    `toml:"general"`
	Server     Server     `toml:"server"`
	UI         UI         `toml:"ui"`
	Monitoring Monitoring `toml:"monitoring"`
	Security   Security   `toml:"security"`
	Runtime    Runtime    `toml:"runtime"`
}

// Default returns a Config populated with §4.J's stated timeout
// defaults ("Timeouts (defaults)").
func Default() Config {
	return Config{
		General: General{
			InstallDir: "/var/lib/vpncoord",
			NodeName:   "node-1",
			LogLevel:   "info",
		},
		Server: Server{
			BindAddress:    "0.0.0.0",
			PortRangeStart: 10000,
			PortRangeEnd:   20000,
			RequestTimeout: 30 * time.Second,
		},
		UI: UI{
			Enabled:         true,
			OutputFormat:    "table",
			RefreshInterval: 5 * time.Second,
		},
		Monitoring: Monitoring{
			HealthCheckInterval: 10 * time.Second,
			StatsInterval:        30 * time.Second,
			RetentionDays:        7,
			CPUAlertThreshold:    80,
			MemoryAlertThreshold: 80,
		},
		Security: Security{
			CertRotationInterval: 90 * 24 * time.Hour,
			RequireMTLS:          true,
		},
		Runtime: Runtime{
			DockerEnabled: true,
			StopTimeout:   10 * time.Second,
		},
	}
}

// Load reads and parses path as TOML, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, vpnerrors.NewConfigurationError("failed to parse config file: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return vpnerrors.NewStorageError("create config directory", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return vpnerrors.NewStorageError("open config file", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return vpnerrors.NewStorageError("encode config file", err)
	}
	return nil
}
