package config

import (
	"path/filepath"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
)

// Validate enforces §6's configuration invariants, returning the first
// violation found as a pkg/errors.ValidationError.
func (c Config) Validate() error {
	if !filepath.IsAbs(c.General.InstallDir) {
		return vpnerrors.NewValidationError("general.install_dir", "must be an absolute path")
	}

	if c.Server.PortRangeStart < 1024 {
		return vpnerrors.NewValidationError("server.port_range_start", "must be >= 1024")
	}
	if c.Server.PortRangeEnd < 1024 {
		return vpnerrors.NewValidationError("server.port_range_end", "must be >= 1024")
	}
	if c.Server.PortRangeStart >= c.Server.PortRangeEnd {
		return vpnerrors.NewValidationError("server.port_range", "start must be less than end")
	}
	if c.Server.RequestTimeout <= 0 {
		return vpnerrors.NewValidationError("server.request_timeout", "must be greater than zero")
	}

	if c.UI.RefreshInterval <= 0 {
		return vpnerrors.NewValidationError("ui.refresh_interval", "must be greater than zero")
	}

	if err := validatePercent("monitoring.cpu_alert_threshold", c.Monitoring.CPUAlertThreshold); err != nil {
		return err
	}
	if err := validatePercent("monitoring.memory_alert_threshold", c.Monitoring.MemoryAlertThreshold); err != nil {
		return err
	}
	if c.Monitoring.RetentionDays <= 0 {
		return vpnerrors.NewValidationError("monitoring.retention_days", "must be greater than zero")
	}
	if c.Monitoring.HealthCheckInterval <= 0 {
		return vpnerrors.NewValidationError("monitoring.health_check_interval", "must be greater than zero")
	}
	if c.Monitoring.StatsInterval <= 0 {
		return vpnerrors.NewValidationError("monitoring.stats_interval", "must be greater than zero")
	}

	if c.Security.CertRotationInterval <= 0 {
		return vpnerrors.NewValidationError("security.cert_rotation_interval", "must be greater than zero")
	}

	if !c.Runtime.DockerEnabled && !c.Runtime.EmbeddedEnabled {
		return vpnerrors.NewValidationError("runtime", "at least one runtime must be enabled")
	}
	if c.Runtime.StopTimeout <= 0 {
		return vpnerrors.NewValidationError("runtime.stop_timeout", "must be greater than zero")
	}

	return nil
}

func validatePercent(field string, value float64) error {
	if value < 0 || value > 100 {
		return vpnerrors.NewValidationError(field, "must be between 0 and 100")
	}
	return nil
}
