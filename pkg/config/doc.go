// Package config loads, validates, and persists the coordinator's TOML
// configuration file (SPEC_FULL.md §6).
//
// Config has six sections: General, Server, UI, Monitoring, Security,
// Runtime. Default returns §4.J's stated timeout defaults. Load parses a
// file on top of Default and validates it; Save renders a Config back to
// TOML at mode 0600.
//
//	cfg, err := config.Load("/etc/vpncoord/config.toml")
//
// Validate enforces §6's rules: the install directory must be absolute;
// the server port range must satisfy start < end and start, end >= 1024;
// monitoring alert thresholds must lie in [0, 100]; retention days must be
// positive; at least one runtime driver must be enabled; every configured
// timeout must be greater than zero. Each violation is returned as a
// pkg/errors.ValidationError naming the offending field.
//
// See also pkg/runtime (Runtime.DockerEnabled/EmbeddedEnabled select
// drivers), pkg/deploy (General.InstallDir is the root of the persisted
// state layout), SPEC_FULL.md §6.
package config
