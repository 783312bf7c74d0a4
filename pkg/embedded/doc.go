/*
Package embedded manages a self-contained containerd daemon for hosts that
have no system containerd installed, backing the "embedded" runtime driver
described in SPEC_FULL.md §4.D.

# Why an embedded daemon

Each VPN endpoint (VLESS+Reality, Shadowsocks, WireGuard, proxy) runs as a
container workload. Production hosts are expected to carry a system
containerd, but a freshly provisioned node or an isolated test host may not.
Rather than fail installation, the coordinator can extract and run its own
containerd binary under its data directory and point the runtime driver at
that socket instead.

	┌──────────────────────────────────────────────────────────┐
	│                  pkg/runtime driver select                │
	│          auto → prefer system containerd socket           │
	└───────────────────────────┬────────────────────────────────┘
	                            │ unreachable
	                            ▼
	┌──────────────────────────────────────────────────────────┐
	│                 pkg/embedded.ContainerdManager             │
	│  1. extract embedded containerd binary for GOOS/GOARCH     │
	│  2. write a minimal CRI config                             │
	│  3. start the daemon, wait for its socket                  │
	│  4. monitor the process, report unexpected exits           │
	└──────────────────────────────────────────────────────────┘

# Layout

  - Binary: <data-dir>/bin/containerd (extracted once, reused across restarts
    within 24h; re-extracted after)
  - Socket: /run/vpncoord-containerd/containerd.sock
  - Config: /etc/vpncoord-containerd/config.toml
  - State:  <data-dir>/containerd, <data-dir>/containerd-state

# Lifecycle

EnsureContainerd constructs a ContainerdManager and starts it; Start is a
no-op when useExternal is set (the caller already resolved a system
containerd socket and has no need for the embedded one). Stop sends SIGTERM
and escalates to SIGKILL after a 10-second grace period. A background
monitor goroutine watches the process for an unexpected exit and logs it;
nothing restarts the daemon (pkg/runtime probes drivers only once, in New).

See also:
  - pkg/runtime for the driver that consumes this manager's socket path
  - SPEC_FULL.md §4.D for the driver-selection contract
*/
package embedded
