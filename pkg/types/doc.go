/*
Package types defines the core domain model shared by every component of the
VPN coordinator: cluster membership and consensus records, the user
directory, container/runtime state, health and resource telemetry, and the
value types batch and lifecycle operations checkpoint against.

# Core Types

Cluster & Consensus:
  - Node: a cluster member with role (leader/follower/candidate/learner) and
    status (joining/healthy/suspected/failed/stopping)
  - ClusterState: the replicated snapshot every node holds; Term and
    ConfigVersion are monotonically non-decreasing
  - LogEntry: one consensus log record, keyed by (Term, Index)

User Directory:
  - User: a directory entry for one VPN account, keyed by unique Name and
    identified to clients by ShortID (Reality selector)
  - Protocol: vless, shadowsocks, wireguard, socks5
  - UserConfig: protocol-specific key material (X25519 pair, Shadowsocks
    method/password, Reality SNI)
  - TrafficCounters: per-user usage accounting

Containers & Runtime:
  - ContainerSpec / Container: desired configuration and runtime-reported
    instance, as returned by pkg/runtime
  - ContainerState: created/running/paused/stopped/exited
  - Mount, PortMapping, ResourceLimits: the pieces of a ContainerSpec

Health:
  - HealthCheckConfig: probe selection (command/http/tcp/task-exists),
    interval, timeout, and StartPeriod grace window
  - HealthStatus / HealthMetrics: point-in-time result and the accumulated
    record a container's supervisor maintains (see pkg/health)

Logs & Stats:
  - ContainerLogEntry: one parsed line of a container's JSON log stream
  - StatsSample and its CPU/Memory/Network/BlockIO/PID sub-structs: a single
    timestamped resource snapshot (see pkg/stats)

Batch & Config:
  - BatchOperationCheckpoint: a durable record of a resumable batch's
    completed/failed/remaining partition (see pkg/batch)
  - ConfigRecord: one entry in the distributed key/value store (see pkg/kv)

# Design notes

Enums are typed string constants. Optional probe/resource fields are plain
values gated by a Type or Enabled flag rather than pointers, since every
component that reads them already knows which variant applies.

Thread safety: values in this package carry no internal locking. Callers
holding a long-lived *ClusterState, *HealthMetrics, or similar pointer must
synchronize access themselves — pkg/cluster and pkg/health do this with a
sync.RWMutex around their owned maps.

# See also

  - pkg/cluster and pkg/consensus for ClusterState/LogEntry producers
  - pkg/userdir for the User directory
  - pkg/runtime for Container/ContainerSpec producers and consumers
  - pkg/health, pkg/logs, pkg/stats for the telemetry types
  - pkg/batch, pkg/kv for BatchOperationCheckpoint/ConfigRecord
  - SPEC_FULL.md for the full domain model this package implements
*/
package types
