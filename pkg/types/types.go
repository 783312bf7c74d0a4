// Package types holds the core domain model shared by every component of
// the coordinator: cluster membership, consensus log entries, user
// records, container/task state, and the supporting value types each
// component reads or mutates.
package types

import "time"

// NodeID is a stable UUID identifying a cluster member.
type NodeID = string

// NodeRole is the node's current role within consensus.
type NodeRole string

const (
	NodeRoleLeader    NodeRole = "leader"
	NodeRoleFollower  NodeRole = "follower"
	NodeRoleCandidate NodeRole = "candidate"
	NodeRoleLearner   NodeRole = "learner"
)

// NodeStatus is the node's last-observed health state.
type NodeStatus string

const (
	NodeStatusJoining   NodeStatus = "joining"
	NodeStatusHealthy   NodeStatus = "healthy"
	NodeStatusSuspected NodeStatus = "suspected"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusStopping  NodeStatus = "stopping"
)

// Node is a member of the cluster. Created on join, mutated by heartbeat
// and role transitions, removed on explicit leave or confirmed failure.
type Node struct {
	ID            NodeID
	Address       string // host:port
	Role          NodeRole
	Status        NodeStatus
	LastSeen      time.Time
	Capabilities  []string
	Voting        bool
	CreatedAt     time.Time
}

// ClusterState is the replicated snapshot every node owns behind a
// reader-writer lock. Invariants: at most one leader per term; Term is
// monotonically non-decreasing; ConfigVersion strictly increases on every
// mutation of Nodes or Config.
type ClusterState struct {
	Name          string
	Nodes         map[NodeID]*Node
	Leader        *NodeID
	Term          uint64
	ConfigVersion uint64
	Config        map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LogEntry is a single consensus log record. A committed entry is never
// overwritten; entries sharing (index, term) across logs are identical.
type LogEntry struct {
	Term      uint64
	Index     uint64 // >= 1, dense
	Payload   []byte
	Timestamp time.Time
}

// Protocol identifies the VPN transport a user account is provisioned for.
type Protocol string

const (
	ProtocolVless       Protocol = "vless"
	ProtocolShadowsocks Protocol = "shadowsocks"
	ProtocolWireGuard   Protocol = "wireguard"
	ProtocolSocks5      Protocol = "socks5"
)

// UserStatus is the lifecycle state of a directory entry.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// UserConfig holds the protocol-specific material for a user: the
// X25519 key pair (base64) plus any protocol-specific fields (e.g. a
// Shadowsocks method/password, or a WireGuard preshared key).
type UserConfig struct {
	PrivateKey string // base64, X25519
	PublicKey  string // base64, X25519
	Method     string // shadowsocks cipher, when applicable
	Password   string // shadowsocks password, when applicable
	SNI        string // reality SNI donor host
}

// TrafficCounters tracks per-user usage.
type TrafficCounters struct {
	BytesSent       uint64
	BytesReceived   uint64
	ConnectionCount uint64
	LastConnection  time.Time
}

// User is a directory record. Created by the directory, mutated by
// updates and traffic ingestion, deleted explicitly or by
// inactivity-cleanup. Name must be unique and 1-64 chars of
// [A-Za-z0-9_-].
type User struct {
	ID         string // UUID
	ShortID    string // 16 hex chars, Reality selector
	Name       string
	Email      string
	Protocol   Protocol
	Status     UserStatus
	CreatedAt  time.Time
	LastActive time.Time
	Config     UserConfig
	Traffic    TrafficCounters
}

// ContainerState mirrors the runtime's reported task state.
type ContainerState string

const (
	ContainerStateCreated ContainerState = "created"
	ContainerStateRunning ContainerState = "running"
	ContainerStatePaused  ContainerState = "paused"
	ContainerStateStopped ContainerState = "stopped"
	ContainerStateExited  ContainerState = "exited"
)

// PortMapping defines a single published port.
type PortMapping struct {
	ContainerPort int
	HostPort      int
	Protocol      string // "tcp" or "udp"
}

// Mount defines a volume or bind mount point.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// ResourceLimits caps CPU/memory for a container.
type ResourceLimits struct {
	CPUShares   int64 // relative weight
	CPUQuotaPct int   // percent of one core, 0 = unlimited
	MemoryBytes int64 // 0 = unlimited
}

// ContainerSpec is the desired configuration for a container.
type ContainerSpec struct {
	Image     string
	Name      string
	Env       []string
	Mounts    []Mount
	Ports     []PortMapping
	Caps      []string
	Network   string
	Resources ResourceLimits
}

// Container is a runtime-reported instance.
type Container struct {
	ID           string
	Spec         ContainerSpec
	State        ContainerState
	HealthStatus *HealthStatus
	CreatedAt    time.Time
}

// HealthCheckType is which probe a HealthCheckConfig carries.
type HealthCheckType string

const (
	HealthCheckCommand HealthCheckType = "command"
	HealthCheckHTTP    HealthCheckType = "http"
	HealthCheckTCP     HealthCheckType = "tcp"
	HealthCheckDefault HealthCheckType = "task-exists"
)

// HealthCheckConfig configures a single container's health supervision.
// Exactly one probe field is meaningful, selected by Type; HealthCheckDefault
// uses none and checks task liveness only.
type HealthCheckConfig struct {
	Enabled     bool
	Type        HealthCheckType
	Command     []string
	URL         string
	Port        int
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// InStartPeriod reports whether startedAt is still within this config's
// grace period, during which probe failures are not counted (§4.F).
func (c HealthCheckConfig) InStartPeriod(startedAt time.Time) bool {
	if c.StartPeriod <= 0 {
		return false
	}
	return time.Since(startedAt) < c.StartPeriod
}

// HealthStatus is the point-in-time probe result.
type HealthStatus struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// HealthMetrics is the accumulated health record for one container.
type HealthMetrics struct {
	CurrentStatus       HealthStatus
	ConsecutiveFailures int
	ConsecutiveSuccesses int
	TotalChecks         uint64
	TotalFailures       uint64
	LastSuccess         time.Time
	LastFailure         time.Time
	AvgResponseTime     time.Duration
	StartedAt           time.Time
}

// LogStream identifies which stream a LogEntry line came from.
type LogStream string

const (
	LogStreamStdout LogStream = "stdout"
	LogStreamStderr LogStream = "stderr"
)

// LogLevel is the inferred severity of a log line.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelDebug LogLevel = "debug"
	LogLevelError LogLevel = "error"
)

// ContainerLogEntry is one parsed line of a container's JSON log file.
type ContainerLogEntry struct {
	Timestamp   time.Time
	ContainerID string
	Stream      LogStream
	Level       LogLevel
	Message     string
	Attributes  map[string]string
}

// CPUStats is the CPU portion of a StatsSample.
type CPUStats struct {
	TotalNanos   uint64
	UserNanos    uint64
	SystemNanos  uint64
	ThrottledNanos uint64
	Percent      float64
}

// MemoryStats is the memory portion of a StatsSample.
type MemoryStats struct {
	UsageBytes int64
	LimitBytes int64
	CacheBytes int64
	RSSBytes   int64
	SwapBytes  int64
	Percent    float64
}

// NetworkStats is the network portion of a StatsSample.
type NetworkStats struct {
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64
	RxErrors  uint64
	TxErrors  uint64
}

// BlockIOStats is the block device portion of a StatsSample.
type BlockIOStats struct {
	ReadBytes  uint64
	WriteBytes uint64
	ReadOps    uint64
	WriteOps   uint64
}

// PIDStats tracks process count against the cgroup's pids limit.
type PIDStats struct {
	Current int64
	Limit   int64
}

// StatsSample is a single timestamped resource snapshot for one
// container.
type StatsSample struct {
	Timestamp time.Time
	CPU       CPUStats
	Memory    MemoryStats
	Network   NetworkStats
	BlockIO   BlockIOStats
	PIDs      PIDStats
}

// CheckpointOperationType tags what kind of batch produced a checkpoint;
// carried over from the Rust source's BatchOperationType (see
// SPEC_FULL.md "Supplemented features").
type CheckpointOperationType string

const (
	CheckpointCreate CheckpointOperationType = "create"
	CheckpointDelete CheckpointOperationType = "delete"
	CheckpointUpdate CheckpointOperationType = "update"
	CheckpointReset  CheckpointOperationType = "reset"
)

// BatchOperationCheckpoint is a durable record of a resumable batch's
// completed/failed/remaining partition. Invariant: Completed ∪ keys(Failed)
// ∪ Remaining equals the original input set, with no duplicates.
type BatchOperationCheckpoint struct {
	OperationID   string
	OperationType CheckpointOperationType
	Completed     []string
	Failed        map[string]string
	Remaining     []string
	CreatedAt     time.Time
	Resumable     bool
	Metadata      map[string]string
}

// ConfigRecord is one entry in the distributed key/value store.
type ConfigRecord struct {
	Key        string
	Value      []byte // opaque JSON
	Version    uint64
	LastWriter string
}
