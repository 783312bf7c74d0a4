/*
Package metrics defines and registers the coordinator's Prometheus metrics
and exposes a process-level health/readiness HTTP surface, separate from
the per-container health supervisor in pkg/health.

# Metrics

Metrics are grouped by subsystem, all registered at package init via
prometheus.MustRegister:

  - Cluster: NodesTotal, UsersTotal, ContainersTotal, ConnectionsActive,
    BytesTransferredTotal
  - Raft: RaftLeader, RaftPeers, RaftLogIndex, RaftAppliedIndex,
    RaftApplyDuration, RaftCommitDuration
  - API: APIRequestsTotal, APIRequestDuration
  - User/container/batch operation latency: UserCreateDuration,
    UserDeleteDuration, ContainerCreateDuration, ContainerStartDuration,
    ContainerStopDuration, BatchOperationsTotal, BatchOperationDuration
  - Health: HealthCheckDuration, HealthCheckFailuresTotal

Handler() returns the promhttp handler to mount on the metrics endpoint.
Timer is a small helper for recording operation duration:

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.UserCreateDuration)

# Health and readiness

HealthChecker (health.go) tracks ComponentHealth for named dependencies
(raft, containerd, api, ...) and exposes HealthHandler, ReadyHandler, and
LivenessHandler for the process-level /health, /ready, /live endpoints.
This is distinct from pkg/health's Supervisor, which tracks the liveness
of individual VPN protocol containers.

# See also

  - pkg/health for per-container health supervision
  - SPEC_FULL.md DOMAIN STACK for the prometheus/client_golang wiring
*/
package metrics
