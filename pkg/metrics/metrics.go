package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vpncoord_nodes_total",
			Help: "Total number of cluster nodes by role and status",
		},
		[]string{"role", "status"},
	)

	UsersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpncoord_users_total",
			Help: "Total number of provisioned VPN users",
		},
	)

	ContainersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vpncoord_containers_total",
			Help: "Total number of protocol containers by state",
		},
		[]string{"state"},
	)

	ConnectionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vpncoord_connections_active",
			Help: "Active connections by protocol (vless, shadowsocks, wireguard, http, socks5)",
		},
		[]string{"protocol"},
	)

	BytesTransferredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpncoord_bytes_transferred_total",
			Help: "Total bytes transferred by protocol and direction",
		},
		[]string{"protocol", "direction"},
	)

	// Raft metrics
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpncoord_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpncoord_raft_peers_total",
			Help: "Total number of Raft peers in the cluster",
		},
	)

	RaftLogIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpncoord_raft_log_index",
			Help: "Current Raft log index",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpncoord_raft_applied_index",
			Help: "Last applied Raft log index",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpncoord_api_requests_total",
			Help: "Total number of control-plane API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpncoord_api_request_duration_seconds",
			Help:    "Control-plane API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// User-management operation metrics
	UserCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vpncoord_user_create_duration_seconds",
			Help:    "Time taken to create a user in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	UserDeleteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vpncoord_user_delete_duration_seconds",
			Help:    "Time taken to delete a user in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BatchOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpncoord_batch_operations_total",
			Help: "Total number of batch operations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	BatchOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpncoord_batch_operation_duration_seconds",
			Help:    "Batch operation duration in seconds by kind",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	// Container operation metrics
	ContainerCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vpncoord_container_create_duration_seconds",
			Help:    "Time taken to create a container in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ContainerStartDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vpncoord_container_start_duration_seconds",
			Help:    "Time taken to start a container in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ContainerStopDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vpncoord_container_stop_duration_seconds",
			Help:    "Time taken to stop a container in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Raft operation metrics
	RaftApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vpncoord_raft_apply_duration_seconds",
			Help:    "Time taken to apply a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RaftCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vpncoord_raft_commit_duration_seconds",
			Help:    "Time taken to commit a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Health-check metrics
	HealthCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpncoord_health_check_duration_seconds",
			Help:    "Health probe duration in seconds by container and probe kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"container_id", "kind"},
	)

	HealthCheckFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpncoord_health_check_failures_total",
			Help: "Total number of failed health probes by container",
		},
		[]string{"container_id"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(UsersTotal)
	prometheus.MustRegister(ContainersTotal)
	prometheus.MustRegister(ConnectionsActive)
	prometheus.MustRegister(BytesTransferredTotal)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(RaftLogIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)

	// Register operation latency metrics
	prometheus.MustRegister(UserCreateDuration)
	prometheus.MustRegister(UserDeleteDuration)
	prometheus.MustRegister(BatchOperationsTotal)
	prometheus.MustRegister(BatchOperationDuration)
	prometheus.MustRegister(ContainerCreateDuration)
	prometheus.MustRegister(ContainerStartDuration)
	prometheus.MustRegister(ContainerStopDuration)
	prometheus.MustRegister(RaftApplyDuration)
	prometheus.MustRegister(RaftCommitDuration)
	prometheus.MustRegister(HealthCheckDuration)
	prometheus.MustRegister(HealthCheckFailuresTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
