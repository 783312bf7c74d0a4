package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	vpnmetrics "github.com/cuemby/vpncoord/pkg/metrics"
	"github.com/cuemby/vpncoord/pkg/runtime"
	"github.com/cuemby/vpncoord/pkg/types"
)

// Supervisor runs the configured probe for every registered container on its
// own ticker and accumulates a types.HealthMetrics record per container
// (§4.F). It never runs a probe while the container's basic task state is
// not running; in that case the check is recorded as unhealthy without
// invoking the probe.
type Supervisor struct {
	rt        runtime.Runtime
	threshold int

	mu       sync.RWMutex
	configs  map[string]types.HealthCheckConfig
	metrics  map[string]*types.HealthMetrics
	cancels  map[string]context.CancelFunc
}

// NewSupervisor creates a Supervisor driving probes through rt. threshold is
// the consecutive-failure count at which a container is reported "failing";
// 0 defaults to 3.
func NewSupervisor(rt runtime.Runtime, threshold int) *Supervisor {
	if threshold <= 0 {
		threshold = 3
	}
	return &Supervisor{
		rt:        rt,
		threshold: threshold,
		configs:   make(map[string]types.HealthCheckConfig),
		metrics:   make(map[string]*types.HealthMetrics),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Register starts supervising containerID with cfg. Calling Register again
// for an id already registered stops the previous ticker first.
func (s *Supervisor) Register(containerID string, cfg types.HealthCheckConfig) {
	s.Unregister(containerID)

	s.mu.Lock()
	s.configs[containerID] = cfg
	s.metrics[containerID] = &types.HealthMetrics{StartedAt: time.Now()}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancels[containerID] = cancel
	s.mu.Unlock()

	if !cfg.Enabled {
		return
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go s.loop(ctx, containerID, interval)
}

// Unregister stops supervising containerID.
func (s *Supervisor) Unregister(containerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[containerID]; ok {
		cancel()
		delete(s.cancels, containerID)
	}
}

func (s *Supervisor) loop(ctx context.Context, containerID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Skip-missed: a tick that arrives while the previous check is
			// still outstanding is simply not queued, since RunOnce below
			// runs synchronously inside this single goroutine per container.
			s.RunOnce(ctx, containerID)
		}
	}
}

// RunOnce performs a single probe for containerID and updates its metrics,
// independent of the ticker loop. Returns the resulting HealthMetrics
// snapshot.
func (s *Supervisor) RunOnce(ctx context.Context, containerID string) types.HealthMetrics {
	s.mu.RLock()
	cfg, hasCfg := s.configs[containerID]
	metrics, hasMetrics := s.metrics[containerID]
	s.mu.RUnlock()

	if !hasCfg || !hasMetrics {
		return types.HealthMetrics{}
	}

	state, err := s.rt.TaskState(ctx, containerID)
	basicRunning := err == nil && state == types.ContainerStateRunning

	var result Result
	if !basicRunning {
		result = Result{Healthy: false, Message: "container is not running", CheckedAt: time.Now()}
	} else {
		// Probe runs even inside the start-period grace window, so
		// AvgResponseTime reflects real timings; only failure *counting* is
		// suppressed, applied below via suppressFailure.
		result = s.probe(ctx, containerID, cfg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	metrics = s.metrics[containerID]
	if metrics == nil {
		return types.HealthMetrics{}
	}

	suppressFailure := cfg.InStartPeriod(metrics.StartedAt) && !result.Healthy
	applyResult(metrics, result, suppressFailure)

	kind := string(cfg.Type)
	if kind == "" {
		kind = "task-exists"
	}
	vpnmetrics.HealthCheckDuration.WithLabelValues(containerID, kind).Observe(result.Duration.Seconds())
	if !result.Healthy && !suppressFailure {
		vpnmetrics.HealthCheckFailuresTotal.WithLabelValues(containerID).Inc()
	}

	return *metrics
}

// probe dispatches to the configured checker. A zero-value Type with no
// enabled probe falls back to task-exists liveness (§4.F Default).
func (s *Supervisor) probe(ctx context.Context, containerID string, cfg types.HealthCheckConfig) Result {
	start := time.Now()

	switch cfg.Type {
	case types.HealthCheckCommand:
		checker := NewExecChecker(cfg.Command).WithTimeout(cfg.Timeout).WithContainer(containerID, s.rt)
		return checker.Check(ctx)
	case types.HealthCheckHTTP:
		// §4.F/§8: only 2xx (200-299) counts as healthy; a probed container
		// that issues a redirect is not considered up.
		checker := NewHTTPChecker(cfg.URL).WithTimeout(cfg.Timeout).WithStatusRange(200, 299)
		return checker.Check(ctx)
	case types.HealthCheckTCP:
		// VPN endpoint containers publish to the host network, so the probe
		// dials the coordinator's own loopback rather than a container IP.
		addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
		checker := NewTCPChecker(addr).WithTimeout(cfg.Timeout)
		return checker.Check(ctx)
	default:
		// task-exists: already confirmed running by the caller.
		return Result{Healthy: true, Message: "task running", CheckedAt: start, Duration: time.Since(start)}
	}
}

func applyResult(m *types.HealthMetrics, r Result, suppressFailure bool) {
	m.CurrentStatus = types.HealthStatus{
		Healthy:   r.Healthy,
		Message:   r.Message,
		CheckedAt: r.CheckedAt,
		Duration:  r.Duration,
	}
	m.TotalChecks++

	// Rolling mean of response time over total checks.
	if m.TotalChecks == 1 {
		m.AvgResponseTime = r.Duration
	} else {
		m.AvgResponseTime = m.AvgResponseTime + (r.Duration-m.AvgResponseTime)/time.Duration(m.TotalChecks)
	}

	if r.Healthy {
		m.ConsecutiveFailures = 0
		m.ConsecutiveSuccesses++
		m.LastSuccess = r.CheckedAt
		return
	}

	if suppressFailure {
		return
	}

	m.ConsecutiveFailures++
	m.ConsecutiveSuccesses = 0
	m.TotalFailures++
	m.LastFailure = r.CheckedAt
}

// Metrics returns a snapshot of containerID's accumulated HealthMetrics.
func (s *Supervisor) Metrics(containerID string) (types.HealthMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metrics[containerID]
	if !ok {
		return types.HealthMetrics{}, false
	}
	return *m, true
}

// IsFailing reports whether containerID's consecutive-failure count has
// reached the supervisor's threshold.
func (s *Supervisor) IsFailing(containerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metrics[containerID]
	if !ok {
		return false
	}
	return m.ConsecutiveFailures >= s.threshold
}
