/*
Package health implements the per-container health supervisor described in
SPEC_FULL.md §4.F: one of three probes on a timer, accumulated into a
types.HealthMetrics record per container.

# Probe dispatch

	┌───────────────────────────────────────────────────────────┐
	│                    Supervisor.loop (ticker)                │
	└───────────────────────────┬─────────────────────────────────┘
	                            │ basic task state == running?
	                  no ───────┼─────── yes
	                  ▼                  ▼
	          record Unhealthy   dispatch on HealthCheckConfig.Type
	          without probing    ┌─────────┬─────────┬──────────┐
	                             │ command │  http   │   tcp    │
	                             ▼         ▼         ▼
	                        ExecChecker HTTPChecker TCPChecker
	                        (runtime.Exec)  (GET, 200-299)  (dial, connect)
	                             │         │         │
	                             └────┬────┴────┬────┘
	                                  ▼
	                         HealthMetrics.Update

A HealthCheckConfig with no enabled probe falls back to task-exists
liveness: "healthy" iff the container's basic runtime state is running.

# Accounting

Each result increments TotalChecks and rolls AvgResponseTime as a running
mean. A success resets ConsecutiveFailures and sets CurrentStatus.Healthy;
a failure increments both ConsecutiveFailures and TotalFailures. A
container is "failing" once ConsecutiveFailures reaches the supervisor's
threshold (Supervisor.IsFailing). StartPeriod suppresses failure counting
(not probing) for containers still within their startup grace window, so
AvgResponseTime reflects real probe timings from the first tick.

See also:
  - pkg/runtime for the Exec call the command probe uses
  - pkg/stats for resource sampling, a separate concern from liveness
  - SPEC_FULL.md §4.F for the exact threshold and grace-period contract
*/
package health
