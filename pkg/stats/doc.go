// Package stats implements the per-container resource usage collector
// described in SPEC_FULL.md §4.H.
//
// A Collector samples every registered container's runtime.Runtime.Stats
// on a fixed interval and retains the results in a per-container History
// ring, capped at a configured entry count and wall-clock retention
// window.
//
//	c := stats.NewCollector(rt, stats.Config{Interval: 15 * time.Second})
//	c.RegisterProtocol(containerID, types.ProtocolVless)
//	c.Start(ctx)
//	current, ok := c.CurrentStats(containerID)
//
// RegisterProtocol also drives pkg/metrics.ConnectionsActive (one gauge per
// protocol, recomputed from the registered set) and
// pkg/metrics.BytesTransferredTotal (incremented from each sample's network
// counters); Register is a thin wrapper that tags the container "unknown".
//
// Config.Source selects where samples come from: SourceLive (the default)
// reads runtime.Runtime.Stats; SourceMock synthesizes plausible values
// instead, for environments without a working runtime driver.
//
// CurrentStats/AllCurrent/History/Average answer point and aggregate
// queries over a container's retained samples. GetUsageTrends classifies
// each metric over a trailing period as Increasing, Decreasing, Stable, or
// Volatile: a coefficient of variation above 0.3 is Volatile outright;
// otherwise the first and second half means are compared and a relative
// change beyond 10% selects Increasing/Decreasing. Rate-like metrics
// (network and block I/O) additionally report a linear rate of change.
//
// ExportJSON and ExportAllJSON render a container's (or every container's)
// current sample alongside its 1-hour and 24-hour averages as JSON.
//
// See also pkg/runtime (the Stats source), pkg/metrics (process-level
// Prometheus gauges, a different concern from per-container history),
// SPEC_FULL.md §4.H.
package stats
