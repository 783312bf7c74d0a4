// Package stats implements the per-container resource usage collector
// (SPEC_FULL.md §4.H): periodic sampling into a bounded ring history, plus
// current/average/trend queries and JSON export.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/vpncoord/pkg/log"
	"github.com/cuemby/vpncoord/pkg/metrics"
	"github.com/cuemby/vpncoord/pkg/runtime"
	"github.com/cuemby/vpncoord/pkg/types"
)

// History is a capped, time-retained ring of StatsSamples for one
// container.
type History struct {
	maxEntries int
	retention  time.Duration
	samples    []types.StatsSample
}

func newHistory(maxEntries int, retention time.Duration) *History {
	return &History{maxEntries: maxEntries, retention: retention}
}

func (h *History) push(s types.StatsSample) {
	h.samples = append(h.samples, s)
	if len(h.samples) > h.maxEntries {
		h.samples = h.samples[len(h.samples)-h.maxEntries:]
	}
	h.evictExpired(s.Timestamp)
}

func (h *History) evictExpired(now time.Time) {
	if h.retention <= 0 {
		return
	}
	cutoff := now.Add(-h.retention)
	i := 0
	for i < len(h.samples) && h.samples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		h.samples = h.samples[i:]
	}
}

func (h *History) all() []types.StatsSample {
	out := make([]types.StatsSample, len(h.samples))
	copy(out, h.samples)
	return out
}

func (h *History) since(period time.Duration) []types.StatsSample {
	if period <= 0 {
		return h.all()
	}
	if len(h.samples) == 0 {
		return nil
	}
	cutoff := h.samples[len(h.samples)-1].Timestamp.Add(-period)
	var out []types.StatsSample
	for _, s := range h.samples {
		if !s.Timestamp.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Collector periodically samples every registered container's resource
// usage via a runtime.Runtime and retains it in a per-container History.
type Collector struct {
	rt         runtime.Runtime
	source     Source
	interval   time.Duration
	maxHistory int
	retention  time.Duration
	mu         sync.RWMutex
	containers map[string]struct{}
	protocols  map[string]types.Protocol
	prevNet    map[string]types.NetworkStats
	histories  map[string]*History
	log        zerolog.Logger
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// Source selects where a Collector's samples come from. Mock exists
// because upstream exposed a stats.use_mock escape hatch while its real
// cgroup/containerd collection was unfinished; §9 leaves production-vs-mock
// unsettled here too, so both paths are kept, gated explicitly rather than
// guessed at.
type Source string

const (
	SourceLive Source = "live"
	SourceMock Source = "mock"
)

// Config tunes sample cadence, history retention, and sample source.
type Config struct {
	Interval          time.Duration
	MaxHistoryEntries int
	Retention         time.Duration
	Source            Source
}

func (c Config) normalize() Config {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.MaxHistoryEntries <= 0 {
		c.MaxHistoryEntries = 240
	}
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
	if c.Source == "" {
		c.Source = SourceLive
	}
	return c
}

// NewCollector creates a Collector sampling rt at cfg's interval. When
// cfg.Source is SourceMock, samples are synthesized instead of read from
// rt, for environments without a working runtime driver.
func NewCollector(rt runtime.Runtime, cfg Config) *Collector {
	cfg = cfg.normalize()
	return &Collector{
		rt:         rt,
		source:     cfg.Source,
		interval:   cfg.Interval,
		maxHistory: cfg.MaxHistoryEntries,
		retention:  cfg.Retention,
		containers: make(map[string]struct{}),
		protocols:  make(map[string]types.Protocol),
		prevNet:    make(map[string]types.NetworkStats),
		histories:  make(map[string]*History),
		log:        log.WithComponent("stats"),
		stopCh:     make(chan struct{}),
	}
}

// Register adds a container to the sampling set with an unknown protocol
// label; callers that know the container's protocol should use
// RegisterProtocol instead so ConnectionsActive/BytesTransferredTotal carry
// a meaningful label.
func (c *Collector) Register(containerID string) {
	c.RegisterProtocol(containerID, "")
}

// RegisterProtocol adds a container to the sampling set, tagging its
// Prometheus series with protocol (§4.H, one History per container, now
// also one connection gauge per protocol).
func (c *Collector) RegisterProtocol(containerID string, protocol types.Protocol) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.containers[containerID] = struct{}{}
	if protocol == "" {
		protocol = "unknown"
	}
	c.protocols[containerID] = protocol
	if _, ok := c.histories[containerID]; !ok {
		c.histories[containerID] = newHistory(c.maxHistory, c.retention)
	}
	c.refreshConnectionGaugeLocked()
}

// Unregister removes a container from the sampling set and drops its
// history.
func (c *Collector) Unregister(containerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.containers, containerID)
	delete(c.histories, containerID)
	delete(c.prevNet, containerID)
	delete(c.protocols, containerID)
	c.refreshConnectionGaugeLocked()
}

// refreshConnectionGaugeLocked recomputes vpncoord_connections_active per
// protocol from the registered set. Called with c.mu held.
func (c *Collector) refreshConnectionGaugeLocked() {
	counts := make(map[types.Protocol]int)
	for id := range c.containers {
		counts[c.protocols[id]]++
	}
	metrics.ConnectionsActive.Reset()
	for protocol, n := range counts {
		metrics.ConnectionsActive.WithLabelValues(string(protocol)).Set(float64(n))
	}
}

// Start begins the sampling loop; it runs until ctx is cancelled or Stop
// is called.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		c.collectAll(ctx)
		for {
			select {
			case <-ticker.C:
				c.collectAll(ctx)
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop halts the sampling loop.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Collector) collectAll(ctx context.Context) {
	c.mu.RLock()
	ids := make([]string, 0, len(c.containers))
	for id := range c.containers {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	for _, id := range ids {
		var sample *types.StatsSample
		var err error
		if c.source == SourceMock {
			s := mockSample(id)
			sample = &s
		} else {
			sample, err = c.rt.Stats(ctx, id)
		}
		if err != nil {
			c.log.Warn().Err(err).Str("container_id", id).Msg("stats collection failed")
			continue
		}
		if sample.Timestamp.IsZero() {
			sample.Timestamp = time.Now()
		}
		c.mu.Lock()
		h, ok := c.histories[id]
		if !ok {
			h = newHistory(c.maxHistory, c.retention)
			c.histories[id] = h
		}
		h.push(*sample)

		protocol := string(c.protocols[id])
		if protocol == "" {
			protocol = "unknown"
		}
		if prev, ok := c.prevNet[id]; ok {
			if d := deltaBytes(prev.RxBytes, sample.Network.RxBytes); d > 0 {
				metrics.BytesTransferredTotal.WithLabelValues(protocol, "rx").Add(float64(d))
			}
			if d := deltaBytes(prev.TxBytes, sample.Network.TxBytes); d > 0 {
				metrics.BytesTransferredTotal.WithLabelValues(protocol, "tx").Add(float64(d))
			}
		}
		c.prevNet[id] = sample.Network
		c.mu.Unlock()
	}
}

// deltaBytes returns the non-negative increase from prev to cur, treating a
// decrease (a restarted container resetting its cgroup counters) as a fresh
// baseline rather than a negative delta.
func deltaBytes(prev, cur uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

// CurrentStats returns the most recent sample for id, or ok=false if none
// has been collected yet.
func (c *Collector) CurrentStats(id string) (types.StatsSample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.histories[id]
	if !ok || len(h.samples) == 0 {
		return types.StatsSample{}, false
	}
	return h.samples[len(h.samples)-1], true
}

// AllCurrent returns the most recent sample for every registered
// container that has at least one sample.
func (c *Collector) AllCurrent() map[string]types.StatsSample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]types.StatsSample)
	for id, h := range c.histories {
		if len(h.samples) > 0 {
			out[id] = h.samples[len(h.samples)-1]
		}
	}
	return out
}

// History returns every retained sample for id, oldest first.
func (c *Collector) History(id string) []types.StatsSample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.histories[id]
	if !ok {
		return nil
	}
	return h.all()
}

// Average returns the mean of every metric over id's samples within the
// trailing period (the whole history if period <= 0).
func (c *Collector) Average(id string, period time.Duration) (types.StatsSample, bool) {
	c.mu.RLock()
	h, ok := c.histories[id]
	c.mu.RUnlock()
	if !ok {
		return types.StatsSample{}, false
	}
	samples := h.since(period)
	if len(samples) == 0 {
		return types.StatsSample{}, false
	}
	return averageSamples(samples), true
}

func averageSamples(samples []types.StatsSample) types.StatsSample {
	n := float64(len(samples))
	var avg types.StatsSample
	avg.Timestamp = samples[len(samples)-1].Timestamp
	for _, s := range samples {
		avg.CPU.Percent += s.CPU.Percent / n
		avg.CPU.TotalNanos += s.CPU.TotalNanos / uint64(len(samples))
		avg.Memory.UsageBytes += s.Memory.UsageBytes / int64(len(samples))
		avg.Memory.Percent += s.Memory.Percent / n
		avg.Network.RxBytes += s.Network.RxBytes / uint64(len(samples))
		avg.Network.TxBytes += s.Network.TxBytes / uint64(len(samples))
		avg.BlockIO.ReadBytes += s.BlockIO.ReadBytes / uint64(len(samples))
		avg.BlockIO.WriteBytes += s.BlockIO.WriteBytes / uint64(len(samples))
	}
	return avg
}
