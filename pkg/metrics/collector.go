package metrics

import (
	"strconv"
	"time"

	"github.com/cuemby/vpncoord/pkg/cluster"
	"github.com/cuemby/vpncoord/pkg/consensus"
)

func parseStatsFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// Collector periodically samples cluster and consensus state into the
// package's prometheus gauges, sourced directly from pkg/cluster.State
// and consensus.ConsensusEngine.
type Collector struct {
	state  *cluster.State
	engine consensus.ConsensusEngine
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(state *cluster.State, engine consensus.ConsensusEngine) *Collector {
	return &Collector{
		state:  state,
		engine: engine,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15-second tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectNodeMetrics()
	c.collectRaftMetrics()
}

func (c *Collector) collectNodeMetrics() {
	nodes := c.state.GetNodes()

	nodeCounts := make(map[string]map[string]int)
	for _, node := range nodes {
		role := string(node.Role)
		status := string(node.Status)

		if nodeCounts[role] == nil {
			nodeCounts[role] = make(map[string]int)
		}
		nodeCounts[role][status]++
	}

	for role, statuses := range nodeCounts {
		for status, count := range statuses {
			NodesTotal.WithLabelValues(role, status).Set(float64(count))
		}
	}
}

func (c *Collector) collectRaftMetrics() {
	if c.engine.IsLeader() {
		RaftLeader.Set(1)
	} else {
		RaftLeader.Set(0)
	}

	stats := c.engine.Stats()
	if stats == nil {
		return
	}
	if v, ok := stats["last_log_index"]; ok {
		if f, err := parseStatsFloat(v); err == nil {
			RaftLogIndex.Set(f)
		}
	}
	if v, ok := stats["applied_index"]; ok {
		if f, err := parseStatsFloat(v); err == nil {
			RaftAppliedIndex.Set(f)
		}
	}
	if v, ok := stats["num_peers"]; ok {
		if f, err := parseStatsFloat(v); err == nil {
			RaftPeers.Set(f)
		}
	}
}
