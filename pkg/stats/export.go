package stats

import (
	"encoding/json"
	"time"

	"github.com/cuemby/vpncoord/pkg/types"
)

// Export is the JSON shape returned for a single container's statistics.
type Export struct {
	ContainerID string             `json:"container_id"`
	Current     *types.StatsSample `json:"current,omitempty"`
	Avg1h       *types.StatsSample `json:"avg_1h,omitempty"`
	Avg24h      *types.StatsSample `json:"avg_24h,omitempty"`
}

// ExportJSON renders one container's current sample plus its 1h/24h
// averages as JSON.
func (c *Collector) ExportJSON(id string) ([]byte, error) {
	return json.Marshal(c.buildExport(id))
}

func (c *Collector) buildExport(id string) Export {
	exp := Export{ContainerID: id}
	if s, ok := c.CurrentStats(id); ok {
		sc := s
		exp.Current = &sc
	}
	if avg, ok := c.Average(id, time.Hour); ok {
		exp.Avg1h = &avg
	}
	if avg, ok := c.Average(id, 24*time.Hour); ok {
		exp.Avg24h = &avg
	}
	return exp
}

// AggregateExport is the JSON shape returned for every registered
// container.
type AggregateExport struct {
	Containers []Export `json:"containers"`
}

// ExportAllJSON renders every registered container's Export as a single
// aggregate summary.
func (c *Collector) ExportAllJSON() ([]byte, error) {
	c.mu.RLock()
	ids := make([]string, 0, len(c.histories))
	for id := range c.histories {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	agg := AggregateExport{Containers: make([]Export, 0, len(ids))}
	for _, id := range ids {
		agg.Containers = append(agg.Containers, c.buildExport(id))
	}
	return json.Marshal(agg)
}
