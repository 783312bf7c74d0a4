package stats

import (
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/cuemby/vpncoord/pkg/types"
)

// mockSample synthesizes a plausible StatsSample for containerID, used
// when a Collector's Source is SourceMock. Grounded on
// original_source's vpn-containerd stats.rs collect_mock_stats, whose
// random ranges (CPU nanos, memory bytes, network/block counters) are
// reproduced here; the PRNG is seeded from the container ID plus the
// current Unix second, so calls for one ID within the same second return
// the same sample while each later tick draws independent values.
func mockSample(containerID string) types.StatsSample {
	r := rand.New(rand.NewSource(seedFor(containerID) + time.Now().UnixNano()/int64(time.Second)))

	cpuTotal := uint64(r.Int63n(9_000_000) + 1_000_000)
	cpuPercent := r.Float64() * 50

	return types.StatsSample{
		Timestamp: time.Now(),
		CPU: types.CPUStats{
			TotalNanos:     cpuTotal,
			UserNanos:      cpuTotal * 70 / 100,
			SystemNanos:    cpuTotal * 30 / 100,
			ThrottledNanos: uint64(r.Int63n(10)),
			Percent:        cpuPercent,
		},
		Memory: types.MemoryStats{
			UsageBytes: r.Int63n(450_000_000) + 50_000_000,
			LimitBytes: 1_000_000_000,
			CacheBytes: r.Int63n(40_000_000) + 10_000_000,
			RSSBytes:   r.Int63n(410_000_000) + 40_000_000,
			SwapBytes:  r.Int63n(10_000_000),
			Percent:    cpuPercent * 0.8,
		},
		Network: types.NetworkStats{
			RxBytes:   uint64(r.Int63n(99_000_000) + 1_000_000),
			TxBytes:   uint64(r.Int63n(49_500_000) + 500_000),
			RxPackets: uint64(r.Int63n(99_000) + 1_000),
			TxPackets: uint64(r.Int63n(49_500) + 500),
			RxErrors:  uint64(r.Int63n(10)),
			TxErrors:  uint64(r.Int63n(5)),
		},
		BlockIO: types.BlockIOStats{
			ReadBytes:  uint64(r.Int63n(49_000_000) + 1_000_000),
			WriteBytes: uint64(r.Int63n(19_500_000) + 500_000),
			ReadOps:    uint64(r.Int63n(1000)),
			WriteOps:   uint64(r.Int63n(500)),
		},
		PIDs: types.PIDStats{
			Current: r.Int63n(50) + 1,
			Limit:   1024,
		},
	}
}

func seedFor(containerID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(containerID))
	return int64(h.Sum64())
}
