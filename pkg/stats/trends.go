package stats

import (
	"math"
	"time"
)

// Trend classifies how a metric moved over a window of samples.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendVolatile   Trend = "volatile"
)

// coefficientOfVariationThreshold above which a metric is Volatile
// regardless of its half-to-half direction.
const coefficientOfVariationThreshold = 0.3

// deltaThresholdPct is the minimum relative change between the first and
// second half means to call a metric Increasing/Decreasing instead of
// Stable.
const deltaThresholdPct = 0.10

// MetricTrend is one metric's classification plus, for rate-like metrics
// (network/block I/O), its linear rate of change.
type MetricTrend struct {
	Trend Trend
	Rate  float64 // units per second; zero for non-rate metrics
}

// UsageTrends classifies every tracked metric over id's samples within
// period (the whole history if period <= 0).
type UsageTrends struct {
	CPUPercent    MetricTrend
	MemoryPercent MetricTrend
	NetworkRxRate MetricTrend
	NetworkTxRate MetricTrend
	BlockReadRate MetricTrend
	BlockWriteRate MetricTrend
}

// GetUsageTrends computes UsageTrends for id over the trailing period.
func (c *Collector) GetUsageTrends(id string, period time.Duration) (UsageTrends, bool) {
	c.mu.RLock()
	h, ok := c.histories[id]
	c.mu.RUnlock()
	if !ok {
		return UsageTrends{}, false
	}
	samples := h.since(period)
	if len(samples) < 2 {
		return UsageTrends{}, false
	}

	cpu := make([]float64, len(samples))
	mem := make([]float64, len(samples))
	rx := make([]float64, len(samples))
	tx := make([]float64, len(samples))
	rd := make([]float64, len(samples))
	wr := make([]float64, len(samples))
	for i, s := range samples {
		cpu[i] = s.CPU.Percent
		mem[i] = s.Memory.Percent
		rx[i] = float64(s.Network.RxBytes)
		tx[i] = float64(s.Network.TxBytes)
		rd[i] = float64(s.BlockIO.ReadBytes)
		wr[i] = float64(s.BlockIO.WriteBytes)
	}

	elapsed := samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp).Seconds()

	return UsageTrends{
		CPUPercent:     MetricTrend{Trend: classify(cpu)},
		MemoryPercent:  MetricTrend{Trend: classify(mem)},
		NetworkRxRate:  MetricTrend{Trend: classify(rx), Rate: rate(rx, elapsed)},
		NetworkTxRate:  MetricTrend{Trend: classify(tx), Rate: rate(tx, elapsed)},
		BlockReadRate:  MetricTrend{Trend: classify(rd), Rate: rate(rd, elapsed)},
		BlockWriteRate: MetricTrend{Trend: classify(wr), Rate: rate(wr, elapsed)},
	}, true
}

// classify splits values into two halves, compares their means, and
// applies the coefficient-of-variation/delta thresholds from §4.H.
func classify(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}

	if cv(values) > coefficientOfVariationThreshold {
		return TrendVolatile
	}

	mid := len(values) / 2
	firstMean := mean(values[:mid])
	secondMean := mean(values[mid:])

	if firstMean == 0 && secondMean == 0 {
		return TrendStable
	}

	base := math.Max(math.Abs(firstMean), 1e-9)
	delta := (secondMean - firstMean) / base

	switch {
	case delta > deltaThresholdPct:
		return TrendIncreasing
	case delta < -deltaThresholdPct:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// cv is the coefficient of variation (population stddev / mean).
func cv(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return 0
	}
	return stddev(values, m) / math.Abs(m)
}

// rate returns the linear rate of change (last-first)/elapsedSeconds for
// a monotonically-accumulating counter metric.
func rate(values []float64, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 || len(values) < 2 {
		return 0
	}
	return (values[len(values)-1] - values[0]) / elapsedSeconds
}
