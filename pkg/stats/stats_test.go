package stats

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/cuemby/vpncoord/pkg/metrics"
	"github.com/cuemby/vpncoord/pkg/runtime"
	"github.com/cuemby/vpncoord/pkg/types"
)

func gaugeValue(t *testing.T, protocol string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := metrics.ConnectionsActive.WithLabelValues(protocol).Write(m); err != nil {
		t.Fatalf("read gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

// scriptedRuntime implements runtime.Runtime, returning samples from a
// per-container queue that Stats drains one at a time (looping on the
// last entry once exhausted).
type scriptedRuntime struct {
	mu      sync.Mutex
	samples map[string][]types.StatsSample
	index   map[string]int
}

func newScriptedRuntime() *scriptedRuntime {
	return &scriptedRuntime{samples: make(map[string][]types.StatsSample), index: make(map[string]int)}
}

func (r *scriptedRuntime) set(id string, samples []types.StatsSample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[id] = samples
}

func (r *scriptedRuntime) Stats(ctx context.Context, id string) (*types.StatsSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.samples[id]
	if len(list) == 0 {
		return &types.StatsSample{Timestamp: time.Now()}, nil
	}
	i := r.index[id]
	if i >= len(list) {
		i = len(list) - 1
	}
	s := list[i]
	if r.index[id] < len(list)-1 {
		r.index[id]++
	}
	return &s, nil
}

func (r *scriptedRuntime) Create(ctx context.Context, spec types.ContainerSpec) (*types.Container, error) {
	return nil, nil
}
func (r *scriptedRuntime) List(ctx context.Context, filter runtime.ContainerFilter) ([]*types.Container, error) {
	return nil, nil
}
func (r *scriptedRuntime) Get(ctx context.Context, id string) (*types.Container, error) { return nil, nil }
func (r *scriptedRuntime) Remove(ctx context.Context, id string, force bool) error       { return nil }
func (r *scriptedRuntime) Start(ctx context.Context, id string) error                   { return nil }
func (r *scriptedRuntime) Stop(ctx context.Context, id string, timeout time.Duration) error {
	return nil
}
func (r *scriptedRuntime) Restart(ctx context.Context, id string, timeout time.Duration) error {
	return nil
}
func (r *scriptedRuntime) Pause(ctx context.Context, id string) error   { return nil }
func (r *scriptedRuntime) Unpause(ctx context.Context, id string) error { return nil }
func (r *scriptedRuntime) TaskState(ctx context.Context, id string) (types.ContainerState, error) {
	return types.ContainerStateRunning, nil
}
func (r *scriptedRuntime) Wait(ctx context.Context, id string) (int, error) { return 0, nil }
func (r *scriptedRuntime) Logs(ctx context.Context, id string, follow bool) (io.ReadCloser, error) {
	return nil, nil
}
func (r *scriptedRuntime) Exec(ctx context.Context, id string, spec runtime.ExecSpec) (int, error) {
	return 0, nil
}
func (r *scriptedRuntime) Events(ctx context.Context) (<-chan runtime.Event, error) { return nil, nil }
func (r *scriptedRuntime) CreateVolume(ctx context.Context, spec runtime.VolumeSpec) (*runtime.Volume, error) {
	return nil, nil
}
func (r *scriptedRuntime) ListVolumes(ctx context.Context) ([]*runtime.Volume, error) { return nil, nil }
func (r *scriptedRuntime) RemoveVolume(ctx context.Context, name string) error        { return nil }
func (r *scriptedRuntime) PullImage(ctx context.Context, ref string) error            { return nil }
func (r *scriptedRuntime) ListImages(ctx context.Context) ([]runtime.ImageSummary, error) {
	return nil, nil
}
func (r *scriptedRuntime) RemoveImage(ctx context.Context, ref string) error { return nil }
func (r *scriptedRuntime) Close() error                                     { return nil }

func TestCollectorCurrentAndHistory(t *testing.T) {
	rt := newScriptedRuntime()
	base := time.Now().Add(-time.Minute)
	rt.set("c1", []types.StatsSample{
		{Timestamp: base, CPU: types.CPUStats{Percent: 10}},
		{Timestamp: base.Add(time.Second), CPU: types.CPUStats{Percent: 20}},
	})

	c := NewCollector(rt, Config{Interval: time.Hour, MaxHistoryEntries: 10})
	c.Register("c1")
	c.collectAll(context.Background())
	c.collectAll(context.Background())

	current, ok := c.CurrentStats("c1")
	if !ok {
		t.Fatal("CurrentStats() ok = false")
	}
	if current.CPU.Percent != 20 {
		t.Errorf("CurrentStats().CPU.Percent = %v, want 20", current.CPU.Percent)
	}

	hist := c.History("c1")
	if len(hist) != 2 {
		t.Fatalf("len(History()) = %d, want 2", len(hist))
	}
}

func TestCollectorHistoryCapsAtMaxEntries(t *testing.T) {
	rt := newScriptedRuntime()
	var samples []types.StatsSample
	base := time.Now()
	for i := 0; i < 5; i++ {
		samples = append(samples, types.StatsSample{Timestamp: base.Add(time.Duration(i) * time.Second)})
	}
	rt.set("c1", samples)

	c := NewCollector(rt, Config{Interval: time.Hour, MaxHistoryEntries: 3})
	c.Register("c1")
	for i := 0; i < 5; i++ {
		c.collectAll(context.Background())
	}

	if len(c.History("c1")) != 3 {
		t.Fatalf("len(History()) = %d, want 3", len(c.History("c1")))
	}
}

func TestCollectorAverage(t *testing.T) {
	rt := newScriptedRuntime()
	base := time.Now()
	rt.set("c1", []types.StatsSample{
		{Timestamp: base, CPU: types.CPUStats{Percent: 0}},
		{Timestamp: base.Add(time.Second), CPU: types.CPUStats{Percent: 100}},
	})

	c := NewCollector(rt, Config{Interval: time.Hour, MaxHistoryEntries: 10})
	c.Register("c1")
	c.collectAll(context.Background())
	c.collectAll(context.Background())

	avg, ok := c.Average("c1", 0)
	if !ok {
		t.Fatal("Average() ok = false")
	}
	if avg.CPU.Percent != 50 {
		t.Errorf("Average().CPU.Percent = %v, want 50", avg.CPU.Percent)
	}
}

func TestGetUsageTrendsClassifiesIncreasing(t *testing.T) {
	rt := newScriptedRuntime()
	base := time.Now()
	var samples []types.StatsSample
	for i := 0; i < 10; i++ {
		samples = append(samples, types.StatsSample{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			CPU:       types.CPUStats{Percent: float64(10 + i*5)},
		})
	}
	rt.set("c1", samples)

	c := NewCollector(rt, Config{Interval: time.Hour, MaxHistoryEntries: 20})
	c.Register("c1")
	for range samples {
		c.collectAll(context.Background())
	}

	trends, ok := c.GetUsageTrends("c1", 0)
	if !ok {
		t.Fatal("GetUsageTrends() ok = false")
	}
	if trends.CPUPercent.Trend != TrendIncreasing {
		t.Errorf("CPUPercent.Trend = %v, want increasing", trends.CPUPercent.Trend)
	}
}

func TestGetUsageTrendsClassifiesVolatile(t *testing.T) {
	rt := newScriptedRuntime()
	base := time.Now()
	values := []float64{5, 90, 2, 95, 1, 99, 3, 92}
	var samples []types.StatsSample
	for i, v := range values {
		samples = append(samples, types.StatsSample{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			CPU:       types.CPUStats{Percent: v},
		})
	}
	rt.set("c1", samples)

	c := NewCollector(rt, Config{Interval: time.Hour, MaxHistoryEntries: 20})
	c.Register("c1")
	for range samples {
		c.collectAll(context.Background())
	}

	trends, ok := c.GetUsageTrends("c1", 0)
	if !ok {
		t.Fatal("GetUsageTrends() ok = false")
	}
	if trends.CPUPercent.Trend != TrendVolatile {
		t.Errorf("CPUPercent.Trend = %v, want volatile", trends.CPUPercent.Trend)
	}
}

func TestExportJSONIncludesAverages(t *testing.T) {
	rt := newScriptedRuntime()
	rt.set("c1", []types.StatsSample{{Timestamp: time.Now(), CPU: types.CPUStats{Percent: 42}}})

	c := NewCollector(rt, Config{Interval: time.Hour, MaxHistoryEntries: 10})
	c.Register("c1")
	c.collectAll(context.Background())

	data, err := c.ExportJSON("c1")
	if err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("ExportJSON() returned empty data")
	}
}

func TestMockSourceSynthesizesSamples(t *testing.T) {
	rt := newScriptedRuntime() // never consulted in mock mode

	c := NewCollector(rt, Config{Interval: time.Hour, MaxHistoryEntries: 10, Source: SourceMock})
	c.Register("c1")
	c.collectAll(context.Background())

	current, ok := c.CurrentStats("c1")
	if !ok {
		t.Fatal("CurrentStats() ok = false in mock mode")
	}
	if current.Memory.LimitBytes != 1_000_000_000 {
		t.Errorf("Memory.LimitBytes = %d, want 1_000_000_000", current.Memory.LimitBytes)
	}
}

func TestUnregisterDropsHistory(t *testing.T) {
	rt := newScriptedRuntime()
	rt.set("c1", []types.StatsSample{{Timestamp: time.Now()}})

	c := NewCollector(rt, Config{Interval: time.Hour, MaxHistoryEntries: 10})
	c.Register("c1")
	c.collectAll(context.Background())
	c.Unregister("c1")

	if _, ok := c.CurrentStats("c1"); ok {
		t.Fatal("CurrentStats() ok = true after Unregister")
	}
}

func TestRegisterProtocolUpdatesConnectionGauge(t *testing.T) {
	rt := newScriptedRuntime()

	c := NewCollector(rt, Config{Interval: time.Hour, MaxHistoryEntries: 10})
	c.RegisterProtocol("c1", types.ProtocolVless)
	c.RegisterProtocol("c2", types.ProtocolVless)
	c.RegisterProtocol("c3", types.ProtocolWireGuard)

	if got := gaugeValue(t, string(types.ProtocolVless)); got != 2 {
		t.Errorf("vless gauge = %v, want 2", got)
	}
	if got := gaugeValue(t, string(types.ProtocolWireGuard)); got != 1 {
		t.Errorf("wireguard gauge = %v, want 1", got)
	}

	c.Unregister("c2")
	if got := gaugeValue(t, string(types.ProtocolVless)); got != 1 {
		t.Errorf("vless gauge after unregister = %v, want 1", got)
	}
}

func TestCollectAllAccumulatesBytesTransferred(t *testing.T) {
	rt := newScriptedRuntime()
	base := time.Now()
	rt.set("c1", []types.StatsSample{
		{Timestamp: base, Network: types.NetworkStats{RxBytes: 100, TxBytes: 50}},
		{Timestamp: base.Add(time.Second), Network: types.NetworkStats{RxBytes: 300, TxBytes: 120}},
	})

	c := NewCollector(rt, Config{Interval: time.Hour, MaxHistoryEntries: 10})
	c.RegisterProtocol("c1", types.ProtocolShadowsocks)

	before := &dto.Metric{}
	_ = metrics.BytesTransferredTotal.WithLabelValues(string(types.ProtocolShadowsocks), "rx").Write(before)
	startValue := before.GetCounter().GetValue()

	c.collectAll(context.Background())
	c.collectAll(context.Background())

	after := &dto.Metric{}
	_ = metrics.BytesTransferredTotal.WithLabelValues(string(types.ProtocolShadowsocks), "rx").Write(after)
	if got := after.GetCounter().GetValue() - startValue; got != 200 {
		t.Errorf("rx bytes delta = %v, want 200", got)
	}
}
