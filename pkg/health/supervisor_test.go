package health

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/vpncoord/pkg/runtime"
	"github.com/cuemby/vpncoord/pkg/types"
)

// stubRuntime implements runtime.Runtime with a fixed task state, enough to
// exercise Supervisor without a real container engine.
type stubRuntime struct {
	state types.ContainerState
}

func (s *stubRuntime) Create(ctx context.Context, spec types.ContainerSpec) (*types.Container, error) {
	return nil, nil
}
func (s *stubRuntime) List(ctx context.Context, filter runtime.ContainerFilter) ([]*types.Container, error) {
	return nil, nil
}
func (s *stubRuntime) Get(ctx context.Context, id string) (*types.Container, error) { return nil, nil }
func (s *stubRuntime) Remove(ctx context.Context, id string, force bool) error      { return nil }
func (s *stubRuntime) Start(ctx context.Context, id string) error                   { return nil }
func (s *stubRuntime) Stop(ctx context.Context, id string, timeout time.Duration) error {
	return nil
}
func (s *stubRuntime) Restart(ctx context.Context, id string, timeout time.Duration) error {
	return nil
}
func (s *stubRuntime) Pause(ctx context.Context, id string) error   { return nil }
func (s *stubRuntime) Unpause(ctx context.Context, id string) error { return nil }
func (s *stubRuntime) TaskState(ctx context.Context, id string) (types.ContainerState, error) {
	return s.state, nil
}
func (s *stubRuntime) Wait(ctx context.Context, id string) (int, error) { return 0, nil }
func (s *stubRuntime) Stats(ctx context.Context, id string) (*types.StatsSample, error) {
	return nil, nil
}
func (s *stubRuntime) Logs(ctx context.Context, id string, follow bool) (io.ReadCloser, error) {
	return nil, nil
}
func (s *stubRuntime) Exec(ctx context.Context, id string, spec runtime.ExecSpec) (int, error) {
	return 0, nil
}
func (s *stubRuntime) Events(ctx context.Context) (<-chan runtime.Event, error) { return nil, nil }
func (s *stubRuntime) CreateVolume(ctx context.Context, spec runtime.VolumeSpec) (*runtime.Volume, error) {
	return nil, nil
}
func (s *stubRuntime) ListVolumes(ctx context.Context) ([]*runtime.Volume, error) { return nil, nil }
func (s *stubRuntime) RemoveVolume(ctx context.Context, name string) error        { return nil }
func (s *stubRuntime) PullImage(ctx context.Context, ref string) error            { return nil }
func (s *stubRuntime) ListImages(ctx context.Context) ([]runtime.ImageSummary, error) {
	return nil, nil
}
func (s *stubRuntime) RemoveImage(ctx context.Context, ref string) error { return nil }
func (s *stubRuntime) Close() error                                     { return nil }

func TestSupervisor_NotRunningSkipsProbe(t *testing.T) {
	rt := &stubRuntime{state: types.ContainerStateStopped}
	sup := NewSupervisor(rt, 3)
	sup.Register("c1", types.HealthCheckConfig{Enabled: true, Type: types.HealthCheckDefault})

	m := sup.RunOnce(context.Background(), "c1")
	require.False(t, m.CurrentStatus.Healthy)
	require.Equal(t, uint64(1), m.TotalChecks)
	require.Equal(t, uint64(1), m.TotalFailures)
	require.Equal(t, 1, m.ConsecutiveFailures)
}

func TestSupervisor_DefaultProbeHealthyWhenRunning(t *testing.T) {
	rt := &stubRuntime{state: types.ContainerStateRunning}
	sup := NewSupervisor(rt, 3)
	sup.Register("c1", types.HealthCheckConfig{Enabled: true, Type: types.HealthCheckDefault})

	m := sup.RunOnce(context.Background(), "c1")
	require.True(t, m.CurrentStatus.Healthy)
	require.Equal(t, 0, m.ConsecutiveFailures)
}

func TestSupervisor_FailingThreshold(t *testing.T) {
	rt := &stubRuntime{state: types.ContainerStateStopped}
	sup := NewSupervisor(rt, 2)
	sup.Register("c1", types.HealthCheckConfig{Enabled: true, Type: types.HealthCheckDefault})

	sup.RunOnce(context.Background(), "c1")
	require.False(t, sup.IsFailing("c1"))
	sup.RunOnce(context.Background(), "c1")
	require.True(t, sup.IsFailing("c1"))
}

func TestSupervisor_StartPeriodSuppressesFailureCounting(t *testing.T) {
	rt := &stubRuntime{state: types.ContainerStateStopped}
	sup := NewSupervisor(rt, 1)
	sup.Register("c1", types.HealthCheckConfig{
		Enabled:     true,
		Type:        types.HealthCheckDefault,
		StartPeriod: time.Hour,
	})

	m := sup.RunOnce(context.Background(), "c1")
	require.Equal(t, uint64(1), m.TotalChecks)
	require.Equal(t, 0, m.ConsecutiveFailures)
	require.False(t, sup.IsFailing("c1"))
}
