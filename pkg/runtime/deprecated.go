package runtime

import (
	"context"
	"fmt"
	"io"
	"time"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/types"
)

// deprecatedDriver satisfies Runtime for a retired driver name so it stays
// addressable by the CLI/config (exit code 6, §6) instead of failing with an
// unknown-driver error. Every method returns FeatureDeprecatedError rather
// than silently no-opping (§4.D).
type deprecatedDriver struct {
	name Driver
}

func newDeprecatedDriver(name Driver) *deprecatedDriver {
	return &deprecatedDriver{name: name}
}

func (d *deprecatedDriver) deprecated() error {
	return vpnerrors.NewFeatureDeprecatedError(fmt.Sprintf("runtime driver %q was removed", d.name))
}

func (d *deprecatedDriver) Create(ctx context.Context, spec types.ContainerSpec) (*types.Container, error) {
	return nil, d.deprecated()
}
func (d *deprecatedDriver) List(ctx context.Context, filter ContainerFilter) ([]*types.Container, error) {
	return nil, d.deprecated()
}
func (d *deprecatedDriver) Get(ctx context.Context, id string) (*types.Container, error) {
	return nil, d.deprecated()
}
func (d *deprecatedDriver) Remove(ctx context.Context, id string, force bool) error { return d.deprecated() }
func (d *deprecatedDriver) Start(ctx context.Context, id string) error              { return d.deprecated() }
func (d *deprecatedDriver) Stop(ctx context.Context, id string, timeout time.Duration) error {
	return d.deprecated()
}
func (d *deprecatedDriver) Restart(ctx context.Context, id string, timeout time.Duration) error {
	return d.deprecated()
}
func (d *deprecatedDriver) Pause(ctx context.Context, id string) error   { return d.deprecated() }
func (d *deprecatedDriver) Unpause(ctx context.Context, id string) error { return d.deprecated() }
func (d *deprecatedDriver) TaskState(ctx context.Context, id string) (types.ContainerState, error) {
	return "", d.deprecated()
}
func (d *deprecatedDriver) Wait(ctx context.Context, id string) (int, error) { return -1, d.deprecated() }
func (d *deprecatedDriver) Stats(ctx context.Context, id string) (*types.StatsSample, error) {
	return nil, d.deprecated()
}
func (d *deprecatedDriver) Logs(ctx context.Context, id string, follow bool) (io.ReadCloser, error) {
	return nil, d.deprecated()
}
func (d *deprecatedDriver) Exec(ctx context.Context, id string, spec ExecSpec) (int, error) {
	return -1, d.deprecated()
}
func (d *deprecatedDriver) Events(ctx context.Context) (<-chan Event, error) { return nil, d.deprecated() }
func (d *deprecatedDriver) CreateVolume(ctx context.Context, spec VolumeSpec) (*Volume, error) {
	return nil, d.deprecated()
}
func (d *deprecatedDriver) ListVolumes(ctx context.Context) ([]*Volume, error) { return nil, d.deprecated() }
func (d *deprecatedDriver) RemoveVolume(ctx context.Context, name string) error { return d.deprecated() }
func (d *deprecatedDriver) PullImage(ctx context.Context, ref string) error     { return d.deprecated() }
func (d *deprecatedDriver) ListImages(ctx context.Context) ([]ImageSummary, error) {
	return nil, d.deprecated()
}
func (d *deprecatedDriver) RemoveImage(ctx context.Context, ref string) error { return d.deprecated() }
func (d *deprecatedDriver) Close() error                                     { return nil }
