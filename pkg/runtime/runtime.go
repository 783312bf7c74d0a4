// Package runtime abstracts the container engine that hosts VPN endpoint
// workloads (xray-core, outline-shadowbox, wireguard-go, proxy images)
// behind a single polymorphic surface (SPEC_FULL.md §4.D). Concrete drivers
// live alongside this file: containerd.go talks to a system containerd,
// driver.go's embedded driver points that same client at the daemon
// pkg/embedded manages on the coordinator's behalf, and deprecated.go satisfies the interface for retired drivers so
// callers get a typed error instead of a missing symbol.
package runtime

import (
	"context"
	"io"
	"time"

	"github.com/cuemby/vpncoord/pkg/types"
)

// Driver names the concrete engine behind a Runtime.
type Driver string

const (
	DriverAuto     Driver = "auto"
	DriverDocker   Driver = "docker"
	DriverEmbedded Driver = "embedded"
	// DriverPodman named only to demonstrate the deprecated-driver contract;
	// no podman integration was ever shipped in the source this spec was
	// distilled from.
	DriverPodman Driver = "podman"
)

// ContainerFilter narrows List results. Zero value matches everything.
type ContainerFilter struct {
	NamePrefix string
	State      types.ContainerState
}

func (f ContainerFilter) matches(c *types.Container) bool {
	if f.NamePrefix != "" && !hasPrefix(c.Spec.Name, f.NamePrefix) {
		return false
	}
	if f.State != "" && c.State != f.State {
		return false
	}
	return true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// ExecSpec describes a one-off command run inside a running container, used
// by pkg/health's command probe.
type ExecSpec struct {
	Cmd    []string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// VolumeSpec requests creation of a named volume.
type VolumeSpec struct {
	Name   string
	Labels map[string]string
}

// Volume is a created volume's host-visible record.
type Volume struct {
	Name       string
	Mountpoint string
	CreatedAt  time.Time
}

// ImageSummary describes a pulled image.
type ImageSummary struct {
	Ref      string
	Size     int64
	PulledAt time.Time
}

// EventType tags the kind of engine event delivered over the Events stream.
type EventType string

const (
	EventContainerCreate  EventType = "container.create"
	EventContainerStart   EventType = "container.start"
	EventContainerStop    EventType = "container.stop"
	EventContainerExit    EventType = "container.exit"
	EventContainerDelete  EventType = "container.delete"
)

// Event is one engine-reported lifecycle transition.
type Event struct {
	Type        EventType
	ContainerID string
	Timestamp   time.Time
}

// Runtime is the capability set every driver implements (§4.D): container
// CRUD, task control, stats/logs/exec/events, and volume/image CRUD. Drivers
// that cannot support part of this surface return
// pkg/errors.RuntimeError{Kind: NotImplemented} rather than silently
// no-opping.
type Runtime interface {
	// Container CRUD
	Create(ctx context.Context, spec types.ContainerSpec) (*types.Container, error)
	List(ctx context.Context, filter ContainerFilter) ([]*types.Container, error)
	Get(ctx context.Context, id string) (*types.Container, error)
	Remove(ctx context.Context, id string, force bool) error

	// Task control
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, timeout time.Duration) error
	Restart(ctx context.Context, id string, timeout time.Duration) error
	Pause(ctx context.Context, id string) error
	Unpause(ctx context.Context, id string) error
	TaskState(ctx context.Context, id string) (types.ContainerState, error)
	Wait(ctx context.Context, id string) (int, error)

	// Observation
	Stats(ctx context.Context, id string) (*types.StatsSample, error)
	Logs(ctx context.Context, id string, follow bool) (io.ReadCloser, error)
	Exec(ctx context.Context, id string, spec ExecSpec) (int, error)
	Events(ctx context.Context) (<-chan Event, error)

	// Volumes
	CreateVolume(ctx context.Context, spec VolumeSpec) (*Volume, error)
	ListVolumes(ctx context.Context) ([]*Volume, error)
	RemoveVolume(ctx context.Context, name string) error

	// Images
	PullImage(ctx context.Context, ref string) error
	ListImages(ctx context.Context) ([]ImageSummary, error)
	RemoveImage(ctx context.Context, ref string) error

	// Close releases the driver's underlying connection.
	Close() error
}

// Options configures driver construction and selection.
type Options struct {
	// SocketPath is the containerd socket for the docker/embedded drivers.
	// Empty means use each driver's default.
	SocketPath string

	// EmbeddedDataDir is where the embedded driver's managed containerd
	// instance stores extracted binaries and state.
	EmbeddedDataDir string

	// UseExternalEmbedded tells the embedded driver to skip starting its own
	// containerd and instead connect to one already running at SocketPath.
	UseExternalEmbedded bool

	// Fallback applies to DriverAuto only: when no driver in probeOrder
	// answers, New starts the embedded containerd instead of failing. An
	// explicitly requested driver never falls back to another one.
	Fallback bool
}

// defaultDockerSocket is the containerd socket a standard Docker Engine
// install exposes; it is the "docker" driver's default probe target since
// Docker itself runs atop containerd.
const defaultDockerSocket = "/run/containerd/containerd.sock"
