package runtime

import (
	"context"
	"fmt"
	"net"
	"time"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/embedded"
)

// probeOrder is the priority Docker-first order auto-selection walks.
var probeOrder = []Driver{DriverDocker, DriverEmbedded}

// New constructs a Runtime for the requested driver. DriverAuto probes each
// driver in probeOrder and returns the first reachable one; if none answer
// and opts.Fallback is set, it starts (rather than merely probes) the
// embedded driver as a last resort, since pkg/embedded can always produce a
// working containerd locally.
func New(ctx context.Context, driver Driver, opts Options) (Runtime, error) {
	switch driver {
	case DriverDocker:
		return newDockerDriver(opts)
	case DriverEmbedded:
		return newEmbeddedDriver(ctx, opts)
	case DriverAuto:
		return newAutoDriver(ctx, opts)
	case DriverPodman:
		return newDeprecatedDriver(driver), nil
	default:
		return nil, vpnerrors.NewConfigurationError(fmt.Sprintf("unknown runtime driver %q", driver))
	}
}

func newAutoDriver(ctx context.Context, opts Options) (Runtime, error) {
	for _, d := range probeOrder {
		if !socketReachable(socketFor(d, opts)) {
			continue
		}
		rt, err := New(ctx, d, opts)
		if err == nil {
			return rt, nil
		}
	}

	if !opts.Fallback {
		return nil, vpnerrors.NewRuntimeError(vpnerrors.RuntimeConnectionError,
			"no container runtime reachable (tried docker, embedded) and fallback disabled")
	}

	// Last resort: start our own containerd rather than merely probe one.
	return newEmbeddedDriver(ctx, opts)
}

func socketFor(d Driver, opts Options) string {
	switch d {
	case DriverDocker:
		if opts.SocketPath != "" {
			return opts.SocketPath
		}
		return defaultDockerSocket
	case DriverEmbedded:
		return embedded.ContainerdSocketPath
	default:
		return ""
	}
}

func socketReachable(path string) bool {
	if path == "" {
		return false
	}
	conn, err := net.DialTimeout("unix", path, 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func newDockerDriver(opts Options) (Runtime, error) {
	socket := opts.SocketPath
	if socket == "" {
		socket = defaultDockerSocket
	}
	return NewContainerdRuntime(socket)
}

// newEmbeddedDriver ensures pkg/embedded's managed containerd is running
// (starting it if necessary, unless UseExternalEmbedded is set) and returns
// a ContainerdRuntime pointed at its socket.
func newEmbeddedDriver(ctx context.Context, opts Options) (Runtime, error) {
	mgr, err := embedded.EnsureContainerd(ctx, opts.EmbeddedDataDir, opts.UseExternalEmbedded)
	if err != nil {
		return nil, vpnerrors.NewRuntimeError(vpnerrors.RuntimeConnectionError,
			fmt.Sprintf("start embedded containerd: %v", err))
	}
	return NewContainerdRuntime(mgr.GetSocketPath())
}
