/*
Package runtime abstracts the container engine that hosts VPN endpoint
workloads behind the polymorphic Runtime interface (SPEC_FULL.md §4.D):
container CRUD, task control, stats/logs/exec/events, and volume/image CRUD.

# Drivers

	┌─────────────────────────────────────────────────────────────┐
	│                      runtime.New(driver)                     │
	└───────┬───────────────────────┬──────────────────┬───────────┘
	        │ "docker"               │ "embedded"        │ "auto"
	        ▼                       ▼                   ▼
	┌───────────────┐     ┌──────────────────┐   probe docker,
	│ ContainerdRuntime    │ ContainerdRuntime │   then embedded;
	│ @ dockerd's    │     │ @ pkg/embedded's  │   opts.Fallback
	│ containerd sock│     │ managed daemon    │   starts one if
	└───────────────┘     └──────────────────┘   neither answers

Both the "docker" and "embedded" drivers share one implementation
(ContainerdRuntime in containerd.go) since Docker Engine itself runs on
containerd — only the socket path and who is responsible for starting the
daemon differ. Retired driver names (e.g. a prototype "podman" integration
that never shipped) remain selectable and satisfy the same interface, but
every method returns a typed FeatureDeprecated error (deprecated.go) instead
of silently no-opping, so a stale config value fails loudly with exit code 6
rather than behaving as a no-op driver.

# Container identity

A Runtime create call returns a types.Container keyed by the engine's own
container ID (the containerd container name, chosen from
ContainerSpec.Name). Callers that need a stable identity across driver
restarts should set Name themselves; pkg/lifecycle does this from the
protocol + user context it is installing.

# What's out of scope here

Direct cgroup stats decoding and container log tailing are deliberately not
implemented against containerd's metrics API — pkg/stats keeps an explicit
Mock/Live source switch per an unresolved spec question, and pkg/logs reads
each container's JSON log file directly rather than through the engine.
Both Stats and Logs on ContainerdRuntime return a typed NotImplemented
RuntimeError so a caller that assumes engine-sourced data fails fast instead
of silently getting zeros.

See also:
  - pkg/embedded for the daemon the "embedded" driver manages
  - pkg/lifecycle for the bulk operations layered on top of this interface
  - pkg/health for the command/HTTP/TCP probes that use Exec and container
    addressing
*/
package runtime
