package health

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/cuemby/vpncoord/pkg/runtime"
)

// ExecChecker performs exec-based health checks by running a command either
// inside a container (via the runtime driver) or on the host, when
// ContainerID is empty — useful for tests and for host-level dependencies.
type ExecChecker struct {
	Command     []string
	Timeout     time.Duration
	ContainerID string
	Runtime     runtime.Runtime
}

// NewExecChecker creates a new exec health checker.
func NewExecChecker(command []string) *ExecChecker {
	return &ExecChecker{
		Command: command,
		Timeout: 10 * time.Second,
	}
}

// Check performs the exec health check; success iff exit code 0 within
// Timeout (§4.F command probe).
func (e *ExecChecker) Check(ctx context.Context) Result {
	start := time.Now()

	if len(e.Command) == 0 {
		return Result{Healthy: false, Message: "no command specified", CheckedAt: start, Duration: time.Since(start)}
	}

	execCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	if e.ContainerID != "" {
		if e.Runtime == nil {
			return Result{Healthy: false, Message: "exec probe configured with no runtime", CheckedAt: start, Duration: time.Since(start)}
		}

		var stdout, stderr bytes.Buffer
		exitCode, err := e.Runtime.Exec(execCtx, e.ContainerID, runtime.ExecSpec{
			Cmd:    e.Command,
			Stdout: &stdout,
			Stderr: &stderr,
		})
		if err != nil {
			return Result{Healthy: false, Message: fmt.Sprintf("exec failed: %v", err), CheckedAt: start, Duration: time.Since(start)}
		}
		if exitCode != 0 {
			return Result{
				Healthy:   false,
				Message:   fmt.Sprintf("command %v exited %d: %s", e.Command, exitCode, stderr.String()),
				CheckedAt: start,
				Duration:  time.Since(start),
			}
		}
		return Result{Healthy: true, Message: fmt.Sprintf("command %v exited 0", e.Command), CheckedAt: start, Duration: time.Since(start)}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(execCtx, e.Command[0], e.Command[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("command %v failed: %v (stderr: %s)", e.Command, err, stderr.String()),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	return Result{Healthy: true, Message: fmt.Sprintf("command %v exited 0", e.Command), CheckedAt: start, Duration: time.Since(start)}
}

// Type returns the health check type.
func (e *ExecChecker) Type() CheckType { return CheckTypeExec }

// WithTimeout sets the execution timeout.
func (e *ExecChecker) WithTimeout(timeout time.Duration) *ExecChecker {
	e.Timeout = timeout
	return e
}

// WithContainer sets the container ID and runtime driver used to exec into it.
func (e *ExecChecker) WithContainer(containerID string, rt runtime.Runtime) *ExecChecker {
	e.ContainerID = containerID
	e.Runtime = rt
	return e
}
