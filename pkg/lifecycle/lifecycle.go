// Package lifecycle composes pkg/runtime into the bulk container
// operations and the higher-level install/uninstall orchestration of
// §4.E: bounded-concurrency start/stop/restart/remove with per-item
// timeouts and fail-fast cancellation, plus a full
// prepare-configure-launch-verify-invite sequence for standing up a
// protocol's container from scratch.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/log"
	"github.com/cuemby/vpncoord/pkg/runtime"
	"github.com/cuemby/vpncoord/pkg/stats"
)

// BulkOptions controls a bulk operation's concurrency and failure policy.
type BulkOptions struct {
	MaxConcurrent int
	Timeout       time.Duration
	FailFast      bool
}

func (o BulkOptions) normalize() BulkOptions {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 1
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// FailedItem records one bulk-operation failure.
type FailedItem struct {
	ID     string
	Reason string
}

// BulkResult is the outcome of a bulk start/stop/restart/remove call.
type BulkResult struct {
	Successful []string
	Failed     []FailedItem
	Duration   time.Duration
}

// Engine composes a runtime.Runtime into bulk and install/uninstall
// operations.
type Engine struct {
	rt    runtime.Runtime
	stats *stats.Collector
	log   zerolog.Logger
}

// NewEngine creates an Engine driving bulk operations through rt.
func NewEngine(rt runtime.Runtime) *Engine {
	return &Engine{rt: rt, log: log.WithComponent("lifecycle")}
}

// SetStats attaches a stats.Collector that Install/Uninstall register and
// unregister protocol containers against, so
// pkg/metrics.ConnectionsActive/BytesTransferredTotal track what this
// Engine actually launches. A nil collector (the default) disables this.
func (e *Engine) SetStats(c *stats.Collector) {
	e.stats = c
}

type itemOp func(ctx context.Context, id string) error

// runBulk executes op for every id under a semaphore of
// opts.MaxConcurrent, each wrapped in its own opts.Timeout deadline. When
// FailFast is set, the first failure cancels every still-pending item;
// items already running are allowed to finish.
func (e *Engine) runBulk(ctx context.Context, ids []string, opts BulkOptions, op itemOp) *BulkResult {
	opts = opts.normalize()
	start := time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, opts.MaxConcurrent)
	var mu sync.Mutex
	var successful []string
	var failed []FailedItem
	var wg sync.WaitGroup

	for _, id := range ids {
		sem <- struct{}{}
		select {
		case <-runCtx.Done():
			<-sem
			mu.Lock()
			failed = append(failed, FailedItem{ID: id, Reason: "cancelled: fail-fast triggered by an earlier failure"})
			mu.Unlock()
			continue
		default:
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			itemCtx, itemCancel := context.WithTimeout(ctx, opts.Timeout)
			defer itemCancel()

			err := op(itemCtx, id)

			mu.Lock()
			if err != nil {
				failed = append(failed, FailedItem{ID: id, Reason: err.Error()})
				if opts.FailFast {
					cancel()
				}
			} else {
				successful = append(successful, id)
			}
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return &BulkResult{Successful: successful, Failed: failed, Duration: time.Since(start)}
}

// BulkStart starts every container id.
func (e *Engine) BulkStart(ctx context.Context, ids []string, opts BulkOptions) *BulkResult {
	return e.runBulk(ctx, ids, opts, func(ctx context.Context, id string) error {
		return e.rt.Start(ctx, id)
	})
}

// BulkStop stops every container id, respecting opts.Timeout per item.
func (e *Engine) BulkStop(ctx context.Context, ids []string, opts BulkOptions) *BulkResult {
	return e.runBulk(ctx, ids, opts, func(ctx context.Context, id string) error {
		return e.rt.Stop(ctx, id, opts.Timeout)
	})
}

// BulkRestart is stop+start per id: stop respects opts.Timeout and the
// driver falls back to a kill once that expires, then start is issued.
func (e *Engine) BulkRestart(ctx context.Context, ids []string, opts BulkOptions) *BulkResult {
	return e.runBulk(ctx, ids, opts, func(ctx context.Context, id string) error {
		return e.rt.Restart(ctx, id, opts.Timeout)
	})
}

// BulkRemove removes every container id. force is passed through to the
// driver for each item.
func (e *Engine) BulkRemove(ctx context.Context, ids []string, force bool, opts BulkOptions) *BulkResult {
	return e.runBulk(ctx, ids, opts, func(ctx context.Context, id string) error {
		return e.rt.Remove(ctx, id, force)
	})
}

// Restart is the single-container counterpart of BulkRestart: stop with
// timeout, falling back to the driver's kill-after-expiry behavior, then
// start.
func (e *Engine) Restart(ctx context.Context, id string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if err := e.rt.Stop(ctx, id, timeout); err != nil {
		return vpnerrors.NewOperationError("restart:stop", err.Error())
	}
	if err := e.rt.Start(ctx, id); err != nil {
		return vpnerrors.NewOperationError("restart:start", err.Error())
	}
	return nil
}
