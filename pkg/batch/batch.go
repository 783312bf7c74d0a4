// Package batch implements the three bulk-execution modes of §4.C: bounded
// parallel fan-out, sequential resumable execution with periodic
// checkpointing, and sequential transactional execution with reverse-order
// rollback on first unrecoverable failure.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/vpncoord/pkg/events"
	"github.com/cuemby/vpncoord/pkg/log"
)

// Executor performs the operation for a single item.
type Executor func(ctx context.Context, item string) error

// Step performs the operation for a single item in transactional mode and
// returns an undo function that reverses it. A nil undo means the step was
// a no-op that needs no reversal.
type Step func(ctx context.Context, item string) (undo func(ctx context.Context) error, err error)

// Progress is the shared atomic snapshot broadcast while a batch runs.
type Progress struct {
	Total       int64
	Completed   int64
	Failed      int64
	CurrentItem string
}

// Result is the outcome of a completed batch run.
type Result struct {
	Successful      []string
	Failed          map[string]string
	TotalProcessed  int
	Duration        time.Duration
	ProgressHistory []Progress
}

// Engine runs batches and broadcasts progress on broker, if non-nil.
type Engine struct {
	broker *events.Broker
	log    zerolog.Logger

	total     int64
	completed int64
	failed    int64
	current   atomic.Value // string
}

// NewEngine creates an Engine that publishes EventBatchProgress to broker.
// broker may be nil, in which case progress is tracked but not broadcast.
func NewEngine(broker *events.Broker) *Engine {
	e := &Engine{broker: broker, log: log.WithComponent("batch")}
	e.current.Store("")
	return e
}

func (e *Engine) reset(total int) {
	atomic.StoreInt64(&e.total, int64(total))
	atomic.StoreInt64(&e.completed, 0)
	atomic.StoreInt64(&e.failed, 0)
	e.current.Store("")
}

func (e *Engine) snapshot() Progress {
	return Progress{
		Total:       atomic.LoadInt64(&e.total),
		Completed:   atomic.LoadInt64(&e.completed),
		Failed:      atomic.LoadInt64(&e.failed),
		CurrentItem: e.current.Load().(string),
	}
}

func (e *Engine) markStarted(item string) {
	e.current.Store(item)
}

func (e *Engine) markDone(ok bool) {
	if ok {
		atomic.AddInt64(&e.completed, 1)
	} else {
		atomic.AddInt64(&e.failed, 1)
	}
	e.publish()
}

func (e *Engine) publish() {
	if e.broker == nil {
		return
	}
	p := e.snapshot()
	e.broker.Publish(&events.Event{
		Type:    events.EventBatchProgress,
		Message: "batch progress",
		Metadata: map[string]string{
			"current_item": p.CurrentItem,
		},
	})
}

// Progress returns the current progress snapshot of the most recent/active
// run on this Engine.
func (e *Engine) Progress() Progress { return e.snapshot() }

// RunParallel executes exec for every item with at most maxConcurrent in
// flight at once. Each item succeeds or fails independently; there is no
// rollback. A canceled ctx stops launching new items (each one not
// launched is recorded in Failed with the context error) but
// already-running items are allowed to finish.
func (e *Engine) RunParallel(ctx context.Context, items []string, maxConcurrent int, exec Executor) *Result {
	start := time.Now()
	e.reset(len(items))

	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	sem := make(chan struct{}, maxConcurrent)

	var mu sync.Mutex
	successful := make([]string, 0, len(items))
	failed := make(map[string]string)

	var wg sync.WaitGroup
	for _, item := range items {
		select {
		case <-ctx.Done():
			mu.Lock()
			failed[item] = ctx.Err().Error()
			mu.Unlock()
			e.markDone(false)
			continue
		default:
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(item string) {
			defer wg.Done()
			defer func() { <-sem }()

			e.markStarted(item)
			err := exec(ctx, item)

			mu.Lock()
			if err != nil {
				failed[item] = err.Error()
			} else {
				successful = append(successful, item)
			}
			mu.Unlock()
			e.markDone(err == nil)
		}(item)
	}
	wg.Wait()

	return &Result{
		Successful:     successful,
		Failed:         failed,
		TotalProcessed: len(items),
		Duration:       time.Since(start),
	}
}
