package batch

import (
	"context"
	"time"
)

// undoRecord pairs an item with the undo closure its Step produced.
type undoRecord struct {
	item string
	undo func(ctx context.Context) error
}

// RunTransactional executes step sequentially over items. On the first
// step that returns an error, every previously recorded undo is invoked in
// reverse order; a failure during rollback is recorded in
// Result.Failed under a "rollback:" prefixed key but does not stop the
// remaining rollback steps. The failing item itself is also recorded in
// Result.Failed with its original error.
func (e *Engine) RunTransactional(ctx context.Context, items []string, step Step) *Result {
	start := time.Now()
	e.reset(len(items))

	completed := make([]string, 0, len(items))
	failed := make(map[string]string)
	var records []undoRecord

	for _, item := range items {
		select {
		case <-ctx.Done():
			failed[item] = ctx.Err().Error()
			e.markDone(false)
			e.rollback(ctx, records, failed)
			return &Result{Successful: completed, Failed: failed, TotalProcessed: len(items), Duration: time.Since(start)}
		default:
		}

		e.markStarted(item)
		undo, err := step(ctx, item)
		if err != nil {
			failed[item] = err.Error()
			e.markDone(false)
			e.rollback(ctx, records, failed)
			return &Result{Successful: completed, Failed: failed, TotalProcessed: len(items), Duration: time.Since(start)}
		}

		completed = append(completed, item)
		if undo != nil {
			records = append(records, undoRecord{item: item, undo: undo})
		}
		e.markDone(true)
	}

	return &Result{
		Successful:     completed,
		Failed:         failed,
		TotalProcessed: len(items),
		Duration:       time.Since(start),
	}
}

// rollback inverts records in reverse order. A failure to undo one record
// is reported into failed under a "rollback:<item>" key but never aborts
// the remaining inversions.
func (e *Engine) rollback(ctx context.Context, records []undoRecord, failed map[string]string) {
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if err := rec.undo(ctx); err != nil {
			failed["rollback:"+rec.item] = err.Error()
			e.log.Warn().Str("item", rec.item).Err(err).Msg("rollback step failed")
		}
	}
}
