package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/metrics"
	"github.com/cuemby/vpncoord/pkg/types"
)

func atomicAdd(addr *int64, delta int64) { atomic.AddInt64(addr, delta) }

// CheckpointEvery is the default number of items processed between
// checkpoint writes in resumable mode.
const CheckpointEvery = 10

func checkpointPath(dir, operationID string) string {
	return filepath.Join(dir, operationID+".json")
}

func writeCheckpoint(dir string, cp *types.BatchOperationCheckpoint) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return vpnerrors.NewStorageError("create checkpoint directory", err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return vpnerrors.NewStorageError("marshal checkpoint", err)
	}
	tmp := checkpointPath(dir, cp.OperationID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return vpnerrors.NewStorageError("write checkpoint", err)
	}
	if err := os.Rename(tmp, checkpointPath(dir, cp.OperationID)); err != nil {
		return vpnerrors.NewStorageError("rename checkpoint into place", err)
	}
	return nil
}

// LoadCheckpoint reads a previously persisted checkpoint for operationID.
func LoadCheckpoint(dir, operationID string) (*types.BatchOperationCheckpoint, error) {
	data, err := os.ReadFile(checkpointPath(dir, operationID))
	if os.IsNotExist(err) {
		return nil, vpnerrors.NewNotFoundError("checkpoint", operationID)
	}
	if err != nil {
		return nil, vpnerrors.NewStorageError("read checkpoint", err)
	}
	var cp types.BatchOperationCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, vpnerrors.NewStorageError("unmarshal checkpoint", err)
	}
	return &cp, nil
}

// RunResumable executes exec strictly sequentially over items, persisting a
// checkpoint to checkpointDir every CheckpointEvery items (and once at the
// end). operationID identifies the checkpoint file; opType tags it for
// Resume bookkeeping.
func (e *Engine) RunResumable(ctx context.Context, checkpointDir, operationID string, opType types.CheckpointOperationType, items []string, exec Executor) (*Result, error) {
	return e.runResumableFrom(ctx, checkpointDir, operationID, opType, nil, nil, items, exec)
}

// Resume loads the checkpoint for operationID from checkpointDir and
// continues processing its Remaining items with exec.
func (e *Engine) Resume(ctx context.Context, checkpointDir, operationID string, exec Executor) (*Result, error) {
	cp, err := LoadCheckpoint(checkpointDir, operationID)
	if err != nil {
		return nil, err
	}
	if !cp.Resumable {
		return nil, vpnerrors.NewOperationError("resume", "checkpoint "+operationID+" is not resumable")
	}
	failed := make(map[string]string, len(cp.Failed))
	for k, v := range cp.Failed {
		failed[k] = v
	}
	return e.runResumableFrom(ctx, checkpointDir, operationID, cp.OperationType, cp.Completed, failed, cp.Remaining, exec)
}

func (e *Engine) runResumableFrom(ctx context.Context, checkpointDir, operationID string, opType types.CheckpointOperationType, priorCompleted []string, priorFailed map[string]string, remaining []string, exec Executor) (*Result, error) {
	start := time.Now()
	e.reset(len(priorCompleted) + len(priorFailed) + len(remaining))

	completed := append([]string{}, priorCompleted...)
	failed := priorFailed
	if failed == nil {
		failed = make(map[string]string)
	}
	atomicAdd(&e.completed, int64(len(priorCompleted)))
	atomicAdd(&e.failed, int64(len(priorFailed)))

	for i, item := range remaining {
		select {
		case <-ctx.Done():
			return e.persistAndReturn(checkpointDir, operationID, opType, completed, failed, remaining[i:], start, true, ctx.Err())
		default:
		}

		e.markStarted(item)
		err := exec(ctx, item)
		if err != nil {
			failed[item] = err.Error()
			e.markDone(false)
		} else {
			completed = append(completed, item)
			e.markDone(true)
		}

		if (i+1)%CheckpointEvery == 0 {
			if err := writeCheckpoint(checkpointDir, &types.BatchOperationCheckpoint{
				OperationID:   operationID,
				OperationType: opType,
				Completed:     completed,
				Failed:        failed,
				Remaining:     remaining[i+1:],
				CreatedAt:     time.Now(),
				Resumable:     true,
			}); err != nil {
				e.log.Warn().Err(err).Str("operation_id", operationID).Msg("failed to persist checkpoint")
			}
		}
	}

	return e.persistAndReturn(checkpointDir, operationID, opType, completed, failed, nil, start, false, nil)
}

func (e *Engine) persistAndReturn(checkpointDir, operationID string, opType types.CheckpointOperationType, completed []string, failed map[string]string, remaining []string, start time.Time, resumable bool, runErr error) (*Result, error) {
	cp := &types.BatchOperationCheckpoint{
		OperationID:   operationID,
		OperationType: opType,
		Completed:     completed,
		Failed:        failed,
		Remaining:     remaining,
		CreatedAt:     time.Now(),
		Resumable:     resumable && len(remaining) > 0,
	}
	if err := writeCheckpoint(checkpointDir, cp); err != nil {
		e.log.Warn().Err(err).Str("operation_id", operationID).Msg("failed to persist final checkpoint")
	}

	result := &Result{
		Successful:     completed,
		Failed:         failed,
		TotalProcessed: len(completed) + len(failed),
		Duration:       time.Since(start),
	}

	kind := string(opType)
	outcome := "completed"
	if cp.Resumable {
		outcome = "checkpointed"
	} else if len(failed) > 0 {
		outcome = "partial_failure"
	}
	metrics.BatchOperationsTotal.WithLabelValues(kind, outcome).Inc()
	metrics.BatchOperationDuration.WithLabelValues(kind).Observe(result.Duration.Seconds())

	return result, runErr
}
