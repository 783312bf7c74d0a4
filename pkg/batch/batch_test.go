package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/cuemby/vpncoord/pkg/types"
)

func TestRunParallel(t *testing.T) {
	engine := NewEngine(nil)
	items := []string{"a", "b", "c", "d", "e"}

	var mu sync.Mutex
	seen := make(map[string]bool)

	result := engine.RunParallel(context.Background(), items, 2, func(ctx context.Context, item string) error {
		mu.Lock()
		seen[item] = true
		mu.Unlock()
		if item == "c" {
			return errors.New("boom")
		}
		return nil
	})

	if len(result.Successful) != 4 {
		t.Fatalf("Successful = %d, want 4", len(result.Successful))
	}
	if len(result.Failed) != 1 || result.Failed["c"] != "boom" {
		t.Fatalf("Failed = %v, want {c: boom}", result.Failed)
	}
	if len(seen) != 5 {
		t.Fatalf("processed %d items, want 5", len(seen))
	}
}

func TestRunResumableWritesCheckpoint(t *testing.T) {
	dir := t.TempDir()
	engine := NewEngine(nil)

	items := []string{"1", "2", "3", "4", "5"}
	failAt := "3"

	result, err := engine.RunResumable(context.Background(), dir, "op-1", types.CheckpointCreate, items, func(ctx context.Context, item string) error {
		if item == failAt {
			return errors.New("transient failure")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunResumable() error = %v", err)
	}
	if len(result.Successful) != 4 {
		t.Fatalf("Successful = %d, want 4", len(result.Successful))
	}
	if result.Failed[failAt] != "transient failure" {
		t.Fatalf("Failed[%s] = %q, want transient failure", failAt, result.Failed[failAt])
	}

	cp, err := LoadCheckpoint(dir, "op-1")
	if err != nil {
		t.Fatalf("LoadCheckpoint() error = %v", err)
	}
	if cp.OperationType != types.CheckpointCreate {
		t.Fatalf("OperationType = %v, want create", cp.OperationType)
	}
}

// TestRunResumableAbortThenResume runs a batch of 25 names, aborts the run
// partway through by cancelling the context after the 12th item completes,
// then resumes from the persisted checkpoint and checks every name was
// eventually processed exactly once.
func TestRunResumableAbortThenResume(t *testing.T) {
	dir := t.TempDir()

	items := make([]string, 25)
	for i := range items {
		items[i] = fmt.Sprintf("user-%02d", i+1)
	}

	firstRunCtx, cancel := context.WithCancel(context.Background())
	var processed int

	firstEngine := NewEngine(nil)
	firstResult, err := firstEngine.RunResumable(firstRunCtx, dir, "bulk-import-1", types.CheckpointCreate, items, func(ctx context.Context, item string) error {
		processed++
		if processed == 12 {
			cancel()
		}
		return nil
	})
	if err == nil {
		t.Fatal("RunResumable() error = nil, want context.Canceled after abort")
	}
	if len(firstResult.Successful) != 12 {
		t.Fatalf("first run Successful = %d, want 12", len(firstResult.Successful))
	}

	cp, err := LoadCheckpoint(dir, "bulk-import-1")
	if err != nil {
		t.Fatalf("LoadCheckpoint() error = %v", err)
	}
	if !cp.Resumable {
		t.Fatal("checkpoint Resumable = false, want true after an aborted run")
	}
	if len(cp.Remaining) != 13 {
		t.Fatalf("checkpoint Remaining = %d, want 13", len(cp.Remaining))
	}

	var resumed []string
	resumeEngine := NewEngine(nil)
	finalResult, err := resumeEngine.Resume(context.Background(), dir, "bulk-import-1", func(ctx context.Context, item string) error {
		resumed = append(resumed, item)
		return nil
	})
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if len(resumed) != 13 {
		t.Fatalf("Resume() processed %d items, want 13", len(resumed))
	}
	if len(finalResult.Successful) != 25 {
		t.Fatalf("final Successful = %d, want 25", len(finalResult.Successful))
	}
	if len(finalResult.Failed) != 0 {
		t.Fatalf("final Failed = %v, want none", finalResult.Failed)
	}

	seen := make(map[string]bool, 25)
	for _, name := range finalResult.Successful {
		if seen[name] {
			t.Fatalf("name %q processed more than once across both runs", name)
		}
		seen[name] = true
	}
	for _, item := range items {
		if !seen[item] {
			t.Fatalf("name %q never processed", item)
		}
	}
}

func TestRunTransactionalRollsBackOnFailure(t *testing.T) {
	engine := NewEngine(nil)
	items := []string{"a", "b", "c", "d"}

	var applied []string
	var undone []string

	result := engine.RunTransactional(context.Background(), items, func(ctx context.Context, item string) (func(ctx context.Context) error, error) {
		if item == "c" {
			return nil, errors.New("cannot create c")
		}
		applied = append(applied, item)
		captured := item
		return func(ctx context.Context) error {
			undone = append(undone, captured)
			return nil
		}, nil
	})

	if len(result.Successful) != 2 {
		t.Fatalf("Successful = %v, want [a b]", result.Successful)
	}
	if result.Failed["c"] != "cannot create c" {
		t.Fatalf("Failed[c] = %q, want cannot create c", result.Failed["c"])
	}
	if len(undone) != 2 || undone[0] != "b" || undone[1] != "a" {
		t.Fatalf("undone = %v, want [b a] (reverse order)", undone)
	}
}

func TestValidateBatchCreate(t *testing.T) {
	existing := map[string]bool{"alice": true}
	result := ValidateBatchCreate(
		[]string{"alice", "bob", "bob", "bad name!"},
		nil,
		func(name string) bool { return existing[name] },
	)

	if result.IsValid {
		t.Fatal("IsValid = true, want false (duplicate + invalid name present)")
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want 1 entry for alice", result.Warnings)
	}
	if len(result.Errors) < 2 {
		t.Fatalf("Errors = %v, want at least 2 (duplicate, invalid charset)", result.Errors)
	}
}

func TestValidateBatchCreateEmailMismatch(t *testing.T) {
	result := ValidateBatchCreate([]string{"alice", "bob"}, []string{"alice@example.com"}, nil)
	if result.IsValid {
		t.Fatal("IsValid = true, want false (emails count mismatch)")
	}
}

func TestValidateBatchCreateEstimatedDuration(t *testing.T) {
	result := ValidateBatchCreate([]string{"a", "b", "c"}, nil, nil)
	if result.EstimatedDurationMS != 300 {
		t.Fatalf("EstimatedDurationMS = %d, want 300", result.EstimatedDurationMS)
	}
}
