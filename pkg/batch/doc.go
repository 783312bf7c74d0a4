/*
Package batch implements the three bulk-execution modes of §4.C over a
homogeneous list of string item ids (user names, container ids, ...).

# Modes

Parallel (Engine.RunParallel): bounded-concurrency fan-out behind a
semaphore; every item succeeds or fails independently; no rollback.

Resumable (Engine.RunResumable / Engine.Resume): strictly sequential.
Every CheckpointEvery items, and once at the end, a
types.BatchOperationCheckpoint is written to disk as
"<operation-id>.json". Resume loads that file and continues processing
its Remaining items, folding in the prior Completed/Failed partition.

Transactional (Engine.RunTransactional): strictly sequential. Each Step
returns an undo closure alongside its result; on the first unrecoverable
failure every recorded undo runs in reverse order. A rollback step that
itself fails is recorded under a "rollback:<item>" key in Result.Failed
but never aborts the remaining inversions.

# Progress

Engine tracks total/completed/failed as atomic counters plus the
in-flight item label, and publishes events.EventBatchProgress on its
broker after each item completes (broker may be nil to disable
broadcast).

# Pre-validation

ValidateBatchCreate implements validate_batch_create: duplicate-name
detection and charset/length validation are errors, an existing-name hit
is a warning, and a supplied emails slice is checked for length parity
and format. EstimatedDurationMS uses a 100ms-per-item heuristic.

# See also

  - pkg/userdir for the CreateUser/DeleteUser operations typically driven
    through RunParallel/RunResumable
  - pkg/lifecycle for the container-oriented bulk operations built on the
    same semaphore idiom
  - SPEC_FULL.md §4.C for the exact checkpoint and rollback contract
*/
package batch
