/*
Package lifecycle composes pkg/runtime into the bulk operations and
install/uninstall orchestration of §4.E.

# Bulk operations

BulkStart/BulkStop/BulkRestart/BulkRemove run each item in its own
goroutine under a semaphore sized by BulkOptions.MaxConcurrent, each
wrapped in a per-item BulkOptions.Timeout deadline. A failure is appended
to BulkResult.Failed and processing continues, unless FailFast is set, in
which case the first failure cancels every still-pending item (already
running items finish). Restart performs stop+start for a single
container, matching the semantics BulkRestart applies per item.

# Install / uninstall

Install runs the full sequence: deploy.PrepareDirectoryTree, write the
protocol config, render and write the compose descriptor, create and
start the container, verify it reached running, then invite the initial
user into a pkg/userdir.Directory. Uninstall reverses it: stop, remove,
reclaim the install directory — container teardown failures are logged
but never block directory cleanup, since a partially-torn-down
install must still be removable.

# See also

  - pkg/runtime for the driver surface this package composes
  - pkg/deploy for the directory layout and compose rendering
  - pkg/userdir for the initial user invited at the end of Install
  - SPEC_FULL.md §4.E for the exact bulk and install/uninstall contract
*/
package lifecycle
