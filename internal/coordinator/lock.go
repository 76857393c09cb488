package coordinator

import (
	"fmt"
	"time"

	"codesearch/internal/coreerrors"
	"codesearch/internal/types"
)

// MaxLockDuration is the age (glossary: "Stale lock") past which an
// operation still marked active is presumed crashed rather than merely
// slow.
const MaxLockDuration = 30 * time.Minute

// tryAcquire implements spec §5's try_acquire(root), executed atomically
// under inProgressMu. canonRoot must already be canonicalized. It returns
// either the caller's own operation to run (acquired == true) or an
// existing operation to wait on (acquired == false).
func (c *Coordinator) tryAcquire(canonRoot string) (op *operation, acquired bool) {
	c.inProgressMu.Lock()
	defer c.inProgressMu.Unlock()

	if existing, ok := c.inProgress[canonRoot]; ok {
		switch {
		case !existing.active.Load():
			// Stale completion record: a finished operation whose entry
			// hasn't been evicted yet. Fall through to a fresh acquisition.
			delete(c.inProgress, canonRoot)
		case time.Since(existing.startedAt) > MaxLockDuration:
			// Presumed crashed: release its waiters with a synthetic error
			// and fall through.
			existing.broadcast(types.IndexResult{}, coreerrors.New(coreerrors.KindIndexingInterrupted,
				"coordinator.tryAcquire", fmt.Errorf("operation exceeded max lock duration %s", MaxLockDuration)))
			delete(c.inProgress, canonRoot)
		default:
			return existing, false
		}
	}

	op = newOperation()
	c.inProgress[canonRoot] = op
	return op, true
}

// release implements the guard's guaranteed-cleanup-on-every-exit-path
// behaviour: if the operation was never explicitly completed with
// broadcast, it is completed now with a synthetic IndexingInterrupted so
// waiters don't hang, then evicted from the map.
func (c *Coordinator) release(canonRoot string, op *operation) {
	if !op.finished() {
		op.broadcast(types.IndexResult{}, coreerrors.New(coreerrors.KindIndexingInterrupted,
			"coordinator.release", fmt.Errorf("indexing holder exited without completing")))
	}
	op.active.Store(false)

	c.inProgressMu.Lock()
	defer c.inProgressMu.Unlock()
	if c.inProgress[canonRoot] == op {
		delete(c.inProgress, canonRoot)
	}
}
