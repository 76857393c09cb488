package coordinator

import (
	"sync"
	"sync/atomic"
	"time"

	"codesearch/internal/types"
)

// operation is an in-flight or just-finished indexing pass for one
// canonical root. It implements the lock-and-broadcast pattern of spec §5:
// a broadcast channel of capacity 1 — modeled here as a channel closed
// exactly once, Go's native broadcast idiom — paired with an atomic
// "active" flag for lock-free fast staleness checks. Neither alone
// suffices: the flag lets a late subscriber distinguish "still running"
// from "completed, entry not yet evicted" without blocking, and the
// channel delivers the actual payload to every waiter that arrived before
// it closed.
type operation struct {
	done      chan struct{}
	once      sync.Once
	result    types.IndexResult
	resultErr error
	active    atomic.Bool
	startedAt time.Time
}

func newOperation() *operation {
	op := &operation{done: make(chan struct{}), startedAt: time.Now()}
	op.active.Store(true)
	return op
}

// broadcast delivers result/err to every current and future waiter on
// op.done. Safe to call more than once; only the first call has any
// effect, matching "waiters receive exactly one IndexResult."
func (op *operation) broadcast(result types.IndexResult, err error) {
	op.once.Do(func() {
		op.result = result
		op.resultErr = err
		op.active.Store(false)
		close(op.done)
	})
}

// finished reports whether broadcast has already run.
func (op *operation) finished() bool {
	select {
	case <-op.done:
		return true
	default:
		return false
	}
}
