package scheduler

import (
	"errors"
	"sync"
)

// ErrBroken is returned by Await when the barrier has been broken: a
// broken-barrier state is treated as clean termination, not a
// retryable failure.
var ErrBroken = errors.New("scheduler: barrier broken")

// Barrier is a reusable cyclic barrier of fixed party size: four
// threads (three GroupWorkers, one Coordinator) rendezvous at named
// points, the last arrival releases everyone, and the barrier resets
// for the next round. No pack dependency provides a barrier (checked
// against every example repo's go.mod), so this is hand-rolled on
// sync.Mutex/sync.Cond.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	count      int
	generation int
	broken     bool
}

// NewBarrier creates a barrier for the given party size.
func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Await blocks until all parties have called Await for the current
// generation, then returns. The last arrival advances the generation
// and wakes everyone else. Returns ErrBroken if the barrier was broken
// while waiting, or had already been broken on entry.
func (b *Barrier) Await() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken {
		return ErrBroken
	}

	gen := b.generation
	b.count++
	if b.count == b.parties {
		b.count = 0
		b.generation++
		b.cond.Broadcast()
		return nil
	}

	for gen == b.generation && !b.broken {
		b.cond.Wait()
	}
	if b.broken {
		return ErrBroken
	}
	return nil
}

// Break marks the barrier broken and wakes every waiter; they each
// observe ErrBroken and return. Used for clean shutdown when one party
// fails or the caller cancels the run.
func (b *Barrier) Break() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broken = true
	b.cond.Broadcast()
}
