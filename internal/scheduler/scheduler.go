// Package scheduler implements the barrier-coordinated two-phase
// execution of a sweep run: three GroupWorkers and one Coordinator
// share a cyclic barrier of party size four and run a tagged
// finite-state machine (prepare, then sweep), rather than one giant
// routine dispatched on a phase flag.
package scheduler

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"huntmover/internal/coordinator"
)

const pausePollInterval = time.Second

// Event is a run-control notification pushed to resultserver's websocket
// feed: either a sweep step advance or a mover-list update.
type Event struct {
	Kind       string // "advance" or "movers"
	Motion     float64
	PA         float64
	Finished   bool
	MoverCount int
}

// Scheduler runs the four-thread pipeline against one Coordinator.
type Scheduler struct {
	coord   *coordinator.Coordinator
	barrier *Barrier
	log     *slog.Logger
	events  chan<- Event

	paused atomic.Bool
}

// New builds a Scheduler for the given coordinator. SetReference must
// already have been called on coord so its sweep state is live.
func New(coord *coordinator.Coordinator, log *slog.Logger) *Scheduler {
	return &Scheduler{coord: coord, barrier: NewBarrier(4), log: log}
}

// SetEvents registers a channel that receives a non-blocking Event on
// every sweep step advance and every mover-list update, for
// internal/resultserver's websocket feed. Must be called before Run.
func (s *Scheduler) SetEvents(ch chan<- Event) { s.events = ch }

func (s *Scheduler) emit(e Event) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- e:
	default:
	}
}

// Pause requests the coordinator thread suspend at its next
// end-of-iteration poll; workers block at the barrier until Resume.
func (s *Scheduler) Pause() { s.paused.Store(true) }

// Resume clears a pending pause.
func (s *Scheduler) Resume() { s.paused.Store(false) }

// Paused reports whether the scheduler is currently holding workers at
// the pause point in runCoordinator's Phase 2 loop.
func (s *Scheduler) Paused() bool { return s.paused.Load() }

// Terminate breaks the barrier, ending the run at the next Await call on
// either side; in-flight work for the current iteration is abandoned.
func (s *Scheduler) Terminate() { s.barrier.Break() }

// Run executes Phase 1 (prepare) then Phase 2 (sweep) to completion,
// blocking until the sweep finishes or the barrier breaks.
func (s *Scheduler) Run() {
	var wg sync.WaitGroup
	wg.Add(4)

	for i := 0; i < 3; i++ {
		go func(groupIdx int) {
			defer wg.Done()
			s.runWorker(groupIdx)
		}(i)
	}
	go func() {
		defer wg.Done()
		s.runCoordinator()
	}()

	wg.Wait()
}

func (s *Scheduler) logDebug(msg string, args ...any) {
	if s.log != nil {
		s.log.Debug(msg, args...)
	}
}

// runWorker executes one GroupWorker's side of both phases.
func (s *Scheduler) runWorker(i int) {
	gs := s.coord.Stackers[i]

	s.coord.PrepareGroup(i)
	if s.barrier.Await() != nil { // barrier 0: frame prep ready
		return
	}
	if s.barrier.Await() != nil { // barrier 0b: normalize done
		return
	}

	gs.StaticStack()
	s.logDebug("static stack ready", "group", i)
	if s.barrier.Await() != nil { // barrier 1
		return
	}

	if s.barrier.Await() != nil { // barrier 2: superstack ready
		return
	}
	s.coord.SubtractGroup(i)
	if s.barrier.Await() != nil { // barrier 3
		return
	}

	if s.barrier.Await() != nil { // barrier 4: flat ready
		return
	}
	s.coord.DivideGroup(i)
	if s.barrier.Await() != nil { // barrier 5: transition to phase 2
		return
	}

	for {
		motion, pa := s.coord.Sweep.Motion, s.coord.Sweep.PA
		gs.TrackedStack(motion, pa)
		s.coord.Groups[i].Objects = gs.FindObjects(motion, pa)

		if s.barrier.Await() != nil { // A: objects ready
			return
		}
		if s.barrier.Await() != nil { // B: tracklets built, sweep advanced
			return
		}
		if s.coord.Sweep.Finished {
			return
		}
	}
}

// runCoordinator executes the Coordinator's side of both phases.
func (s *Scheduler) runCoordinator() {
	if s.barrier.Await() != nil { // barrier 0: frame prep ready
		return
	}
	s.coord.Normalize()
	if s.barrier.Await() != nil { // barrier 0b
		return
	}

	if s.barrier.Await() != nil { // barrier 1: statics ready
		return
	}
	s.coord.BuildSuperstack()
	if s.barrier.Await() != nil { // barrier 2
		return
	}

	if s.barrier.Await() != nil { // barrier 3: subtraction done
		return
	}
	s.coord.BuildFlat()
	if s.barrier.Await() != nil { // barrier 4
		return
	}

	if s.barrier.Await() != nil { // barrier 5: division done, phase 2 begins
		return
	}

	for {
		for s.paused.Load() {
			time.Sleep(pausePollInterval)
		}

		if s.barrier.Await() != nil { // A: objects ready
			return
		}
		s.coord.BuildTracklets()
		s.coord.RecomputeAndAdvance()
		s.emit(Event{Kind: "advance", Motion: s.coord.Sweep.Motion, PA: s.coord.Sweep.PA, Finished: s.coord.Sweep.Finished})
		if s.barrier.Await() != nil { // B
			return
		}
		s.coord.BuildMovers()
		if s.coord.Sweep.Finished {
			s.coord.SortMovers()
		}
		s.emit(Event{Kind: "movers", MoverCount: len(s.coord.Movers.Movers), Finished: s.coord.Sweep.Finished})
		if s.coord.Sweep.Finished {
			return
		}
	}
}
