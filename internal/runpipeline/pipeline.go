// Package runpipeline wraps one synthetic-tracking sweep run as a
// Job/Processor/Pipeline: a worker pool with a Submit/Subscribe/
// broadcast concurrency shape built around a single operation — build
// a Coordinator from three loaded groups and drive it to completion
// with internal/scheduler.
package runpipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"log/slog"

	"huntmover/internal/coordinator"
	"huntmover/internal/geom"
	"huntmover/internal/logging"
	"huntmover/internal/mover"
	"huntmover/internal/scheduler"
	"huntmover/internal/stack"
	"huntmover/internal/storage"
)

// Job is a single sweep-run request: three already-loaded groups and
// the configuration slice the coordinator needs.
type Job struct {
	ID     string
	Config coordinator.Config
	Groups [3]*stack.Group
}

// Result captures the outcome of a Job.
type Result struct {
	Job    Job
	Error  error
	Movers []mover.Mover
}

// Processor executes a job and returns a Result.
type Processor interface {
	Process(ctx context.Context, job Job) Result
}

// Pipeline orchestrates run dispatch across workers.
type Pipeline struct {
	processor Processor
	log       *slog.Logger
	jobs      chan Job
	wg        sync.WaitGroup
	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
	store     *storage.Store
	cache     *geom.Cache
	mu        sync.Mutex
	subs      map[int]chan Result
	nextSubID int
}

// New creates a new Pipeline with the given concurrency, running each
// submitted job's sweep to completion via the default runner.
func New(ctx context.Context, concurrency int, logger *slog.Logger, store *storage.Store, cache *geom.Cache) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pipeline{
		log:    logger,
		jobs:   make(chan Job, concurrency*2),
		cancel: cancel,
		store:  store,
		cache:  cache,
		subs:   make(map[int]chan Result),
	}

	p.startOnce.Do(func() {
		p.processor = &runner{cache: cache}
		for i := 0; i < concurrency; i++ {
			p.wg.Add(1)
			go p.worker(ctx, i)
		}
	})

	return p
}

// SetRunHook registers a callback invoked with each run's live
// Coordinator/Scheduler right before the scheduler starts, letting a
// result server bind its /status, /movers and /control routes to the
// run currently in progress.
func (p *Pipeline) SetRunHook(fn func(*coordinator.Coordinator, *scheduler.Scheduler)) {
	if r, ok := p.processor.(*runner); ok {
		r.hook = fn
	}
}

// Submit adds a job to the processing queue.
func (p *Pipeline) Submit(job Job) error {
	if p.store != nil {
		sizes := [3]int{len(job.Groups[0].Frames), len(job.Groups[1].Frames), len(job.Groups[2].Frames)}
		sizesJSON, _ := storage.MarshalObjects(sizes)
		_ = p.store.RecordRunQueued(storage.RunRecord{
			ID:             job.ID,
			Status:         "queued",
			GroupSizesJSON: sizesJSON,
		})
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return errors.New("run queue is full")
	}
}

// Stop signals workers to exit and waits for completion.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		close(p.jobs)
		p.wg.Wait()
		p.mu.Lock()
		for id, ch := range p.subs {
			close(ch)
			delete(p.subs, id)
		}
		p.mu.Unlock()
	})
}

func (p *Pipeline) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			start := time.Now()

			sizes := [3]int{len(job.Groups[0].Frames), len(job.Groups[1].Frames), len(job.Groups[2].Frames)}
			logging.LogRunStart(p.log, job.ID, sizes)

			if p.store != nil {
				_ = p.store.RecordRunStart(job.ID)
			}
			res := p.processor.Process(ctx, job)
			duration := time.Since(start)

			if res.Error != nil {
				logging.LogRunError(p.log, job.ID, duration, res.Error)
				if p.store != nil {
					_ = p.store.RecordRunResult(job.ID, "failed", errString(res.Error))
				}
			} else {
				logging.LogRunComplete(p.log, job.ID, duration, len(res.Movers))
				if p.store != nil {
					_ = p.store.RecordRunResult(job.ID, "completed", "")
					now := time.Now()
					for i, m := range res.Movers {
						logging.LogMover(p.log, now, i, m, "confirmed")
						objJSON, _ := storage.MarshalObjects(m.Objects)
						_ = p.store.RecordMover(storage.MoverRecord{
							RunID:       job.ID,
							Sequence:    i,
							Motion:      m.Motion,
							PADeg:       m.PA * 180 / 3.141592653589793,
							ErrMid:      m.ErrMid,
							Score:       m.Score,
							ObjectsJSON: objJSON,
						})
					}
				}
			}

			p.broadcast(res)
		}
	}
}

// Subscribe returns a channel for receiving run results and an unsubscribe function.
func (p *Pipeline) Subscribe() (<-chan Result, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSubID
	p.nextSubID++
	ch := make(chan Result, 8)
	p.subs[id] = ch
	unsub := func() {
		p.mu.Lock()
		if c, ok := p.subs[id]; ok {
			close(c)
			delete(p.subs, id)
		}
		p.mu.Unlock()
	}
	return ch, unsub
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (p *Pipeline) broadcast(res Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ch := range p.subs {
		select {
		case ch <- res:
		default:
			if p.log != nil {
				p.log.Warn("result channel full", "subscriber", id, "run", res.Job.ID)
			}
		}
	}
}

// runner is the default Processor: build a Coordinator from the job's
// groups and drive it to completion through the scheduler.
type runner struct {
	cache *geom.Cache
	hook  func(*coordinator.Coordinator, *scheduler.Scheduler)
}

func (r *runner) Process(ctx context.Context, job Job) Result {
	cache := r.cache
	if cache == nil {
		cache = geom.NewCache()
	}

	c, err := coordinator.InitGroups(job.Config, cache, job.Groups)
	if err != nil {
		return Result{Job: job, Error: err}
	}
	c.SetReference()

	s := scheduler.New(c, nil)
	if r.hook != nil {
		r.hook(c, s)
	}
	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return Result{Job: job, Error: ctx.Err()}
	}

	c.SortMovers()
	return Result{Job: job, Movers: c.Movers.Movers}
}
