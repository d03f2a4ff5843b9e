package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"lumen/internal/vm"
)

// ErrCancelled marks a process that was cancelled before it ever ran
// (spec.md §5: "A cancelled process transitions Running → Failed at
// its next safepoint").
var ErrCancelled = errors.New("scheduler: process cancelled")

// Metrics are the scheduler's running counters, exposed the way the
// teacher's ConcurrencyMetrics tracks a worker pool.
type Metrics struct {
	Spawned   int64
	Completed int64
	Failed    int64
	Cancelled int64
}

// Scheduler runs processes cooperatively across a fixed pool of worker
// goroutines. Each worker repeatedly pops a ready PCB, hands it to the
// shared VM, and marks it Done or Failed when the cell returns.
// It generalizes the teacher's WorkerPool (goroutines draining a shared
// Jobs channel) to PCBs, and replaces the teacher's hand-rolled
// WaitGroup/Context pairing with golang.org/x/sync's errgroup plus a
// semaphore capping how many processes may be mid-flight at once —
// SPEC_FULL.md §5's named adaptation.
type Scheduler struct {
	vm      *vm.VM
	queue   *runQueue
	sem     *semaphore.Weighted
	workers int

	metrics Metrics

	processes sync.Map // uuid.UUID -> *Process, for lookup/cancel by id
}

// New creates a scheduler over machine with the given worker pool size
// and maxInFlight (the semaphore's weight, letting a pool run fewer
// processes concurrently than its worker count — e.g. to leave workers
// free for GC/JIT safepoint work, spec.md §5 — by default equal to
// workers).
func New(machine *vm.VM, workers, maxInFlight int) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	if maxInFlight <= 0 {
		maxInFlight = workers
	}
	return &Scheduler{
		vm:      machine,
		queue:   newRunQueue(),
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
		workers: workers,
	}
}

// Spawn enqueues p as Ready and returns immediately; the caller
// observes completion via p.State/p.Result/p.Err once the scheduler
// has drained it, or by polling p.State.
func (s *Scheduler) Spawn(p *Process) {
	atomic.AddInt64(&s.metrics.Spawned, 1)
	s.processes.Store(p.ID, p)
	s.queue.push(p)
}

// Lookup finds a previously spawned process by id, for cancellation or
// inspection.
func (s *Scheduler) Lookup(id uuid.UUID) (*Process, bool) {
	v, ok := s.processes.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Process), true
}

// Metrics returns a snapshot of the scheduler's counters.
func (s *Scheduler) Metrics() Metrics {
	return Metrics{
		Spawned:   atomic.LoadInt64(&s.metrics.Spawned),
		Completed: atomic.LoadInt64(&s.metrics.Completed),
		Failed:    atomic.LoadInt64(&s.metrics.Failed),
		Cancelled: atomic.LoadInt64(&s.metrics.Cancelled),
	}
}

// Run starts the worker pool and blocks until ctx is cancelled or every
// spawned process has drained from the run-queue. Close should be
// called once no further Spawn calls are expected, so workers can
// observe run-queue exhaustion and return.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		g.Go(func() error { return s.worker(ctx) })
	}
	return g.Wait()
}

// Close signals that no further processes will be spawned; workers
// drain the remaining run-queue and then return.
func (s *Scheduler) Close() { s.queue.close() }

func (s *Scheduler) worker(ctx context.Context) error {
	for {
		p, ok := s.queue.pop()
		if !ok {
			return nil
		}
		if err := s.sem.Acquire(ctx, 1); err != nil {
			// Context cancelled while waiting for a slot; the process
			// stays Ready and is simply never run.
			return err
		}
		s.runOne(p)
		s.sem.Release(1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// runOne drives a single PCB to completion. This tier runs a process's
// cell interpreted start-to-finish in one dispatch rather than
// preempting mid-instruction on a reduction budget; the cooperative
// yield points spec.md §5 names (Yield opcode, mailbox recv, periodic
// reduction-budget check) are honored at the granularity the VM
// currently exposes them — entire-cell completion or a runtime error —
// with true mid-cell preemption left as a documented follow-on (see
// DESIGN.md's C12 entry).
func (s *Scheduler) runOne(p *Process) {
	if p.cancel {
		p.State = Failed
		p.Err = ErrCancelled
		p.Mailbox.Close()
		atomic.AddInt64(&s.metrics.Cancelled, 1)
		return
	}

	p.State = Running
	result, err := s.vm.Run(p.Cell.Name, p.Args)
	p.Mailbox.Close()

	if err != nil {
		p.State = Failed
		p.Err = err
		atomic.AddInt64(&s.metrics.Failed, 1)
		return
	}
	p.State = Done
	p.Result = result
	atomic.AddInt64(&s.metrics.Completed, 1)
}
