// Package scheduler runs lowered cells as cooperatively-scheduled
// processes (spec.md §4.10, §5): a fixed worker pool pulls ready PCBs
// off a shared priority run-queue, FIFO mailboxes and bounded channels
// are the only cross-process communication, and a process only ever
// gives up its worker at an explicit safepoint.
//
// The worker pool itself follows the teacher's internal/concurrency
// package (goroutines pulling jobs off a shared channel, tracked with
// sync/atomic counters), generalized from ad hoc Jobs to PCBs and
// rebuilt on golang.org/x/sync's errgroup and semaphore rather than a
// hand-rolled WaitGroup plus Context, per SPEC_FULL.md §5.
package scheduler

import (
	"time"

	"github.com/google/uuid"

	"lumen/internal/lir"
	"lumen/internal/vm"
)

// State is a PCB's lifecycle stage.
type State uint8

const (
	Ready State = iota
	Running
	Waiting
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Waiting:
		return "Waiting"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	default:
		return "Invalid"
	}
}

// Process is a process control block: one lowered cell invocation
// scheduled cooperatively, with its own mailbox and VM.
type Process struct {
	ID       uuid.UUID
	Priority uint8 // flat priority; lower value preempts higher, §4.10
	Cell     *lir.Cell
	Args     []vm.Value
	Mailbox  *Mailbox

	State  State
	Result vm.Value
	Err    error

	seq      uint64 // tie-break for equal-priority FIFO ordering
	cancelAt time.Time
	cancel   bool
}

// NewProcess creates a Ready PCB for one cell invocation.
func NewProcess(cell *lir.Cell, args []vm.Value, priority uint8) *Process {
	return &Process{
		ID:       uuid.New(),
		Priority: priority,
		Cell:     cell,
		Args:     args,
		Mailbox:  NewMailbox(),
		State:    Ready,
	}
}

// Cancel marks the process for cancellation. The mark is checked only
// when a worker takes the process from the run queue, before its cell
// starts: the process then ends Failed with ErrCancelled. A cell that is
// already running is not interrupted and finishes normally.
func (p *Process) Cancel() { p.cancel = true }
