// Package jit implements the tiered JIT of spec.md §4.11: a per-cell
// call counter that, on crossing a hot threshold, hands the cell to a
// tier-2 code generator. Compilation is best-effort — an unsupported
// opcode marks the cell NotEligible and it keeps running interpreted.
//
// The tier-2 backend (backend.go) emits real LLVM IR via
// github.com/llir/llvm, but SPEC_FULL.md §4.16 resolves the "Stencil"
// open question by not wiring an execution engine to it: a compiled
// cell's *ir.Module is kept only as the eligibility/compile-success
// record, and Execute still dispatches back through the interpreter.
// Statistics are tracked accurately against that trampoline rather
// than against a real native call.
package jit

import (
	"sync"

	"lumen/internal/lir"
	"lumen/internal/vm"
)

// HotThreshold is the call count a cell must cross before it is
// submitted to the code generator, per spec.md §4.11
// ("hot_threshold+1").
const HotThreshold = 100

// Eligibility caches whether a cell has already been judged fit for
// compilation, so repeated calls to a NotEligible cell don't re-scan
// its instructions on every call.
type Eligibility uint8

const (
	EligibilityUnknown Eligibility = iota
	EligibilityEligible
	EligibilityNotEligible
)

// Stats mirrors spec.md §4.11's tracked counters.
type Stats struct {
	CellsCompiled     uint64
	JitExecutions     uint64
	CompileFailures   uint64
	TotalCallsTracked uint64
}

// Engine owns the per-cell call counters, the eligibility cache, and
// the compiled-stencil table; it sits between the VM's call dispatch
// and the interpreter, deciding per call whether a cell is hot enough
// to attempt compilation.
type Engine struct {
	mu          sync.Mutex
	counts      map[string]uint64
	eligibility map[string]Eligibility
	compiled    map[string]*CompiledCell
	stats       Stats
}

// NewEngine creates an engine with no cells yet profiled.
func NewEngine() *Engine {
	return &Engine{
		counts:      make(map[string]uint64),
		eligibility: make(map[string]Eligibility),
		compiled:    make(map[string]*CompiledCell),
	}
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Eligibility reports the cached eligibility verdict for a cell name,
// EligibilityUnknown if it has never been profiled.
func (e *Engine) Eligibility(name string) Eligibility {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eligibility[name]
}

// CallCount returns the number of times RecordCall has been invoked
// for the named cell.
func (e *Engine) CallCount(name string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[name]
}

// RecordCall records one invocation of cell, compiling it if this call
// crosses HotThreshold and it has not already been judged ineligible.
// It returns the compiled stencil if cell is (now or already)
// compiled, else nil — the caller always falls back to plain
// interpretation when RecordCall returns nil.
func (e *Engine) RecordCall(cell *lir.Cell) *CompiledCell {
	e.mu.Lock()
	e.stats.TotalCallsTracked++
	e.counts[cell.Name]++
	count := e.counts[cell.Name]

	if cc, ok := e.compiled[cell.Name]; ok {
		e.stats.JitExecutions++
		e.mu.Unlock()
		return cc
	}
	if e.eligibility[cell.Name] == EligibilityNotEligible {
		e.mu.Unlock()
		return nil
	}
	if count <= HotThreshold {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	return e.compile(cell)
}

// compile submits cell to the stencil backend and records the outcome.
// It is only ever reached once per cell name: the first failed attempt
// marks the cell NotEligible, which short-circuits RecordCall before
// compile is reached again.
func (e *Engine) compile(cell *lir.Cell) *CompiledCell {
	cc, err := compileStencil(cell)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.eligibility[cell.Name] = EligibilityNotEligible
		e.stats.CompileFailures++
		return nil
	}
	e.eligibility[cell.Name] = EligibilityEligible
	e.compiled[cell.Name] = cc
	e.stats.CellsCompiled++
	e.stats.JitExecutions++
	cell.Compiled = true
	return cc
}

// Execute runs a compiled cell's native trampoline. No execution engine
// is wired to the generated LLVM IR (SPEC_FULL.md §4.16), so the
// trampoline is the interpreter itself — CompiledCell only proves the
// cell compiled and keeps jit_executions accurate against real work
// performed, rather than against a call that never happens.
func (cc *CompiledCell) Execute(machine *vm.VM, args []vm.Value) (vm.Value, error) {
	return machine.Run(cc.Name, args)
}

// vmProfilerAdapter lets an Engine be installed as a vm.VM's Profiler
// without the vm package ever importing this one back (it already
// imports vm, so the reverse would cycle) — the same adapter shape as
// effects.Registry.AsToolDispatcher.
type vmProfilerAdapter struct{ engine *Engine }

func (a vmProfilerAdapter) RecordCall(cell *lir.Cell) { a.engine.RecordCall(cell) }

// AsVMProfiler wraps e so it can be assigned to vm.VM.Profiler.
func (e *Engine) AsVMProfiler() vm.Profiler {
	return vmProfilerAdapter{engine: e}
}
