package jit

import (
	"testing"

	"lumen/internal/lexer"
	"lumen/internal/lir"
	"lumen/internal/lower"
	"lumen/internal/parser"
	"lumen/internal/resolver"
	"lumen/internal/vm"
)

func compileSrc(t *testing.T, src string) *lir.Module {
	t.Helper()
	toks, err := lexer.New(src, 1, 0).Lex()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, perrs := parser.Parse(toks)
	if len(perrs) != 0 {
		t.Fatalf("unexpected parse errors: %v", perrs)
	}
	syms, rerrs := resolver.Resolve(prog)
	if len(rerrs) != 0 {
		t.Fatalf("unexpected resolve errors: %v", rerrs)
	}
	mod, lerrs := lower.Module(prog, syms, src)
	if len(lerrs) != 0 {
		t.Fatalf("unexpected lowering errors: %v", lerrs)
	}
	return mod
}

func TestRecordCallDoesNotCompileBelowThreshold(t *testing.T) {
	mod := compileSrc(t, "cell add(a: Int, b: Int) -> Int\n  return a + b\nend\n")
	cell := mod.CellByName("add")
	e := NewEngine()

	for i := 0; i < HotThreshold; i++ {
		if cc := e.RecordCall(cell); cc != nil {
			t.Fatalf("call %d: expected no compile yet", i)
		}
	}
	if e.Stats().CellsCompiled != 0 {
		t.Fatalf("expected zero cells compiled below threshold")
	}
	if cell.Compiled {
		t.Fatalf("expected cell.Compiled false below threshold")
	}
}

func TestRecordCallCompilesOnceHot(t *testing.T) {
	mod := compileSrc(t, "cell add(a: Int, b: Int) -> Int\n  return a + b\nend\n")
	cell := mod.CellByName("add")
	e := NewEngine()

	var cc *CompiledCell
	for i := 0; i <= HotThreshold; i++ {
		cc = e.RecordCall(cell)
	}
	if cc == nil {
		t.Fatalf("expected a compiled stencil once hot")
	}
	if !cell.Compiled {
		t.Fatalf("expected cell.Compiled true after compiling")
	}
	stats := e.Stats()
	if stats.CellsCompiled != 1 {
		t.Fatalf("expected 1 cell compiled, got %d", stats.CellsCompiled)
	}
	if stats.JitExecutions == 0 {
		t.Fatalf("expected jit_executions to be tracked")
	}
}

func TestRecordCallCachesCompiledStencil(t *testing.T) {
	mod := compileSrc(t, "cell add(a: Int, b: Int) -> Int\n  return a + b\nend\n")
	cell := mod.CellByName("add")
	e := NewEngine()

	var first *CompiledCell
	for i := 0; i <= HotThreshold; i++ {
		first = e.RecordCall(cell)
	}
	second := e.RecordCall(cell)
	if second != first {
		t.Fatalf("expected the cached stencil to be returned on a later call")
	}
	if e.Stats().CellsCompiled != 1 {
		t.Fatalf("expected compile to only run once")
	}
}

func TestRecordCallMarksToolCallCellNotEligible(t *testing.T) {
	cell := &lir.Cell{
		Name:    "calls_tool",
		Arity:   0,
		NumRegs: 1,
		Code: []lir.Instruction{
			lir.ABx(lir.OpToolCall, 0, 0),
			lir.ABC(lir.OpReturn, 0, 1, 0),
		},
	}
	e := NewEngine()

	var cc *CompiledCell
	for i := 0; i <= HotThreshold; i++ {
		cc = e.RecordCall(cell)
	}
	if cc != nil {
		t.Fatalf("expected no compiled stencil for a tool-calling cell")
	}
	if cell.Compiled {
		t.Fatalf("expected cell.Compiled to stay false")
	}
	if e.Eligibility(cell.Name) != EligibilityNotEligible {
		t.Fatalf("expected EligibilityNotEligible")
	}
	stats := e.Stats()
	if stats.CompileFailures != 1 {
		t.Fatalf("expected 1 compile failure, got %d", stats.CompileFailures)
	}
	if stats.CellsCompiled != 0 {
		t.Fatalf("expected zero cells compiled")
	}
}

func TestRecordCallDoesNotReattemptAfterFailure(t *testing.T) {
	cell := &lir.Cell{
		Name:    "calls_tool",
		Arity:   0,
		NumRegs: 1,
		Code: []lir.Instruction{
			lir.ABx(lir.OpToolCall, 0, 0),
			lir.ABC(lir.OpReturn, 0, 1, 0),
		},
	}
	e := NewEngine()
	for i := 0; i < HotThreshold+5; i++ {
		e.RecordCall(cell)
	}
	if e.Stats().CompileFailures != 1 {
		t.Fatalf("expected exactly one compile attempt, got %d failures", e.Stats().CompileFailures)
	}
}

func TestCompiledCellExecuteTrampolinesToInterpreter(t *testing.T) {
	mod := compileSrc(t, "cell add(a: Int, b: Int) -> Int\n  return a + b\nend\n")
	cell := mod.CellByName("add")
	e := NewEngine()

	var cc *CompiledCell
	for i := 0; i <= HotThreshold; i++ {
		cc = e.RecordCall(cell)
	}
	if cc == nil {
		t.Fatalf("expected a compiled stencil")
	}

	machine := vm.New(mod)
	result, err := cc.Execute(machine, []vm.Value{vm.BoxInt(2), vm.BoxInt(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsInt() || result.AsInt() != 5 {
		t.Fatalf("expected 5, got %s", result)
	}
}

func TestAsVMProfilerRecordsCallsMadeThroughTheInterpreter(t *testing.T) {
	mod := compileSrc(t, "cell add(a: Int, b: Int) -> Int\n  return a + b\nend\n")
	e := NewEngine()
	machine := vm.New(mod)
	machine.Profiler = e.AsVMProfiler()

	for i := 0; i <= HotThreshold; i++ {
		result, err := machine.Run("add", []vm.Value{vm.BoxInt(1), vm.BoxInt(1)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsInt() || result.AsInt() != 2 {
			t.Fatalf("expected 2, got %s", result)
		}
	}

	if e.CallCount("add") != uint64(HotThreshold+1) {
		t.Fatalf("expected %d recorded calls, got %d", HotThreshold+1, e.CallCount("add"))
	}
	if e.Eligibility("add") != EligibilityEligible {
		t.Fatalf("expected add to have compiled after crossing the hot threshold")
	}
}

func TestCallCountTracksPerCell(t *testing.T) {
	mod := compileSrc(t, "cell add(a: Int, b: Int) -> Int\n  return a + b\nend\n")
	cell := mod.CellByName("add")
	e := NewEngine()

	e.RecordCall(cell)
	e.RecordCall(cell)
	e.RecordCall(cell)
	if e.CallCount("add") != 3 {
		t.Fatalf("expected call count 3, got %d", e.CallCount("add"))
	}
	if e.CallCount("unknown") != 0 {
		t.Fatalf("expected zero for an unprofiled cell")
	}
}
