package jit

import (
	"testing"

	"lumen/internal/lir"
)

func TestCompileStencilProducesOneFunctionPerCell(t *testing.T) {
	mod := compileSrc(t, "cell add(a: Int, b: Int) -> Int\n  return a + b\nend\n")
	cc, err := compileStencil(mod.CellByName("add"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cc.Func == nil {
		t.Fatalf("expected a function in the compiled module")
	}
	if len(cc.Func.Blocks) == 0 {
		t.Fatalf("expected at least one basic block")
	}
	for _, b := range cc.Func.Blocks {
		if b.Term == nil {
			t.Fatalf("block %s has no terminator", b.Name())
		}
	}
}

func TestCompileStencilSplitsBlocksAtJumpTargets(t *testing.T) {
	// A cell with a forward jump should produce more than one block:
	// one ending in the jump, one starting at its target.
	cell := &lir.Cell{
		Name:    "branchy",
		Arity:   0,
		NumRegs: 1,
		Code: []lir.Instruction{
			lir.AsBx(lir.OpJmp, 0, 1),
			lir.ABC(lir.OpReturn, 0, 1, 0),
			lir.ABC(lir.OpReturn, 0, 1, 0),
		},
	}
	cc, err := compileStencil(cell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cc.Func.Blocks) < 2 {
		t.Fatalf("expected at least 2 blocks, got %d", len(cc.Func.Blocks))
	}
}

func TestCompileStencilRejectsToolCall(t *testing.T) {
	cell := &lir.Cell{
		Name:    "calls_tool",
		Arity:   0,
		NumRegs: 1,
		Code: []lir.Instruction{
			lir.ABx(lir.OpToolCall, 0, 0),
			lir.ABC(lir.OpReturn, 0, 1, 0),
		},
	}
	if _, err := compileStencil(cell); err == nil {
		t.Fatalf("expected an eligibility error")
	}
}

func TestCompileStencilRejectsHeapAllocatingOpcodes(t *testing.T) {
	for _, op := range []lir.Op{lir.OpNewList, lir.OpNewRecord, lir.OpGetField, lir.OpClosure, lir.OpYield, lir.OpCheckpoint} {
		cell := &lir.Cell{
			Name:    "x",
			NumRegs: 1,
			Code:    []lir.Instruction{{Op: op}},
		}
		if _, err := compileStencil(cell); err == nil {
			t.Fatalf("expected opcode %s to be ineligible", op)
		}
	}
}

func TestDeclareFloatConstantsEncodesLiterals(t *testing.T) {
	cell := &lir.Cell{
		Name:      "pi",
		NumRegs:   1,
		Code:      []lir.Instruction{lir.ABC(lir.OpReturn, 0, 1, 0)},
		Constants: []lir.Constant{lir.FloatConst(3.14159)},
	}
	cc, err := compileStencil(cell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, g := range cc.Module.Globals {
		if g.Name() == "lumen_cell_pi.k0" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a global for the rounded float constant")
	}
}
