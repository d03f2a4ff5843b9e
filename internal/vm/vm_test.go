package vm

import (
	"testing"

	"lumen/internal/lexer"
	"lumen/internal/lir"
	"lumen/internal/lower"
	"lumen/internal/parser"
	"lumen/internal/resolver"
)

func compileSrc(t *testing.T, src string) *VM {
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
	return New(mod)
}

func TestRunSimpleAddition(t *testing.T) {
	v := compileSrc(t, "cell add(a: Int, b: Int) -> Int\n  return a + b\nend\n")
	result, err := v.Run("add", []Value{boxInt(2), boxInt(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsInt() || unboxInt(result) != 5 {
		t.Fatalf("got %s, want 5", result)
	}
}

func TestRunIntOverflowPromotesToBigInt(t *testing.T) {
	v := compileSrc(t, "cell mul(a: Int, b: Int) -> Int\n  return a * b\nend\n")
	// Each operand fits comfortably in the 61-bit tagged range; their
	// product (2^70) does not, so the VM must promote to a heap BigInt.
	big1 := boxInt(1 << 35)
	big2 := boxInt(1 << 35)
	result, err := v.Run("mul", []Value{big1, big2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsInt() {
		t.Fatalf("expected overflow to promote to BigInt, got plain Int %s", result)
	}
	if !result.IsPointer() || unboxPointer(result).Kind != ObjBigInt {
		t.Fatalf("expected a BigInt object, got %s", result)
	}
}

func TestRunIntegerDivisionByZeroIsRuntimeError(t *testing.T) {
	v := compileSrc(t, "cell div(a: Int, b: Int) -> Int\n  return a / b\nend\n")
	_, err := v.Run("div", []Value{boxInt(10), boxInt(0)})
	if err == nil {
		t.Fatalf("expected a division-by-zero error")
	}
}

func TestRunWhileLoopAccumulates(t *testing.T) {
	v := compileSrc(t, "cell sumTo(n: Int) -> Int\n  let total = 0\n  let i = 0\n  while i < n\n    total = total + i\n    i = i + 1\n  end\n  return total\nend\n")
	result, err := v.Run("sumTo", []Value{boxInt(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsInt() || unboxInt(result) != 10 {
		t.Fatalf("got %s, want 10 (0+1+2+3+4)", result)
	}
}

func TestRunIfElseBranches(t *testing.T) {
	v := compileSrc(t, "cell abs(x: Int) -> Int\n  if x < 0\n    return 0 - x\n  else\n    return x\n  end\nend\n")
	result, err := v.Run("abs", []Value{boxInt(-7)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsInt() || unboxInt(result) != 7 {
		t.Fatalf("got %s, want 7", result)
	}
}

// There is no surface syntax for spawning a future (spec.md names the
// opcodes at the LIR level only), so this builds the cells by hand the
// way jit_test.go's NotEligible tests do.
func TestMakeFutureAndAwaitRoundTripThroughAGoroutine(t *testing.T) {
	answer := &lir.Cell{
		Name:    "answer",
		NumRegs: 1,
		Code: []lir.Instruction{
			lir.ABx(lir.OpLoadK, 0, 0),
			lir.ABC(lir.OpReturn, 0, 2, 0),
		},
		Constants: []lir.Constant{lir.IntConst(42)},
	}
	driver := &lir.Cell{
		Name:    "driver",
		NumRegs: 2,
		Code: []lir.Instruction{
			lir.ABx(lir.OpClosure, 0, 0),
			lir.ABC(lir.OpMakeFuture, 1, 0, 0),
			lir.ABC(lir.OpAwait, 1, 1, 0),
			lir.ABC(lir.OpReturn, 1, 2, 0),
		},
		Constants: []lir.Constant{lir.StringConst("answer")},
	}
	mod := lir.NewModule("", []*lir.Cell{answer, driver}, -1)
	v := New(mod)

	result, err := v.Run("driver", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsInt() || unboxInt(result) != 42 {
		t.Fatalf("got %s, want 42", result)
	}
}

func TestAwaitOfNonFutureValueIsRuntimeError(t *testing.T) {
	driver := &lir.Cell{
		Name:    "driver",
		NumRegs: 1,
		Code: []lir.Instruction{
			lir.ABx(lir.OpLoadK, 0, 0),
			lir.ABC(lir.OpAwait, 0, 0, 0),
			lir.ABC(lir.OpReturn, 0, 2, 0),
		},
		Constants: []lir.Constant{lir.IntConst(7)},
	}
	mod := lir.NewModule("", []*lir.Cell{driver}, -1)
	v := New(mod)

	if _, err := v.Run("driver", nil); err == nil {
		t.Fatalf("expected an error awaiting a non-future value")
	}
}

func TestRunTailCallDoesNotGrowCallDepth(t *testing.T) {
	v := compileSrc(t, "cell loopDown(n: Int) -> Int\n  if n <= 0\n    return 0\n  else\n    return loopDown(n - 1)\n  end\nend\n")
	result, err := v.Run("loopDown", []Value{boxInt(maxCallDepth * 3)})
	if err != nil {
		t.Fatalf("expected tail-call elimination to avoid call-depth exhaustion, got: %v", err)
	}
	if !result.IsInt() || unboxInt(result) != 0 {
		t.Fatalf("got %s, want 0", result)
	}
}
