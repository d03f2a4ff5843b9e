package lower

import (
	"testing"

	"lumen/internal/lexer"
	"lumen/internal/lir"
	"lumen/internal/parser"
	"lumen/internal/resolver"
)

func lowerSrc(t *testing.T, src string) (*lir.Module, []error) {
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
	return Module(prog, syms, src)
}

func TestLowerSimpleCellHasNoErrors(t *testing.T) {
	src := "cell add(a: Int, b: Int) -> Int\n  return a + b\nend\n"
	mod, errs := lowerSrc(t, src)
	if len(errs) != 0 {
		t.Fatalf("unexpected lowering errors: %v", errs)
	}
	c := mod.CellByName("add")
	if c == nil {
		t.Fatalf("expected a cell named add")
	}
	if c.Arity != 2 {
		t.Fatalf("expected arity 2, got %d", c.Arity)
	}
	last := c.Code[len(c.Code)-2]
	if last.Op != lir.OpReturn {
		t.Fatalf("expected the value-returning Return before the implicit trailing one, got %s", last.Op)
	}
}

func TestLowerTailCallEmitsTailCall(t *testing.T) {
	src := "cell f(n: Int) -> Int\n  return g(n)\nend\ncell g(n: Int) -> Int\n  return n\nend\n"
	mod, errs := lowerSrc(t, src)
	if len(errs) != 0 {
		t.Fatalf("unexpected lowering errors: %v", errs)
	}
	c := mod.CellByName("f")
	found := false
	for _, instr := range c.Code {
		if instr.Op == lir.OpTailCall {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a TailCall instruction, got %v", c.Code)
	}
}

func TestLowerIfBranchesBothPatchToSamePoint(t *testing.T) {
	src := "cell f(x: Int) -> Int\n  if x > 0\n    return 1\n  else\n    return 0\n  end\nend\n"
	mod, errs := lowerSrc(t, src)
	if len(errs) != 0 {
		t.Fatalf("unexpected lowering errors: %v", errs)
	}
	c := mod.CellByName("f")
	sawJmp := false
	for _, instr := range c.Code {
		if instr.Op == lir.OpJmp {
			sawJmp = true
		}
	}
	if !sawJmp {
		t.Fatalf("expected at least one Jmp patched around the else branch")
	}
}

func TestLowerWhileLoopBacksEdgeToStart(t *testing.T) {
	src := "cell f() -> Int\n  let i = 0\n  while i < 10\n    i = i + 1\n  end\n  return i\nend\n"
	mod, errs := lowerSrc(t, src)
	if len(errs) != 0 {
		t.Fatalf("unexpected lowering errors: %v", errs)
	}
	c := mod.CellByName("f")
	jmps := 0
	for _, instr := range c.Code {
		if instr.Op == lir.OpJmp {
			jmps++
		}
	}
	if jmps < 2 {
		t.Fatalf("expected a back-edge jump and an exit jump, got %d Jmp instructions", jmps)
	}
}

func TestLowerConstantsAreDeduplicated(t *testing.T) {
	src := "cell f() -> Int\n  let a = 5\n  let b = 5\n  return a + b\nend\n"
	mod, errs := lowerSrc(t, src)
	if len(errs) != 0 {
		t.Fatalf("unexpected lowering errors: %v", errs)
	}
	c := mod.CellByName("f")
	count := 0
	for _, k := range c.Constants {
		if k.Kind == lir.ConstInt && k.Int == 5 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected the literal 5 de-duplicated to one constant-pool slot, got %d", count)
	}
}

func TestLowerModuleVersionMatchesRuntime(t *testing.T) {
	mod, _ := lowerSrc(t, "cell f() -> Int\n  return 1\nend\n")
	if err := mod.CheckVersion(); err != nil {
		t.Fatalf("expected a freshly lowered module to pass its own version check: %v", err)
	}
}
