package resolver

import (
	"testing"

	"lumen/internal/lexer"
	"lumen/internal/parser"
)

func resolveSrc(t *testing.T, src string) (*SymbolTable, []error) {
	t.Helper()
	toks, err := lexer.New(src, 1, 0).Lex()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, perrs := parser.Parse(toks)
	if len(perrs) != 0 {
		t.Fatalf("unexpected parse errors: %v", perrs)
	}
	return Resolve(prog)
}

func TestBuiltinsPreRegistered(t *testing.T) {
	syms, errs := resolveSrc(t, "cell main() -> Int\n  return 1\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	for _, name := range builtinNames {
		if _, ok := syms.Types[name]; !ok {
			t.Errorf("expected builtin %q to be pre-registered", name)
		}
	}
}

func TestDuplicateCellIsError(t *testing.T) {
	_, errs := resolveSrc(t, "cell f() -> Int\n  return 1\nend\ncell f() -> Int\n  return 2\nend\n")
	if len(errs) != 1 {
		t.Fatalf("expected exactly one duplicate error, got %v", errs)
	}
}

func TestTypeAndCellNamespacesAreSeparate(t *testing.T) {
	_, errs := resolveSrc(t, "record Box\n  value: Int\nend\ncell Box() -> Int\n  return 1\nend\n")
	if len(errs) != 0 {
		t.Fatalf("a record and a cell sharing a name are different namespaces: %v", errs)
	}
}

func TestForwardReferenceIsLegal(t *testing.T) {
	_, errs := resolveSrc(t, "cell a() -> Int\n  return b()\nend\ncell b() -> Int\n  return 1\nend\n")
	if len(errs) != 0 {
		t.Fatalf("forward reference within a module must resolve: %v", errs)
	}
}

func TestUndefinedTypeIsResolveError(t *testing.T) {
	_, errs := resolveSrc(t, "cell f() -> Bogus\n  return 1\nend\n")
	if len(errs) != 1 {
		t.Fatalf("expected exactly one undefined-type error, got %v", errs)
	}
}

func TestUndefinedCallTargetIsResolveError(t *testing.T) {
	_, errs := resolveSrc(t, "cell f() -> Int\n  return g()\nend\n")
	if len(errs) != 1 {
		t.Fatalf("expected exactly one undefined-call error, got %v", errs)
	}
}

func TestResolutionContinuesPastErrors(t *testing.T) {
	_, errs := resolveSrc(t, "cell foo() -> UnknownType\n  return 1\nend\ncell bar() -> Int\n  return missing()\nend\n")
	if len(errs) != 2 {
		t.Fatalf("expected both independent errors to be collected, got %v", errs)
	}
}

func TestUseToolAndGrantAreRecorded(t *testing.T) {
	syms, errs := resolveSrc(t, "use tool http as web\ngrant network\ncell f() -> Int\n  return web()\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if syms.Tools["web"] != "http" {
		t.Errorf("expected tool alias web -> http, got %+v", syms.Tools)
	}
	if !syms.Grants["network"] {
		t.Errorf("expected capability grant 'network' recorded")
	}
}

func TestParamsAndLetBindingsResolve(t *testing.T) {
	_, errs := resolveSrc(t, "cell f(x: Int) -> Int\n  let y = x + 1\n  return y\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestMatchArmBindingScopedToArm(t *testing.T) {
	_, errs := resolveSrc(t, "enum Shape\n  Circle(Float)\n  Empty\nend\ncell f(s: Shape) -> Float\n  match s\n    Shape.Circle(r) ->\n      return r\n    _ ->\n      return 0.0\n  end\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestGenericTypeParamInScope(t *testing.T) {
	_, errs := resolveSrc(t, "record Box[T]\n  value: T\nend\n")
	if len(errs) != 0 {
		t.Fatalf("type parameter T should resolve within its own declaration: %v", errs)
	}
}

func TestImplRequiresDeclaredTrait(t *testing.T) {
	_, errs := resolveSrc(t, "impl Show for Box\n  cell show() -> String\n    return \"box\"\n  end\nend\n")
	if len(errs) != 1 {
		t.Fatalf("expected exactly one undeclared-trait error, got %v", errs)
	}
}

func TestRecordLiteralNameMustResolve(t *testing.T) {
	_, errs := resolveSrc(t, "cell f() -> Int\n  let b = Box(value: 1)\n  return 1\nend\n")
	if len(errs) != 1 {
		t.Fatalf("expected exactly one undefined-type error for Box, got %v", errs)
	}
}
