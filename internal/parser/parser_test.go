package parser

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/lexer"
)

func parseSrc(t *testing.T, src string) (*ast.Program, []error) {
	t.Helper()
	toks, err := lexer.New(src, 1, 0).Lex()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	return Parse(toks)
}

func TestParseSimpleCell(t *testing.T) {
	prog, errs := parseSrc(t, "cell main() -> Int\n  return 40 + 2\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(prog.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(prog.Items))
	}
	cell, ok := prog.Items[0].(*ast.CellDef)
	if !ok {
		t.Fatalf("expected *ast.CellDef, got %T", prog.Items[0])
	}
	if cell.Name != "main" {
		t.Errorf("expected cell name 'main', got %q", cell.Name)
	}
	if len(cell.Body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(cell.Body))
	}
	ret, ok := cell.Body[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("expected *ast.ReturnStmt, got %T", cell.Body[0])
	}
	bin, ok := ret.Value.(*ast.BinOp)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected a '+' BinOp, got %+v", ret.Value)
	}
}

func TestParseRecordWithWhereClause(t *testing.T) {
	prog, errs := parseSrc(t, "record Box\n  value: Int where value > 0\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	rec, ok := prog.Items[0].(*ast.RecordDef)
	if !ok {
		t.Fatalf("expected *ast.RecordDef, got %T", prog.Items[0])
	}
	if len(rec.Fields) != 1 || rec.Fields[0].Where == nil {
		t.Fatalf("expected a field with a where-clause, got %+v", rec.Fields)
	}
}

func TestParseGenericRecord(t *testing.T) {
	prog, errs := parseSrc(t, "record Box[T]\n  value: T\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	rec := prog.Items[0].(*ast.RecordDef)
	if len(rec.TypeParams) != 1 || rec.TypeParams[0] != "T" {
		t.Fatalf("expected type param T, got %+v", rec.TypeParams)
	}
}

func TestParseEnumWithPayload(t *testing.T) {
	prog, errs := parseSrc(t, "enum Shape\n  Circle(Float)\n  Square(Float)\n  Empty\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	en := prog.Items[0].(*ast.EnumDef)
	if len(en.Variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(en.Variants))
	}
	if en.Variants[0].Payload == nil {
		t.Errorf("expected Circle to carry a payload type")
	}
	if en.Variants[2].Payload != nil {
		t.Errorf("expected Empty to be a unit variant")
	}
}

func TestParseIfElse(t *testing.T) {
	prog, errs := parseSrc(t, "cell f(x: Int) -> Int\n  if x > 0\n    return 1\n  else\n    return 0\n  end\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	cell := prog.Items[0].(*ast.CellDef)
	ifStmt, ok := cell.Body[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected *ast.IfStmt, got %T", cell.Body[0])
	}
	if len(ifStmt.Then) != 1 || len(ifStmt.Else) != 1 {
		t.Fatalf("expected one statement per branch, got then=%d else=%d", len(ifStmt.Then), len(ifStmt.Else))
	}
}

func TestParseForLoop(t *testing.T) {
	prog, errs := parseSrc(t, "cell f() -> Int\n  for x in items\n    return x\n  end\n  return 0\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	cell := prog.Items[0].(*ast.CellDef)
	forStmt, ok := cell.Body[0].(*ast.ForStmt)
	if !ok {
		t.Fatalf("expected *ast.ForStmt, got %T", cell.Body[0])
	}
	if forStmt.Var != "x" {
		t.Errorf("expected loop var 'x', got %q", forStmt.Var)
	}
}

func TestParseMatchEnum(t *testing.T) {
	src := "cell f(s: Shape) -> Int\n  match s\n    Shape.Circle(r) ->\n      return 1\n    Shape.Square(side) ->\n      return 2\n    _ ->\n      return 0\n  end\nend\n"
	prog, errs := parseSrc(t, src)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	cell := prog.Items[0].(*ast.CellDef)
	match, ok := cell.Body[0].(*ast.MatchStmt)
	if !ok {
		t.Fatalf("expected *ast.MatchStmt, got %T", cell.Body[0])
	}
	if len(match.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(match.Arms))
	}
	vp, ok := match.Arms[0].Pattern.(*ast.VariantPattern)
	if !ok || vp.Enum != "Shape" || vp.Variant != "Circle" || vp.Bind != "r" {
		t.Fatalf("unexpected first arm pattern: %+v", match.Arms[0].Pattern)
	}
	if _, ok := match.Arms[2].Pattern.(*ast.WildcardPattern); !ok {
		t.Fatalf("expected wildcard pattern in final arm, got %T", match.Arms[2].Pattern)
	}
}

func TestParseCallArguments(t *testing.T) {
	prog, errs := parseSrc(t, "cell main() -> Int\n  return add(1, y: 2)\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	cell := prog.Items[0].(*ast.CellDef)
	ret := cell.Body[0].(*ast.ReturnStmt)
	call, ok := ret.Value.(*ast.Call)
	if !ok {
		t.Fatalf("expected *ast.Call, got %T", ret.Value)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(call.Args))
	}
	if call.Args[0].Kind != ast.ArgPositional {
		t.Errorf("expected first arg positional")
	}
	if call.Args[1].Kind != ast.ArgNamed || call.Args[1].Name != "y" {
		t.Errorf("expected second arg named 'y', got %+v", call.Args[1])
	}
}

func TestParseRecordLiteral(t *testing.T) {
	prog, errs := parseSrc(t, "cell main() -> Box\n  return Box(value: 1)\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	cell := prog.Items[0].(*ast.CellDef)
	ret := cell.Body[0].(*ast.ReturnStmt)
	lit, ok := ret.Value.(*ast.RecordLit)
	if !ok || lit.Name != "Box" {
		t.Fatalf("expected RecordLit Box, got %+v", ret.Value)
	}
	if len(lit.Fields) != 1 || lit.Fields[0].Name != "value" {
		t.Fatalf("unexpected fields: %+v", lit.Fields)
	}
}

func TestParseStringInterpolation(t *testing.T) {
	prog, errs := parseSrc(t, "cell main() -> String\n  return \"hi {name}\"\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	cell := prog.Items[0].(*ast.CellDef)
	ret := cell.Body[0].(*ast.ReturnStmt)
	str, ok := ret.Value.(*ast.StringLit)
	if !ok {
		t.Fatalf("expected *ast.StringLit, got %T", ret.Value)
	}
	if len(str.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", str.Segments)
	}
	if str.Segments[0].Literal != "hi " {
		t.Errorf("unexpected first segment: %+v", str.Segments[0])
	}
	id, ok := str.Segments[1].Expr.(*ast.Ident)
	if !ok || id.Name != "name" {
		t.Fatalf("expected interpolated Ident 'name', got %+v", str.Segments[1].Expr)
	}
}

func TestParseNullSafeOperators(t *testing.T) {
	prog, errs := parseSrc(t, "cell main() -> Int\n  return a?.b ?? c\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	cell := prog.Items[0].(*ast.CellDef)
	ret := cell.Body[0].(*ast.ReturnStmt)
	coalesce, ok := ret.Value.(*ast.NullCoalesce)
	if !ok {
		t.Fatalf("expected *ast.NullCoalesce, got %T", ret.Value)
	}
	dot, ok := coalesce.Left.(*ast.DotAccess)
	if !ok || !dot.Safe || dot.Field != "b" {
		t.Fatalf("expected safe dot access to field 'b', got %+v", coalesce.Left)
	}
}

func TestParseUseToolAndGrant(t *testing.T) {
	prog, errs := parseSrc(t, "use tool http as web\ngrant network\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	ut, ok := prog.Items[0].(*ast.UseToolDef)
	if !ok || ut.Tool != "http" || ut.Alias != "web" {
		t.Fatalf("unexpected UseToolDef: %+v", prog.Items[0])
	}
	grant, ok := prog.Items[1].(*ast.GrantDef)
	if !ok || grant.Capability != "network" {
		t.Fatalf("unexpected GrantDef: %+v", prog.Items[1])
	}
}

func TestParseGenericArityErrorRecovers(t *testing.T) {
	_, errs := parseSrc(t, "record Box[T]\n  value: T\nend\n\ncell main() -> Box\n  return Box(value:1)\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors (arity is a typecheck concern, not a parse error): %v", errs)
	}
}

func TestParseEffectRow(t *testing.T) {
	prog, errs := parseSrc(t, "cell f() -> Int /{http, fs}\n  return 1\nend\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	cell := prog.Items[0].(*ast.CellDef)
	if len(cell.Effects) != 2 || cell.Effects[0] != "http" || cell.Effects[1] != "fs" {
		t.Fatalf("unexpected effect row: %+v", cell.Effects)
	}
}

func TestParseMalformedItemRecovers(t *testing.T) {
	prog, errs := parseSrc(t, "???\ncell fine() -> Int\n  return 1\nend\n")
	if len(errs) == 0 {
		t.Fatalf("expected at least one error from the malformed leading tokens")
	}
	found := false
	for _, item := range prog.Items {
		if c, ok := item.(*ast.CellDef); ok && c.Name == "fine" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected parser to recover and still find cell 'fine', items: %+v", prog.Items)
	}
}
