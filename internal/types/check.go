package types

import (
	"sort"

	"lumen/internal/ast"
	"lumen/internal/constraint"
	"lumen/internal/resolver"
	"lumen/internal/span"
)

// scope is a parent-linked set of local bindings, mirroring the resolver's
// own scope shape but carrying a Type per name instead of presence alone.
type scope struct {
	vars   map[string]Type
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]Type), parent: parent}
}

func (s *scope) set(name string, t Type) { s.vars[name] = t }

func (s *scope) get(name string) (Type, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return Type{}, false
}

// Checker runs bidirectional inference over a resolved program (spec.md
// §4.5), translating the original compiler's infer_expr/check_stmt split
// (rust/lumen-compiler/src/compiler/typecheck.rs) into Go, generalized to
// the fuller Type variant set (Set, Tuple, Generic, Fn, TypeRef) and the
// additional contracts (generics, GADTs, traits, effect rows) spec.md §4.5
// adds on top of that original.
type Checker struct {
	syms *resolver.SymbolTable
	errs []error
}

// Check typechecks every cell, process, and trait impl in prog, returning
// every independent error found.
func Check(prog *ast.Program, syms *resolver.SymbolTable) []error {
	c := &Checker{syms: syms}
	for _, item := range prog.Items {
		switch it := item.(type) {
		case *ast.CellDef:
			c.checkCellDef(it)
		case *ast.ProcessDef:
			c.checkCellLike("process "+it.Name, nil, it.Params, nil, it.Effects, it.Body)
		case *ast.ImplDef:
			c.checkImpl(it)
		}
	}
	return c.errs
}

func (c *Checker) errorf(e *Error) { c.errs = append(c.errs, e) }

// resolveTypeExpr turns a parsed TypeExpr into a resolved Type, validating
// generic arity against the declared type-parameter count of any named
// record/enum it refers to (spec.md §8 scenario 4: `Box` used where `Box[T]`
// is required reports GenericArityMismatch{expected:1, actual:0}).
func (c *Checker) resolveTypeExpr(t ast.TypeExpr, typeParams map[string]bool) Type {
	switch tt := t.(type) {
	case *ast.NamedType:
		if typeParams[tt.Name] {
			return Generic(tt.Name)
		}
		return c.resolveNamed(tt.Name, nil, tt.Span())
	case *ast.GenericType:
		if typeParams[tt.Name] {
			return Generic(tt.Name)
		}
		args := make([]Type, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = c.resolveTypeExpr(a, typeParams)
		}
		return c.resolveNamed(tt.Name, args, tt.Span())
	case *ast.ListType:
		return List(c.resolveTypeExpr(tt.Elem, typeParams))
	case *ast.SetType:
		return Set(c.resolveTypeExpr(tt.Elem, typeParams))
	case *ast.MapType:
		return Map(c.resolveTypeExpr(tt.Key, typeParams), c.resolveTypeExpr(tt.Value, typeParams))
	case *ast.TupleType:
		elems := make([]Type, len(tt.Elems))
		for i, e := range tt.Elems {
			elems[i] = c.resolveTypeExpr(e, typeParams)
		}
		return Tuple(elems)
	case *ast.ResultType:
		return Result(c.resolveTypeExpr(tt.Ok, typeParams), c.resolveTypeExpr(tt.Err, typeParams))
	case *ast.UnionType:
		alts := make([]Type, len(tt.Alternatives))
		for i, a := range tt.Alternatives {
			alts[i] = c.resolveTypeExpr(a, typeParams)
		}
		return Union(alts)
	case *ast.NullType:
		inner := c.resolveTypeExpr(tt.Inner, typeParams)
		return Union([]Type{inner, Null})
	case *ast.FnType:
		params := make([]Type, len(tt.Params))
		for i, p := range tt.Params {
			params[i] = c.resolveTypeExpr(p, typeParams)
		}
		ret := Any
		if tt.Return != nil {
			ret = c.resolveTypeExpr(tt.Return, typeParams)
		}
		return Fn(params, ret, tt.Effects)
	default:
		return Any
	}
}

var builtinByName = map[string]Type{
	"String": String, "Int": Int, "Float": Float, "Bool": Bool,
	"Bytes": Bytes, "Json": Json, "Null": Null, "Any": Any,
}

func (c *Checker) resolveNamed(name string, args []Type, sp span.Span) Type {
	if t, ok := builtinByName[name]; ok {
		return t
	}
	sym, ok := c.syms.Types[name]
	if !ok {
		return Any // already a Resolve error; don't cascade a second diagnostic
	}
	want := len(sym.TypeParams)
	if want != len(args) {
		c.errorf(&Error{Kind: GenericArityMismatch, Span: sp, Name: name, Expected: itoa(want), Actual: itoa(len(args))})
	}
	if want == 0 {
		if sym.Kind == resolver.EnumType {
			return Enum(name)
		}
		return Record(name)
	}
	return TypeRef(name, args)
}

func itoa(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{digits[n%10]}, b...)
		n /= 10
	}
	return string(b)
}

func (c *Checker) checkCellDef(cell *ast.CellDef) {
	ret := c.checkCellLike(cell.Name, cell.TypeParams, cell.Params, cell.Return, cell.Effects, cell.Body)
	if cell.Return != nil && !Equal(ret, Null) && !hasReturnOnAllPaths(cell.Body) {
		c.errorf(&Error{Kind: MissingReturn, Span: cell.Span(), Name: cell.Name})
	}
}

// checkCellLike typechecks one cell-shaped body (cell, process, or impl
// method) and returns its resolved return type.
func (c *Checker) checkCellLike(name string, typeParams []string, params []ast.Param, retExpr ast.TypeExpr, effects []string, body []ast.Stmt) Type {
	tp := typeParamSet(typeParams)
	sc := newScope(nil)
	for _, p := range params {
		sc.set(p.Name, c.resolveTypeExpr(p.Type, tp))
	}
	ret := Any
	if retExpr != nil {
		ret = c.resolveTypeExpr(retExpr, tp)
	}
	ctx := &cellCtx{name: name, ret: ret, effects: effects, refine: constraint.NewRefinementContext()}
	for _, s := range body {
		c.checkStmt(s, sc, ctx)
	}
	return ret
}

func typeParamSet(params []string) map[string]bool {
	m := make(map[string]bool, len(params))
	for _, p := range params {
		m[p] = true
	}
	return m
}

// cellCtx carries the enclosing cell's declared return type and effect row
// through statement/expression checking, mirroring the original compiler's
// use of `self` fields for per-cell state.
type cellCtx struct {
	name    string
	ret     Type
	effects []string // declared; nil means inferred (any callee effect is allowed)

	// refine tracks path-sensitive facts about variables accumulated so
	// far in this cell (spec.md §4.6). It is threaded through statement
	// checking by value-replacement at each if/else join, never shared
	// between sibling branches.
	refine *constraint.RefinementContext
}

// withRefine returns a shallow copy of ctx with its refinement context
// replaced, used to give each branch of an if its own fact set without
// disturbing the parent's.
func (ctx *cellCtx) withRefine(r *constraint.RefinementContext) *cellCtx {
	cp := *ctx
	cp.refine = r
	return &cp
}

func (c *Checker) checkStmt(stmt ast.Stmt, sc *scope, ctx *cellCtx) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		vt := c.inferExpr(s.Value, sc, ctx)
		if s.Type != nil {
			ann := c.resolveTypeExpr(s.Type, typeParamSet(nil))
			c.checkCompat(ann, vt, s.Span())
		}
		sc.set(s.Name, vt)
	case *ast.IfStmt:
		ct := c.inferExpr(s.Cond, sc, ctx)
		c.checkCompat(Bool, ct, s.Cond.Span())
		c.checkIf(s, sc, ctx)
	case *ast.ForStmt:
		it := c.inferExpr(s.Seq, sc, ctx)
		elem := Any
		if it.Kind == KList || it.Kind == KSet {
			elem = *it.Elem
		} else if !it.IsAny() {
			c.errorf(&Error{Kind: Mismatch, Span: s.Seq.Span(), Expected: "list[T]", Actual: it.String()})
		}
		inner := newScope(sc)
		inner.set(s.Var, elem)
		c.checkStmts(s.Body, inner, ctx)
	case *ast.WhileStmt:
		ct := c.inferExpr(s.Cond, sc, ctx)
		c.checkCompat(Bool, ct, s.Cond.Span())
		c.checkStmts(s.Body, newScope(sc), ctx)
	case *ast.MatchStmt:
		c.checkMatch(s, sc, ctx)
	case *ast.ReturnStmt:
		if s.Value != nil {
			vt := c.inferExpr(s.Value, sc, ctx)
			c.checkCompat(ctx.ret, vt, s.Span())
		}
	case *ast.HaltStmt:
		c.inferExpr(s.Value, sc, ctx)
	case *ast.AssignStmt:
		tt := c.inferExpr(s.Target, sc, ctx)
		vt := c.inferExpr(s.Value, sc, ctx)
		c.checkCompat(tt, vt, s.Span())
	case *ast.ExprStmt:
		c.inferExpr(s.Value, sc, ctx)
	}
}

// checkIf type-checks both arms of an if statement under path-sensitive
// refinement (spec.md §4.6): the then-branch inherits ctx's facts refined
// by the condition, the else (or implicit fall-through) by its negation,
// and the two are merged conservatively back into ctx once both are
// checked. When the condition cannot be lowered to a Constraint (a call,
// a field access, a disjunction not worth decomposing) refinement is
// skipped and both branches just inherit ctx's facts unchanged.
func (c *Checker) checkIf(s *ast.IfStmt, sc *scope, ctx *cellCtx) {
	cond, err := constraint.LowerExpr(s.Cond)
	if err != nil {
		c.checkStmts(s.Then, newScope(sc), ctx)
		if s.Else != nil {
			c.checkStmts(s.Else, newScope(sc), ctx)
		}
		return
	}

	if ctx.refine.Implies(cond) == constraint.Unsat {
		c.errorf(&Error{Kind: RedundantCondition, Span: s.Cond.Span(), Extra: "always true"})
	} else if ctx.refine.Implies(constraint.Negate(cond)) == constraint.Unsat {
		c.errorf(&Error{Kind: RedundantCondition, Span: s.Cond.Span(), Extra: "always false"})
	}

	thenCtx := ctx.withRefine(ctx.refine.Clone())
	thenCtx.refine.RefineFromCondition(cond)
	c.checkStmts(s.Then, newScope(sc), thenCtx)

	elseCtx := ctx.withRefine(ctx.refine.Clone())
	elseCtx.refine.RefineFromCondition(constraint.Not(cond))
	if s.Else != nil {
		c.checkStmts(s.Else, newScope(sc), elseCtx)
	}

	ctx.refine = constraint.MergeRefinements(thenCtx.refine, elseCtx.refine)
}

func (c *Checker) checkStmts(stmts []ast.Stmt, sc *scope, ctx *cellCtx) {
	for _, s := range stmts {
		c.checkStmt(s, sc, ctx)
	}
}

func (c *Checker) checkMatch(s *ast.MatchStmt, sc *scope, ctx *cellCtx) {
	subj := c.inferExpr(s.Subject, sc, ctx)
	matched := make(map[string]bool)
	hasWildcard := false
	for _, arm := range s.Arms {
		inner := newScope(sc)
		switch pat := arm.Pattern.(type) {
		case *ast.WildcardPattern:
			hasWildcard = true
		case *ast.BindPattern:
			hasWildcard = true
			inner.set(pat.Name, subj)
		case *ast.VariantPattern:
			matched[pat.Variant] = true
			payload := Any
			if subj.Kind == KEnum {
				if sym, ok := c.syms.Types[subj.Name]; ok {
					if ed, ok := sym.Def.(*ast.EnumDef); ok {
						for _, v := range ed.Variants {
							if v.Name == pat.Variant && v.Payload != nil {
								payload = c.resolveTypeExpr(v.Payload, typeParamSet(ed.TypeParams))
							}
						}
					}
				}
			}
			if pat.Bind != "" {
				inner.set(pat.Bind, payload)
			}
		case *ast.LiteralPattern:
			c.inferExpr(pat.Value, inner, ctx)
		}
		c.checkStmts(arm.Body, inner, ctx)
	}
	if subj.Kind == KEnum && !hasWildcard {
		if sym, ok := c.syms.Types[subj.Name]; ok {
			if ed, ok := sym.Def.(*ast.EnumDef); ok {
				var missing []string
				for _, v := range ed.Variants {
					if !matched[v.Name] {
						missing = append(missing, v.Name)
					}
				}
				if len(missing) > 0 {
					sort.Strings(missing)
					c.errorf(&Error{Kind: NonExhaustiveMatch, Span: s.Span(), Name: subj.Name, Extra: joinComma(missing)})
				}
			}
		}
	}
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func (c *Checker) checkCompat(expected, actual Type, sp span.Span) {
	if expected.IsAny() || actual.IsAny() {
		return
	}
	if !Equal(expected, actual) {
		c.errorf(&Error{Kind: Mismatch, Span: sp, Expected: expected.String(), Actual: actual.String()})
	}
}

func (c *Checker) inferExpr(e ast.Expr, sc *scope, ctx *cellCtx) Type {
	switch ex := e.(type) {
	case *ast.IntLit:
		return Int
	case *ast.FloatLit:
		return Float
	case *ast.StringLit:
		for _, seg := range ex.Segments {
			if seg.Expr != nil {
				c.inferExpr(seg.Expr, sc, ctx)
			}
		}
		return String
	case *ast.BoolLit:
		return Bool
	case *ast.NullLit:
		return Null
	case *ast.Ident:
		if t, ok := sc.get(ex.Name); ok {
			return t
		}
		if _, ok := c.syms.Cells[ex.Name]; ok {
			return Any
		}
		if _, ok := c.syms.Tools[ex.Name]; ok {
			return Any
		}
		if cs, ok := c.syms.Consts[ex.Name]; ok {
			if cs.Type != nil {
				return c.resolveTypeExpr(cs.Type, typeParamSet(nil))
			}
			return Any
		}
		c.errorf(&Error{Kind: UndefinedVar, Span: ex.Span(), Name: ex.Name})
		return Any
	case *ast.ListLit:
		if len(ex.Elems) == 0 {
			return List(Any)
		}
		first := c.inferExpr(ex.Elems[0], sc, ctx)
		for _, el := range ex.Elems[1:] {
			c.inferExpr(el, sc, ctx)
		}
		return List(first)
	case *ast.SetLit:
		if len(ex.Elems) == 0 {
			return Set(Any)
		}
		first := c.inferExpr(ex.Elems[0], sc, ctx)
		for _, el := range ex.Elems[1:] {
			c.inferExpr(el, sc, ctx)
		}
		return Set(first)
	case *ast.MapLit:
		if len(ex.Entries) == 0 {
			return Map(String, Any)
		}
		kt := c.inferExpr(ex.Entries[0].Key, sc, ctx)
		vt := c.inferExpr(ex.Entries[0].Value, sc, ctx)
		for _, entry := range ex.Entries[1:] {
			c.inferExpr(entry.Key, sc, ctx)
			c.inferExpr(entry.Value, sc, ctx)
		}
		return Map(kt, vt)
	case *ast.TupleLit:
		elems := make([]Type, len(ex.Elems))
		for i, el := range ex.Elems {
			elems[i] = c.inferExpr(el, sc, ctx)
		}
		return Tuple(elems)
	case *ast.RecordLit:
		return c.inferRecordLit(ex, sc, ctx)
	case *ast.BinOp:
		return c.inferBinOp(ex, sc, ctx)
	case *ast.UnaryOp:
		t := c.inferExpr(ex.Operand, sc, ctx)
		if ex.Op == "not" {
			return Bool
		}
		return t
	case *ast.Call:
		return c.inferCall(ex, sc, ctx)
	case *ast.ToolCall:
		for _, a := range ex.Args {
			c.inferExpr(a.Value, sc, ctx)
		}
		return Any
	case *ast.DotAccess:
		return c.inferDotAccess(ex, sc, ctx)
	case *ast.IndexAccess:
		ot := c.inferExpr(ex.Target, sc, ctx)
		c.inferExpr(ex.Index, sc, ctx)
		switch ot.Kind {
		case KList, KSet:
			return *ot.Elem
		case KMap:
			return *ot.Value
		default:
			return Any
		}
	case *ast.NullCoalesce:
		lt := c.inferExpr(ex.Left, sc, ctx)
		c.inferExpr(ex.Right, sc, ctx)
		if lt.Kind == KUnion && len(lt.Alternatives) == 2 {
			for _, a := range lt.Alternatives {
				if !Equal(a, Null) {
					return a
				}
			}
		}
		return Any
	case *ast.ForceUnwrap:
		t := c.inferExpr(ex.Operand, sc, ctx)
		if t.Kind == KUnion && len(t.Alternatives) == 2 {
			for _, a := range t.Alternatives {
				if !Equal(a, Null) {
					return a
				}
			}
		}
		return t
	case *ast.RoleBlock:
		c.checkStmts(ex.Body, newScope(sc), ctx)
		return String
	case *ast.ExpectSchema:
		c.inferExpr(ex.Value, sc, ctx)
		if _, ok := c.syms.Types[exprSchemaName(ex.Schema)]; ok {
			return Record(exprSchemaName(ex.Schema))
		}
		return Any
	case *ast.TryExpr:
		vt := c.inferExpr(ex.Value, sc, ctx)
		if vt.Kind == KResult {
			return *vt.Ok
		}
		return vt
	default:
		return Any
	}
}

func exprSchemaName(e ast.Expr) string {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func (c *Checker) inferRecordLit(ex *ast.RecordLit, sc *scope, ctx *cellCtx) Type {
	for _, f := range ex.Fields {
		c.inferExpr(f.Value, sc, ctx)
	}
	sym, ok := c.syms.Types[ex.Name]
	if !ok {
		return Any
	}
	rd, ok := sym.Def.(*ast.RecordDef)
	if !ok {
		return Record(ex.Name)
	}
	tp := typeParamSet(rd.TypeParams)
	have := make(map[string]bool, len(ex.Fields))
	for _, f := range ex.Fields {
		have[f.Name] = true
		var decl *ast.Field
		for i := range rd.Fields {
			if rd.Fields[i].Name == f.Name {
				decl = &rd.Fields[i]
				break
			}
		}
		if decl == nil {
			c.errorf(&Error{Kind: UnknownField, Span: f.Value.Span(), Name: f.Name, Expected: ex.Name})
			continue
		}
		ft := c.resolveTypeExpr(decl.Type, tp)
		vt := c.inferExpr(f.Value, sc, ctx)
		c.checkCompat(ft, vt, f.Value.Span())
	}
	for _, decl := range rd.Fields {
		if !have[decl.Name] {
			c.errorf(&Error{Kind: UnknownField, Span: ex.Span(), Name: decl.Name, Expected: ex.Name})
		}
	}
	if len(rd.TypeParams) == 0 {
		return Record(ex.Name)
	}
	args := make([]Type, len(rd.TypeParams))
	for i := range args {
		args[i] = Any
	}
	return TypeRef(ex.Name, args)
}

func (c *Checker) inferBinOp(ex *ast.BinOp, sc *scope, ctx *cellCtx) Type {
	lt := c.inferExpr(ex.Left, sc, ctx)
	rt := c.inferExpr(ex.Right, sc, ctx)
	switch ex.Op {
	case "+", "-", "*", "/", "%":
		if ex.Op == "+" && lt.Kind == KString {
			// Left-operand promotion only (spec.md §9 open question (b)).
			return String
		}
		if lt.Kind == KFloat || rt.Kind == KFloat {
			return Float
		}
		return Int
	case "==", "!=", "<", "<=", ">", ">=", "and", "or":
		return Bool
	default:
		return Any
	}
}

func (c *Checker) inferDotAccess(ex *ast.DotAccess, sc *scope, ctx *cellCtx) Type {
	ot := c.inferExpr(ex.Target, sc, ctx)
	base := ot
	if base.Kind == KUnion {
		for _, a := range base.Alternatives {
			if !Equal(a, Null) {
				base = a
				break
			}
		}
	}
	if base.Kind != KRecord && base.Kind != KTypeRef {
		return Any
	}
	sym, ok := c.syms.Types[base.Name]
	if !ok {
		return Any
	}
	rd, ok := sym.Def.(*ast.RecordDef)
	if !ok {
		return Any
	}
	for _, f := range rd.Fields {
		if f.Name == ex.Field {
			ft := c.resolveTypeExpr(f.Type, typeParamSet(rd.TypeParams))
			if ex.Safe {
				return Union([]Type{ft, Null})
			}
			return ft
		}
	}
	c.errorf(&Error{Kind: UnknownField, Span: ex.Span(), Name: ex.Field, Expected: base.Name})
	return Any
}

func (c *Checker) inferCall(ex *ast.Call, sc *scope, ctx *cellCtx) Type {
	for _, a := range ex.Args {
		c.inferExpr(a.Value, sc, ctx)
	}
	ident, ok := ex.Callee.(*ast.Ident)
	if !ok {
		t := c.inferExpr(ex.Callee, sc, ctx)
		if t.Kind == KFn {
			return *t.Return
		}
		return Any
	}
	if _, isLocal := sc.get(ident.Name); isLocal {
		return Any // a called local is a closure value; arity is checked at its own definition
	}
	cs, ok := c.syms.Cells[ident.Name]
	if !ok {
		if _, ok := c.syms.Tools[ident.Name]; ok {
			return Any
		}
		return Any // resolver already reported the undefined-name error
	}
	if len(ex.Args) != len(cs.Params) {
		allNamed := true
		for _, a := range ex.Args {
			if a.Kind != ast.ArgNamed {
				allNamed = false
			}
		}
		if !allNamed || len(ex.Args) > len(cs.Params) {
			c.errorf(&Error{Kind: ArgCount, Span: ex.Span(), Name: ident.Name, Expected: itoa(len(cs.Params)), Actual: itoa(len(ex.Args))})
		}
	}
	c.checkEffectContract(ident.Name, cs.Effects, ex.Span(), ctx)
	if cs.Return == nil {
		return Any
	}
	return c.resolveTypeExpr(cs.Return, typeParamSet(cs.TypeParams))
}

// checkEffectContract enforces spec.md §4.5: "a caller's row must be a
// superset of every callee's row." ctx.effects == nil means the caller's
// row is itself inferred (not yet declared), in which case every callee
// effect is provisionally allowed — it becomes part of the caller's own
// inferred row rather than a violation.
func (c *Checker) checkEffectContract(calleeName string, calleeEffects []string, sp span.Span, ctx *cellCtx) {
	if ctx.effects == nil || len(calleeEffects) == 0 {
		return
	}
	have := make(map[string]bool, len(ctx.effects))
	for _, e := range ctx.effects {
		have[e] = true
	}
	var missing []string
	for _, e := range calleeEffects {
		if !have[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) > 0 {
		c.errorf(&Error{Kind: EffectContractViolation, Span: sp, Name: calleeName, Extra: joinComma(missing)})
	}
}

func (c *Checker) checkImpl(impl *ast.ImplDef) {
	trait, ok := c.syms.Traits[impl.Trait]
	if !ok {
		return // already reported by the resolver
	}
	have := make(map[string]bool, len(impl.Methods))
	for _, m := range impl.Methods {
		have[m.Name] = true
		c.checkCellLike(impl.Type+"."+m.Name, m.TypeParams, m.Params, m.Return, m.Effects, m.Body)
	}
	var missing []string
	for name, m := range trait.Methods {
		if m.DefaultBody == nil && !have[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		c.errorf(&Error{Kind: TraitMissingMethods, Span: impl.Span(), Name: impl.Type, Extra: joinComma(missing)})
	}
}

// hasReturnOnAllPaths approximates reachability analysis for spec.md
// §4.5's missing-return check: every path through body must end in a
// `return` or `halt`, where an `if` needs both branches covered and a
// `match` needs every arm covered.
func hasReturnOnAllPaths(body []ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	switch last := body[len(body)-1].(type) {
	case *ast.ReturnStmt, *ast.HaltStmt:
		return true
	case *ast.IfStmt:
		return last.Else != nil && hasReturnOnAllPaths(last.Then) && hasReturnOnAllPaths(last.Else)
	case *ast.MatchStmt:
		if len(last.Arms) == 0 {
			return false
		}
		for _, arm := range last.Arms {
			if !hasReturnOnAllPaths(arm.Body) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
