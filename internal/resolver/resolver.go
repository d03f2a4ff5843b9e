// Package resolver builds the symbol table from a parsed program (spec.md
// §4.4): every declared type, cell, tool alias, capability grant, effect,
// trait, and constant, plus the checks that every type reference, call
// target, and local-variable use resolves to something in scope. Resolution
// continues past an error so every independent problem is reported, the
// way the parser's own one-token recovery does.
package resolver

import (
	"fmt"

	"lumen/internal/ast"
	"lumen/internal/span"
)

// Error is one name-resolution diagnostic.
type Error struct {
	Span span.Span
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Span, e.Msg) }

// TypeKind distinguishes where a registered type name came from.
type TypeKind int

const (
	BuiltinType TypeKind = iota
	RecordType
	EnumType
)

// TypeSymbol is a registered type name.
type TypeSymbol struct {
	Kind       TypeKind
	Name       string
	TypeParams []string
	Def        ast.Item // nil for builtins
}

// CellSymbol is a registered cell (or process) signature.
type CellSymbol struct {
	Name       string
	TypeParams []string
	Params     []ast.Param
	Return     ast.TypeExpr
	Effects    []string
	Def        ast.Item // *ast.CellDef or *ast.ProcessDef
}

// EffectSymbol is a registered effect declaration.
type EffectSymbol struct {
	Name   string
	Params []ast.Param
	Return ast.TypeExpr
}

// TraitSymbol is a registered trait and its method signatures.
type TraitSymbol struct {
	Name    string
	Methods map[string]ast.TraitMethod
}

// ConstSymbol is a registered module-level constant.
type ConstSymbol struct {
	Name string
	Type ast.TypeExpr // nil if inferred
	Def  *ast.ConstDef
}

// builtinNames are pre-registered so every program can reference them
// without a corresponding declaration.
var builtinNames = []string{"String", "Int", "Float", "Bool", "Bytes", "Json", "Null", "Any"}

// SymbolTable is the frozen-after-resolution registry spec.md §3 describes.
// Later passes read it but never mutate it.
type SymbolTable struct {
	Types   map[string]*TypeSymbol
	Cells   map[string]*CellSymbol
	Tools   map[string]string // alias -> tool id
	Grants  map[string]bool
	Consts  map[string]*ConstSymbol
	Effects map[string]*EffectSymbol
	Traits  map[string]*TraitSymbol
	Impls   []*ast.ImplDef
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{
		Types:   make(map[string]*TypeSymbol),
		Cells:   make(map[string]*CellSymbol),
		Tools:   make(map[string]string),
		Grants:  make(map[string]bool),
		Consts:  make(map[string]*ConstSymbol),
		Effects: make(map[string]*EffectSymbol),
		Traits:  make(map[string]*TraitSymbol),
	}
}

type resolver struct {
	syms *SymbolTable
	errs []error
}

func (r *resolver) errorf(sp span.Span, format string, args ...any) {
	r.errs = append(r.errs, &Error{Span: sp, Msg: fmt.Sprintf(format, args...)})
}

// Resolve builds the symbol table for prog and checks every type reference,
// call target, and local-variable use. It always returns a usable table,
// even in the presence of errors, so later passes can proceed best-effort
// for error-collection purposes (spec.md §4.14 relies on this: a non-empty
// resolve error list does not prevent typecheck from running).
func Resolve(prog *ast.Program) (*SymbolTable, []error) {
	r := &resolver{syms: newSymbolTable()}
	for _, name := range builtinNames {
		r.syms.Types[name] = &TypeSymbol{Kind: BuiltinType, Name: name}
	}
	r.registerItems(prog.Items)
	r.checkItems(prog.Items)
	return r.syms, r.errs
}

// registerItems is pass one: populate every namespace, flagging duplicates.
// Type and cell namespaces are separate, per spec.md §4.4.
func (r *resolver) registerItems(items []ast.Item) {
	for _, item := range items {
		switch it := item.(type) {
		case *ast.RecordDef:
			r.declareType(it.Name, &TypeSymbol{Kind: RecordType, Name: it.Name, TypeParams: it.TypeParams, Def: it}, it.Span())
		case *ast.EnumDef:
			r.declareType(it.Name, &TypeSymbol{Kind: EnumType, Name: it.Name, TypeParams: it.TypeParams, Def: it}, it.Span())
		case *ast.TypeAliasDef:
			r.declareType(it.Name, &TypeSymbol{Kind: BuiltinType, Name: it.Name, TypeParams: it.TypeParams, Def: it}, it.Span())
		case *ast.CellDef:
			r.declareCell(it.Name, &CellSymbol{Name: it.Name, TypeParams: it.TypeParams, Params: it.Params, Return: it.Return, Effects: it.Effects, Def: it}, it.Span())
		case *ast.ProcessDef:
			r.declareCell(it.Name, &CellSymbol{Name: it.Name, Params: it.Params, Effects: it.Effects, Def: it}, it.Span())
		case *ast.UseToolDef:
			if _, dup := r.syms.Tools[it.Alias]; dup {
				r.errorf(it.Span(), "tool alias %q already in use", it.Alias)
				continue
			}
			r.syms.Tools[it.Alias] = it.Tool
		case *ast.GrantDef:
			r.syms.Grants[it.Capability] = true
		case *ast.ConstDef:
			if _, dup := r.syms.Consts[it.Name]; dup {
				r.errorf(it.Span(), "constant %q already declared", it.Name)
				continue
			}
			r.syms.Consts[it.Name] = &ConstSymbol{Name: it.Name, Type: it.Type, Def: it}
		case *ast.EffectDef:
			if _, dup := r.syms.Effects[it.Name]; dup {
				r.errorf(it.Span(), "effect %q already declared", it.Name)
				continue
			}
			r.syms.Effects[it.Name] = &EffectSymbol{Name: it.Name, Params: it.Params, Return: it.Return}
		case *ast.TraitDef:
			if _, dup := r.syms.Traits[it.Name]; dup {
				r.errorf(it.Span(), "trait %q already declared", it.Name)
				continue
			}
			methods := make(map[string]ast.TraitMethod, len(it.Methods))
			for _, m := range it.Methods {
				methods[m.Name] = m
			}
			r.syms.Traits[it.Name] = &TraitSymbol{Name: it.Name, Methods: methods}
		case *ast.ImplDef:
			r.syms.Impls = append(r.syms.Impls, it)
		case *ast.HandlerDef, *ast.MacroDef:
			// Handlers and macros live outside the type/cell namespaces;
			// handlers are matched to effects by name at dispatch time (§4.12),
			// macros are expanded before resolution would see them.
		}
	}
}

func (r *resolver) declareType(name string, sym *TypeSymbol, sp span.Span) {
	if _, dup := r.syms.Types[name]; dup {
		r.errorf(sp, "type %q already declared", name)
		return
	}
	r.syms.Types[name] = sym
}

func (r *resolver) declareCell(name string, sym *CellSymbol, sp span.Span) {
	if _, dup := r.syms.Cells[name]; dup {
		r.errorf(sp, "cell %q already declared", name)
		return
	}
	r.syms.Cells[name] = sym
}

// checkItems is pass two: every type reference and call target must
// resolve against the table built in pass one (or a construct's own type
// parameters / local scope).
func (r *resolver) checkItems(items []ast.Item) {
	for _, item := range items {
		switch it := item.(type) {
		case *ast.RecordDef:
			scope := newTypeScope(it.TypeParams)
			for _, f := range it.Fields {
				r.checkType(f.Type, scope)
				if f.Where != nil {
					r.checkExpr(f.Where, newScope(nil).withLocal("value"))
				}
			}
		case *ast.EnumDef:
			scope := newTypeScope(it.TypeParams)
			for _, v := range it.Variants {
				if v.Payload != nil {
					r.checkType(v.Payload, scope)
				}
				for _, a := range v.GADTArgs {
					r.checkType(a, scope)
				}
			}
		case *ast.TypeAliasDef:
			r.checkType(it.Aliased, newTypeScope(it.TypeParams))
		case *ast.CellDef:
			r.checkCellLike(it.TypeParams, it.Params, it.Return, it.Body)
		case *ast.ProcessDef:
			r.checkCellLike(nil, it.Params, nil, it.Body)
		case *ast.EffectDef:
			tscope := newTypeScope(nil)
			for _, p := range it.Params {
				r.checkType(p.Type, tscope)
			}
			if it.Return != nil {
				r.checkType(it.Return, tscope)
			}
		case *ast.HandlerDef:
			if _, ok := r.syms.Effects[it.Effect]; !ok {
				r.errorf(it.Span(), "handler refers to undeclared effect %q", it.Effect)
			}
			sc := newScope(nil)
			r.checkStmts(it.Body, sc)
		case *ast.TraitDef:
			for _, m := range it.Methods {
				tscope := newTypeScope(nil)
				for _, p := range m.Params {
					r.checkType(p.Type, tscope)
				}
				if m.Return != nil {
					r.checkType(m.Return, tscope)
				}
				if m.DefaultBody != nil {
					sc := newScope(nil)
					for _, p := range m.Params {
						sc = sc.withLocal(p.Name)
					}
					r.checkStmts(m.DefaultBody, sc)
				}
			}
		case *ast.ImplDef:
			if _, ok := r.syms.Traits[it.Trait]; !ok {
				r.errorf(it.Span(), "impl refers to undeclared trait %q", it.Trait)
			}
			for i := range it.Methods {
				m := &it.Methods[i]
				r.checkCellLike(m.TypeParams, m.Params, m.Return, m.Body)
			}
		case *ast.ConstDef:
			if it.Type != nil {
				r.checkType(it.Type, newTypeScope(nil))
			}
			r.checkExpr(it.Value, newScope(nil))
		case *ast.MacroDef:
			sc := newScope(nil)
			for _, p := range it.Params {
				sc = sc.withLocal(p)
			}
			r.checkStmts(it.Body, sc)
		}
	}
}

func (r *resolver) checkCellLike(typeParams []string, params []ast.Param, ret ast.TypeExpr, body []ast.Stmt) {
	tscope := newTypeScope(typeParams)
	sc := newScope(nil)
	for _, p := range params {
		r.checkType(p.Type, tscope)
		sc = sc.withLocal(p.Name)
	}
	if ret != nil {
		r.checkType(ret, tscope)
	}
	r.checkStmts(body, sc)
}

// typeScope tracks in-scope type-parameter names for one declaration.
type typeScope struct{ params map[string]bool }

func newTypeScope(params []string) typeScope {
	m := make(map[string]bool, len(params))
	for _, p := range params {
		m[p] = true
	}
	return typeScope{params: m}
}

func (r *resolver) checkType(t ast.TypeExpr, ts typeScope) {
	switch tt := t.(type) {
	case *ast.NamedType:
		if ts.params[tt.Name] {
			return
		}
		if _, ok := r.syms.Types[tt.Name]; !ok {
			r.errorf(tt.Span(), "undefined type %q", tt.Name)
		}
	case *ast.GenericType:
		// Arity mismatch is a typecheck-time GenericArityMismatch (§4.5);
		// resolution only confirms the name exists.
		if !ts.params[tt.Name] {
			if _, ok := r.syms.Types[tt.Name]; !ok {
				r.errorf(tt.Span(), "undefined type %q", tt.Name)
			}
		}
		for _, a := range tt.Args {
			r.checkType(a, ts)
		}
	case *ast.ListType:
		r.checkType(tt.Elem, ts)
	case *ast.SetType:
		r.checkType(tt.Elem, ts)
	case *ast.MapType:
		r.checkType(tt.Key, ts)
		r.checkType(tt.Value, ts)
	case *ast.TupleType:
		for _, e := range tt.Elems {
			r.checkType(e, ts)
		}
	case *ast.ResultType:
		r.checkType(tt.Ok, ts)
		r.checkType(tt.Err, ts)
	case *ast.UnionType:
		for _, a := range tt.Alternatives {
			r.checkType(a, ts)
		}
	case *ast.NullType:
		r.checkType(tt.Inner, ts)
	case *ast.FnType:
		for _, p := range tt.Params {
			r.checkType(p, ts)
		}
		if tt.Return != nil {
			r.checkType(tt.Return, ts)
		}
	}
}

// scope is a flat stack of local-name sets introduced by params, let, for,
// and match-arm bindings. Lumen has no closures-over-mutable-upvalues
// concern at this pass (§4.7 handles capture at lowering time), so a simple
// linked set (no cell/freevar bookkeeping) suffices here.
type scope struct {
	names  map[string]bool
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{names: make(map[string]bool), parent: parent}
}

func (s *scope) withLocal(name string) *scope {
	s.names[name] = true
	return s
}

func (s *scope) has(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.names[name] {
			return true
		}
	}
	return false
}

func (r *resolver) checkStmts(stmts []ast.Stmt, sc *scope) {
	for _, stmt := range stmts {
		r.checkStmt(stmt, sc)
	}
}

func (r *resolver) checkStmt(stmt ast.Stmt, sc *scope) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		r.checkExpr(s.Value, sc)
		if s.Type != nil {
			r.checkType(s.Type, newTypeScope(nil))
		}
		sc.withLocal(s.Name)
	case *ast.IfStmt:
		r.checkExpr(s.Cond, sc)
		r.checkStmts(s.Then, newScope(sc))
		if s.Else != nil {
			r.checkStmts(s.Else, newScope(sc))
		}
	case *ast.ForStmt:
		r.checkExpr(s.Seq, sc)
		inner := newScope(sc).withLocal(s.Var)
		r.checkStmts(s.Body, inner)
	case *ast.WhileStmt:
		r.checkExpr(s.Cond, sc)
		r.checkStmts(s.Body, newScope(sc))
	case *ast.MatchStmt:
		r.checkExpr(s.Subject, sc)
		for _, arm := range s.Arms {
			inner := newScope(sc)
			r.bindPattern(arm.Pattern, inner)
			r.checkStmts(arm.Body, inner)
		}
	case *ast.ReturnStmt:
		if s.Value != nil {
			r.checkExpr(s.Value, sc)
		}
	case *ast.HaltStmt:
		r.checkExpr(s.Value, sc)
	case *ast.AssignStmt:
		r.checkExpr(s.Target, sc)
		r.checkExpr(s.Value, sc)
	case *ast.ExprStmt:
		r.checkExpr(s.Value, sc)
	case *ast.BreakStmt, *ast.ContinueStmt:
		// nothing to resolve
	}
}

func (r *resolver) bindPattern(p ast.Pattern, sc *scope) {
	switch pat := p.(type) {
	case *ast.BindPattern:
		sc.withLocal(pat.Name)
	case *ast.VariantPattern:
		if pat.Enum != "" {
			if _, ok := r.syms.Types[pat.Enum]; !ok {
				r.errorf(pat.Span(), "undefined type %q", pat.Enum)
			}
		}
		if pat.Bind != "" {
			sc.withLocal(pat.Bind)
		}
	}
}

// checkExpr resolves identifier uses and call targets against the local
// scope and the module symbol table. Field names on DotAccess are not
// checked here — that requires the target's static type and is the type
// system's job (spec.md §4.5).
func (r *resolver) checkExpr(e ast.Expr, sc *scope) {
	switch ex := e.(type) {
	case *ast.Ident:
		if sc.has(ex.Name) {
			return
		}
		if _, ok := r.syms.Cells[ex.Name]; ok {
			return
		}
		if _, ok := r.syms.Consts[ex.Name]; ok {
			return
		}
		if _, ok := r.syms.Tools[ex.Name]; ok {
			return
		}
		r.errorf(ex.Span(), "undefined name %q", ex.Name)
	case *ast.StringLit:
		for _, seg := range ex.Segments {
			if seg.Expr != nil {
				r.checkExpr(seg.Expr, sc)
			}
		}
	case *ast.ListLit:
		for _, el := range ex.Elems {
			r.checkExpr(el, sc)
		}
	case *ast.SetLit:
		for _, el := range ex.Elems {
			r.checkExpr(el, sc)
		}
	case *ast.MapLit:
		for _, entry := range ex.Entries {
			r.checkExpr(entry.Key, sc)
			r.checkExpr(entry.Value, sc)
		}
	case *ast.TupleLit:
		for _, el := range ex.Elems {
			r.checkExpr(el, sc)
		}
	case *ast.RecordLit:
		if _, ok := r.syms.Types[ex.Name]; !ok {
			r.errorf(ex.Span(), "undefined type %q", ex.Name)
		}
		for _, f := range ex.Fields {
			r.checkExpr(f.Value, sc)
		}
	case *ast.BinOp:
		r.checkExpr(ex.Left, sc)
		r.checkExpr(ex.Right, sc)
	case *ast.UnaryOp:
		r.checkExpr(ex.Operand, sc)
	case *ast.Call:
		r.checkCallTarget(ex.Callee, sc)
		for _, a := range ex.Args {
			r.checkExpr(a.Value, sc)
		}
	case *ast.ToolCall:
		if _, ok := r.syms.Tools[ex.Tool]; !ok {
			r.errorf(ex.Span(), "undefined tool alias %q", ex.Tool)
		}
		for _, a := range ex.Args {
			r.checkExpr(a.Value, sc)
		}
	case *ast.DotAccess:
		r.checkExpr(ex.Target, sc)
	case *ast.IndexAccess:
		r.checkExpr(ex.Target, sc)
		r.checkExpr(ex.Index, sc)
	case *ast.NullCoalesce:
		r.checkExpr(ex.Left, sc)
		r.checkExpr(ex.Right, sc)
	case *ast.ForceUnwrap:
		r.checkExpr(ex.Operand, sc)
	case *ast.RoleBlock:
		r.checkStmts(ex.Body, newScope(sc))
	case *ast.ExpectSchema:
		r.checkExpr(ex.Value, sc)
		r.checkExpr(ex.Schema, sc)
	case *ast.TryExpr:
		r.checkExpr(ex.Value, sc)
	}
}

// checkCallTarget resolves a call's callee: a bare identifier must name a
// local, a constant, a cell, or a tool alias; any other callee shape (e.g. a returned
// closure) is resolved as a normal expression.
func (r *resolver) checkCallTarget(callee ast.Expr, sc *scope) {
	ident, ok := callee.(*ast.Ident)
	if !ok {
		r.checkExpr(callee, sc)
		return
	}
	if sc.has(ident.Name) {
		return
	}
	if _, ok := r.syms.Cells[ident.Name]; ok {
		return
	}
	if _, ok := r.syms.Tools[ident.Name]; ok {
		return
	}
	if _, ok := r.syms.Consts[ident.Name]; ok {
		return
	}
	r.errorf(ident.Span(), "call to undefined cell %q", ident.Name)
}
