// Package lower compiles a resolved, type-checked ast.Program into an
// lir.Module (spec.md §4.7). It follows the teacher's register-based
// compiler (internal/compregister/compiler.go) in shape: a per-cell
// RegisterAllocator and parent-linked Scope, an emit/addConstant pair
// that builds up one Cell's code and constant pool, and a loopStack
// threading break/continue targets through nested loops.
package lower

import (
	"fmt"

	"lumen/internal/ast"
	"lumen/internal/lir"
	"lumen/internal/resolver"
)

// Error reports a lowering failure, e.g. a reference to an unknown name
// that somehow survived resolution (should not happen in a program that
// passed C5, kept here as a defensive backstop) or a construct the
// lowering pass does not yet support.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

// Module lowers every cell, process, and impl method in prog into an
// lir.Module. source is the original markdown source, hashed into the
// module's DocHash.
func Module(prog *ast.Program, syms *resolver.SymbolTable, source string) (*lir.Module, []error) {
	var cells []*lir.Cell
	var errs []error
	entryIdx := -1

	for _, item := range prog.Items {
		switch it := item.(type) {
		case *ast.CellDef:
			c, cerrs := lowerCell(it.Name, it.Params, it.Effects, it.Body, false, syms)
			errs = append(errs, cerrs...)
			if it.Name == "main" {
				entryIdx = len(cells)
			}
			cells = append(cells, c)
		case *ast.ProcessDef:
			c, cerrs := lowerCell(it.Name, it.Params, it.Effects, it.Body, true, syms)
			errs = append(errs, cerrs...)
			cells = append(cells, c)
		case *ast.ImplDef:
			for _, m := range it.Methods {
				qualified := it.Type + "." + m.Name
				c, cerrs := lowerCell(qualified, m.Params, m.Effects, m.Body, false, syms)
				errs = append(errs, cerrs...)
				cells = append(cells, c)
			}
		}
	}

	return lir.NewModule(source, cells, entryIdx), errs
}

// LoopInfo tracks the jump patch sites of one enclosing loop.
type LoopInfo struct {
	startPC       int
	breakJumps    []int
	continueJumps []int
}

// scope is a parent-linked map of local names to the register holding
// their current value, mirroring the resolver's own scope shape but
// carrying a register instead of mere presence.
type scope struct {
	parent *scope
	locals map[string]uint8
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, locals: make(map[string]uint8)}
}

func (s *scope) define(name string, reg uint8) { s.locals[name] = reg }

func (s *scope) lookup(name string) (uint8, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if r, ok := sc.locals[name]; ok {
			return r, true
		}
	}
	return 0, false
}

// allocator assigns registers bump-style with a free list, matching
// internal/compregister.RegisterAllocator.
type allocator struct {
	next int
	max  int
	free []int
}

func (a *allocator) alloc() uint8 {
	if n := len(a.free); n > 0 {
		r := a.free[n-1]
		a.free = a.free[:n-1]
		return uint8(r)
	}
	r := a.next
	a.next++
	if a.next > a.max {
		a.max = a.next
	}
	return uint8(r)
}

func (a *allocator) freeReg(r uint8) {
	a.free = append(a.free, int(r))
}

// cellLowerer holds the state for lowering one cell's body.
type cellLowerer struct {
	name      string
	code      []lir.Instruction
	constants []lir.Constant
	alloc     allocator
	scope     *scope
	loops     []*LoopInfo
	errs      []error
	syms      *resolver.SymbolTable // used to distinguish a bare cell-name reference (-> OpClosure) from a global (-> OpGetGlobal)
}

func lowerCell(name string, params []ast.Param, effects []string, body []ast.Stmt, isProcess bool, syms *resolver.SymbolTable) (*lir.Cell, []error) {
	cl := &cellLowerer{name: name, scope: newScope(nil), syms: syms}
	for _, p := range params {
		r := cl.alloc.alloc()
		cl.scope.define(p.Name, r)
	}
	cl.lowerStmts(body)
	// Implicit return nil at the bottom of every cell, matching the
	// teacher's Compile() which always appends a trailing OP_RETURN.
	cl.emit(lir.ABC(lir.OpReturn, 0, 1, 0))

	c := &lir.Cell{
		Name:      name,
		Arity:     len(params),
		NumRegs:   cl.alloc.max,
		Code:      cl.code,
		Constants: cl.constants,
		Effects:   effects,
		IsProcess: isProcess,
	}
	return c, cl.errs
}

func (cl *cellLowerer) errorf(format string, args ...any) {
	cl.errs = append(cl.errs, &Error{Msg: fmt.Sprintf(format, args...)})
}

func (cl *cellLowerer) emit(i lir.Instruction) int {
	cl.code = append(cl.code, i)
	return len(cl.code) - 1
}

func (cl *cellLowerer) patchJump(pc int, target int) {
	cl.code[pc] = lir.AsBx(cl.code[pc].Op, cl.code[pc].A, int32(target-pc-1))
}

// addConstant de-duplicates structurally-equal constants into one pool
// slot, per spec.md §4.7 ("Constants are de-duplicated per cell").
func (cl *cellLowerer) addConstant(k lir.Constant) uint16 {
	for i, existing := range cl.constants {
		if existing == k {
			return uint16(i)
		}
	}
	idx := len(cl.constants)
	cl.constants = append(cl.constants, k)
	return uint16(idx)
}

func (cl *cellLowerer) pushScope()  { cl.scope = newScope(cl.scope) }
func (cl *cellLowerer) popScope()   { cl.scope = cl.scope.parent }

func (cl *cellLowerer) lowerStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		cl.lowerStmt(s)
	}
}

func (cl *cellLowerer) lowerStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.LetStmt:
		r := cl.lowerExpr(st.Value)
		cl.scope.define(st.Name, r)

	case *ast.AssignStmt:
		switch target := st.Target.(type) {
		case *ast.Ident:
			r := cl.lowerExpr(st.Value)
			if dst, ok := cl.scope.lookup(target.Name); ok {
				cl.emit(lir.ABC(lir.OpMove, dst, r, 0))
			} else {
				k := cl.addConstant(lir.StringConst(target.Name))
				cl.emit(lir.ABx(lir.OpSetGlobal, r, k))
			}
		case *ast.DotAccess:
			base := cl.lowerExpr(target.Target)
			val := cl.lowerExpr(st.Value)
			k := cl.addConstant(lir.StringConst(target.Field))
			cl.emit(lir.ABC(lir.OpSetField, base, uint8(k), val))
		case *ast.IndexAccess:
			base := cl.lowerExpr(target.Target)
			idx := cl.lowerExpr(target.Index)
			val := cl.lowerExpr(st.Value)
			cl.emit(lir.ABC(lir.OpSetIndex, base, idx, val))
		default:
			cl.errorf("unsupported assignment target in %s", cl.name)
		}

	case *ast.ExprStmt:
		cl.lowerExpr(st.Value)

	case *ast.ReturnStmt:
		if st.Value == nil {
			cl.emit(lir.ABC(lir.OpReturn, 0, 1, 0))
			return
		}
		if call, ok := st.Value.(*ast.Call); ok {
			if cl.lowerTailCall(call) {
				return
			}
		}
		r := cl.lowerExpr(st.Value)
		cl.emit(lir.ABC(lir.OpReturn, r, 2, 0))

	case *ast.HaltStmt:
		r := cl.lowerExpr(st.Value)
		cl.emit(lir.ABC(lir.OpHalt, r, 0, 0))

	case *ast.BreakStmt:
		if len(cl.loops) == 0 {
			cl.errorf("break outside of a loop in %s", cl.name)
			return
		}
		l := cl.loops[len(cl.loops)-1]
		pc := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
		l.breakJumps = append(l.breakJumps, pc)

	case *ast.ContinueStmt:
		if len(cl.loops) == 0 {
			cl.errorf("continue outside of a loop in %s", cl.name)
			return
		}
		l := cl.loops[len(cl.loops)-1]
		pc := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
		l.continueJumps = append(l.continueJumps, pc)

	case *ast.IfStmt:
		cl.lowerIf(st)

	case *ast.WhileStmt:
		cl.lowerWhile(st)

	case *ast.ForStmt:
		cl.lowerFor(st)

	case *ast.MatchStmt:
		cl.lowerMatch(st.Subject, st.Arms)

	default:
		cl.errorf("unsupported statement kind %T in %s", s, cl.name)
	}
}

// lowerTailCall recognizes `return f(args)` in tail position and emits
// TailCall instead of Call+Return, reusing the current frame (spec.md
// §4.7). Returns false (falling back to an ordinary call) when the
// callee isn't a plain identifier, since only direct named calls qualify.
func (cl *cellLowerer) lowerTailCall(call *ast.Call) bool {
	if _, ok := call.Callee.(*ast.Ident); !ok {
		return false
	}
	base := cl.loadCallArgs(call)
	cl.emit(lir.ABC(lir.OpTailCall, base, uint8(len(call.Args)+1), 0))
	return true
}

// loadCallArgs evaluates callee and args into a contiguous register run
// starting at a freshly allocated base register, mirroring the teacher's
// findConsecutiveRegisters convention for call setup.
func (cl *cellLowerer) loadCallArgs(call *ast.Call) uint8 {
	base := cl.alloc.alloc()
	cl.lowerExprInto(call.Callee, base)
	for _, arg := range call.Args {
		r := cl.alloc.alloc()
		cl.lowerExprInto(arg.Value, r)
	}
	return base
}

func (cl *cellLowerer) lowerExprInto(e ast.Expr, dst uint8) {
	r := cl.lowerExpr(e)
	if r != dst {
		cl.emit(lir.ABC(lir.OpMove, dst, r, 0))
	}
}

func (cl *cellLowerer) lowerIf(s *ast.IfStmt) {
	condReg := cl.lowerExpr(s.Cond)
	cl.emit(lir.ABC(lir.OpTest, condReg, 0, 0))
	jmpToElse := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))

	cl.pushScope()
	cl.lowerStmts(s.Then)
	cl.popScope()

	jmpToEnd := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
	cl.patchJump(jmpToElse, len(cl.code))

	if s.Else != nil {
		cl.pushScope()
		cl.lowerStmts(s.Else)
		cl.popScope()
	}
	cl.patchJump(jmpToEnd, len(cl.code))
}

func (cl *cellLowerer) lowerWhile(s *ast.WhileStmt) {
	startPC := len(cl.code)
	l := &LoopInfo{startPC: startPC}
	cl.loops = append(cl.loops, l)

	condReg := cl.lowerExpr(s.Cond)
	cl.emit(lir.ABC(lir.OpTest, condReg, 0, 0))
	exitJmp := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))

	cl.pushScope()
	cl.lowerStmts(s.Body)
	cl.popScope()

	backJmp := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
	cl.patchJump(backJmp, startPC)
	cl.patchJump(exitJmp, len(cl.code))

	for _, pc := range l.breakJumps {
		cl.patchJump(pc, len(cl.code))
	}
	for _, pc := range l.continueJumps {
		cl.patchJump(pc, startPC)
	}
	cl.loops = cl.loops[:len(cl.loops)-1]
}

// lowerFor compiles `for x in seq` to an iterator setup, loop header,
// body, and back-edge (spec.md §4.7).
func (cl *cellLowerer) lowerFor(s *ast.ForStmt) {
	seqReg := cl.lowerExpr(s.Seq)
	iterReg := cl.alloc.alloc()
	cl.emit(lir.ABC(lir.OpIterInit, iterReg, seqReg, 0))

	startPC := len(cl.code)
	l := &LoopInfo{startPC: startPC}
	cl.loops = append(cl.loops, l)

	hasNextReg := cl.alloc.alloc()
	elemReg := cl.alloc.alloc()
	cl.emit(lir.ABC(lir.OpIterNext, hasNextReg, iterReg, elemReg))
	cl.emit(lir.ABC(lir.OpTest, hasNextReg, 0, 0))
	exitJmp := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))

	cl.pushScope()
	cl.scope.define(s.Var, elemReg)
	cl.lowerStmts(s.Body)
	cl.popScope()

	backJmp := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
	cl.patchJump(backJmp, startPC)
	cl.patchJump(exitJmp, len(cl.code))

	for _, pc := range l.breakJumps {
		cl.patchJump(pc, len(cl.code))
	}
	for _, pc := range l.continueJumps {
		cl.patchJump(pc, startPC)
	}
	cl.loops = cl.loops[:len(cl.loops)-1]
	cl.alloc.freeReg(iterReg)
}

// lowerMatch compiles a match statement to a decision tree: each arm in
// order does a discriminant load and an Eq/Test/Jmp chain, falling
// through to the next arm's test on mismatch (spec.md §4.7). A
// wildcard or bind arm matches unconditionally and is therefore always
// the last arm lowered, regardless of its position, since no later arm
// could ever be reached past it; exhaustiveness itself was already
// enforced by the type checker (C6).
func (cl *cellLowerer) lowerMatch(subject ast.Expr, arms []ast.MatchArm) {
	subjReg := cl.lowerExpr(subject)
	var endJumps []int

arms:
	for _, arm := range arms {
		switch pat := arm.Pattern.(type) {
		case *ast.WildcardPattern:
			cl.pushScope()
			cl.lowerStmts(arm.Body)
			cl.popScope()
			// An unconditional arm terminates the chain; nothing lowered
			// after it in the arm list is reachable.
			break arms

		case *ast.BindPattern:
			cl.pushScope()
			cl.scope.define(pat.Name, subjReg)
			cl.lowerStmts(arm.Body)
			cl.popScope()
			break arms

		case *ast.LiteralPattern:
			litReg := cl.lowerExpr(pat.Value)
			eqReg := cl.alloc.alloc()
			cl.emit(lir.ABC(lir.OpEq, eqReg, subjReg, litReg))
			cl.emit(lir.ABC(lir.OpTest, eqReg, 0, 0))
			skip := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
			cl.alloc.freeReg(eqReg)

			cl.pushScope()
			cl.lowerStmts(arm.Body)
			cl.popScope()
			endJumps = append(endJumps, cl.emit(lir.AsBx(lir.OpJmp, 0, 0)))
			cl.patchJump(skip, len(cl.code))

		case *ast.VariantPattern:
			tagReg := cl.alloc.alloc()
			tagConst := cl.addConstant(lir.StringConst("__tag__"))
			cl.emit(lir.ABC(lir.OpGetField, tagReg, subjReg, uint8(tagConst)))
			wantConst := cl.addConstant(lir.StringConst(pat.Variant))
			wantReg := cl.alloc.alloc()
			cl.emit(lir.ABx(lir.OpLoadK, wantReg, wantConst))
			eqReg := cl.alloc.alloc()
			cl.emit(lir.ABC(lir.OpEq, eqReg, tagReg, wantReg))
			cl.emit(lir.ABC(lir.OpTest, eqReg, 0, 0))
			skip := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
			cl.alloc.freeReg(tagReg)
			cl.alloc.freeReg(wantReg)
			cl.alloc.freeReg(eqReg)

			cl.pushScope()
			if pat.Bind != "" {
				payloadReg := cl.alloc.alloc()
				payloadConst := cl.addConstant(lir.StringConst("__payload__"))
				cl.emit(lir.ABC(lir.OpGetField, payloadReg, subjReg, uint8(payloadConst)))
				cl.scope.define(pat.Bind, payloadReg)
			}
			cl.lowerStmts(arm.Body)
			cl.popScope()
			endJumps = append(endJumps, cl.emit(lir.AsBx(lir.OpJmp, 0, 0)))
			cl.patchJump(skip, len(cl.code))

		default:
			cl.errorf("unsupported match pattern %T in %s", pat, cl.name)
		}
	}

	for _, pc := range endJumps {
		cl.patchJump(pc, len(cl.code))
	}
}

// lowerExpr evaluates e into a (possibly freshly allocated) register and
// returns it.
func (cl *cellLowerer) lowerExpr(e ast.Expr) uint8 {
	switch ex := e.(type) {
	case *ast.IntLit:
		r := cl.alloc.alloc()
		k := cl.addConstant(lir.IntConst(ex.Value))
		cl.emit(lir.ABx(lir.OpLoadK, r, k))
		return r

	case *ast.FloatLit:
		r := cl.alloc.alloc()
		k := cl.addConstant(lir.FloatConst(ex.Value))
		cl.emit(lir.ABx(lir.OpLoadK, r, k))
		return r

	case *ast.BoolLit:
		r := cl.alloc.alloc()
		var b uint8
		if ex.Value {
			b = 1
		}
		cl.emit(lir.ABC(lir.OpLoadBool, r, b, 0))
		return r

	case *ast.NullLit:
		r := cl.alloc.alloc()
		cl.emit(lir.ABC(lir.OpLoadNil, r, 1, 0))
		return r

	case *ast.StringLit:
		return cl.lowerStringLit(ex)

	case *ast.Ident:
		if r, ok := cl.scope.lookup(ex.Name); ok {
			return r
		}
		dst := cl.alloc.alloc()
		if cl.syms != nil {
			if _, isCell := cl.syms.Cells[ex.Name]; isCell {
				k := cl.addConstant(lir.StringConst(ex.Name))
				cl.emit(lir.ABx(lir.OpClosure, dst, k))
				return dst
			}
		}
		k := cl.addConstant(lir.StringConst(ex.Name))
		cl.emit(lir.ABx(lir.OpGetGlobal, dst, k))
		return dst

	case *ast.ListLit:
		dst := cl.alloc.alloc()
		cl.emit(lir.ABC(lir.OpNewList, dst, uint8(len(ex.Elems)), 0))
		for _, el := range ex.Elems {
			r := cl.lowerExpr(el)
			cl.emit(lir.ABC(lir.OpAppend, dst, r, 0))
		}
		return dst

	case *ast.SetLit:
		dst := cl.alloc.alloc()
		cl.emit(lir.ABC(lir.OpNewSet, dst, uint8(len(ex.Elems)), 0))
		for _, el := range ex.Elems {
			r := cl.lowerExpr(el)
			cl.emit(lir.ABC(lir.OpAppend, dst, r, 0))
		}
		return dst

	case *ast.TupleLit:
		dst := cl.alloc.alloc()
		cl.emit(lir.ABC(lir.OpNewTuple, dst, uint8(len(ex.Elems)), 0))
		for i, el := range ex.Elems {
			r := cl.lowerExpr(el)
			cl.emit(lir.ABC(lir.OpSetIndex, dst, uint8(i), r))
		}
		return dst

	case *ast.MapLit:
		dst := cl.alloc.alloc()
		cl.emit(lir.ABC(lir.OpNewMap, dst, uint8(len(ex.Entries)), 0))
		for _, entry := range ex.Entries {
			k := cl.lowerExpr(entry.Key)
			v := cl.lowerExpr(entry.Value)
			cl.emit(lir.ABC(lir.OpSetIndex, dst, k, v))
		}
		return dst

	case *ast.RecordLit:
		dst := cl.alloc.alloc()
		nameConst := cl.addConstant(lir.StringConst(ex.Name))
		cl.emit(lir.ABx(lir.OpNewRecord, dst, nameConst))
		for _, f := range ex.Fields {
			v := cl.lowerExpr(f.Value)
			fieldConst := cl.addConstant(lir.StringConst(f.Name))
			cl.emit(lir.ABC(lir.OpSetField, dst, uint8(fieldConst), v))
		}
		return dst

	case *ast.BinOp:
		return cl.lowerBinOp(ex)

	case *ast.UnaryOp:
		r := cl.lowerExpr(ex.Operand)
		dst := cl.alloc.alloc()
		switch ex.Op {
		case "-":
			cl.emit(lir.ABC(lir.OpNeg, dst, r, 0))
		case "not":
			cl.emit(lir.ABC(lir.OpNot, dst, r, 0))
		default:
			cl.errorf("unsupported unary operator %q in %s", ex.Op, cl.name)
		}
		return dst

	case *ast.Call:
		return cl.lowerCall(ex)

	case *ast.ToolCall:
		dst := cl.alloc.alloc()
		toolConst := cl.addConstant(lir.StringConst(ex.Tool))
		for _, arg := range ex.Args {
			r := cl.alloc.alloc()
			cl.lowerExprInto(arg.Value, r)
		}
		// Packed as ABC rather than ABx: a tool call needs both the arg
		// count and the constant-pool slot, so the pool index is limited
		// to one byte here (matching GetField/SetField's Kst(C) convention
		// below), not the full 16-bit range ABx gives plain loads.
		cl.emit(lir.ABC(lir.OpToolCall, dst, uint8(len(ex.Args)), uint8(toolConst)))
		return dst

	case *ast.DotAccess:
		base := cl.lowerExpr(ex.Target)
		dst := cl.alloc.alloc()
		if ex.Safe {
			nullCheckReg := cl.alloc.alloc()
			cl.emit(lir.ABC(lir.OpNullCheck, nullCheckReg, base, 0))
			cl.emit(lir.ABC(lir.OpTest, nullCheckReg, 0, 0))
			skip := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
			cl.alloc.freeReg(nullCheckReg)
			fieldConst := cl.addConstant(lir.StringConst(ex.Field))
			cl.emit(lir.ABC(lir.OpGetField, dst, base, uint8(fieldConst)))
			end := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
			cl.patchJump(skip, len(cl.code))
			cl.emit(lir.ABC(lir.OpLoadNil, dst, 1, 0))
			cl.patchJump(end, len(cl.code))
			return dst
		}
		fieldConst := cl.addConstant(lir.StringConst(ex.Field))
		cl.emit(lir.ABC(lir.OpGetField, dst, base, uint8(fieldConst)))
		return dst

	case *ast.IndexAccess:
		base := cl.lowerExpr(ex.Target)
		idx := cl.lowerExpr(ex.Index)
		dst := cl.alloc.alloc()
		if ex.Safe {
			nullCheckReg := cl.alloc.alloc()
			cl.emit(lir.ABC(lir.OpNullCheck, nullCheckReg, base, 0))
			cl.emit(lir.ABC(lir.OpTest, nullCheckReg, 0, 0))
			skip := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
			cl.alloc.freeReg(nullCheckReg)
			cl.emit(lir.ABC(lir.OpGetIndex, dst, base, idx))
			end := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
			cl.patchJump(skip, len(cl.code))
			cl.emit(lir.ABC(lir.OpLoadNil, dst, 1, 0))
			cl.patchJump(end, len(cl.code))
			return dst
		}
		cl.emit(lir.ABC(lir.OpGetIndex, dst, base, idx))
		return dst

	case *ast.NullCoalesce:
		left := cl.lowerExpr(ex.Left)
		dst := cl.alloc.alloc()
		nullCheckReg := cl.alloc.alloc()
		cl.emit(lir.ABC(lir.OpNullCheck, nullCheckReg, left, 0))
		cl.emit(lir.ABC(lir.OpTest, nullCheckReg, 0, 0))
		skip := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
		cl.alloc.freeReg(nullCheckReg)
		cl.emit(lir.ABC(lir.OpMove, dst, left, 0))
		end := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
		cl.patchJump(skip, len(cl.code))
		right := cl.lowerExpr(ex.Right)
		cl.emit(lir.ABC(lir.OpMove, dst, right, 0))
		cl.patchJump(end, len(cl.code))
		return dst

	case *ast.ForceUnwrap:
		r := cl.lowerExpr(ex.Operand)
		dst := cl.alloc.alloc()
		cl.emit(lir.ABC(lir.OpForceUnwrap, dst, r, 0))
		return dst

	case *ast.TryExpr:
		// `try expr` converts an error Result into an early return; modeled
		// as: evaluate expr, test its ok-tag, return early on error.
		r := cl.lowerExpr(ex.Value)
		okReg := cl.alloc.alloc()
		tagConst := cl.addConstant(lir.StringConst("__tag__"))
		cl.emit(lir.ABC(lir.OpGetField, okReg, r, uint8(tagConst)))
		okConst := cl.addConstant(lir.StringConst("Ok"))
		wantReg := cl.alloc.alloc()
		cl.emit(lir.ABx(lir.OpLoadK, wantReg, okConst))
		eqReg := cl.alloc.alloc()
		cl.emit(lir.ABC(lir.OpEq, eqReg, okReg, wantReg))
		cl.emit(lir.ABC(lir.OpTest, eqReg, 0, 0))
		skip := cl.emit(lir.AsBx(lir.OpJmp, 0, 0))
		cl.emit(lir.ABC(lir.OpReturn, r, 2, 0))
		cl.patchJump(skip, len(cl.code))
		payloadConst := cl.addConstant(lir.StringConst("__payload__"))
		dst := cl.alloc.alloc()
		cl.emit(lir.ABC(lir.OpGetField, dst, r, uint8(payloadConst)))
		return dst

	case *ast.RoleBlock:
		cl.pushScope()
		cl.lowerStmts(ex.Body)
		cl.popScope()
		dst := cl.alloc.alloc()
		cl.emit(lir.ABC(lir.OpLoadNil, dst, 1, 0))
		return dst

	case *ast.ExpectSchema:
		r := cl.lowerExpr(ex.Value)
		_ = cl.lowerExpr(ex.Schema)
		return r

	default:
		cl.errorf("unsupported expression kind %T in %s", e, cl.name)
		return cl.alloc.alloc()
	}
}

func (cl *cellLowerer) lowerStringLit(ex *ast.StringLit) uint8 {
	dst := cl.alloc.alloc()
	// A non-interpolated literal is a single literal segment: load it
	// directly as a constant.
	if len(ex.Segments) == 1 && ex.Segments[0].Expr == nil {
		k := cl.addConstant(lir.StringConst(ex.Segments[0].Literal))
		cl.emit(lir.ABx(lir.OpLoadK, dst, k))
		return dst
	}
	first := true
	for _, seg := range ex.Segments {
		var r uint8
		if seg.Expr != nil {
			r = cl.lowerExpr(seg.Expr)
		} else {
			r = cl.alloc.alloc()
			k := cl.addConstant(lir.StringConst(seg.Literal))
			cl.emit(lir.ABx(lir.OpLoadK, r, k))
		}
		if first {
			cl.emit(lir.ABC(lir.OpMove, dst, r, 0))
			first = false
		} else {
			cl.emit(lir.ABC(lir.OpConcat, dst, dst, r))
		}
	}
	return dst
}

func (cl *cellLowerer) lowerBinOp(ex *ast.BinOp) uint8 {
	left := cl.lowerExpr(ex.Left)
	right := cl.lowerExpr(ex.Right)
	dst := cl.alloc.alloc()
	switch ex.Op {
	case "+":
		cl.emit(lir.ABC(lir.OpAdd, dst, left, right))
	case "-":
		cl.emit(lir.ABC(lir.OpSub, dst, left, right))
	case "*":
		cl.emit(lir.ABC(lir.OpMul, dst, left, right))
	case "/":
		cl.emit(lir.ABC(lir.OpDiv, dst, left, right))
	case "%":
		cl.emit(lir.ABC(lir.OpMod, dst, left, right))
	case "**":
		cl.emit(lir.ABC(lir.OpPow, dst, left, right))
	case "==":
		cl.emit(lir.ABC(lir.OpEq, dst, left, right))
	case "!=":
		cl.emit(lir.ABC(lir.OpNeq, dst, left, right))
	case "<":
		cl.emit(lir.ABC(lir.OpLt, dst, left, right))
	case "<=":
		cl.emit(lir.ABC(lir.OpLe, dst, left, right))
	case ">":
		cl.emit(lir.ABC(lir.OpGt, dst, left, right))
	case ">=":
		cl.emit(lir.ABC(lir.OpGe, dst, left, right))
	case "and":
		cl.emit(lir.ABC(lir.OpAnd, dst, left, right))
	case "or":
		cl.emit(lir.ABC(lir.OpOr, dst, left, right))
	default:
		cl.errorf("unsupported binary operator %q in %s", ex.Op, cl.name)
	}
	return dst
}

func (cl *cellLowerer) lowerCall(ex *ast.Call) uint8 {
	base := cl.loadCallArgs(ex)
	cl.emit(lir.ABC(lir.OpCall, base, uint8(len(ex.Args)+1), 2))
	return base
}
