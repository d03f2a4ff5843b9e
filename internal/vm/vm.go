// Dispatch loop: register-machine execution of a lowered lir.Module
// (spec.md §4.8). The loop's shape — fetch, switch on Op, mutate a flat
// register slice, advance pc — follows internal/vmregister/vm.go's run();
// the frame-per-call-depth bookkeeping is simplified to plain Go
// recursion (tail calls loop in place instead) since the teacher's
// inline caches, type feedback, and JIT hooks belong to a later tier
// (internal/jit, spec.md §4.11), not this interpreter.
package vm

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"modernc.org/mathutil"

	"lumen/internal/lir"
)

// ErrCallDepthExceeded guards against runaway (non-tail) recursion the
// way the teacher's maxCallDepth does.
var ErrCallDepthExceeded = errors.New("vm: max call depth exceeded")

const maxCallDepth = 2000

// kFusedOp maps a constant-operand fused opcode back to the plain binary
// op arith already knows how to evaluate.
var kFusedOp = map[lir.Op]lir.Op{
	lir.OpAddK: lir.OpAdd,
	lir.OpSubK: lir.OpSub,
	lir.OpMulK: lir.OpMul,
	lir.OpDivK: lir.OpDiv,
}

// ToolDispatcher is the seam C14's effect/tool registry plugs into;
// the VM itself only knows how to package a request and unpack a
// response, not how any particular tool executes.
type ToolDispatcher interface {
	Dispatch(tool string, args []Value) (Value, error)
}

// Profiler is the seam the tiered JIT (internal/jit) plugs into: the
// interpreter reports every cell invocation here and otherwise knows
// nothing about compilation tiers. internal/jit already imports this
// package for Execute's *VM/[]Value signature, so the dependency can
// only run interpreter -> interface, never interpreter -> jit package,
// or the two would import each other.
type Profiler interface {
	RecordCall(cell *lir.Cell)
}

// VM executes cells of a single lir.Module against a shared global
// environment and an optional tool dispatcher.
type VM struct {
	Module   *lir.Module
	Tools    ToolDispatcher
	Profiler Profiler

	globals map[string]Value
	depth   int
}

func New(mod *lir.Module) *VM {
	return &VM{Module: mod, globals: make(map[string]Value)}
}

// RuntimeError carries a VM-raised fault (as opposed to a Go-level bug)
// so callers can distinguish spec-defined failures (division by zero,
// arithmetic overflow, unknown cell) from internal ones.
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string { return e.Msg }

func runtimeErrorf(format string, args ...any) error {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}

// Run invokes the named cell with the given arguments.
func (vm *VM) Run(cellName string, args []Value) (Value, error) {
	cell := vm.Module.CellByName(cellName)
	if cell == nil {
		return Null, runtimeErrorf("vm: no such cell %q", cellName)
	}
	return vm.callCell(cell, args)
}

func (vm *VM) callCell(cell *lir.Cell, args []Value) (Value, error) {
	vm.recordCall(cell)
	vm.depth++
	defer func() { vm.depth-- }()
	if vm.depth > maxCallDepth {
		return Null, ErrCallDepthExceeded
	}
	regs := make([]Value, max(cell.NumRegs, cell.Arity))
	copy(regs, args)
	return vm.exec(cell, regs)
}

// recordCall reports one invocation of cell to the profiler, if any is
// installed. It is a no-op by default so the VM has no JIT dependency
// of its own.
func (vm *VM) recordCall(cell *lir.Cell) {
	if vm.Profiler != nil {
		vm.Profiler.RecordCall(cell)
	}
}

// exec runs cell's code against regs until a Return or Halt. A tail
// call replaces cell/regs/pc in place and loops rather than recursing,
// giving proper tail-call elimination for the `return f(args)` shape
// internal/lower emits OpTailCall for.
func (vm *VM) exec(cell *lir.Cell, regs []Value) (Value, error) {
	pc := 0
	for {
		if pc >= len(cell.Code) {
			return Null, nil
		}
		ins := cell.Code[pc]
		next := pc + 1

		switch ins.Op {
		case lir.OpMove:
			regs[ins.A] = regs[ins.B]

		case lir.OpLoadK:
			regs[ins.A] = vm.constant(cell, ins.Bx())
		case lir.OpLoadBool:
			regs[ins.A] = boxBool(ins.B != 0)
		case lir.OpLoadNil:
			regs[ins.A] = Null

		case lir.OpAdd, lir.OpSub, lir.OpMul, lir.OpDiv, lir.OpMod, lir.OpPow:
			v, err := arith(ins.Op, regs[ins.B], regs[ins.C])
			if err != nil {
				return Null, err
			}
			regs[ins.A] = v
		case lir.OpNeg:
			v, err := arith(lir.OpSub, boxInt(0), regs[ins.B])
			if err != nil {
				return Null, err
			}
			regs[ins.A] = v

		case lir.OpAddK, lir.OpSubK, lir.OpMulK, lir.OpDivK:
			k := vm.constant(cell, uint16(ins.C))
			v, err := arith(kFusedOp[ins.Op], regs[ins.B], k)
			if err != nil {
				return Null, err
			}
			regs[ins.A] = v

		case lir.OpEq:
			regs[ins.A] = boxBool(valuesEqual(regs[ins.B], regs[ins.C]))
		case lir.OpNeq:
			regs[ins.A] = boxBool(!valuesEqual(regs[ins.B], regs[ins.C]))
		case lir.OpLt, lir.OpLe, lir.OpGt, lir.OpGe:
			c, err := compare(regs[ins.B], regs[ins.C])
			if err != nil {
				return Null, err
			}
			regs[ins.A] = boxBool(orderTruth(ins.Op, c))

		case lir.OpNot:
			regs[ins.A] = boxBool(!IsTruthy(regs[ins.B]))
		case lir.OpAnd:
			if IsTruthy(regs[ins.B]) {
				regs[ins.A] = regs[ins.C]
			} else {
				regs[ins.A] = regs[ins.B]
			}
		case lir.OpOr:
			if IsTruthy(regs[ins.B]) {
				regs[ins.A] = regs[ins.B]
			} else {
				regs[ins.A] = regs[ins.C]
			}

		case lir.OpTest:
			if !IsTruthy(regs[ins.A]) {
				next++
			}
		case lir.OpTestSet:
			if IsTruthy(regs[ins.B]) {
				regs[ins.A] = regs[ins.B]
			} else {
				next++
			}

		case lir.OpJmp:
			next = pc + 1 + int(ins.SBx())

		case lir.OpGetGlobal:
			name := vm.constant(cell, ins.Bx()).String()
			regs[ins.A] = vm.lookupGlobal(name)
		case lir.OpSetGlobal:
			name := vm.constant(cell, ins.Bx()).String()
			vm.globals[name] = regs[ins.A]

		case lir.OpGetUpval, lir.OpSetUpval:
			// Upvalues are always empty (see DESIGN.md: no lambda-literal
			// AST node exists yet), so these opcodes are never emitted by
			// internal/lower today; reaching one is an internal error.
			return Null, runtimeErrorf("vm: %s reached with no upvalue support wired", ins.Op)

		case lir.OpNewList:
			regs[ins.A] = BoxList(&List{})
		case lir.OpNewSet:
			regs[ins.A] = BoxSet(&Set{})
		case lir.OpNewMap:
			regs[ins.A] = BoxMap(&Map{})
		case lir.OpNewTuple:
			regs[ins.A] = BoxTuple(nil)
		case lir.OpNewRecord:
			typeName := vm.constant(cell, ins.Bx()).String()
			regs[ins.A] = BoxRecord(&Record{TypeName: typeName, Fields: map[string]Value{}})

		case lir.OpGetField:
			field := vm.constant(cell, uint16(ins.C)).Str
			v, err := getField(regs[ins.B], field)
			if err != nil {
				return Null, err
			}
			regs[ins.A] = v
		case lir.OpSetField:
			field := vm.constant(cell, uint16(ins.B)).Str
			if err := setField(regs[ins.A], field, regs[ins.C]); err != nil {
				return Null, err
			}

		case lir.OpGetIndex:
			v, err := getIndex(regs[ins.B], regs[ins.C])
			if err != nil {
				return Null, err
			}
			regs[ins.A] = v
		case lir.OpSetIndex:
			if err := setIndex(regs[ins.A], regs[ins.B], regs[ins.C]); err != nil {
				return Null, err
			}

		case lir.OpAppend:
			if err := appendValue(regs[ins.A], regs[ins.B]); err != nil {
				return Null, err
			}
		case lir.OpLen:
			n, err := lengthOf(regs[ins.B])
			if err != nil {
				return Null, err
			}
			regs[ins.A] = boxInt(n)
		case lir.OpConcat:
			l, err := asStringOperand(regs[ins.B])
			if err != nil {
				return Null, err
			}
			r, err := asStringOperand(regs[ins.C])
			if err != nil {
				return Null, err
			}
			regs[ins.A] = BoxString(l + r)

		case lir.OpNullCheck:
			regs[ins.A] = boxBool(!regs[ins.B].IsNull())
		case lir.OpForceUnwrap:
			if regs[ins.B].IsNull() {
				return Null, runtimeErrorf("vm: force-unwrap (!) of null value")
			}
			regs[ins.A] = regs[ins.B]

		case lir.OpClosure:
			cellName := vm.constant(cell, ins.Bx()).String()
			target := vm.Module.CellByName(cellName)
			if target == nil {
				return Null, runtimeErrorf("vm: closure over unknown cell %q", cellName)
			}
			regs[ins.A] = BoxClosure(&Closure{CellName: target.Name})

		case lir.OpCall, lir.OpTailCall:
			nargs := int(ins.B) - 1
			callArgs := append([]Value(nil), regs[ins.A+1:ins.A+1+uint8(nargs)]...)
			target, err := vm.resolveCallTarget(regs[ins.A])
			if err != nil {
				return Null, err
			}
			if ins.Op == lir.OpTailCall {
				vm.recordCall(target)
				newRegs := make([]Value, max(target.NumRegs, target.Arity))
				copy(newRegs, callArgs)
				cell, regs, pc = target, newRegs, 0
				continue
			}
			result, err := vm.callCell(target, callArgs)
			if err != nil {
				return Null, err
			}
			regs[ins.A] = result

		case lir.OpReturn:
			if ins.B <= 1 {
				return Null, nil
			}
			return regs[ins.A], nil

		case lir.OpToolCall:
			if vm.Tools == nil {
				return Null, runtimeErrorf("vm: ToolCall with no tool dispatcher wired")
			}
			toolName := vm.constant(cell, uint16(ins.C)).String()
			nargs := int(ins.B)
			callArgs := append([]Value(nil), regs[ins.A+1:ins.A+1+uint8(nargs)]...)
			result, err := vm.Tools.Dispatch(toolName, callArgs)
			if err != nil {
				return Null, err
			}
			regs[ins.A] = result

		case lir.OpDiff:
			v, err := diffValues(regs[ins.B], regs[ins.C])
			if err != nil {
				return Null, err
			}
			regs[ins.A] = v
		case lir.OpPatch:
			v, err := patchValue(regs[ins.B], regs[ins.C])
			if err != nil {
				return Null, err
			}
			regs[ins.A] = v
		case lir.OpRedact:
			field := vm.constant(cell, uint16(ins.C)).Str
			v, err := redactValue(regs[ins.B], field)
			if err != nil {
				return Null, err
			}
			regs[ins.A] = v

		case lir.OpYield, lir.OpCheckpoint:
			// Cooperative-scheduling safepoints (C12/C15) are no-ops for a
			// VM run outside a scheduled process.

		case lir.OpIterInit:
			elems, err := newIterator(regs[ins.B])
			if err != nil {
				return Null, err
			}
			regs[ins.A] = BoxList(&List{Elems: elems})
		case lir.OpIterNext:
			lst := unboxPointer(regs[ins.B]).AsList()
			if len(lst.Elems) == 0 {
				regs[ins.A] = boxBool(false)
			} else {
				regs[ins.C] = lst.Elems[0]
				lst.Elems = lst.Elems[1:]
				regs[ins.A] = boxBool(true)
			}

		case lir.OpHalt:
			return regs[ins.A], nil

		case lir.OpMakeFuture:
			target, err := vm.resolveCallTarget(regs[ins.B])
			if err != nil {
				return Null, err
			}
			future := NewFuture()
			go func() {
				v, err := vm.callCell(target, nil)
				future.Resolve(v, err)
			}()
			regs[ins.A] = BoxFuture(future)

		case lir.OpAwait:
			obj := unboxPointer(regs[ins.B])
			if obj == nil || obj.Kind != ObjFuture {
				return Null, runtimeErrorf("vm: await of a non-future value")
			}
			v, err := obj.AsFuture().Wait()
			if err != nil {
				return Null, err
			}
			regs[ins.A] = v

		default:
			return Null, runtimeErrorf("vm: unimplemented opcode %s", ins.Op)
		}

		pc = next
	}
}

func (vm *VM) constant(cell *lir.Cell, idx uint16) Value {
	k := cell.Constants[idx]
	switch k.Kind {
	case lir.ConstInt:
		return boxInt(k.Int)
	case lir.ConstFloat:
		return BoxFloat(k.Float)
	case lir.ConstString:
		return BoxString(k.Str)
	case lir.ConstBool:
		return boxBool(k.Bool)
	case lir.ConstNull:
		return Null
	default:
		return Null
	}
}

func (vm *VM) lookupGlobal(name string) Value {
	if v, ok := vm.globals[name]; ok {
		return v
	}
	return Null
}

func (vm *VM) resolveCallTarget(callee Value) (*lir.Cell, error) {
	if !callee.IsPointer() {
		return nil, runtimeErrorf("vm: cannot call a non-closure value %s", callee)
	}
	o := unboxPointer(callee)
	if o.Kind != ObjClosure {
		return nil, runtimeErrorf("vm: cannot call a non-closure value %s", callee)
	}
	c := o.AsClosure()
	target := vm.Module.CellByName(c.CellName)
	if target == nil {
		return nil, runtimeErrorf("vm: call to unknown cell %q", c.CellName)
	}
	return target, nil
}

func newIterator(seq Value) ([]Value, error) {
	if !seq.IsPointer() {
		return nil, runtimeErrorf("vm: cannot iterate a non-sequence value %s", seq)
	}
	o := unboxPointer(seq)
	switch o.Kind {
	case ObjList:
		return append([]Value(nil), o.AsList().Elems...), nil
	case ObjTuple:
		return append([]Value(nil), o.AsTuple()...), nil
	case ObjSet:
		return append([]Value(nil), o.AsSet().Elems...), nil
	default:
		return nil, runtimeErrorf("vm: value of kind %v is not iterable", o.Kind)
	}
}

// arith implements spec.md §4.8's numeric tower: Int op Int promotes to
// BigInt on i64 overflow; any Float operand promotes the whole
// expression to Float; BigInt operands stay BigInt.
func arith(op lir.Op, a, b Value) (Value, error) {
	if a.IsPointer() && unboxPointer(a).Kind == ObjFloat || b.IsPointer() && unboxPointer(b).Kind == ObjFloat {
		return arithFloat(op, toFloat(a), toFloat(b))
	}
	if a.IsPointer() && unboxPointer(a).Kind == ObjBigInt || b.IsPointer() && unboxPointer(b).Kind == ObjBigInt {
		return arithBigInt(op, toBigInt(a), toBigInt(b))
	}
	if !a.IsInt() || !b.IsInt() {
		return Null, runtimeErrorf("vm: arithmetic on non-numeric operand")
	}
	return arithInt(op, unboxInt(a), unboxInt(b))
}

// The tagged Value's payload is 61 bits (64 minus the 3-bit tag), so a
// boxInt round-trip is only lossless within this range; arithInt treats
// anything wider, not just a true int64 wraparound, as the "overflow"
// spec.md §4.8 promotes to BigInt on. fitsTaggedInt measures the
// magnitude's bit length with mathutil.BitLen rather than a hand-rolled
// comparison, the same helper the corpus reaches for instead of
// manually shifting to count bits.
const taggedIntBits = 60

func fitsTaggedInt(i int64) bool {
	n := i
	if n < 0 {
		n = ^n // avoids negating math.MinInt64, whose magnitude doesn't fit int64 anyway
	}
	return mathutil.BitLen(int(n)) <= taggedIntBits
}

// arithInt computes a tagged-Int op, promoting to a heap BigInt (via
// math/big) whenever the exact result would not round-trip through the
// 61-bit tagged payload. Add/Sub of two in-range operands can never
// overflow int64 itself (61+61 bits fits easily in 63), so only the
// post-hoc range check matters there; Mul can genuinely overflow int64,
// so it is additionally guarded by the classic division check (r/b != a)
// alongside the same range check.
func arithInt(op lir.Op, a, b int64) (Value, error) {
	switch op {
	case lir.OpAdd:
		r := a + b
		if !fitsTaggedInt(r) {
			return arithBigInt(op, big.NewInt(a), big.NewInt(b))
		}
		return boxInt(r), nil
	case lir.OpSub:
		r := a - b
		if !fitsTaggedInt(r) {
			return arithBigInt(op, big.NewInt(a), big.NewInt(b))
		}
		return boxInt(r), nil
	case lir.OpMul:
		if a != 0 && b != 0 {
			r := a * b
			if r/b != a || !fitsTaggedInt(r) {
				return arithBigInt(op, big.NewInt(a), big.NewInt(b))
			}
			return boxInt(r), nil
		}
		return boxInt(0), nil
	case lir.OpDiv:
		if b == 0 {
			return Null, runtimeErrorf("vm: integer division by zero")
		}
		return boxInt(a / b), nil
	case lir.OpMod:
		if b == 0 {
			return Null, runtimeErrorf("vm: integer modulo by zero")
		}
		return boxInt(a % b), nil
	case lir.OpPow:
		r := new(big.Int).Exp(big.NewInt(a), big.NewInt(b), nil)
		return maybeDemote(r), nil
	default:
		return Null, runtimeErrorf("vm: unsupported int arithmetic op %s", op)
	}
}

func arithBigInt(op lir.Op, a, b *big.Int) (Value, error) {
	r := new(big.Int)
	switch op {
	case lir.OpAdd:
		r.Add(a, b)
	case lir.OpSub:
		r.Sub(a, b)
	case lir.OpMul:
		r.Mul(a, b)
	case lir.OpDiv:
		if b.Sign() == 0 {
			return Null, runtimeErrorf("vm: integer division by zero")
		}
		r.Quo(a, b)
	case lir.OpMod:
		if b.Sign() == 0 {
			return Null, runtimeErrorf("vm: integer modulo by zero")
		}
		r.Rem(a, b)
	case lir.OpPow:
		r.Exp(a, b, nil)
	default:
		return Null, runtimeErrorf("vm: unsupported BigInt arithmetic op %s", op)
	}
	return maybeDemote(r), nil
}

// maybeDemote keeps a BigInt result tagged-boxed as a plain Int when it
// fits the tagged range, per spec.md §4.8's note that BigInt values
// demote back to Int once a value would again fit.
func maybeDemote(r *big.Int) Value {
	if r.IsInt64() && fitsTaggedInt(r.Int64()) {
		return boxInt(r.Int64())
	}
	return BoxBigInt(r)
}

func arithFloat(op lir.Op, a, b float64) (Value, error) {
	var r float64
	switch op {
	case lir.OpAdd:
		r = a + b
	case lir.OpSub:
		r = a - b
	case lir.OpMul:
		r = a * b
	case lir.OpDiv:
		if b == 0 {
			return Null, runtimeErrorf("vm: float division by zero")
		}
		r = a / b
	case lir.OpMod:
		r = math.Mod(a, b)
	case lir.OpPow:
		r = math.Pow(a, b)
	default:
		return Null, runtimeErrorf("vm: unsupported float arithmetic op %s", op)
	}
	return BoxFloat(r), nil
}

func toFloat(v Value) float64 {
	if v.IsInt() {
		return float64(unboxInt(v))
	}
	o := unboxPointer(v)
	switch o.Kind {
	case ObjFloat:
		return o.AsFloat()
	case ObjBigInt:
		f, _ := new(big.Float).SetInt(o.AsBigInt()).Float64()
		return f
	default:
		return 0
	}
}

func toBigInt(v Value) *big.Int {
	if v.IsInt() {
		return big.NewInt(unboxInt(v))
	}
	return unboxPointer(v).AsBigInt()
}

func valuesEqual(a, b Value) bool {
	if a == b {
		return true
	}
	if a.IsPointer() && b.IsPointer() {
		oa, ob := unboxPointer(a), unboxPointer(b)
		if oa.Kind != ob.Kind {
			return false
		}
		switch oa.Kind {
		case ObjString:
			return oa.AsString() == ob.AsString()
		case ObjFloat:
			return oa.AsFloat() == ob.AsFloat()
		case ObjBigInt:
			return oa.AsBigInt().Cmp(ob.AsBigInt()) == 0
		}
	}
	return false
}

// compare returns -1/0/1 for comparable operands (Int/Float/BigInt
// numerically, String lexically). Any other pairing, including two
// values of different kinds, returns an error: no ordering across kinds
// is applied.
func compare(a, b Value) (int, error) {
	if a.IsInt() && b.IsInt() {
		x, y := unboxInt(a), unboxInt(b)
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		default:
			return 0, nil
		}
	}
	numeric := func(v Value) bool {
		if v.IsInt() {
			return true
		}
		if v.IsPointer() {
			k := unboxPointer(v).Kind
			return k == ObjFloat || k == ObjBigInt
		}
		return false
	}
	if numeric(a) && numeric(b) {
		x, y := toFloat(a), toFloat(b)
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.IsPointer() && b.IsPointer() {
		oa, ob := unboxPointer(a), unboxPointer(b)
		if oa.Kind == ObjString && ob.Kind == ObjString {
			switch {
			case oa.AsString() < ob.AsString():
				return -1, nil
			case oa.AsString() > ob.AsString():
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	return 0, runtimeErrorf("vm: values are not ordered-comparable")
}

func orderTruth(op lir.Op, c int) bool {
	switch op {
	case lir.OpLt:
		return c < 0
	case lir.OpLe:
		return c <= 0
	case lir.OpGt:
		return c > 0
	case lir.OpGe:
		return c >= 0
	default:
		return false
	}
}

func asStringOperand(v Value) (string, error) {
	if v.IsPointer() && unboxPointer(v).Kind == ObjString {
		return unboxPointer(v).AsString(), nil
	}
	return v.String(), nil
}

func getField(v Value, field string) (Value, error) {
	if !v.IsPointer() {
		return Null, runtimeErrorf("vm: cannot get field %q of non-record value", field)
	}
	o := unboxPointer(v)
	if o.Kind != ObjRecord {
		return Null, runtimeErrorf("vm: cannot get field %q of non-record value", field)
	}
	r := o.AsRecord()
	if fv, ok := r.Fields[field]; ok {
		return fv, nil
	}
	return Null, runtimeErrorf("vm: record %s has no field %q", r.TypeName, field)
}

func setField(v Value, field string, val Value) error {
	if !v.IsPointer() || unboxPointer(v).Kind != ObjRecord {
		return runtimeErrorf("vm: cannot set field %q of non-record value", field)
	}
	unboxPointer(v).AsRecord().Fields[field] = val
	return nil
}

func getIndex(v, idx Value) (Value, error) {
	if !v.IsPointer() {
		return Null, runtimeErrorf("vm: cannot index a non-collection value")
	}
	o := unboxPointer(v)
	switch o.Kind {
	case ObjList:
		l := o.AsList()
		i := unboxInt(idx)
		if i < 0 || i >= int64(len(l.Elems)) {
			return Null, runtimeErrorf("vm: list index %d out of range (len %d)", i, len(l.Elems))
		}
		return l.Elems[i], nil
	case ObjTuple:
		t := o.AsTuple()
		i := unboxInt(idx)
		if i < 0 || i >= int64(len(t)) {
			return Null, runtimeErrorf("vm: tuple index %d out of range (len %d)", i, len(t))
		}
		return t[i], nil
	case ObjMap:
		m := o.AsMap()
		for i, k := range m.Keys {
			if valuesEqual(k, idx) {
				return m.Values[i], nil
			}
		}
		return Null, nil
	default:
		return Null, runtimeErrorf("vm: value of kind %v is not indexable", o.Kind)
	}
}

func setIndex(v, idx, val Value) error {
	if !v.IsPointer() {
		return runtimeErrorf("vm: cannot index-assign a non-collection value")
	}
	o := unboxPointer(v)
	switch o.Kind {
	case ObjList:
		l := o.AsList()
		i := unboxInt(idx)
		if i < 0 || i >= int64(len(l.Elems)) {
			return runtimeErrorf("vm: list index %d out of range (len %d)", i, len(l.Elems))
		}
		l.Elems[i] = val
		return nil
	case ObjMap:
		m := o.AsMap()
		for i, k := range m.Keys {
			if valuesEqual(k, idx) {
				m.Values[i] = val
				return nil
			}
		}
		insertSorted(m, idx, val)
		return nil
	default:
		return runtimeErrorf("vm: value of kind %v is not index-assignable", o.Kind)
	}
}

// insertSorted keeps Map.Keys/Values sorted by the spec.md §3 total
// order, inserting a new key at its ordered position.
func insertSorted(m *Map, key, val Value) {
	i := 0
	for i < len(m.Keys) {
		c, err := compare(m.Keys[i], key)
		if err != nil || c >= 0 {
			break
		}
		i++
	}
	m.Keys = append(m.Keys, Null)
	copy(m.Keys[i+1:], m.Keys[i:])
	m.Keys[i] = key
	m.Values = append(m.Values, Null)
	copy(m.Values[i+1:], m.Values[i:])
	m.Values[i] = val
}

func appendValue(v, elem Value) error {
	if !v.IsPointer() {
		return runtimeErrorf("vm: cannot append onto a non-collection value")
	}
	o := unboxPointer(v)
	switch o.Kind {
	case ObjList:
		l := o.AsList()
		l.Elems = append(l.Elems, elem)
		return nil
	case ObjSet:
		s := o.AsSet()
		for _, e := range s.Elems {
			if valuesEqual(e, elem) {
				return nil
			}
		}
		s.Elems = append(s.Elems, elem)
		return nil
	default:
		return runtimeErrorf("vm: value of kind %v does not support append", o.Kind)
	}
}

func lengthOf(v Value) (int64, error) {
	if v.IsPointer() {
		o := unboxPointer(v)
		switch o.Kind {
		case ObjString:
			return int64(len(o.AsString())), nil
		case ObjBytes:
			return int64(len(o.AsBytes())), nil
		case ObjList:
			return int64(len(o.AsList().Elems)), nil
		case ObjTuple:
			return int64(len(o.AsTuple())), nil
		case ObjSet:
			return int64(len(o.AsSet().Elems)), nil
		case ObjMap:
			return int64(len(o.AsMap().Keys)), nil
		}
	}
	return 0, runtimeErrorf("vm: value has no length")
}

// diffValues, patchValue, and redactValue implement the record/map
// reconciliation primitives spec.md §4.13 exposes to durable-execution
// replay: Diff(old, new) yields a Record of only the changed fields,
// Patch(base, delta) applies such a diff back onto a base record, and
// Redact(v, field) zeroes a single field for audit logging.
func diffValues(oldV, newV Value) (Value, error) {
	if !oldV.IsPointer() || !newV.IsPointer() {
		return Null, runtimeErrorf("vm: diff requires two records")
	}
	oldR, ok1 := unboxPointer(oldV).Payload.(*Record)
	newR, ok2 := unboxPointer(newV).Payload.(*Record)
	if !ok1 || !ok2 {
		return Null, runtimeErrorf("vm: diff requires two records")
	}
	out := &Record{TypeName: newR.TypeName, Fields: map[string]Value{}}
	for k, nv := range newR.Fields {
		if ov, ok := oldR.Fields[k]; !ok || !valuesEqual(ov, nv) {
			out.Fields[k] = nv
		}
	}
	return BoxRecord(out), nil
}

func patchValue(baseV, deltaV Value) (Value, error) {
	if !baseV.IsPointer() || !deltaV.IsPointer() {
		return Null, runtimeErrorf("vm: patch requires two records")
	}
	baseR, ok1 := unboxPointer(baseV).Payload.(*Record)
	deltaR, ok2 := unboxPointer(deltaV).Payload.(*Record)
	if !ok1 || !ok2 {
		return Null, runtimeErrorf("vm: patch requires two records")
	}
	out := &Record{TypeName: baseR.TypeName, Fields: map[string]Value{}}
	for k, v := range baseR.Fields {
		out.Fields[k] = v
	}
	for k, v := range deltaR.Fields {
		out.Fields[k] = v
	}
	return BoxRecord(out), nil
}

func redactValue(v Value, field string) (Value, error) {
	if !v.IsPointer() {
		return Null, runtimeErrorf("vm: redact requires a record")
	}
	r, ok := unboxPointer(v).Payload.(*Record)
	if !ok {
		return Null, runtimeErrorf("vm: redact requires a record")
	}
	out := &Record{TypeName: r.TypeName, Fields: map[string]Value{}}
	for k, fv := range r.Fields {
		if k == field {
			out.Fields[k] = BoxString("<redacted>")
		} else {
			out.Fields[k] = fv
		}
	}
	return BoxRecord(out), nil
}
