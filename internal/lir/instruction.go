// Package lir is the portable, versioned instruction format produced by
// lowering (spec.md §4.7) and consumed by both the VM interpreter (§4.8)
// and the tiered JIT (§4.11). The encoding follows the teacher's
// register-based bytecode (internal/vmregister/bytecode.go): a 32-bit
// instruction packed as 8-bit opcode plus either three 8-bit register
// operands (iABC) or one 8-bit register and one 16-bit constant/jump-target
// index (iABx/iAsBx).
package lir

// Op identifies one instruction. Numbering is part of the module's
// on-disk contract (§6): once a module ships, an opcode's position in
// this list must not change, only be appended to.
type Op uint8

const (
	OpMove Op = iota
	OpLoadK
	OpLoadBool
	OpLoadNil

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg

	OpAddK // AddK R(A) R(B) Kst(C): R(A) = R(B) + K(C), a peephole fusion of Load+Add not yet emitted by lowering
	OpSubK
	OpMulK
	OpDivK

	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe

	OpNot
	OpAnd
	OpOr
	OpTest    // Test R(A): skip next instr if !is_truthy(R(A))
	OpTestSet // TestSet R(A) R(B): if is_truthy(R(B)) R(A)=R(B) else skip next instr

	OpJmp // Jmp sBx: pc += sBx

	OpGetGlobal
	OpSetGlobal
	OpGetUpval
	OpSetUpval

	OpNewRecord // NewRecord R(A) Kst(Bx): R(A) = new instance of record type K(Bx)
	OpNewList
	OpNewSet
	OpNewMap
	OpNewTuple
	OpGetField   // GetField R(A) R(B) Kst(C): R(A) = R(B).field[K(C)]
	OpSetField   // SetField R(A) Kst(B) R(C): R(A).field[K(B)] = R(C)
	OpGetIndex   // GetIndex R(A) R(B) R(C): R(A) = R(B)[R(C)]
	OpSetIndex   // SetIndex R(A) R(B) R(C): R(A)[R(B)] = R(C)
	OpAppend     // Append R(A) R(B): append R(B) onto list/set R(A)
	OpLen        // Len R(A) R(B): R(A) = length of R(B)
	OpConcat     // Concat R(A) R(B) R(C): R(A) = R(B) ++ R(C) (string concatenation)
	OpNullCheck  // NullCheck R(A) R(B): R(A) = R(B) != null
	OpForceUnwrap

	OpClosure  // Closure R(A) Bx: R(A) = new closure over the cell named by K(Bx), capturing upvalues per the cell's upvalue list
	OpCall     // Call R(A) B C: B-1 args at R(A+1).., call R(A); C-1 results land starting at R(A)
	OpTailCall // TailCall R(A) B: reuse current frame; B-1 args at R(A+1)..
	OpReturn   // Return R(A) B: B-1 return values starting at R(A) (B==1 means no values)

	OpToolCall // ToolCall R(A) B Kst(C): dispatch tool K(C) with B args starting at R(A+1), result in R(A)

	OpDiff   // Diff R(A) R(B) R(C): R(A) = diff(R(B), R(C))
	OpPatch  // Patch R(A) R(B) R(C): R(A) = patch(R(B), R(C))
	OpRedact // Redact R(A) R(B) Kst(C): R(A) = redact(R(B), fields K(C))

	OpYield      // Yield: cooperative safepoint, no operands
	OpCheckpoint // Checkpoint R(A): snapshot execution state, R(A) unused or holds a label constant

	OpIterInit // IterInit R(A) R(B): R(A) = iterator over sequence R(B)
	OpIterNext // IterNext R(A) R(B) R(C): R(A) = iterator R(B) has a next element (bool); if so, also advances R(B) and stores the element in R(C)

	OpHalt // Halt R(A): terminate the process with R(A) as the halt value

	OpMakeFuture // MakeFuture R(A) R(B): spawn the zero-arg closure in R(B), R(A) = a Future handle to its eventual result
	OpAwait      // Await R(A) R(B): suspend until the Future in R(B) resolves, R(A) = its result (propagating its error)
)

var names = map[Op]string{
	OpMove: "Move", OpLoadK: "LoadK", OpLoadBool: "LoadBool", OpLoadNil: "LoadNil",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod", OpPow: "Pow", OpNeg: "Neg",
	OpAddK: "AddK", OpSubK: "SubK", OpMulK: "MulK", OpDivK: "DivK",
	OpEq: "Eq", OpNeq: "Neq", OpLt: "Lt", OpLe: "Le", OpGt: "Gt", OpGe: "Ge",
	OpNot: "Not", OpAnd: "And", OpOr: "Or", OpTest: "Test", OpTestSet: "TestSet",
	OpJmp: "Jmp", OpGetGlobal: "GetGlobal", OpSetGlobal: "SetGlobal",
	OpGetUpval: "GetUpval", OpSetUpval: "SetUpval",
	OpNewRecord: "NewRecord", OpNewList: "NewList", OpNewSet: "NewSet", OpNewMap: "NewMap", OpNewTuple: "NewTuple",
	OpGetField: "GetField", OpSetField: "SetField", OpGetIndex: "GetIndex", OpSetIndex: "SetIndex",
	OpAppend: "Append", OpLen: "Len", OpConcat: "Concat", OpNullCheck: "NullCheck", OpForceUnwrap: "ForceUnwrap",
	OpClosure: "Closure", OpCall: "Call", OpTailCall: "TailCall", OpReturn: "Return",
	OpToolCall: "ToolCall", OpDiff: "Diff", OpPatch: "Patch", OpRedact: "Redact",
	OpYield: "Yield", OpCheckpoint: "Checkpoint", OpIterInit: "IterInit", OpIterNext: "IterNext",
	OpHalt: "Halt",
	OpMakeFuture: "MakeFuture", OpAwait: "Await",
}

func (op Op) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return "UNKNOWN"
}

// Instruction is one packed 32-bit register-machine instruction. Fields
// beyond what an opcode uses are simply ignored by that opcode's
// execution; Bx/SBx overlay the same 16 bits as B<<8|C for instructions
// that need a wider single operand (constant index, jump offset).
type Instruction struct {
	Op Op
	A  uint8
	B  uint8
	C  uint8
}

// ABC packs three register operands.
func ABC(op Op, a, b, c uint8) Instruction { return Instruction{Op: op, A: a, B: b, C: c} }

// ABx packs one register operand and one 16-bit unsigned operand (a
// constant-pool or jump-table index), split across B and C.
func ABx(op Op, a uint8, bx uint16) Instruction {
	return Instruction{Op: op, A: a, B: uint8(bx >> 8), C: uint8(bx)}
}

// Bx extracts the 16-bit unsigned operand packed by ABx.
func (i Instruction) Bx() uint16 { return uint16(i.B)<<8 | uint16(i.C) }

// AsBx packs one register operand and a signed 16-bit jump offset, biased
// by half the range so it round-trips through the same B/C bytes as ABx.
func AsBx(op Op, a uint8, sbx int32) Instruction {
	return ABx(op, a, uint16(sbx+32768))
}

// SBx extracts the signed 16-bit operand packed by AsBx.
func (i Instruction) SBx() int32 { return int32(i.Bx()) - 32768 }
