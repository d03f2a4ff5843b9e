package lir

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/slices"
	"golang.org/x/mod/semver"
)

// ModuleVersion is the LIR format version emitted by this build. Per
// spec.md §6, opcode numbering is stable across a major version; a
// module's version is compared against the running toolchain's before
// it is accepted for execution or JIT compilation.
const ModuleVersion = "v1.0.0"

func init() {
	if !semver.IsValid(ModuleVersion) {
		panic("lir: ModuleVersion is not a valid semver tag: " + ModuleVersion)
	}
}

// Constant is one entry in a cell's constant pool. Only the value kinds
// that can appear as a literal operand are representable here; compound
// literals (lists, records, ...) are built by instructions at runtime.
type Constant struct {
	Kind  ConstKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstString
	ConstBool
	ConstNull
)

func IntConst(v int64) Constant      { return Constant{Kind: ConstInt, Int: v} }
func FloatConst(v float64) Constant  { return Constant{Kind: ConstFloat, Float: v} }
func StringConst(v string) Constant  { return Constant{Kind: ConstString, Str: v} }
func BoolConst(v bool) Constant      { return Constant{Kind: ConstBool, Bool: v} }
func NullConst() Constant            { return Constant{Kind: ConstNull} }

// Upvalue describes one captured binding a closure carries by value
// (spec.md §4.7: "Closures capture by value into an allocated closure
// object").
type Upvalue struct {
	Name       string
	FromParent bool // true if captured from the enclosing cell's locals, false if from a grandparent upvalue
	Index      uint8
}

// Cell is one compiled cell (function), process entry point, or trait
// method body.
type Cell struct {
	Name       string
	Arity      int
	NumRegs    int
	Code       []Instruction
	Constants  []Constant
	Upvalues   []Upvalue
	Effects    []string // declared or inferred effect row, carried through for the tool registry and JIT eligibility
	IsProcess  bool

	Compiled bool // set by the JIT once this cell has a tier-2 stencil; execution still dispatches through the interpreter (internal/jit)
}

// Module is the full lowered program: every cell plus metadata needed to
// validate compatibility before execution.
type Module struct {
	Version  string
	Cells    []*Cell
	DocHash  [32]byte // blake2b-256 digest of the originating markdown source (spec.md §6)
	EntryIdx int      // index into Cells of the module's entry point, -1 if none
}

// CheckVersion reports whether m's version is execution-compatible with
// the running toolchain, i.e. shares the same major version as
// ModuleVersion.
func (m *Module) CheckVersion() error {
	if !semver.IsValid(m.Version) {
		return fmt.Errorf("lir: module version %q is not valid semver", m.Version)
	}
	if semver.Major(m.Version) != semver.Major(ModuleVersion) {
		return fmt.Errorf("lir: module version %s is incompatible with runtime version %s", m.Version, ModuleVersion)
	}
	return nil
}

// NewModule builds a Module over the given cells, computing DocHash from
// the markdown source the cells were lowered from.
func NewModule(source string, cells []*Cell, entryIdx int) *Module {
	return &Module{
		Version:  ModuleVersion,
		Cells:    cells,
		DocHash:  blake2b.Sum256([]byte(source)),
		EntryIdx: entryIdx,
	}
}

// CellByName finds a cell by name, or nil.
func (m *Module) CellByName(name string) *Cell {
	for _, c := range m.Cells {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// sha256Hex is a SHA-256 content fingerprint of a cell's code, separate
// from the document-level DocHash. Nothing in the module calls it; the
// JIT keys its compiled cells by cell name.
func sha256Hex(code []Instruction) string {
	h := sha256.New()
	buf := make([]byte, 4)
	for _, instr := range code {
		buf[0], buf[1], buf[2], buf[3] = byte(instr.Op), instr.A, instr.B, instr.C
		h.Write(buf)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// SortedEffects returns a deterministically ordered copy of a cell's
// effect row, used wherever effect sets are displayed or compared.
func SortedEffects(effects []string) []string {
	out := append([]string(nil), effects...)
	slices.Sort(out)
	return out
}
