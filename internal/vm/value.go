// Package vm is the register-machine interpreter that executes lowered
// lir.Module cells (spec.md §4.8). Its dispatch loop, call-frame shape,
// and per-opcode behavior follow internal/vmregister/vm.go; the value
// representation deliberately departs from that file's NaN-boxing in
// favor of spec.md §3's low-3-bit type-tag boxing (documented in
// DESIGN.md).
package vm

import (
	"fmt"
	"math/big"
	"unsafe"

	"lumen/internal/gc"
)

// Tag occupies the low 3 bits of a boxed Value, per spec.md §3
// ("low 3 bits = type tag; pointers are 8-byte aligned so their low
// bits are zero"): TagNull/TagBool/TagInt are immediates carried
// entirely in the word; TagPtr's payload is a real *Object address
// with the tag bits OR'd into its otherwise-unused low bits, masked
// back off before the pointer is dereferenced.
type Tag uint64

const (
	TagNull Tag = iota
	TagBool
	TagInt
	TagPtr
)

const tagMask = 0x7

// Value is a tagged 64-bit machine word: either a tagged immediate
// (Null/Bool/Int) or, when the low 3 bits are TagPtr, a pointer to a
// heap-allocated Object carrying its own 8-byte GcHeader (C11).
//
// Floats do not fit in the 61 remaining payload bits without losing
// precision, so a Float value is boxed as a pointer to a heap-allocated
// *Object of kind ObjFloat — the same path BigInt, String, and every
// compound value already take, matching the tradeoff spec.md §3 leaves
// open ("may additionally be tagged-value-boxed").
type Value uint64

func tagOf(v Value) Tag { return Tag(v & tagMask) }

func boxInt(i int64) Value {
	return Value(uint64(i)<<3) | Value(TagInt)
}

func unboxInt(v Value) int64 {
	return int64(v) >> 3
}

func boxBool(b bool) Value {
	if b {
		return Value(1<<3) | Value(TagBool)
	}
	return Value(TagBool)
}

func unboxBool(v Value) bool { return v>>3 != 0 }

var Null = Value(TagNull)

func boxPointer(o *Object) Value {
	return Value(uintptr(unsafe.Pointer(o))) | Value(TagPtr)
}

func unboxPointer(v Value) *Object {
	return (*Object)(unsafe.Pointer(uintptr(v &^ tagMask)))
}

func (v Value) IsNull() bool    { return tagOf(v) == TagNull }
func (v Value) IsInt() bool     { return tagOf(v) == TagInt }
func (v Value) IsBool() bool    { return tagOf(v) == TagBool }
func (v Value) IsPointer() bool { return tagOf(v) == TagPtr }

// BoxInt and BoxBool are the exported counterparts of the package's
// internal immediate boxing, for callers outside vm (e.g. the tool
// registry) that need to construct argument/result Values.
func BoxInt(i int64) Value    { return boxInt(i) }
func BoxBool(b bool) Value    { return boxBool(b) }
func (v Value) AsInt() int64  { return unboxInt(v) }
func (v Value) AsBool() bool  { return unboxBool(v) }

// AsObject returns the heap Object a pointer Value addresses; callers
// must check IsPointer first.
func (v Value) AsObject() *Object { return unboxPointer(v) }

// ObjKind discriminates heap-allocated Object payloads.
type ObjKind uint8

const (
	ObjFloat ObjKind = iota
	ObjBigInt
	ObjString
	ObjBytes
	ObjList
	ObjTuple
	ObjSet
	ObjMap
	ObjRecord
	ObjUnion
	ObjClosure
	ObjFuture
)

// objTypeTag maps an ObjKind to the gc.TypeTag the collector traces by,
// since gc.GcHeader only ever sees the tag, never the vm.ObjKind.
var objTypeTag = map[ObjKind]gc.TypeTag{
	ObjFloat:   gc.TagFloat,
	ObjBigInt:  gc.TagBigInt,
	ObjString:  gc.TagString,
	ObjBytes:   gc.TagBytes,
	ObjList:    gc.TagList,
	ObjTuple:   gc.TagTuple,
	ObjSet:     gc.TagSet,
	ObjMap:     gc.TagMap,
	ObjRecord:  gc.TagRecord,
	ObjUnion:   gc.TagUnion,
	ObjClosure: gc.TagClosure,
	ObjFuture:  gc.TagFuture,
}

// Object is the uniform heap header that every boxed, non-immediate
// value shares; the collector (internal/gc) walks these via Header,
// leaving Payload opaque to it.
type Object struct {
	Header  gc.GcHeader
	Kind    ObjKind
	Payload any
}

func NewObject(kind ObjKind, payload any) *Object {
	return &Object{
		Header:  gc.NewHeader(objTypeTag[kind], 0),
		Kind:    kind,
		Payload: payload,
	}
}

func BoxFloat(f float64) Value      { return boxPointer(NewObject(ObjFloat, f)) }
func BoxBigInt(b *big.Int) Value    { return boxPointer(NewObject(ObjBigInt, b)) }
func BoxString(s string) Value      { return boxPointer(NewObject(ObjString, s)) }
func BoxBytes(b []byte) Value       { return boxPointer(NewObject(ObjBytes, b)) }
func BoxList(l *List) Value         { return boxPointer(NewObject(ObjList, l)) }
func BoxTuple(t []Value) Value      { return boxPointer(NewObject(ObjTuple, t)) }
func BoxSet(s *Set) Value           { return boxPointer(NewObject(ObjSet, s)) }
func BoxMap(m *Map) Value           { return boxPointer(NewObject(ObjMap, m)) }
func BoxRecord(r *Record) Value     { return boxPointer(NewObject(ObjRecord, r)) }
func BoxUnion(u *Union) Value       { return boxPointer(NewObject(ObjUnion, u)) }
func BoxClosure(c *Closure) Value   { return boxPointer(NewObject(ObjClosure, c)) }
func BoxFuture(f *Future) Value     { return boxPointer(NewObject(ObjFuture, f)) }

// List, Set, Map, Record, Union, and Closure are the compound runtime
// values; List/Set/Map stay simple Go containers since the GC's root
// walk only needs to reach into Payload, not reimplement it.
type List struct{ Elems []Value }
type Set struct{ Elems []Value } // linear; small sets only, matching spec.md's omission of a hash-set requirement
type Map struct {
	Keys   []Value // kept sorted, spec.md §3: "Map(sorted-by-key)"
	Values []Value
}
type Record struct {
	TypeName string
	Fields   map[string]Value
}
type Union struct {
	Tag     string
	Payload Value
}
type Closure struct {
	CellName string
	Captures []Value
}

// Future is a handle to a suspended frame held by the scheduler (spec.md
// §9: "futures are reference-counted and the scheduler holds the sole
// strong reference until resumption"). This package's driver is a
// goroutine rather than the scheduler's PCB queue: MakeFuture spawns the
// cell invocation directly, and Await blocks on done — the same
// interpreted-completion granularity internal/scheduler already runs
// whole cells at, so no hidden continuation machinery is needed to keep
// spec.md §9's "no hidden continuations" contract.
type Future struct {
	done   chan struct{}
	result Value
	err    error
}

func NewFuture() *Future { return &Future{done: make(chan struct{})} }

// Resolve records the completed result and wakes any Wait. Calling it
// twice on the same Future panics by closing an already-closed channel,
// matching a future's single-assignment contract.
func (f *Future) Resolve(v Value, err error) {
	f.result, f.err = v, err
	close(f.done)
}

// Wait blocks until Resolve has been called and returns its result.
func (f *Future) Wait() (Value, error) {
	<-f.done
	return f.result, f.err
}

// AsFloat, AsBigInt, etc. unwrap a pointer Value whose Object.Kind is
// known by the caller (the VM only calls these where a prior type
// check, or the instruction's own contract, already guarantees it).
func (o *Object) AsFloat() float64    { return o.Payload.(float64) }
func (o *Object) AsBigInt() *big.Int  { return o.Payload.(*big.Int) }
func (o *Object) AsString() string    { return o.Payload.(string) }
func (o *Object) AsBytes() []byte     { return o.Payload.([]byte) }
func (o *Object) AsList() *List       { return o.Payload.(*List) }
func (o *Object) AsTuple() []Value    { return o.Payload.([]Value) }
func (o *Object) AsSet() *Set         { return o.Payload.(*Set) }
func (o *Object) AsMap() *Map         { return o.Payload.(*Map) }
func (o *Object) AsRecord() *Record   { return o.Payload.(*Record) }
func (o *Object) AsUnion() *Union     { return o.Payload.(*Union) }
func (o *Object) AsClosure() *Closure { return o.Payload.(*Closure) }
func (o *Object) AsFuture() *Future    { return o.Payload.(*Future) }

// GCHeader implements gc.Traceable, giving the collector access to this
// object's color/pin bits without gc needing to know about ObjKind.
func (o *Object) GCHeader() *gc.GcHeader { return &o.Header }

// References implements gc.Traceable: every other heap Object this one
// points to directly, so the collector's mark phase can walk the graph
// without understanding any particular ObjKind's payload shape itself.
func (o *Object) References() []gc.Traceable {
	var refs []gc.Traceable
	add := func(v Value) {
		if v.IsPointer() {
			refs = append(refs, unboxPointer(v))
		}
	}
	switch o.Kind {
	case ObjList:
		for _, v := range o.AsList().Elems {
			add(v)
		}
	case ObjTuple:
		for _, v := range o.AsTuple() {
			add(v)
		}
	case ObjSet:
		for _, v := range o.AsSet().Elems {
			add(v)
		}
	case ObjMap:
		m := o.AsMap()
		for _, v := range m.Keys {
			add(v)
		}
		for _, v := range m.Values {
			add(v)
		}
	case ObjRecord:
		for _, v := range o.AsRecord().Fields {
			add(v)
		}
	case ObjUnion:
		add(o.AsUnion().Payload)
	case ObjClosure:
		for _, v := range o.AsClosure().Captures {
			add(v)
		}
	case ObjFuture:
		f := o.AsFuture()
		select {
		case <-f.done:
			add(f.result)
		default:
			// Not yet resolved: the spawned goroutine still owns result,
			// nothing to trace through this Future yet.
		}
	}
	return refs
}

// IsTruthy implements the VM's Test/`if`/`while` primitive: Null, false,
// 0, and "" are falsy (spec.md §4.8).
func IsTruthy(v Value) bool {
	switch tagOf(v) {
	case TagNull:
		return false
	case TagBool:
		return unboxBool(v)
	case TagInt:
		return unboxInt(v) != 0
	case TagPtr:
		o := unboxPointer(v)
		switch o.Kind {
		case ObjFloat:
			return o.AsFloat() != 0
		case ObjString:
			return o.AsString() != ""
		default:
			return true
		}
	default:
		return true
	}
}

func (v Value) String() string {
	switch tagOf(v) {
	case TagNull:
		return "null"
	case TagBool:
		return fmt.Sprintf("%t", unboxBool(v))
	case TagInt:
		return fmt.Sprintf("%d", unboxInt(v))
	case TagPtr:
		o := unboxPointer(v)
		switch o.Kind {
		case ObjFloat:
			return fmt.Sprintf("%g", o.AsFloat())
		case ObjBigInt:
			return o.AsBigInt().String()
		case ObjString:
			return o.AsString()
		default:
			return fmt.Sprintf("<%v>", o.Kind)
		}
	default:
		return "?"
	}
}
