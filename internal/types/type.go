// Package types implements Lumen's bidirectional type inference and
// checking (spec.md §4.5) over a resolved program.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the resolved Type variants of spec.md §3. Lumen's
// compile-time type is represented as one tagged struct rather than a Go
// interface hierarchy (matching the original compiler's plain `enum Type`)
// since types carry no behavior of their own beyond equality and display.
type Kind int

const (
	KString Kind = iota
	KInt
	KFloat
	KBool
	KBytes
	KJson
	KNull
	KAny
	KList
	KSet
	KMap
	KTuple
	KRecord
	KEnum
	KResult
	KUnion
	KFn
	KGeneric // an unbound type-parameter reference, e.g. `T`
	KTypeRef // a generic type applied to concrete arguments, e.g. `Box[Int]`
)

// Type is a resolved, compile-time Lumen type.
type Type struct {
	Kind Kind

	Name string // Record/Enum/Generic/TypeRef name

	Elem  *Type // List/Set
	Key   *Type // Map
	Value *Type // Map

	Elems []Type // Tuple

	Ok  *Type // Result
	Err *Type // Result

	Alternatives []Type // Union

	Params  []Type // Fn
	Return  *Type  // Fn
	Effects []string

	Args []Type // TypeRef
}

var (
	String = Type{Kind: KString}
	Int    = Type{Kind: KInt}
	Float  = Type{Kind: KFloat}
	Bool   = Type{Kind: KBool}
	Bytes  = Type{Kind: KBytes}
	Json   = Type{Kind: KJson}
	Null   = Type{Kind: KNull}
	Any    = Type{Kind: KAny}
)

func List(elem Type) Type       { return Type{Kind: KList, Elem: &elem} }
func Set(elem Type) Type        { return Type{Kind: KSet, Elem: &elem} }
func Map(key, value Type) Type  { return Type{Kind: KMap, Key: &key, Value: &value} }
func Tuple(elems []Type) Type   { return Type{Kind: KTuple, Elems: elems} }
func Record(name string) Type   { return Type{Kind: KRecord, Name: name} }
func Enum(name string) Type     { return Type{Kind: KEnum, Name: name} }
func Result(ok, err Type) Type  { return Type{Kind: KResult, Ok: &ok, Err: &err} }
func Union(alts []Type) Type    { return Type{Kind: KUnion, Alternatives: alts} }
func Generic(name string) Type  { return Type{Kind: KGeneric, Name: name} }
func TypeRef(name string, args []Type) Type {
	return Type{Kind: KTypeRef, Name: name, Args: args}
}
func Fn(params []Type, ret Type, effects []string) Type {
	return Type{Kind: KFn, Params: params, Return: &ret, Effects: effects}
}

// String renders the type for error messages, matching the original
// compiler's `Display` impl (`list[T]`, `map[K, V]`, `T1 | T2`, ...).
func (t Type) String() string {
	switch t.Kind {
	case KString:
		return "String"
	case KInt:
		return "Int"
	case KFloat:
		return "Float"
	case KBool:
		return "Bool"
	case KBytes:
		return "Bytes"
	case KJson:
		return "Json"
	case KNull:
		return "Null"
	case KAny:
		return "Any"
	case KList:
		return fmt.Sprintf("list[%s]", t.Elem)
	case KSet:
		return fmt.Sprintf("set[%s]", t.Elem)
	case KMap:
		return fmt.Sprintf("map[%s, %s]", t.Key, t.Value)
	case KTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
	case KRecord, KEnum, KGeneric:
		return t.Name
	case KResult:
		return fmt.Sprintf("result[%s, %s]", t.Ok, t.Err)
	case KUnion:
		parts := make([]string, len(t.Alternatives))
		for i, a := range t.Alternatives {
			parts[i] = a.String()
		}
		return strings.Join(parts, " | ")
	case KFn:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("fn(%s) -> %s", strings.Join(parts, ", "), t.Return)
	case KTypeRef:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s[%s]", t.Name, strings.Join(parts, ", "))
	default:
		return "?"
	}
}

// Equal is structural equality, except Record/Enum/Generic/TypeRef which
// compare nominally by name (spec.md §3: "Equality is structural except
// for nominal Record/Enum").
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KRecord, KEnum, KGeneric:
		return a.Name == b.Name
	case KList, KSet:
		return Equal(*a.Elem, *b.Elem)
	case KMap:
		return Equal(*a.Key, *b.Key) && Equal(*a.Value, *b.Value)
	case KTuple:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case KResult:
		return Equal(*a.Ok, *b.Ok) && Equal(*a.Err, *b.Err)
	case KUnion:
		if len(a.Alternatives) != len(b.Alternatives) {
			return false
		}
		for i := range a.Alternatives {
			if !Equal(a.Alternatives[i], b.Alternatives[i]) {
				return false
			}
		}
		return true
	case KTypeRef:
		if a.Name != b.Name || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	case KFn:
		if len(a.Params) != len(b.Params) || !Equal(*a.Return, *b.Return) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	default:
		return true // primitive kinds with no payload
	}
}

// IsAny reports whether t is the unification escape hatch.
func (t Type) IsAny() bool { return t.Kind == KAny }
