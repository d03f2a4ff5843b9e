// Package ast defines the syntax tree produced by the parser (spec.md §3).
package ast

import "lumen/internal/span"

// Program is the root of one compiled source unit.
type Program struct {
	Directives []Directive
	Items      []Item
	Span       span.Span
}

// Directive mirrors markdown.Directive once carried into the AST.
type Directive struct {
	Name  string
	Value string
	Span  span.Span
}

// Item is the interface satisfied by every top-level declaration.
type Item interface {
	itemNode()
	Span() span.Span
}

type baseItem struct{ span span.Span }

func (b baseItem) itemNode()     {}
func (b baseItem) Span() span.Span { return b.span }

// Field is a named, typed struct member, optionally refined by a `where` clause.
type Field struct {
	Name    string
	Type    TypeExpr
	Where   Expr // nil if absent
	Span    span.Span
}

// RecordDef declares a `record` item, optionally generic.
type RecordDef struct {
	baseItem
	Name       string
	TypeParams []string
	Fields     []Field
}

// EnumVariant is one arm of an `enum` declaration. Payload is nil for a
// unit variant. GADTArgs is non-nil when the variant specializes the
// parent's type parameters via `-> EnumName[ConcreteArgs]`.
type EnumVariant struct {
	Name     string
	Payload  TypeExpr // nil if unit variant
	GADTArgs []TypeExpr
	Span     span.Span
}

// EnumDef declares an `enum` item, optionally generic and optionally GADT-shaped.
type EnumDef struct {
	baseItem
	Name       string
	TypeParams []string
	Variants   []EnumVariant
}

// Param is one cell parameter.
type Param struct {
	Name string
	Type TypeExpr
	Span span.Span
}

// CellDef declares a `cell` (function) item.
type CellDef struct {
	baseItem
	Name       string
	TypeParams []string
	Params     []Param
	Return     TypeExpr
	Effects    []string // declared effect row; nil means inferred
	Body       []Stmt
}

// UseToolDef is a `use tool X as Y` item.
type UseToolDef struct {
	baseItem
	Tool  string
	Alias string
}

// GrantDef is a `grant Y` item.
type GrantDef struct {
	baseItem
	Capability string
}

// TypeAliasDef is a `type Name = TypeExpr`-shaped item.
type TypeAliasDef struct {
	baseItem
	Name       string
	TypeParams []string
	Aliased    TypeExpr
}

// ProcessDef declares a `process` item: a cell-like entry point spawned
// onto the scheduler rather than called directly.
type ProcessDef struct {
	baseItem
	Name    string
	Params  []Param
	Effects []string
	Body    []Stmt
}

// EffectDef declares an effect label and its call signature.
type EffectDef struct {
	baseItem
	Name   string
	Params []Param
	Return TypeExpr
}

// HandlerDef implements an EffectDef for use inside a `role` or process scope.
type HandlerDef struct {
	baseItem
	Effect string
	Body   []Stmt
}

// TraitMethod is one method signature inside a `trait` declaration.
// DefaultBody is nil when the method has no default implementation,
// meaning every `impl` must supply one.
type TraitMethod struct {
	Name        string
	Params      []Param
	Return      TypeExpr
	DefaultBody []Stmt
	Span        span.Span
}

// TraitDef declares a `trait` item.
type TraitDef struct {
	baseItem
	Name    string
	Methods []TraitMethod
}

// ImplDef implements a trait for a concrete type.
type ImplDef struct {
	baseItem
	Trait   string
	Type    string
	Methods []CellDef
}

// ConstDef declares a module-level constant.
type ConstDef struct {
	baseItem
	Name  string
	Type  TypeExpr // nil if inferred
	Value Expr
}

// MacroDef declares a hygienic, syntactic macro.
type MacroDef struct {
	baseItem
	Name   string
	Params []string
	Body   []Stmt
}

// TypeExpr is the interface satisfied by every type-annotation node.
type TypeExpr interface {
	typeExprNode()
	Span() span.Span
}

type baseType struct{ span span.Span }

func (b baseType) typeExprNode()    {}
func (b baseType) Span() span.Span { return b.span }

// NamedType is a bare type name, e.g. `Int` or `Box`.
type NamedType struct {
	baseType
	Name string
}

// ListType is `list T`.
type ListType struct {
	baseType
	Elem TypeExpr
}

// MapType is `map K V`.
type MapType struct {
	baseType
	Key, Value TypeExpr
}

// SetType is `set T`.
type SetType struct {
	baseType
	Elem TypeExpr
}

// TupleType is `(T1, T2, ...)`.
type TupleType struct {
	baseType
	Elems []TypeExpr
}

// ResultType is `result T E`.
type ResultType struct {
	baseType
	Ok, Err TypeExpr
}

// UnionType is `T1 | T2 | ...`.
type UnionType struct {
	baseType
	Alternatives []TypeExpr
}

// NullType marks a type annotation as nullable (`T?`).
type NullType struct {
	baseType
	Inner TypeExpr
}

// FnType is a first-class function type with an optional effect row.
type FnType struct {
	baseType
	Params  []TypeExpr
	Return  TypeExpr
	Effects []string
}

// GenericType is `Name[Arg1, Arg2, ...]`.
type GenericType struct {
	baseType
	Name string
	Args []TypeExpr
}

// Stmt is the interface satisfied by every statement node.
type Stmt interface {
	stmtNode()
	Span() span.Span
}

type baseStmt struct{ span span.Span }

func (b baseStmt) stmtNode()       {}
func (b baseStmt) Span() span.Span { return b.span }

// LetStmt binds a new local.
type LetStmt struct {
	baseStmt
	Name  string
	Type  TypeExpr // nil if inferred
	Value Expr
}

// IfStmt is an `if ... else ... end` statement.
type IfStmt struct {
	baseStmt
	Cond Expr
	Then []Stmt
	Else []Stmt // nil if absent; may itself be a single IfStmt for `else if`
}

// ForStmt is `for x in seq ... end`.
type ForStmt struct {
	baseStmt
	Var  string
	Seq  Expr
	Body []Stmt
}

// WhileStmt is `while cond ... end`.
type WhileStmt struct {
	baseStmt
	Cond Expr
	Body []Stmt
}

// MatchArm is one `case pattern -> body` arm of a MatchStmt/MatchExpr.
type MatchArm struct {
	Pattern Pattern
	Body    []Stmt
	Span    span.Span
}

// MatchStmt is a `match subject ... end` statement.
type MatchStmt struct {
	baseStmt
	Subject Expr
	Arms    []MatchArm
}

// ReturnStmt is `return expr`.
type ReturnStmt struct {
	baseStmt
	Value Expr // nil for bare `return`
}

// HaltStmt is `halt expr`, an unrecoverable process termination.
type HaltStmt struct {
	baseStmt
	Value Expr
}

// AssignStmt is `target = value`.
type AssignStmt struct {
	baseStmt
	Target Expr
	Value  Expr
}

// ExprStmt is an expression evaluated for its side effect.
type ExprStmt struct {
	baseStmt
	Value Expr
}

// BreakStmt exits the nearest enclosing loop.
type BreakStmt struct{ baseStmt }

// ContinueStmt advances to the next iteration of the nearest enclosing loop.
type ContinueStmt struct{ baseStmt }

// Pattern is the interface satisfied by every match-pattern node.
type Pattern interface {
	patternNode()
	Span() span.Span
}

type basePattern struct{ span span.Span }

func (b basePattern) patternNode()    {}
func (b basePattern) Span() span.Span { return b.span }

// WildcardPattern matches anything and binds nothing (`_`).
type WildcardPattern struct{ basePattern }

// BindPattern matches anything and binds it to Name.
type BindPattern struct {
	basePattern
	Name string
}

// LiteralPattern matches a literal expression's value.
type LiteralPattern struct {
	basePattern
	Value Expr
}

// VariantPattern matches an enum variant, optionally binding its payload.
type VariantPattern struct {
	basePattern
	Enum    string // empty if inferred from subject type
	Variant string
	Bind    string // empty if payload is not bound
}

// Expr is the interface satisfied by every expression node.
type Expr interface {
	exprNode()
	Span() span.Span
}

type baseExpr struct{ span span.Span }

func (b baseExpr) exprNode()       {}
func (b baseExpr) Span() span.Span { return b.span }

// IntLit is an integer literal.
type IntLit struct {
	baseExpr
	Value int64
}

// FloatLit is a floating-point literal.
type FloatLit struct {
	baseExpr
	Value float64
}

// StringSegment is one piece of an interpolated string.
type StringSegment struct {
	Literal string
	Expr    Expr // nil for a literal segment
}

// StringLit is a (possibly interpolated) string literal.
type StringLit struct {
	baseExpr
	Segments []StringSegment
}

// BoolLit is `true`/`false`.
type BoolLit struct {
	baseExpr
	Value bool
}

// NullLit is `null`.
type NullLit struct{ baseExpr }

// Ident is a bare identifier reference.
type Ident struct {
	baseExpr
	Name string
}

// ListLit is `[e1, e2, ...]`.
type ListLit struct {
	baseExpr
	Elems []Expr
}

// MapEntry is one `key: value` pair in a MapLit.
type MapEntry struct {
	Key, Value Expr
}

// MapLit is `{k1: v1, k2: v2, ...}`.
type MapLit struct {
	baseExpr
	Entries []MapEntry
}

// SetLit is `{e1, e2, ...}` in set position.
type SetLit struct {
	baseExpr
	Elems []Expr
}

// TupleLit is `(e1, e2, ...)`.
type TupleLit struct {
	baseExpr
	Elems []Expr
}

// FieldInit is one `name: value` field initializer in a RecordLit.
type FieldInit struct {
	Name  string
	Value Expr
}

// RecordLit is `Name(field: value, ...)`.
type RecordLit struct {
	baseExpr
	Name   string
	Fields []FieldInit
}

// BinOp is a binary operator application.
type BinOp struct {
	baseExpr
	Op          string
	Left, Right Expr
}

// UnaryOp is a unary operator application (`-`, `not`).
type UnaryOp struct {
	baseExpr
	Op      string
	Operand Expr
}

// ArgKind distinguishes positional, named, and role call arguments.
type ArgKind int

const (
	ArgPositional ArgKind = iota
	ArgNamed
	ArgRole
)

// Arg is one call argument.
type Arg struct {
	Kind  ArgKind
	Name  string // set for ArgNamed/ArgRole
	Value Expr
}

// Call is `callee(args...)`.
type Call struct {
	baseExpr
	Callee Expr
	Args   []Arg
}

// ToolCall is `tool_alias(args...)`, distinguished from Call at parse time
// by the callee resolving through a `use tool` alias; role arguments are
// only legal here.
type ToolCall struct {
	baseExpr
	Tool string
	Args []Arg
}

// DotAccess is `target.field`.
type DotAccess struct {
	baseExpr
	Target Expr
	Field  string
	Safe   bool // true for `?.`
}

// IndexAccess is `target[index]`.
type IndexAccess struct {
	baseExpr
	Target, Index Expr
	Safe          bool // true for `?[`
}

// NullCoalesce is `left ?? right`.
type NullCoalesce struct {
	baseExpr
	Left, Right Expr
}

// ForceUnwrap is `expr!`, asserting a nullable expression is non-null.
type ForceUnwrap struct {
	baseExpr
	Operand Expr
}

// RoleBlock is `role name: body...end`, used to scope tool-call role arguments.
type RoleBlock struct {
	baseExpr
	Name string
	Body []Stmt
}

// ExpectSchema asserts a value against a schema expression, used to
// validate tool responses.
type ExpectSchema struct {
	baseExpr
	Value  Expr
	Schema Expr
}

// TryExpr is `try expr`, converting a Result-returning expression's error
// into an early return from the enclosing cell.
type TryExpr struct {
	baseExpr
	Value Expr
}
