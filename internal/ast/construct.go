package ast

import "lumen/internal/span"

// These constructors let other packages (chiefly the parser) build Item
// nodes without reaching into the unexported baseItem.span field.

func NewRecordDef(sp span.Span, name string, typeParams []string, fields []Field) *RecordDef {
	return &RecordDef{baseItem: baseItem{sp}, Name: name, TypeParams: typeParams, Fields: fields}
}

func NewEnumDef(sp span.Span, name string, typeParams []string, variants []EnumVariant) *EnumDef {
	return &EnumDef{baseItem: baseItem{sp}, Name: name, TypeParams: typeParams, Variants: variants}
}

func NewCellDef(sp span.Span, name string, typeParams []string, params []Param, ret TypeExpr, effects []string, body []Stmt) *CellDef {
	return &CellDef{baseItem: baseItem{sp}, Name: name, TypeParams: typeParams, Params: params, Return: ret, Effects: effects, Body: body}
}

func NewUseToolDef(sp span.Span, tool, alias string) *UseToolDef {
	return &UseToolDef{baseItem: baseItem{sp}, Tool: tool, Alias: alias}
}

func NewGrantDef(sp span.Span, capability string) *GrantDef {
	return &GrantDef{baseItem: baseItem{sp}, Capability: capability}
}

func NewTypeAliasDef(sp span.Span, name string, typeParams []string, aliased TypeExpr) *TypeAliasDef {
	return &TypeAliasDef{baseItem: baseItem{sp}, Name: name, TypeParams: typeParams, Aliased: aliased}
}

func NewProcessDef(sp span.Span, name string, params []Param, effects []string, body []Stmt) *ProcessDef {
	return &ProcessDef{baseItem: baseItem{sp}, Name: name, Params: params, Effects: effects, Body: body}
}

func NewEffectDef(sp span.Span, name string, params []Param, ret TypeExpr) *EffectDef {
	return &EffectDef{baseItem: baseItem{sp}, Name: name, Params: params, Return: ret}
}

func NewHandlerDef(sp span.Span, effect string, body []Stmt) *HandlerDef {
	return &HandlerDef{baseItem: baseItem{sp}, Effect: effect, Body: body}
}

func NewTraitDef(sp span.Span, name string, methods []TraitMethod) *TraitDef {
	return &TraitDef{baseItem: baseItem{sp}, Name: name, Methods: methods}
}

func NewImplDef(sp span.Span, trait, typ string, methods []CellDef) *ImplDef {
	return &ImplDef{baseItem: baseItem{sp}, Trait: trait, Type: typ, Methods: methods}
}

func NewConstDef(sp span.Span, name string, typ TypeExpr, value Expr) *ConstDef {
	return &ConstDef{baseItem: baseItem{sp}, Name: name, Type: typ, Value: value}
}

func NewMacroDef(sp span.Span, name string, params []string, body []Stmt) *MacroDef {
	return &MacroDef{baseItem: baseItem{sp}, Name: name, Params: params, Body: body}
}

// Type expression constructors.

func NewNamedType(sp span.Span, name string) *NamedType { return &NamedType{baseType{sp}, name} }
func NewListType(sp span.Span, elem TypeExpr) *ListType   { return &ListType{baseType{sp}, elem} }
func NewSetType(sp span.Span, elem TypeExpr) *SetType     { return &SetType{baseType{sp}, elem} }
func NewMapType(sp span.Span, key, value TypeExpr) *MapType {
	return &MapType{baseType{sp}, key, value}
}
func NewTupleType(sp span.Span, elems []TypeExpr) *TupleType { return &TupleType{baseType{sp}, elems} }
func NewResultType(sp span.Span, ok, err TypeExpr) *ResultType {
	return &ResultType{baseType{sp}, ok, err}
}
func NewUnionType(sp span.Span, alts []TypeExpr) *UnionType { return &UnionType{baseType{sp}, alts} }
func NewNullType(sp span.Span, inner TypeExpr) *NullType    { return &NullType{baseType{sp}, inner} }
func NewFnType(sp span.Span, params []TypeExpr, ret TypeExpr, effects []string) *FnType {
	return &FnType{baseType{sp}, params, ret, effects}
}
func NewGenericType(sp span.Span, name string, args []TypeExpr) *GenericType {
	return &GenericType{baseType{sp}, name, args}
}

// Statement constructors.

func NewLetStmt(sp span.Span, name string, typ TypeExpr, value Expr) *LetStmt {
	return &LetStmt{baseStmt{sp}, name, typ, value}
}
func NewIfStmt(sp span.Span, cond Expr, then, els []Stmt) *IfStmt {
	return &IfStmt{baseStmt{sp}, cond, then, els}
}
func NewForStmt(sp span.Span, v string, seq Expr, body []Stmt) *ForStmt {
	return &ForStmt{baseStmt{sp}, v, seq, body}
}
func NewWhileStmt(sp span.Span, cond Expr, body []Stmt) *WhileStmt {
	return &WhileStmt{baseStmt{sp}, cond, body}
}
func NewMatchStmt(sp span.Span, subject Expr, arms []MatchArm) *MatchStmt {
	return &MatchStmt{baseStmt{sp}, subject, arms}
}
func NewReturnStmt(sp span.Span, value Expr) *ReturnStmt { return &ReturnStmt{baseStmt{sp}, value} }
func NewHaltStmt(sp span.Span, value Expr) *HaltStmt     { return &HaltStmt{baseStmt{sp}, value} }
func NewAssignStmt(sp span.Span, target, value Expr) *AssignStmt {
	return &AssignStmt{baseStmt{sp}, target, value}
}
func NewExprStmt(sp span.Span, value Expr) *ExprStmt   { return &ExprStmt{baseStmt{sp}, value} }
func NewBreakStmt(sp span.Span) *BreakStmt             { return &BreakStmt{baseStmt{sp}} }
func NewContinueStmt(sp span.Span) *ContinueStmt       { return &ContinueStmt{baseStmt{sp}} }

// Pattern constructors.

func NewWildcardPattern(sp span.Span) *WildcardPattern { return &WildcardPattern{basePattern{sp}} }
func NewBindPattern(sp span.Span, name string) *BindPattern {
	return &BindPattern{basePattern{sp}, name}
}
func NewLiteralPattern(sp span.Span, value Expr) *LiteralPattern {
	return &LiteralPattern{basePattern{sp}, value}
}
func NewVariantPattern(sp span.Span, enum, variant, bind string) *VariantPattern {
	return &VariantPattern{basePattern{sp}, enum, variant, bind}
}

// Expression constructors.

func NewIntLit(sp span.Span, v int64) *IntLit     { return &IntLit{baseExpr{sp}, v} }
func NewFloatLit(sp span.Span, v float64) *FloatLit { return &FloatLit{baseExpr{sp}, v} }
func NewStringLit(sp span.Span, segs []StringSegment) *StringLit {
	return &StringLit{baseExpr{sp}, segs}
}
func NewBoolLit(sp span.Span, v bool) *BoolLit { return &BoolLit{baseExpr{sp}, v} }
func NewNullLit(sp span.Span) *NullLit         { return &NullLit{baseExpr{sp}} }
func NewIdent(sp span.Span, name string) *Ident { return &Ident{baseExpr{sp}, name} }
func NewListLit(sp span.Span, elems []Expr) *ListLit { return &ListLit{baseExpr{sp}, elems} }
func NewMapLit(sp span.Span, entries []MapEntry) *MapLit { return &MapLit{baseExpr{sp}, entries} }
func NewSetLit(sp span.Span, elems []Expr) *SetLit   { return &SetLit{baseExpr{sp}, elems} }
func NewTupleLit(sp span.Span, elems []Expr) *TupleLit { return &TupleLit{baseExpr{sp}, elems} }
func NewRecordLit(sp span.Span, name string, fields []FieldInit) *RecordLit {
	return &RecordLit{baseExpr{sp}, name, fields}
}
func NewBinOp(sp span.Span, op string, l, r Expr) *BinOp { return &BinOp{baseExpr{sp}, op, l, r} }
func NewUnaryOp(sp span.Span, op string, operand Expr) *UnaryOp {
	return &UnaryOp{baseExpr{sp}, op, operand}
}
func NewCall(sp span.Span, callee Expr, args []Arg) *Call { return &Call{baseExpr{sp}, callee, args} }
func NewToolCall(sp span.Span, tool string, args []Arg) *ToolCall {
	return &ToolCall{baseExpr{sp}, tool, args}
}
func NewDotAccess(sp span.Span, target Expr, field string, safe bool) *DotAccess {
	return &DotAccess{baseExpr{sp}, target, field, safe}
}
func NewIndexAccess(sp span.Span, target, index Expr, safe bool) *IndexAccess {
	return &IndexAccess{baseExpr{sp}, target, index, safe}
}
func NewNullCoalesce(sp span.Span, l, r Expr) *NullCoalesce {
	return &NullCoalesce{baseExpr{sp}, l, r}
}
func NewForceUnwrap(sp span.Span, operand Expr) *ForceUnwrap {
	return &ForceUnwrap{baseExpr{sp}, operand}
}
func NewRoleBlock(sp span.Span, name string, body []Stmt) *RoleBlock {
	return &RoleBlock{baseExpr{sp}, name, body}
}
func NewExpectSchema(sp span.Span, value, schema Expr) *ExpectSchema {
	return &ExpectSchema{baseExpr{sp}, value, schema}
}
func NewTryExpr(sp span.Span, value Expr) *TryExpr { return &TryExpr{baseExpr{sp}, value} }
