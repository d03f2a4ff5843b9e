// Package constraint lowers `where`-clause expressions into a
// solver-independent Constraint IR and provides a path-sensitive
// refinement context and a toy solver over it (spec.md §4.6).
package constraint

import (
	"fmt"
	"strings"

	"lumen/internal/ast"
)

// CmpOp is a comparison operator usable inside a constraint.
type CmpOp int

const (
	Eq CmpOp = iota
	NotEq
	Lt
	LtEq
	Gt
	GtEq
)

func (op CmpOp) String() string {
	switch op {
	case Eq:
		return "=="
	case NotEq:
		return "!="
	case Lt:
		return "<"
	case LtEq:
		return "<="
	case Gt:
		return ">"
	case GtEq:
		return ">="
	default:
		return "?"
	}
}

func flipCmp(op CmpOp) CmpOp {
	switch op {
	case Lt:
		return Gt
	case LtEq:
		return GtEq
	case Gt:
		return Lt
	case GtEq:
		return LtEq
	default:
		return op
	}
}

func negateCmp(op CmpOp) CmpOp {
	switch op {
	case Gt:
		return LtEq
	case GtEq:
		return Lt
	case Lt:
		return GtEq
	case LtEq:
		return Gt
	case Eq:
		return NotEq
	case NotEq:
		return Eq
	default:
		return op
	}
}

// ArithOp is the arithmetic operator of an Arithmetic constraint, e.g.
// `x + 1 > 0`. Only Add is attested directly in the retrieved reference
// material; Sub/Mul/Div round out the set other refinement tests imply by
// symmetry.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
)

// Kind discriminates the Constraint variants.
type Kind int

const (
	KIntComparison Kind = iota
	KFloatComparison
	KVarComparison
	KArithmetic
	KBoolConst
	KBoolVar
	KAnd
	KOr
	KNot
)

// Constraint is a solver-independent representation of a `where`-clause
// expression, kept deliberately simple: this is the IR both the toy
// solver and any future real backend consume.
type Constraint struct {
	Kind Kind

	Var   string // IntComparison/FloatComparison/Arithmetic/BoolVar
	Left  string // VarComparison
	Right string // VarComparison

	Op CmpOp

	IntValue   int64   // IntComparison
	FloatValue float64 // FloatComparison

	ArithOp    ArithOp // Arithmetic
	ArithConst int64   // Arithmetic
	CmpValue   int64   // Arithmetic

	BoolValue bool // BoolConst

	Parts []Constraint // And/Or
	Inner *Constraint  // Not
}

func IntComparison(v string, op CmpOp, value int64) Constraint {
	return Constraint{Kind: KIntComparison, Var: v, Op: op, IntValue: value}
}

func FloatComparison(v string, op CmpOp, value float64) Constraint {
	return Constraint{Kind: KFloatComparison, Var: v, Op: op, FloatValue: value}
}

func VarComparison(left string, op CmpOp, right string) Constraint {
	return Constraint{Kind: KVarComparison, Left: left, Op: op, Right: right}
}

func Arithmetic(v string, arithOp ArithOp, arithConst int64, cmpOp CmpOp, cmpValue int64) Constraint {
	return Constraint{Kind: KArithmetic, Var: v, ArithOp: arithOp, ArithConst: arithConst, Op: cmpOp, CmpValue: cmpValue}
}

func BoolConst(b bool) Constraint    { return Constraint{Kind: KBoolConst, BoolValue: b} }
func BoolVar(name string) Constraint { return Constraint{Kind: KBoolVar, Var: name} }

func Not(c Constraint) Constraint { return Constraint{Kind: KNot, Inner: &c} }

// Negate returns the logical negation of c, flipping a comparison's
// operator directly or unwrapping an existing Not rather than adding
// another KNot layer on top. Used wherever a negated constraint needs to
// stay in a shape narrowAll/RefineFromCondition already decompose — a
// plain Not(Not(c)) would otherwise require two levels of unwrapping
// neither of those helpers do.
func Negate(c Constraint) Constraint {
	switch c.Kind {
	case KIntComparison:
		return IntComparison(c.Var, negateCmp(c.Op), c.IntValue)
	case KFloatComparison:
		return FloatComparison(c.Var, negateCmp(c.Op), c.FloatValue)
	case KVarComparison:
		return VarComparison(c.Left, negateCmp(c.Op), c.Right)
	case KBoolConst:
		return BoolConst(!c.BoolValue)
	case KNot:
		return *c.Inner
	default:
		return Not(c)
	}
}

func (c Constraint) String() string {
	switch c.Kind {
	case KIntComparison:
		return fmt.Sprintf("%s %s %d", c.Var, c.Op, c.IntValue)
	case KFloatComparison:
		return fmt.Sprintf("%s %s %g", c.Var, c.Op, c.FloatValue)
	case KVarComparison:
		return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
	case KArithmetic:
		return fmt.Sprintf("(%s %s %d) %s %d", c.Var, arithSymbol(c.ArithOp), c.ArithConst, c.Op, c.CmpValue)
	case KBoolConst:
		return fmt.Sprintf("%t", c.BoolValue)
	case KBoolVar:
		return c.Var
	case KAnd:
		return "(" + joinConstraints(c.Parts, " and ") + ")"
	case KOr:
		return "(" + joinConstraints(c.Parts, " or ") + ")"
	case KNot:
		return fmt.Sprintf("not(%s)", c.Inner)
	default:
		return "?"
	}
}

func arithSymbol(op ArithOp) string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	default:
		return "?"
	}
}

func joinConstraints(cs []Constraint, sep string) string {
	parts := make([]string, len(cs))
	for i, p := range cs {
		parts[i] = p.String()
	}
	return strings.Join(parts, sep)
}

// LoweringError reports why an expression could not be lowered to a
// Constraint; the caller marks the enclosing refinement as Unverifiable
// rather than failing the compile outright (spec.md §4.6).
type LoweringError struct {
	Msg string
}

func (e *LoweringError) Error() string { return e.Msg }

func unsupportedExpr(e ast.Expr) error {
	return &LoweringError{Msg: fmt.Sprintf("unsupported expression kind in constraint: %T", e)}
}

func unsupportedOp(op string) error {
	return &LoweringError{Msg: fmt.Sprintf("unsupported binary operator in constraint: %s", op)}
}

var errNonCanonical = &LoweringError{Msg: "comparison requires one identifier and one literal"}

// LowerExpr converts a `where`-clause AST expression into a Constraint,
// matching the original compiler's lower_expr_to_constraint.
func LowerExpr(e ast.Expr) (Constraint, error) {
	switch ex := e.(type) {
	case *ast.BoolLit:
		return BoolConst(ex.Value), nil
	case *ast.Ident:
		return BoolVar(ex.Name), nil
	case *ast.UnaryOp:
		if ex.Op == "not" {
			inner, err := LowerExpr(ex.Operand)
			if err != nil {
				return Constraint{}, err
			}
			return Not(inner), nil
		}
		return Constraint{}, unsupportedExpr(e)
	case *ast.BinOp:
		return lowerBinOp(ex)
	default:
		return Constraint{}, unsupportedExpr(e)
	}
}

func lowerBinOp(ex *ast.BinOp) (Constraint, error) {
	switch ex.Op {
	case "and":
		l, err := LowerExpr(ex.Left)
		if err != nil {
			return Constraint{}, err
		}
		r, err := LowerExpr(ex.Right)
		if err != nil {
			return Constraint{}, err
		}
		var parts []Constraint
		flatten(KAnd, l, &parts)
		flatten(KAnd, r, &parts)
		return Constraint{Kind: KAnd, Parts: parts}, nil
	case "or":
		l, err := LowerExpr(ex.Left)
		if err != nil {
			return Constraint{}, err
		}
		r, err := LowerExpr(ex.Right)
		if err != nil {
			return Constraint{}, err
		}
		var parts []Constraint
		flatten(KOr, l, &parts)
		flatten(KOr, r, &parts)
		return Constraint{Kind: KOr, Parts: parts}, nil
	case "==":
		return lowerComparison(ex.Left, Eq, ex.Right)
	case "!=":
		return lowerComparison(ex.Left, NotEq, ex.Right)
	case "<":
		return lowerComparison(ex.Left, Lt, ex.Right)
	case "<=":
		return lowerComparison(ex.Left, LtEq, ex.Right)
	case ">":
		return lowerComparison(ex.Left, Gt, ex.Right)
	case ">=":
		return lowerComparison(ex.Left, GtEq, ex.Right)
	default:
		return Constraint{}, unsupportedOp(ex.Op)
	}
}

// lowerComparison accepts an identifier against a numeric literal, or
// two identifiers (a VarComparison); anything else is an error. If the
// literal is on the left the operator is flipped so the identifier
// always leads.
func lowerComparison(lhs ast.Expr, op CmpOp, rhs ast.Expr) (Constraint, error) {
	lname, lok := extractIdent(lhs)
	rname, rok := extractIdent(rhs)
	switch {
	case lok && !rok:
		if iv, fv, isFloat, ok := extractNumber(rhs); ok {
			if isFloat {
				return FloatComparison(lname, op, fv), nil
			}
			return IntComparison(lname, op, iv), nil
		}
		return Constraint{}, errNonCanonical
	case !lok && rok:
		flipped := flipCmp(op)
		if iv, fv, isFloat, ok := extractNumber(lhs); ok {
			if isFloat {
				return FloatComparison(rname, flipped, fv), nil
			}
			return IntComparison(rname, flipped, iv), nil
		}
		return Constraint{}, errNonCanonical
	case lok && rok:
		return VarComparison(lname, op, rname), nil
	default:
		return Constraint{}, errNonCanonical
	}
}

func extractIdent(e ast.Expr) (string, bool) {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name, true
	}
	return "", false
}

func extractNumber(e ast.Expr) (i int64, f float64, isFloat bool, ok bool) {
	switch v := e.(type) {
	case *ast.IntLit:
		return v.Value, 0, false, true
	case *ast.FloatLit:
		return 0, v.Value, true, true
	case *ast.UnaryOp:
		if v.Op != "-" {
			return 0, 0, false, false
		}
		switch inner := v.Operand.(type) {
		case *ast.IntLit:
			return -inner.Value, 0, false, true
		case *ast.FloatLit:
			return 0, -inner.Value, true, true
		}
	}
	return 0, 0, false, false
}

func flatten(kind Kind, c Constraint, out *[]Constraint) {
	if c.Kind == kind {
		for _, p := range c.Parts {
			flatten(kind, p, out)
		}
		return
	}
	*out = append(*out, c)
}
