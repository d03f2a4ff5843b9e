package constraint

import "reflect"

// RefinementContext tracks known facts about variables along one
// execution path, used for path-sensitive verification of `where`
// clauses (spec.md §4.6). All facts recorded for a variable are
// implicitly conjoined.
type RefinementContext struct {
	facts map[string][]Constraint
}

func NewRefinementContext() *RefinementContext {
	return &RefinementContext{facts: make(map[string][]Constraint)}
}

// AddFact records constraint as a known fact about var.
func (ctx *RefinementContext) AddFact(varName string, c Constraint) {
	ctx.facts[varName] = append(ctx.facts[varName], c)
}

// RefineFromCondition extracts per-variable facts from a branch
// condition. It returns false when the condition cannot be decomposed
// into per-variable facts (a disjunction, a bare boolean constant, or a
// negation of anything but an integer comparison or a boolean variable).
func (ctx *RefinementContext) RefineFromCondition(condition Constraint) bool {
	switch condition.Kind {
	case KIntComparison, KFloatComparison, KArithmetic:
		ctx.AddFact(condition.Var, condition)
		return true
	case KVarComparison:
		ctx.AddFact(condition.Left, condition)
		ctx.AddFact(condition.Right, condition)
		return true
	case KBoolVar:
		ctx.AddFact(condition.Var, BoolConst(true))
		return true
	case KBoolConst:
		return false
	case KAnd:
		any := false
		for _, part := range condition.Parts {
			if ctx.RefineFromCondition(part) {
				any = true
			}
		}
		return any
	case KNot:
		switch condition.Inner.Kind {
		case KIntComparison:
			inner := condition.Inner
			ctx.AddFact(inner.Var, IntComparison(inner.Var, negateCmp(inner.Op), inner.IntValue))
			return true
		case KBoolVar:
			ctx.AddFact(condition.Inner.Var, BoolConst(false))
			return true
		default:
			return false
		}
	default:
		return false
	}
}

// MergeRefinements merges two contexts at a join point (e.g. after
// if/else). The result is conservative: a fact survives only if it
// appears, identically, in both branches; a variable known in only one
// branch carries no facts after the join.
func MergeRefinements(a, b *RefinementContext) *RefinementContext {
	merged := NewRefinementContext()
	for varName, factsA := range a.facts {
		factsB, ok := b.facts[varName]
		if !ok {
			continue
		}
		for _, fact := range factsA {
			if containsConstraint(factsB, fact) {
				merged.AddFact(varName, fact)
			}
		}
	}
	return merged
}

func containsConstraint(cs []Constraint, target Constraint) bool {
	for _, c := range cs {
		if reflect.DeepEqual(c, target) {
			return true
		}
	}
	return false
}

// KnownFacts flattens every recorded fact into one slice.
func (ctx *RefinementContext) KnownFacts() []Constraint {
	var all []Constraint
	for _, facts := range ctx.facts {
		all = append(all, facts...)
	}
	return all
}

// FactsFor returns the facts recorded for var, or nil if none.
func (ctx *RefinementContext) FactsFor(varName string) []Constraint {
	return ctx.facts[varName]
}

// Implies checks whether the accumulated facts imply conclusion, via
// premise ∧ ¬conclusion → Unsat.
func (ctx *RefinementContext) Implies(conclusion Constraint) SatResult {
	facts := ctx.KnownFacts()
	if len(facts) == 0 {
		return Unknown
	}
	premise := facts[0]
	if len(facts) > 1 {
		premise = Constraint{Kind: KAnd, Parts: facts}
	}
	return NewToyConstraintSolver().CheckImplication(premise, conclusion)
}

// Clone returns a copy of ctx that can be refined independently (e.g. for
// the two branches of an if, which must not see each other's facts).
func (ctx *RefinementContext) Clone() *RefinementContext {
	out := NewRefinementContext()
	for varName, facts := range ctx.facts {
		cp := make([]Constraint, len(facts))
		copy(cp, facts)
		out.facts[varName] = cp
	}
	return out
}

// IsEmpty reports whether the context has recorded any facts.
func (ctx *RefinementContext) IsEmpty() bool { return len(ctx.facts) == 0 }

// VarCount returns the number of distinct variables with facts.
func (ctx *RefinementContext) VarCount() int { return len(ctx.facts) }
