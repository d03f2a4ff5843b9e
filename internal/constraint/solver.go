package constraint

import "math"

// SatResult is the outcome of a satisfiability check.
type SatResult int

const (
	Unknown SatResult = iota
	Sat
	Unsat
)

// interval is an inclusive bound on an integer-valued variable, used by
// the toy solver's interval-arithmetic approximation. An empty interval
// (Lo > Hi) means no value satisfies the accumulated constraints.
type interval struct {
	Lo, Hi int64
}

func fullInterval() interval { return interval{Lo: math.MinInt64, Hi: math.MaxInt64} }

func (iv interval) empty() bool { return iv.Lo > iv.Hi }

func (iv interval) intersect(other interval) interval {
	lo := iv.Lo
	if other.Lo > lo {
		lo = other.Lo
	}
	hi := iv.Hi
	if other.Hi < hi {
		hi = other.Hi
	}
	return interval{Lo: lo, Hi: hi}
}

// narrow restricts iv to the values satisfying `value <op> bound`.
func narrow(iv interval, op CmpOp, bound int64) interval {
	switch op {
	case Eq:
		return iv.intersect(interval{Lo: bound, Hi: bound})
	case NotEq:
		// A hole in the middle of a range isn't representable as a single
		// interval; conservatively leave the range untouched (Unknown is
		// the honest answer for `!=`, not a false Unsat/Sat).
		return iv
	case Lt:
		return iv.intersect(interval{Lo: math.MinInt64, Hi: bound - 1})
	case LtEq:
		return iv.intersect(interval{Lo: math.MinInt64, Hi: bound})
	case Gt:
		return iv.intersect(interval{Lo: bound + 1, Hi: math.MaxInt64})
	case GtEq:
		return iv.intersect(interval{Lo: bound, Hi: math.MaxInt64})
	default:
		return iv
	}
}

// ToyConstraintSolver decides satisfiability of conjunctions of integer
// comparisons over a single variable by interval narrowing. It is a toy
// stand-in for a real SMT backend (spec.md §4.6 names Z3 as the eventual
// target); float comparisons, multi-variable constraints, and `!=` widen
// to Unknown rather than risk a wrong Sat/Unsat.
type ToyConstraintSolver struct{}

func NewToyConstraintSolver() *ToyConstraintSolver { return &ToyConstraintSolver{} }

// CheckImplication reports whether premise implies conclusion by checking
// satisfiability of premise ∧ ¬conclusion: Unsat means no counterexample
// exists, so the implication holds; Sat means a counterexample exists.
func (s *ToyConstraintSolver) CheckImplication(premise, conclusion Constraint) SatResult {
	return s.checkSat(Constraint{Kind: KAnd, Parts: []Constraint{premise, Not(conclusion)}})
}

// checkSat narrows a per-variable interval from every IntComparison fact
// it can interpret; any construct it cannot reduce to an interval bound
// (a different variable, a float, a disjunction, a raw bool) makes the
// whole query Unknown rather than guessing.
func (s *ToyConstraintSolver) checkSat(c Constraint) SatResult {
	intervals := make(map[string]interval)
	ok := narrowAll(c, intervals)
	if !ok {
		return Unknown
	}
	if len(intervals) == 0 {
		return Unknown
	}
	for _, iv := range intervals {
		if iv.empty() {
			return Unsat
		}
	}
	return Sat
}

// narrowAll walks a conjunction (possibly with nested Not of a comparison)
// and narrows intervals in place. It returns false the moment it sees a
// construct the toy solver does not model (Or, BoolVar/BoolConst, a
// negation of anything but a single comparison).
func narrowAll(c Constraint, intervals map[string]interval) bool {
	switch c.Kind {
	case KAnd:
		for _, p := range c.Parts {
			if !narrowAll(p, intervals) {
				return false
			}
		}
		return true
	case KIntComparison:
		if c.Op == NotEq {
			return false
		}
		iv, ok := intervals[c.Var]
		if !ok {
			iv = fullInterval()
		}
		intervals[c.Var] = narrow(iv, c.Op, c.IntValue)
		return true
	case KNot:
		if c.Inner.Kind == KIntComparison {
			inner := c.Inner
			if negateCmp(inner.Op) == NotEq {
				return false
			}
			iv, ok := intervals[inner.Var]
			if !ok {
				iv = fullInterval()
			}
			intervals[inner.Var] = narrow(iv, negateCmp(inner.Op), inner.IntValue)
			return true
		}
		return false
	default:
		return false
	}
}
