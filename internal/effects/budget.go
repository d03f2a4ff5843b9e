// Package effects implements the effect/tool registry of spec.md §4.12:
// dispatch(ToolRequest) -> (ToolResponse, ToolError), backed by a
// per-effect call budget, an idempotency short-circuit, and a panic
// boundary around every provider invocation.
package effects

import (
	"fmt"
	"sync"
)

// EffectBudgetTracker tracks per-effect invocation counts and enforces
// configurable budgets. Effects with no budget configured are
// unconstrained; RecordCall always succeeds for them. Grounded on
// effect_budget.rs's EffectBudgetTracker.
type EffectBudgetTracker struct {
	mu      sync.Mutex
	budgets map[string]uint64
	counts  map[string]uint64
}

// NewEffectBudgetTracker creates a tracker with no budgets configured.
func NewEffectBudgetTracker() *EffectBudgetTracker {
	return &EffectBudgetTracker{
		budgets: make(map[string]uint64),
		counts:  make(map[string]uint64),
	}
}

// SetBudget sets the maximum number of calls allowed for effect,
// replacing any previous budget. It does not reset the current count.
func (t *EffectBudgetTracker) SetBudget(effect string, maxCalls uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.budgets[effect] = maxCalls
}

// RemoveBudget removes effect's budget, making it unconstrained.
// Reports whether a budget had been set.
func (t *EffectBudgetTracker) RemoveBudget(effect string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.budgets[effect]
	delete(t.budgets, effect)
	return ok
}

// RecordCall records one call to effect, returning BudgetExhausted if
// doing so would exceed its configured budget. A zero budget is
// exhausted on the very first call.
func (t *EffectBudgetTracker) RecordCall(effect string) *ToolError {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := t.counts[effect]
	if limit, ok := t.budgets[effect]; ok && count >= limit {
		return &ToolError{
			Kind:    ToolErrBudgetExhausted,
			Effect:  effect,
			Limit:   limit,
			Message: budgetMessage(effect, count, limit),
		}
	}
	t.counts[effect] = count + 1
	return nil
}

// Remaining returns the remaining budget for effect, and false if
// effect is unconstrained.
func (t *EffectBudgetTracker) Remaining(effect string) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	limit, ok := t.budgets[effect]
	if !ok {
		return 0, false
	}
	used := t.counts[effect]
	if used >= limit {
		return 0, true
	}
	return limit - used, true
}

// CallCount returns the current call count for effect.
func (t *EffectBudgetTracker) CallCount(effect string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[effect]
}

// Budget returns the configured budget for effect, and false if
// unconstrained.
func (t *EffectBudgetTracker) Budget(effect string) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	limit, ok := t.budgets[effect]
	return limit, ok
}

// Reset clears every recorded count but keeps budgets in place.
func (t *EffectBudgetTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = make(map[string]uint64)
}

// ResetEffect clears the count for one effect, keeping its budget.
func (t *EffectBudgetTracker) ResetEffect(effect string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, effect)
}

// IsExhausted reports whether effect's budget has been reached.
// Unconstrained effects are never exhausted.
func (t *EffectBudgetTracker) IsExhausted(effect string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	limit, ok := t.budgets[effect]
	if !ok {
		return false
	}
	return t.counts[effect] >= limit
}

func budgetMessage(effect string, used, limit uint64) string {
	return fmt.Sprintf("effect '%s' has been called %d time(s), budget is %d", effect, used, limit)
}
