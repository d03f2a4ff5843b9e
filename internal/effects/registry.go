package effects

import (
	"encoding/json"
	"fmt"
	"sync"

	"lumen/internal/durability"
	"lumen/internal/vm"
)

// Registry is the effect/tool dispatch table of spec.md §4.12: a set of
// uniquely-named ToolProviders, a per-effect call budget, and an
// idempotency short-circuit, all invoked under a panic boundary so a
// faulty provider can never unwind through the VM dispatch loop.
type Registry struct {
	mu          sync.RWMutex
	providers   map[string]ToolProvider
	budgets     *EffectBudgetTracker
	idempotency *durability.IdempotencyStore
	panicPolicy PanicPolicy
	logger      func(format string, args ...any)
}

// NewRegistry creates an empty registry with the given default panic
// policy (used whenever a request's Policy.PanicPolicy is nil).
func NewRegistry(panicPolicy PanicPolicy) *Registry {
	return &Registry{
		providers:   make(map[string]ToolProvider),
		budgets:     NewEffectBudgetTracker(),
		idempotency: durability.NewIdempotencyStore(),
		panicPolicy: panicPolicy,
		logger:      func(string, ...any) {},
	}
}

// Budgets exposes the tracker so callers can configure per-effect
// limits before dispatch begins.
func (r *Registry) Budgets() *EffectBudgetTracker { return r.budgets }

// SetLogger installs the function LogAndContinue reports panics
// through; the default is a no-op.
func (r *Registry) SetLogger(logger func(format string, args ...any)) {
	r.logger = logger
}

// Register installs a provider, keyed by its own ID. Returns an error
// if a provider with the same id is already registered.
func (r *Registry) Register(p ToolProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.ID()]; exists {
		return fmt.Errorf("effects: tool %q already registered", p.ID())
	}
	r.providers[p.ID()] = p
	return nil
}

func (r *Registry) lookup(id string) (ToolProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// Dispatch resolves req.ToolID, enforces its effect budget, consults
// the idempotency store when a key is present, and invokes the
// provider under the configured panic boundary.
func (r *Registry) Dispatch(req ToolRequest) (ToolResponse, *ToolError) {
	provider, ok := r.lookup(req.ToolID)
	if !ok {
		return ToolResponse{}, notRegistered()
	}

	if budgetErr := r.budgets.RecordCall(provider.Effect()); budgetErr != nil {
		return ToolResponse{}, budgetErr
	}

	invoke := func() (ToolResponse, *ToolError) {
		return r.invokeUnderPanicBoundary(provider, req)
	}

	if req.Policy.IdempotencyKey == "" {
		return invoke()
	}
	return r.dispatchIdempotent(req.Policy.IdempotencyKey, invoke)
}

// cachedDispatch is the JSON-safe shape an idempotency-cached dispatch
// outcome is stored as. IdempotencyStore.CheckOrExecute goes through
// encoding/gob, which (unlike encoding/json) requires every concrete
// type ever held by an interface-typed field to be registered up
// front; ToolResponse.Result and ToolError's payload are open-ended
// JSON values, so the cache entry is marshaled to JSON bytes and
// stored/read directly via GetRaw/InsertRaw instead of going through
// the generic gob path.
type cachedDispatch struct {
	OK      bool
	Result  any `json:",omitempty"`
	ErrKind ToolErrorKind
	ErrMsg  string `json:",omitempty"`
	Effect  string `json:",omitempty"`
	Limit   uint64 `json:",omitempty"`
	Name    string `json:",omitempty"`
}

func (r *Registry) dispatchIdempotent(key string, invoke func() (ToolResponse, *ToolError)) (ToolResponse, *ToolError) {
	if raw, ok := r.idempotency.GetRaw(key); ok {
		var cached cachedDispatch
		if err := json.Unmarshal(raw, &cached); err == nil {
			return decodeCachedDispatch(cached)
		}
	}

	resp, toolErr := invoke()
	cached := encodeCachedDispatch(resp, toolErr)
	if raw, err := json.Marshal(cached); err == nil {
		r.idempotency.InsertRaw(key, raw)
	}
	return resp, toolErr
}

func encodeCachedDispatch(resp ToolResponse, toolErr *ToolError) cachedDispatch {
	if toolErr == nil {
		return cachedDispatch{OK: true, Result: resp.Result}
	}
	return cachedDispatch{
		OK:      false,
		ErrKind: toolErr.Kind,
		ErrMsg:  toolErr.Message,
		Effect:  toolErr.Effect,
		Limit:   toolErr.Limit,
		Name:    toolErr.Name,
	}
}

func decodeCachedDispatch(c cachedDispatch) (ToolResponse, *ToolError) {
	if c.OK {
		return ToolResponse{Result: c.Result}, nil
	}
	return ToolResponse{}, &ToolError{Kind: c.ErrKind, Message: c.ErrMsg, Effect: c.Effect, Limit: c.Limit, Name: c.Name}
}

func (r *Registry) invokeUnderPanicBoundary(provider ToolProvider, req ToolRequest) (resp ToolResponse, toolErr *ToolError) {
	policy := r.panicPolicy
	if req.Policy.PanicPolicy != nil {
		policy = *req.Policy.PanicPolicy
	}

	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("%v", rec)
			switch policy {
			case Abort:
				panic(rec)
			case LogAndContinue:
				r.logger("effects: tool %q panicked: %s", req.ToolID, msg)
				toolErr = panicError(msg)
			default: // CatchAndReturn
				toolErr = panicError(msg)
			}
		}
	}()

	result, err := provider.Invoke(req.Args)
	if err != nil {
		return ToolResponse{}, executionFailed(err.Error())
	}
	return ToolResponse{Result: result}, nil
}

// VMDispatch adapts Registry to vm.ToolDispatcher, converting the VM's
// positional []Value call convention into a single JSON-array
// ToolRequest and converting the JSON result back into a Value.
func (r *Registry) VMDispatch(tool string, args []vm.Value) (vm.Value, error) {
	jsonArgs, err := valuesToJSON(args)
	if err != nil {
		return vm.Null, err
	}
	resp, toolErr := r.Dispatch(ToolRequest{ToolID: tool, Args: jsonArgs})
	if toolErr != nil {
		return vm.Null, toolErr
	}
	return jsonToValue(resp.Result), nil
}

var _ vm.ToolDispatcher = (*vmDispatcherAdapter)(nil)

// vmDispatcherAdapter exists only to satisfy vm.ToolDispatcher's
// Dispatch(tool string, args []Value) (Value, error) signature without
// renaming Registry's own richer Dispatch method.
type vmDispatcherAdapter struct{ registry *Registry }

// AsToolDispatcher wraps r so it can be assigned to vm.VM.Tools.
func (r *Registry) AsToolDispatcher() vm.ToolDispatcher {
	return &vmDispatcherAdapter{registry: r}
}

func (a *vmDispatcherAdapter) Dispatch(tool string, args []vm.Value) (vm.Value, error) {
	return a.registry.VMDispatch(tool, args)
}
