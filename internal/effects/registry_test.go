package effects

import (
	"testing"

	"lumen/internal/vm"
)

type fakeProvider struct {
	id     string
	effect string
	calls  int
	invoke func(args any) (any, error)
}

func (p *fakeProvider) ID() string     { return p.id }
func (p *fakeProvider) Effect() string { return p.effect }
func (p *fakeProvider) Invoke(args any) (any, error) {
	p.calls++
	return p.invoke(args)
}

func TestDispatchUnregisteredToolReturnsNotRegistered(t *testing.T) {
	r := NewRegistry(CatchAndReturn)
	_, err := r.Dispatch(ToolRequest{ToolID: "missing"})
	if err == nil || err.Kind != ToolErrNotRegistered {
		t.Fatalf("expected NotRegistered, got %+v", err)
	}
}

func TestDispatchInvokesRegisteredProvider(t *testing.T) {
	r := NewRegistry(CatchAndReturn)
	p := &fakeProvider{id: "echo", effect: "test", invoke: func(args any) (any, error) {
		return args, nil
	}}
	if err := r.Register(p); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	resp, err := r.Dispatch(ToolRequest{ToolID: "echo", Args: "hello"})
	if err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if resp.Result != "hello" {
		t.Fatalf("got %v, want hello", resp.Result)
	}
	if p.calls != 1 {
		t.Fatalf("expected 1 call, got %d", p.calls)
	}
}

func TestRegisterDuplicateIDFails(t *testing.T) {
	r := NewRegistry(CatchAndReturn)
	p := &fakeProvider{id: "echo", effect: "test", invoke: func(a any) (any, error) { return a, nil }}
	if err := r.Register(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(p); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestDispatchBudgetExhausted(t *testing.T) {
	r := NewRegistry(CatchAndReturn)
	p := &fakeProvider{id: "http_get", effect: "http", invoke: func(a any) (any, error) { return "ok", nil }}
	r.Register(p)
	r.Budgets().SetBudget("http", 1)

	if _, err := r.Dispatch(ToolRequest{ToolID: "http_get"}); err != nil {
		t.Fatalf("unexpected error on first call: %v", err)
	}
	_, err := r.Dispatch(ToolRequest{ToolID: "http_get"})
	if err == nil || err.Kind != ToolErrBudgetExhausted {
		t.Fatalf("expected BudgetExhausted on second call, got %+v", err)
	}
}

func TestDispatchIdempotencyShortCircuitsReExecution(t *testing.T) {
	r := NewRegistry(CatchAndReturn)
	p := &fakeProvider{id: "charge", effect: "billing", invoke: func(a any) (any, error) {
		return "charged", nil
	}}
	r.Register(p)

	req := ToolRequest{ToolID: "charge", Policy: Policy{IdempotencyKey: "order-1"}}
	first, err := r.Dispatch(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Dispatch(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Result != second.Result {
		t.Fatalf("expected identical cached result, got %v vs %v", first.Result, second.Result)
	}
	if p.calls != 1 {
		t.Fatalf("expected provider invoked exactly once, got %d", p.calls)
	}
}

func TestDispatchCatchesProviderPanic(t *testing.T) {
	r := NewRegistry(CatchAndReturn)
	p := &fakeProvider{id: "boom", effect: "test", invoke: func(a any) (any, error) {
		panic("kaboom")
	}}
	r.Register(p)

	_, err := r.Dispatch(ToolRequest{ToolID: "boom"})
	if err == nil || err.Kind != ToolErrPanic {
		t.Fatalf("expected Panic, got %+v", err)
	}
}

func TestDispatchExecutionFailedWrapsProviderError(t *testing.T) {
	r := NewRegistry(CatchAndReturn)
	p := &fakeProvider{id: "fail", effect: "test", invoke: func(a any) (any, error) {
		return nil, errTestExecution
	}}
	r.Register(p)

	_, err := r.Dispatch(ToolRequest{ToolID: "fail"})
	if err == nil || err.Kind != ToolErrExecutionFailed {
		t.Fatalf("expected ExecutionFailed, got %+v", err)
	}
}

var errTestExecution = fakeErr("network unreachable")

type fakeErr string

func (f fakeErr) Error() string { return string(f) }

func TestVMDispatchRoundTripsScalarValues(t *testing.T) {
	r := NewRegistry(CatchAndReturn)
	p := &fakeProvider{id: "double", effect: "math", invoke: func(a any) (any, error) {
		arr, ok := a.([]any)
		if !ok || len(arr) != 1 {
			return nil, errTestExecution
		}
		n, ok := arr[0].(int64)
		if !ok {
			return nil, errTestExecution
		}
		return n * 2, nil
	}}
	r.Register(p)

	dispatcher := r.AsToolDispatcher()
	result, err := dispatcher.Dispatch("double", []vm.Value{vm.BoxInt(21)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsInt() || result.AsInt() != 42 {
		t.Fatalf("expected boxed int 42, got %v", result)
	}
}
