package effects

import (
	"errors"
	"testing"
)

func TestErrorContextMessageOnly(t *testing.T) {
	ctx := NewErrorContext("something broke")
	if ctx.Error() != "something broke" {
		t.Fatalf("got %q", ctx.Error())
	}
	if ctx.Unwrap() != nil {
		t.Fatalf("expected no source")
	}
}

func TestErrorContextWithSource(t *testing.T) {
	source := errors.New("file missing")
	ctx := NewErrorContextWithSource("could not read config", source)
	if ctx.Error() != "could not read config: file missing" {
		t.Fatalf("got %q", ctx.Error())
	}
	if ctx.Unwrap() != source {
		t.Fatalf("expected unwrap to return the source error")
	}
}

func TestErrorChainSingleLayer(t *testing.T) {
	chain := ErrorChainFromMessage("root cause")
	if chain.DisplayChain() != "root cause" {
		t.Fatalf("got %q", chain.DisplayChain())
	}
	if chain.Depth() != 1 {
		t.Fatalf("expected depth 1, got %d", chain.Depth())
	}
	if chain.Top() != "root cause" || chain.RootCause() != "root cause" {
		t.Fatalf("expected top and root cause both root cause")
	}
}

func TestErrorChainMultipleContexts(t *testing.T) {
	root := NewErrorContext("TLS handshake failed")
	chain := NewErrorChain(root).Context("network unreachable").Context("tool 'HttpGet' failed")

	want := "tool 'HttpGet' failed → network unreachable → TLS handshake failed"
	if chain.DisplayChain() != want {
		t.Fatalf("got %q, want %q", chain.DisplayChain(), want)
	}
	if chain.Depth() != 3 {
		t.Fatalf("expected depth 3, got %d", chain.Depth())
	}
	if chain.Top() != "tool 'HttpGet' failed" {
		t.Fatalf("unexpected top: %q", chain.Top())
	}
	if chain.RootCause() != "TLS handshake failed" {
		t.Fatalf("unexpected root cause: %q", chain.RootCause())
	}
}

func TestErrorChainStringMatchesDisplayChain(t *testing.T) {
	chain := ErrorChainFromMessage("a").Context("b").Context("c")
	if chain.String() != "c → b → a" {
		t.Fatalf("got %q", chain.String())
	}
}

func TestErrorChainFromContextWithSource(t *testing.T) {
	ioErr := errors.New("connection timed out")
	root := NewErrorContextWithSource("request failed", ioErr)
	chain := NewErrorChain(root).Context("tool dispatch")

	if chain.Depth() != 3 {
		t.Fatalf("expected depth 3, got %d", chain.Depth())
	}
	want := "tool dispatch → request failed → connection timed out"
	if chain.DisplayChain() != want {
		t.Fatalf("got %q, want %q", chain.DisplayChain(), want)
	}
}

func TestToolErrorWithContext(t *testing.T) {
	err := executionFailed("timeout")
	chain := err.WithContext("calling weather API")

	if chain.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", chain.Depth())
	}
	if chain.Top() != "calling weather API" {
		t.Fatalf("unexpected top: %q", chain.Top())
	}
	if chain.RootCause() != "ExecutionFailed: timeout" {
		t.Fatalf("unexpected root cause: %q", chain.RootCause())
	}
}

func TestToolErrorWithNestedContext(t *testing.T) {
	err := notFound("weather_tool")
	chain := err.WithContext("dispatching tool").Context("running cell 'main'")

	if chain.Depth() != 3 {
		t.Fatalf("expected depth 3, got %d", chain.Depth())
	}
	if chain.Top() != "running cell 'main'" {
		t.Fatalf("unexpected top: %q", chain.Top())
	}
}

func TestErrorChainLayersAccessor(t *testing.T) {
	chain := ErrorChainFromMessage("root").Context("middle").Context("top")
	layers := chain.Layers()
	want := []string{"top", "middle", "root"}
	for i, l := range want {
		if layers[i] != l {
			t.Fatalf("layer %d: got %q, want %q", i, layers[i], l)
		}
	}
}
