package effects

import "strings"

// ErrorContext is a single error node with a message and an optional
// wrapped cause, grounded on error_context.rs's ErrorContext.
type ErrorContext struct {
	message string
	source  error
}

// NewErrorContext creates a context with no source.
func NewErrorContext(message string) ErrorContext {
	return ErrorContext{message: message}
}

// NewErrorContextWithSource creates a context wrapping a source error.
func NewErrorContextWithSource(message string, source error) ErrorContext {
	return ErrorContext{message: message, source: source}
}

func (c ErrorContext) Error() string {
	if c.source != nil {
		return c.message + ": " + c.source.Error()
	}
	return c.message
}

// Unwrap exposes the wrapped source to errors.Is/errors.As.
func (c ErrorContext) Unwrap() error { return c.source }

// ErrorChain is a " → "-joined stack of context layers, outermost
// first, root cause last. Grounded on error_context.rs's ErrorChain.
type ErrorChain struct {
	layers []string
}

// NewErrorChain starts a chain from root, walking its wrapped source
// chain (via Unwrap) to seed every subsequent layer.
func NewErrorChain(root ErrorContext) ErrorChain {
	layers := []string{root.message}
	var cur error = root.source
	for cur != nil {
		layers = append(layers, cur.Error())
		unwrapper, ok := cur.(interface{ Unwrap() error })
		if !ok {
			break
		}
		cur = unwrapper.Unwrap()
	}
	return ErrorChain{layers: layers}
}

// ErrorChainFromMessage starts a chain from a single plain message.
func ErrorChainFromMessage(message string) ErrorChain {
	return ErrorChain{layers: []string{message}}
}

// Context prepends an additional outermost layer.
func (c ErrorChain) Context(message string) ErrorChain {
	layers := make([]string, 0, len(c.layers)+1)
	layers = append(layers, message)
	layers = append(layers, c.layers...)
	return ErrorChain{layers: layers}
}

// DisplayChain joins every layer outermost-first with " → ".
func (c ErrorChain) DisplayChain() string {
	return strings.Join(c.layers, " → ")
}

func (c ErrorChain) String() string { return c.DisplayChain() }

func (c ErrorChain) Depth() int { return len(c.layers) }

func (c ErrorChain) Top() string {
	if len(c.layers) == 0 {
		return "<empty>"
	}
	return c.layers[0]
}

func (c ErrorChain) RootCause() string {
	if len(c.layers) == 0 {
		return "<empty>"
	}
	return c.layers[len(c.layers)-1]
}

func (c ErrorChain) Layers() []string { return c.layers }

// WithContext wraps a ToolError with an additional context layer,
// producing an ErrorChain whose DisplayChain joins layers with " → ".
func (e *ToolError) WithContext(message string) ErrorChain {
	root := NewErrorContext(e.Error())
	return NewErrorChain(root).Context(message)
}
