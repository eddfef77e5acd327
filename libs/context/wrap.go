package context

import (
	"context"
)

// wrapper carries the values of one context with the deadline and cancellation of another
type wrapper struct {
	wrapped context.Context
	context.Context
}

// Value looks the key up in the governing context first and falls back to the wrapped one.
func (w *wrapper) Value(k interface{}) interface{} {
	if v := w.Context.Value(k); v != nil {
		return v
	}
	return w.wrapped.Value(k)
}

// Wrap returns a context that is done when ctx is done but still exposes the values of wrapped.
// Outbound calls use it to outlive the cancellation of the inbound request that started them.
// nolint:golint
func Wrap(wrapped context.Context, ctx context.Context) context.Context {
	return &wrapper{wrapped, ctx}
}
