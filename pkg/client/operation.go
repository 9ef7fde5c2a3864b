package client

import (
	"context"
	"errors"
)

// CancelError is the failure an explicitly cancelled operation rejects with.
// It carries the message passed to Cancel so downstream code can tell an
// intentional abort from any other failure.
type CancelError struct {
	Message string
}

func (e *CancelError) Error() string {
	if e.Message == "" {
		return "request cancelled"
	}
	return "request cancelled: " + e.Message
}

// IsCancelled reports whether err stems from an explicit Cancel call.
func IsCancelled(err error) bool {
	var ce *CancelError
	return errors.As(err, &ce)
}

// Operation is a cancellable in-flight API call. Obtain one from the Async
// variants of the client methods, then Wait for the result or Cancel it.
type Operation[T any] struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
	result T
	err    error
}

func start[T any](ctx context.Context, fn func(context.Context) (T, error)) *Operation[T] {
	opCtx, cancel := context.WithCancelCause(ctx)
	op := &Operation[T]{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(op.done)
		op.result, op.err = fn(opCtx)
	}()
	return op
}

// Cancel aborts the in-flight call with the given message. If the call
// already completed, Cancel has no effect.
func (o *Operation[T]) Cancel(message string) {
	o.cancel(&CancelError{Message: message})
}

// Done is closed when the operation finishes, whether it succeeded, failed,
// or was cancelled.
func (o *Operation[T]) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation finishes and returns its outcome. After a
// Cancel, the error satisfies IsCancelled.
func (o *Operation[T]) Wait() (T, error) {
	<-o.done
	return o.result, o.err
}

// ListAsync starts a list query and returns its cancellable handle.
func (c *Client) ListAsync(ctx context.Context, model string, opts ListOptions) *Operation[*ListResult] {
	return start(ctx, func(ctx context.Context) (*ListResult, error) {
		return c.List(ctx, model, opts)
	})
}

// GetAsync starts a get query and returns its cancellable handle.
func (c *Client) GetAsync(ctx context.Context, model, id string, opts GetOptions) *Operation[map[string]any] {
	return start(ctx, func(ctx context.Context) (map[string]any, error) {
		return c.Get(ctx, model, id, opts)
	})
}
