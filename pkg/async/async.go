package async

import "context"

// Future holds the eventual result of a function started with Go.
type Future[T any] struct {
	done   chan struct{}
	result T
	err    error
}

// Go runs fn in a new goroutine. A context that is already cancelled
// resolves the future with ctx.Err() without calling fn.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns a future that is already complete.
func Resolved[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), result: v, err: err}
	close(f.done)
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future completes or ctx is done. Cancelling ctx
// abandons the wait, not the underlying work.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking, or ErrNotComplete.
func (f *Future[T]) Result() (T, error) {
	select {
	case <-f.done:
		return f.result, f.err
	default:
		var zero T
		return zero, ErrNotComplete
	}
}

func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
