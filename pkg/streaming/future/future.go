package future

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPanicked wraps a panic recovered from a function started with Go.
var ErrPanicked = errors.New("future function panicked")

// Future is a value that becomes available later, or fails.
// A Future settles exactly once; later resolve or reject calls are ignored.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

// New returns a pending Future and the functions that settle it.
func New[T any]() (*Future[T], func(T), func(error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.resolve, f.reject
}

// Resolved returns a Future already settled with value.
func Resolved[T any](value T) *Future[T] {
	f, resolve, _ := New[T]()
	resolve(value)
	return f
}

// Rejected returns a Future already settled with err.
func Rejected[T any](err error) *Future[T] {
	f, _, reject := New[T]()
	reject(err)
	return f
}

// Go runs fn in a new goroutine and settles the Future with its result.
// A panic in fn rejects the Future with an error wrapping ErrPanicked.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f, resolve, reject := New[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				reject(fmt.Errorf("%w: %v", ErrPanicked, r))
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	}()
	return f
}

func (f *Future[T]) resolve(value T) {
	f.once.Do(func() {
		f.value = value
		close(f.done)
	})
}

func (f *Future[T]) reject(err error) {
	if err == nil {
		err = errors.New("future rejected with nil error")
	}
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns a channel that is closed once the Future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Then registers callbacks for settlement. Exactly one of onResolve or onReject
// runs. If the Future has already settled the callback runs before Then
// returns; otherwise it runs on a separate goroutine. Either may be nil.
func (f *Future[T]) Then(onResolve func(T), onReject func(error)) {
	settle := func() {
		if f.err != nil {
			if onReject != nil {
				onReject(f.err)
			}
			return
		}
		if onResolve != nil {
			onResolve(f.value)
		}
	}

	select {
	case <-f.done:
		settle()
	default:
		go func() {
			<-f.done
			settle()
		}()
	}
}

// Await blocks until the Future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Settled reports whether the Future has a value or an error.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
