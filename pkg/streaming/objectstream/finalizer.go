package objectstream

import (
	"github.com/vnykmshr/objstream/pkg/streaming/duplex"
	"github.com/vnykmshr/objstream/pkg/streaming/future"
)

// Finalizer runs once after the last item. Build one with FlushCallback,
// FlushReturning or FlushAsync.
type Finalizer[Out any] interface {
	flush(c Context[Out], done Done[Out])
}

// FlushCallback wraps a finalizer that calls done itself. done(nil, v)
// appends v as the last item when v is truthy; done(err) fails the stream
// without appending.
func FlushCallback[Out any](fn func(c Context[Out], done Done[Out])) Finalizer[Out] {
	if fn == nil {
		return nil
	}
	return flushCallback[Out](fn)
}

// FlushReturning wraps a finalizer whose return value is the final item.
// Unlike Returning, a falsy value is not an error: nothing is appended.
func FlushReturning[Out any](fn func(c Context[Out]) (Out, error)) Finalizer[Out] {
	if fn == nil {
		return nil
	}
	return flushReturning[Out](fn)
}

// FlushAsync wraps a finalizer that returns a Future for the final item.
// A nil Future or a falsy settled value appends nothing.
func FlushAsync[Out any](fn func(c Context[Out]) *future.Future[Out]) Finalizer[Out] {
	if fn == nil {
		return nil
	}
	return flushAsync[Out](fn)
}

type flushCallback[Out any] func(c Context[Out], done Done[Out])

func (f flushCallback[Out]) flush(c Context[Out], done Done[Out]) {
	f(c, func(err error, result ...Out) {
		if err != nil {
			done(err)
			return
		}
		switch len(result) {
		case 0:
			done(nil)
		case 1:
			completeFlush(result[0], nil, done)
		default:
			done(duplex.ErrTooManyResults)
		}
	})
}

type flushReturning[Out any] func(c Context[Out]) (Out, error)

func (f flushReturning[Out]) flush(c Context[Out], done Done[Out]) {
	v, err := f(c)
	completeFlush(v, err, done)
}

type flushAsync[Out any] func(c Context[Out]) *future.Future[Out]

func (f flushAsync[Out]) flush(c Context[Out], done Done[Out]) {
	fut := f(c)
	if fut == nil {
		done(nil)
		return
	}
	fut.Then(func(v Out) {
		completeFlush(v, nil, done)
	}, func(err error) {
		done(err)
	})
}

// completeFlush is the lenient end-of-stream rule: a falsy value simply
// produces no final item.
func completeFlush[Out any](v Out, err error, done Done[Out]) {
	if err != nil {
		done(err)
		return
	}
	if Truthy(v) {
		done(nil, v)
		return
	}
	done(nil)
}
