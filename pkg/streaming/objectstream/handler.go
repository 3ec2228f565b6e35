package objectstream

import (
	"github.com/vnykmshr/objstream/pkg/streaming/future"
)

// Handler processes one input item. Build one with Callback, Returning,
// Async or Map.
type Handler[In, Out any] interface {
	transform(c Context[Out], item In, done Done[Out])
}

// Callback wraps a handler that completes each item itself by calling done:
// done(err) fails the stream, done(nil, v) emits v, and done(nil) emits
// nothing beyond what the handler pushed through c.
func Callback[In, Out any](fn func(c Context[Out], item In, done Done[Out])) Handler[In, Out] {
	if fn == nil {
		return nil
	}
	return callbackHandler[In, Out](fn)
}

// Returning wraps a handler whose return value is the item's result. A
// non-nil error fails the stream; a falsy value fails it with ErrNoResult.
func Returning[In, Out any](fn func(c Context[Out], item In) (Out, error)) Handler[In, Out] {
	if fn == nil {
		return nil
	}
	return returningHandler[In, Out](fn)
}

// Async wraps a handler that returns a Future for the item's result. The
// settled Future is treated like a Returning result; a nil Future counts as
// no result.
func Async[In, Out any](fn func(c Context[Out], item In) *future.Future[Out]) Handler[In, Out] {
	if fn == nil {
		return nil
	}
	return asyncHandler[In, Out](fn)
}

// Map is Returning for plain functions that cannot fail.
func Map[In, Out any](fn func(In) Out) Handler[In, Out] {
	if fn == nil {
		return nil
	}
	return returningHandler[In, Out](func(_ Context[Out], item In) (Out, error) {
		return fn(item), nil
	})
}

type callbackHandler[In, Out any] func(c Context[Out], item In, done Done[Out])

func (h callbackHandler[In, Out]) transform(c Context[Out], item In, done Done[Out]) {
	h(c, item, done)
}

type returningHandler[In, Out any] func(c Context[Out], item In) (Out, error)

func (h returningHandler[In, Out]) transform(c Context[Out], item In, done Done[Out]) {
	v, err := h(c, item)
	completeItem(v, err, done)
}

type asyncHandler[In, Out any] func(c Context[Out], item In) *future.Future[Out]

func (h asyncHandler[In, Out]) transform(c Context[Out], item In, done Done[Out]) {
	f := h(c, item)
	if f == nil {
		done(ErrNoResult)
		return
	}
	f.Then(func(v Out) {
		completeItem(v, nil, done)
	}, func(err error) {
		done(err)
	})
}

// completeItem applies the strict shorthand rule: only a truthy value
// completes an item successfully.
func completeItem[Out any](v Out, err error, done Done[Out]) {
	if err != nil {
		done(err)
		return
	}
	if !Truthy(v) {
		done(ErrNoResult)
		return
	}
	done(nil, v)
}
