package objectstream

import (
	"errors"
	"fmt"

	"github.com/vnykmshr/objstream/pkg/streaming/duplex"
)

var (
	// ErrNoResult fails the stream when a Returning or Async handler produces
	// a falsy value. The message is fixed and matched on by callers.
	ErrNoResult = errors.New("Transform did not callback or return a value/promise") //nolint:staticcheck

	// ErrPassThroughType fails the default handler when an item cannot be
	// forwarded as the output type.
	ErrPassThroughType = errors.New("pass-through item is not of the output type")
)

// Context is the processing context handed to handlers and finalizers.
type Context[Out any] = duplex.Context[Out]

// Done is the completion callback: an error, or nil and an optional result.
type Done[Out any] = duplex.Done[Out]

// New builds an object-mode transform stream with default buffering.
// A nil handler is replaced by a pass-through. The first non-nil finalizer
// is used; the rest are ignored.
func New[In, Out any](handler Handler[In, Out], flush ...Finalizer[Out]) *duplex.Duplex[In, Out] {
	return NewWithConfig(duplex.DefaultConfig(), handler, flush...)
}

// NewWithConfig is New with explicit stream options. config is handed to
// the duplex unchanged; invalid values fall back to defaults there.
func NewWithConfig[In, Out any](config duplex.Config, handler Handler[In, Out], flush ...Finalizer[Out]) *duplex.Duplex[In, Out] {
	if handler == nil {
		handler = passThrough[In, Out]()
	}

	var flushFn duplex.FlushFunc[Out]
	if f := firstFinalizer(flush); f != nil {
		flushFn = f.flush
	}

	return duplex.New(config, handler.transform, flushFn)
}

// PassThrough returns a stream that forwards every item unchanged.
func PassThrough[T any]() *duplex.Duplex[T, T] {
	return New[T, T](nil)
}

func firstFinalizer[Out any](flush []Finalizer[Out]) Finalizer[Out] {
	for _, f := range flush {
		if f != nil {
			return f
		}
	}
	return nil
}

// passThrough forwards items as-is. It is callback style, so a falsy item is
// forwarded rather than rejected.
func passThrough[In, Out any]() Handler[In, Out] {
	return callbackHandler[In, Out](func(_ Context[Out], item In, done Done[Out]) {
		out, err := convert[In, Out](item)
		if err != nil {
			done(err)
			return
		}
		done(nil, out)
	})
}

func convert[In, Out any](item In) (Out, error) {
	var zero Out
	boxed := any(item)
	if boxed == nil {
		return zero, nil
	}
	if out, ok := boxed.(Out); ok {
		return out, nil
	}
	return zero, fmt.Errorf("%w: got %T, want %T", ErrPassThroughType, item, zero)
}
