package sources

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/vnykmshr/objstream/pkg/streaming/duplex"
)

// SliceSource is a Readable over a fixed slice.
type SliceSource[T any] struct {
	slice []T
	index int64
}

// FromSlice returns a Readable that yields items in order, then io.EOF.
func FromSlice[T any](items []T) *SliceSource[T] {
	return &SliceSource[T]{slice: items}
}

// Read returns the next item. It is safe for concurrent use; each item is
// returned exactly once.
func (s *SliceSource[T]) Read(ctx context.Context) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	currentIndex := atomic.AddInt64(&s.index, 1) - 1
	if currentIndex >= int64(len(s.slice)) {
		return zero, io.EOF
	}
	return s.slice[currentIndex], nil
}

// Remaining reports how many items have not been read yet.
func (s *SliceSource[T]) Remaining() int {
	n := int64(len(s.slice)) - atomic.LoadInt64(&s.index)
	if n < 0 {
		return 0
	}
	return int(n)
}

// ChannelSource is a Readable over a channel. Closing the channel ends it.
type ChannelSource[T any] struct {
	ch <-chan T
}

// FromChannel returns a Readable that yields values received from ch.
func FromChannel[T any](ch <-chan T) *ChannelSource[T] {
	return &ChannelSource[T]{ch: ch}
}

func (s *ChannelSource[T]) Read(ctx context.Context) (T, error) {
	var zero T

	select {
	case value, ok := <-s.ch:
		if !ok {
			return zero, io.EOF
		}
		return value, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// ReadFunc adapts a function to a Readable. The function returns io.EOF
// when it has no more items.
type ReadFunc[T any] func(ctx context.Context) (T, error)

func (f ReadFunc[T]) Read(ctx context.Context) (T, error) {
	return f(ctx)
}

// ToChannel drains src into the returned channel with the given buffer size.
// The item channel is closed when src is exhausted or fails; the error
// channel then yields nil or the read error.
func ToChannel[T any](ctx context.Context, src duplex.Readable[T], size int) (<-chan T, <-chan error) {
	if size < 0 {
		size = 0
	}
	out := make(chan T, size)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(out)

		for {
			item, err := src.Read(ctx)
			if err == io.EOF {
				errc <- nil
				return
			}
			if err != nil {
				errc <- err
				return
			}

			select {
			case out <- item:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return out, errc
}
