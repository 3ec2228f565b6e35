package duplex

import (
	"context"
	"errors"
	"io"
)

// Readable is the read side of a stream. Read returns io.EOF when exhausted.
type Readable[T any] interface {
	Read(ctx context.Context) (T, error)
}

// Writable is the write side of a stream.
type Writable[T any] interface {
	Write(ctx context.Context, item T) error
	End() error
}

// Destroyer is implemented by streams that can be torn down with an error.
type Destroyer interface {
	Destroy(err error)
}

// Pipe copies items from src to dst on a new goroutine and ends dst when src
// is exhausted. A read error destroys dst and a write error destroys src, when
// they implement Destroyer. The returned channel yields the outcome once.
func Pipe[T any](ctx context.Context, src Readable[T], dst Writable[T]) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		errc <- pipe(ctx, src, dst)
	}()
	return errc
}

// Pipe copies this stream's output into dst. See the package-level Pipe.
func (d *Duplex[In, Out]) Pipe(ctx context.Context, dst Writable[Out]) <-chan error {
	return Pipe[Out](ctx, d, dst)
}

func pipe[T any](ctx context.Context, src Readable[T], dst Writable[T]) error {
	for {
		item, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			return dst.End()
		}
		if err != nil {
			if x, ok := dst.(Destroyer); ok {
				x.Destroy(err)
			}
			return err
		}
		if err := dst.Write(ctx, item); err != nil {
			if x, ok := src.(Destroyer); ok {
				x.Destroy(err)
			}
			return err
		}
	}
}

// Collect reads src until io.EOF and returns every item. On error it returns
// the items read so far together with the error.
func Collect[T any](ctx context.Context, src Readable[T]) ([]T, error) {
	var items []T
	for {
		item, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}

// WriteAll writes every item to dst and then ends it.
func WriteAll[T any](ctx context.Context, dst Writable[T], items ...T) error {
	for _, item := range items {
		if err := dst.Write(ctx, item); err != nil {
			return err
		}
	}
	return dst.End()
}
