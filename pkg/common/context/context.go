// Package context holds small helpers for combining caller and stream lifetimes.
package context

import (
	"context"
)

// Join returns a context that is canceled when either parent or other is done.
// The cause of other is preserved, so context.Cause reports why the stream side ended.
func Join(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	stop := context.AfterFunc(other, func() {
		cancel(context.Cause(other))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
