package testutil

import (
	"context"
	"errors"
	"sync"
)

// ErrSimulated is returned by a Recorder configured to fail.
var ErrSimulated = errors.New("simulated error")

// Recorder is a test sink that records every written item.
// It satisfies the duplex Writable contract structurally.
type Recorder[T any] struct {
	mu         sync.Mutex
	items      []T
	ended      bool
	destroyErr error
	errorOnNth int
	writeCount int
	endedCh    chan struct{}
}

// NewRecorder creates an empty Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{endedCh: make(chan struct{})}
}

// Write records item, or fails on the configured nth call.
func (r *Recorder[T]) Write(_ context.Context, item T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writeCount++
	if r.errorOnNth > 0 && r.writeCount == r.errorOnNth {
		return ErrSimulated
	}
	r.items = append(r.items, item)
	return nil
}

// End marks the recorder as ended.
func (r *Recorder[T]) End() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ended {
		r.ended = true
		close(r.endedCh)
	}
	return nil
}

// Destroy records the error that tore the recorder down.
func (r *Recorder[T]) Destroy(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyErr = err
}

// Items returns a snapshot of recorded items.
func (r *Recorder[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Ended reports whether End was called.
func (r *Recorder[T]) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// EndedCh is closed when End is called.
func (r *Recorder[T]) EndedCh() <-chan struct{} {
	return r.endedCh
}

// DestroyErr returns the error passed to Destroy, if any.
func (r *Recorder[T]) DestroyErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyErr
}

// SetErrorOnNth configures the recorder to fail the nth Write.
func (r *Recorder[T]) SetErrorOnNth(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorOnNth = n
}
