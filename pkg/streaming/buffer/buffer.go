package buffer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	oserrors "github.com/vnykmshr/objstream/pkg/common/errors"
)

// Strategy defines how the buffer handles a send when it is at its high-water mark.
type Strategy int

const (
	// Block strategy blocks the producer until space is available.
	Block Strategy = iota

	// Drop strategy drops the newest item when the buffer is full.
	Drop

	// DropOldest strategy evicts the oldest item to make room.
	DropOldest

	// Error strategy returns ErrFull when the buffer is full.
	Error
)

var strategyNames = map[Strategy]string{
	Block:      "block",
	Drop:       "drop",
	DropOldest: "drop_oldest",
	Error:      "error",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy maps a case-insensitive name such as "drop_oldest" to a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	for s, n := range strategyNames {
		if strings.EqualFold(n, name) {
			return s, true
		}
	}
	return Block, false
}

// StrategyNames lists the accepted strategy names.
func StrategyNames() []string {
	return []string{"block", "drop", "drop_oldest", "error"}
}

// DefaultHighWaterMark is the object-mode default: sixteen items.
const DefaultHighWaterMark = 16

var (
	// ErrFull is returned when the buffer is full and the strategy is Error.
	ErrFull = fmt.Errorf("buffer is full: %w", oserrors.ErrCapacityExceeded)

	// ErrClosed is returned when sending to a closed buffer, or receiving from
	// a closed buffer that has been drained.
	ErrClosed = fmt.Errorf("buffer is closed: %w", oserrors.ErrClosed)
)

// Config holds configuration for a Buffer.
type Config struct {
	// HighWaterMark is the number of items the buffer holds before the
	// strategy applies.
	HighWaterMark int

	// Strategy defines what happens when the buffer is full.
	Strategy Strategy

	// OnDrop is called with each item discarded by Drop or DropOldest.
	OnDrop func(value interface{})

	// OnBlock is called each time a Block send has to wait.
	OnBlock func()
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		HighWaterMark: DefaultHighWaterMark,
		Strategy:      Block,
	}
}

// Stats holds counters about buffer activity.
type Stats struct {
	SendCount    int64
	ReceiveCount int64
	DroppedCount int64
	BlockedSends int64

	// Utilization is the current fill level (0.0 to 1.0).
	Utilization float64
}

// Buffer is a bounded FIFO of objects with context-aware blocking.
type Buffer[T any] struct {
	config Config

	mu       sync.Mutex
	items    []T
	head     int
	tail     int
	count    int
	closed   bool
	sendCond *sync.Cond
	recvCond *sync.Cond

	sends    atomic.Int64
	receives atomic.Int64
	dropped  atomic.Int64
	blocked  atomic.Int64
}

// New creates a Buffer with the given high-water mark and the Block strategy.
func New[T any](highWaterMark int) *Buffer[T] {
	config := DefaultConfig()
	config.HighWaterMark = highWaterMark
	return NewWithConfig[T](config)
}

// NewWithConfig creates a Buffer. A non-positive high-water mark is replaced
// by DefaultHighWaterMark.
func NewWithConfig[T any](config Config) *Buffer[T] {
	if config.HighWaterMark <= 0 {
		config.HighWaterMark = DefaultHighWaterMark
	}

	b := &Buffer[T]{
		config: config,
		items:  make([]T, config.HighWaterMark),
	}
	b.sendCond = sync.NewCond(&b.mu)
	b.recvCond = sync.NewCond(&b.mu)
	return b
}

// Send adds value to the buffer according to the configured strategy.
func (b *Buffer[T]) Send(ctx context.Context, value T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	if b.count < len(b.items) {
		b.pushLocked(value)
		return nil
	}

	switch b.config.Strategy {
	case Drop:
		b.dropped.Add(1)
		if b.config.OnDrop != nil {
			b.config.OnDrop(value)
		}
		return nil
	case DropOldest:
		old := b.popLocked()
		b.dropped.Add(1)
		if b.config.OnDrop != nil {
			b.config.OnDrop(old)
		}
		b.pushLocked(value)
		return nil
	case Error:
		return ErrFull
	}

	for b.count >= len(b.items) && !b.closed {
		b.blocked.Add(1)
		if b.config.OnBlock != nil {
			b.config.OnBlock()
		}
		if err := b.waitLocked(ctx, b.sendCond); err != nil {
			return err
		}
	}
	if b.closed {
		return ErrClosed
	}

	b.pushLocked(value)
	return nil
}

// TrySend adds value without blocking. A full Block buffer returns ErrFull.
func (b *Buffer[T]) TrySend(value T) error {
	b.mu.Lock()
	full := b.count >= len(b.items)
	closed := b.closed
	b.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if full && b.config.Strategy == Block {
		return ErrFull
	}
	return b.Send(context.Background(), value)
}

// Receive removes the oldest item, waiting until one is available.
// After Close, buffered items are still returned; ErrClosed follows once drained.
func (b *Buffer[T]) Receive(ctx context.Context) (T, error) {
	var zero T

	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		if err := b.waitLocked(ctx, b.recvCond); err != nil {
			return zero, err
		}
	}
	if b.count == 0 {
		return zero, ErrClosed
	}

	b.receives.Add(1)
	return b.popLocked(), nil
}

// TryReceive removes the oldest item if one is buffered.
func (b *Buffer[T]) TryReceive() (T, bool, error) {
	var zero T

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		if b.closed {
			return zero, false, ErrClosed
		}
		return zero, false, nil
	}
	b.receives.Add(1)
	return b.popLocked(), true, nil
}

// Close stops accepting sends and wakes all waiters. It is idempotent.
func (b *Buffer[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.sendCond.Broadcast()
	b.recvCond.Broadcast()
	return nil
}

// IsClosed reports whether Close was called.
func (b *Buffer[T]) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Len returns the number of buffered items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the high-water mark.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// Strategy returns the configured overflow strategy.
func (b *Buffer[T]) Strategy() Strategy {
	return b.config.Strategy
}

// Stats returns a snapshot of buffer counters.
func (b *Buffer[T]) Stats() Stats {
	return Stats{
		SendCount:    b.sends.Load(),
		ReceiveCount: b.receives.Load(),
		DroppedCount: b.dropped.Load(),
		BlockedSends: b.blocked.Load(),
		Utilization:  float64(b.Len()) / float64(len(b.items)),
	}
}

// waitLocked waits on cond until signaled or ctx is done (must hold lock).
func (b *Buffer[T]) waitLocked(ctx context.Context, cond *sync.Cond) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		cond.Broadcast()
		b.mu.Unlock()
	})
	cond.Wait()
	stop()
	return ctx.Err()
}

// pushLocked appends value at the tail (must hold lock).
func (b *Buffer[T]) pushLocked(value T) {
	b.items[b.tail] = value
	b.tail = (b.tail + 1) % len(b.items)
	b.count++
	b.sends.Add(1)
	b.recvCond.Broadcast()
}

// popLocked removes the head value (must hold lock). Waiters are woken with
// Broadcast because a canceled waiter could otherwise swallow a Signal.
func (b *Buffer[T]) popLocked() T {
	value := b.items[b.head]
	var zero T
	b.items[b.head] = zero // Clear reference
	b.head = (b.head + 1) % len(b.items)
	b.count--
	b.sendCond.Broadcast()
	return value
}
