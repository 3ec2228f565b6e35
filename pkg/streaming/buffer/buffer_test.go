package buffer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/objstream/internal/testutil"
	oserrors "github.com/vnykmshr/objstream/pkg/common/errors"
)

func TestNew(t *testing.T) {
	b := New[int](10)
	testutil.AssertEqual(t, b.Cap(), 10)
	testutil.AssertEqual(t, b.Len(), 0)
	testutil.AssertEqual(t, b.IsClosed(), false)
	testutil.AssertEqual(t, b.Strategy(), Block)
}

func TestNewNormalizesHighWaterMark(t *testing.T) {
	for _, hwm := range []int{0, -3} {
		b := New[int](hwm)
		testutil.AssertEqual(t, b.Cap(), DefaultHighWaterMark)
	}
}

func TestBasicSendReceive(t *testing.T) {
	b := New[int](5)
	defer b.Close()

	ctx := context.Background()

	testutil.AssertNoError(t, b.Send(ctx, 1))
	testutil.AssertNoError(t, b.Send(ctx, 2))
	testutil.AssertNoError(t, b.Send(ctx, 3))
	testutil.AssertEqual(t, b.Len(), 3)

	v, err := b.Receive(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, 1)

	v, err = b.Receive(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, 2)

	testutil.AssertEqual(t, b.Len(), 1)

	stats := b.Stats()
	testutil.AssertEqual(t, stats.SendCount, int64(3))
	testutil.AssertEqual(t, stats.ReceiveCount, int64(2))
}

func TestWrapAround(t *testing.T) {
	b := New[int](2)
	defer b.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		testutil.AssertNoError(t, b.Send(ctx, i))
		v, err := b.Receive(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, v, i)
	}
}

func TestBlockStrategyWaitsForSpace(t *testing.T) {
	var blocked atomic.Int64
	b := NewWithConfig[string](Config{
		HighWaterMark: 1,
		Strategy:      Block,
		OnBlock:       func() { blocked.Add(1) },
	})
	defer b.Close()

	ctx := context.Background()
	testutil.AssertNoError(t, b.Send(ctx, "first"))

	sent := make(chan error, 1)
	go func() {
		sent <- b.Send(ctx, "second")
	}()

	testutil.Eventually(t, func() bool { return blocked.Load() > 0 }, time.Second, 5*time.Millisecond)

	v, err := b.Receive(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, "first")
	testutil.AssertNoError(t, <-sent)

	v, err = b.Receive(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, "second")
	testutil.AssertEqual(t, b.Stats().BlockedSends >= 1, true)
}

func TestBlockedSendHonorsContext(t *testing.T) {
	b := New[int](1)
	defer b.Close()

	testutil.AssertNoError(t, b.Send(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Send(ctx, 2)
	testutil.AssertErrorIs(t, err, context.DeadlineExceeded)
	testutil.AssertEqual(t, b.Len(), 1)
}

func TestBlockedReceiveHonorsContext(t *testing.T) {
	b := New[int](1)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := b.Receive(ctx)
	testutil.AssertErrorIs(t, err, context.Canceled)
}

func TestDropStrategy(t *testing.T) {
	var dropped []interface{}
	b := NewWithConfig[int](Config{
		HighWaterMark: 2,
		Strategy:      Drop,
		OnDrop:        func(v interface{}) { dropped = append(dropped, v) },
	})
	defer b.Close()

	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		testutil.AssertNoError(t, b.Send(ctx, i))
	}

	testutil.AssertEqual(t, b.Len(), 2)
	testutil.AssertEqual(t, len(dropped), 2)
	testutil.AssertEqual(t, dropped[0].(int), 3)
	testutil.AssertEqual(t, b.Stats().DroppedCount, int64(2))

	v, _ := b.Receive(ctx)
	testutil.AssertEqual(t, v, 1)
}

func TestDropOldestStrategy(t *testing.T) {
	var dropped []interface{}
	b := NewWithConfig[int](Config{
		HighWaterMark: 2,
		Strategy:      DropOldest,
		OnDrop:        func(v interface{}) { dropped = append(dropped, v) },
	})
	defer b.Close()

	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		testutil.AssertNoError(t, b.Send(ctx, i))
	}

	testutil.AssertEqual(t, len(dropped), 2)
	testutil.AssertEqual(t, dropped[0].(int), 1)

	v, _ := b.Receive(ctx)
	testutil.AssertEqual(t, v, 3)
	v, _ = b.Receive(ctx)
	testutil.AssertEqual(t, v, 4)
}

func TestErrorStrategy(t *testing.T) {
	b := NewWithConfig[int](Config{HighWaterMark: 1, Strategy: Error})
	defer b.Close()

	ctx := context.Background()
	testutil.AssertNoError(t, b.Send(ctx, 1))

	err := b.Send(ctx, 2)
	testutil.AssertErrorIs(t, err, ErrFull)
	testutil.AssertErrorIs(t, err, oserrors.ErrCapacityExceeded)
	testutil.AssertEqual(t, oserrors.IsTemporary(err), true)
}

func TestTrySendTryReceive(t *testing.T) {
	b := New[string](1)
	defer b.Close()

	testutil.AssertNoError(t, b.TrySend("a"))
	testutil.AssertErrorIs(t, b.TrySend("b"), ErrFull)

	v, ok, err := b.TryReceive()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, v, "a")

	_, ok, err = b.TryReceive()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, ok, false)
}

func TestCloseDrainsThenErrors(t *testing.T) {
	b := New[int](3)
	ctx := context.Background()

	testutil.AssertNoError(t, b.Send(ctx, 1))
	testutil.AssertNoError(t, b.Send(ctx, 2))
	testutil.AssertNoError(t, b.Close())
	testutil.AssertNoError(t, b.Close())

	testutil.AssertErrorIs(t, b.Send(ctx, 3), ErrClosed)

	v, err := b.Receive(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, 1)
	v, err = b.Receive(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, 2)

	_, err = b.Receive(ctx)
	testutil.AssertErrorIs(t, err, ErrClosed)
	testutil.AssertEqual(t, errors.Is(err, oserrors.ErrClosed), true)

	_, _, err = b.TryReceive()
	testutil.AssertErrorIs(t, err, ErrClosed)
}

func TestCloseWakesBlockedReceivers(t *testing.T) {
	b := New[int](1)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Receive(context.Background())
			errs <- err
		}()
	}

	time.Sleep(10 * time.Millisecond)
	testutil.AssertNoError(t, b.Close())
	wg.Wait()
	close(errs)

	for err := range errs {
		testutil.AssertErrorIs(t, err, ErrClosed)
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	b := New[int](4)
	ctx := context.Background()
	const n = 200

	go func() {
		for i := 0; i < n; i++ {
			if err := b.Send(ctx, i); err != nil {
				t.Errorf("send %d: %v", i, err)
				return
			}
		}
		_ = b.Close()
	}()

	want := 0
	for {
		v, err := b.Receive(ctx)
		if errors.Is(err, ErrClosed) {
			break
		}
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, v, want)
		want++
	}
	testutil.AssertEqual(t, want, n)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name string
		want Strategy
		ok   bool
	}{
		{"block", Block, true},
		{"DROP", Drop, true},
		{"drop_oldest", DropOldest, true},
		{"error", Error, true},
		{"spill", Block, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStrategy(tt.name)
			testutil.AssertEqual(t, ok, tt.ok)
			testutil.AssertEqual(t, got, tt.want)
		})
	}

	testutil.AssertEqual(t, DropOldest.String(), "drop_oldest")
	testutil.AssertEqual(t, Strategy(42).String(), "strategy(42)")
}
