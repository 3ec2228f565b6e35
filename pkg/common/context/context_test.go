package context

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJoinCanceledByOther(t *testing.T) {
	other, cancelOther := context.WithCancelCause(context.Background())
	ctx, cancel := Join(context.Background(), other)
	defer cancel()

	if ctx.Err() != nil {
		t.Fatalf("joined context should start live, Err = %v", ctx.Err())
	}

	boom := errors.New("stream destroyed")
	cancelOther(boom)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("joined context was not canceled by other")
	}
	if got := context.Cause(ctx); !errors.Is(got, boom) {
		t.Errorf("Cause = %v, want %v", got, boom)
	}
}

func TestJoinCanceledByParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := Join(parent, context.Background())
	defer cancel()

	cancelParent()
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("joined context should follow parent cancellation, Err = %v", ctx.Err())
	}
}

func TestJoinCancelFunc(t *testing.T) {
	ctx, cancel := Join(context.Background(), context.Background())
	cancel()
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", ctx.Err())
	}
}
