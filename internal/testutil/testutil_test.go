package testutil

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventually(t *testing.T) {
	t.Run("condition met immediately", func(t *testing.T) {
		called := false
		Eventually(t, func() bool {
			called = true
			return true
		}, 100*time.Millisecond, 10*time.Millisecond)

		if !called {
			t.Error("condition function should be called")
		}
	})

	t.Run("condition met after delay", func(t *testing.T) {
		var counter int32
		go func() {
			time.Sleep(50 * time.Millisecond)
			atomic.StoreInt32(&counter, 1)
		}()

		Eventually(t, func() bool {
			return atomic.LoadInt32(&counter) == 1
		}, time.Second, 10*time.Millisecond)
	})
}

func TestWaitForInt64(t *testing.T) {
	var value int64

	go func() {
		time.Sleep(30 * time.Millisecond)
		atomic.StoreInt64(&value, 100)
	}()

	WaitForInt64(t, &value, 100, time.Second)

	if atomic.LoadInt64(&value) != 100 {
		t.Errorf("value = %d, want 100", value)
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder[string]()

	AssertNoError(t, r.Write(ctx, "a"))
	AssertNoError(t, r.Write(ctx, "b"))
	AssertSliceEqual(t, r.Items(), []string{"a", "b"})
	AssertEqual(t, r.Ended(), false)

	AssertNoError(t, r.End())
	AssertNoError(t, r.End())
	AssertEqual(t, r.Ended(), true)

	select {
	case <-r.EndedCh():
	default:
		t.Fatal("EndedCh should be closed after End")
	}
}

func TestRecorderErrorOnNth(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder[int]()
	r.SetErrorOnNth(2)

	AssertNoError(t, r.Write(ctx, 1))
	AssertErrorIs(t, r.Write(ctx, 2), ErrSimulated)
	AssertNoError(t, r.Write(ctx, 3))
	AssertSliceEqual(t, r.Items(), []int{1, 3})

	boom := errors.New("boom")
	r.Destroy(boom)
	AssertErrorIs(t, r.DestroyErr(), boom)
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(t)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("context should have a deadline")
	}

	if time.Until(deadline) > TestTimeout {
		t.Errorf("deadline is too far in the future")
	}
}

func TestAssertions(t *testing.T) {
	AssertNoError(t, nil)
	AssertError(t, context.Canceled)
	AssertErrorIs(t, context.Canceled, context.Canceled)
	AssertEqual(t, 42, 42)
	AssertNotEqual(t, "a", "b")
	AssertSliceEqual(t, []int{1, 2}, []int{1, 2})
}
