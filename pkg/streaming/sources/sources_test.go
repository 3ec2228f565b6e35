package sources

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/vnykmshr/objstream/internal/testutil"
	"github.com/vnykmshr/objstream/pkg/streaming/duplex"
	"github.com/vnykmshr/objstream/pkg/streaming/objectstream"
)

func TestFromSlice(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	src := FromSlice([]int{1, 2, 3})
	testutil.AssertEqual(t, src.Remaining(), 3)

	got, err := duplex.Collect[int](ctx, src)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{1, 2, 3})
	testutil.AssertEqual(t, src.Remaining(), 0)

	_, err = src.Read(ctx)
	testutil.AssertErrorIs(t, err, io.EOF)
}

func TestFromSliceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FromSlice([]int{1}).Read(ctx)
	testutil.AssertErrorIs(t, err, context.Canceled)
}

func TestFromChannel(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	ch := make(chan string, 3)
	ch <- "a"
	ch <- "b"
	ch <- "c"
	close(ch)

	got, err := duplex.Collect[string](ctx, FromChannel(ch))
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []string{"a", "b", "c"})
}

func TestFromChannelRespectsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := FromChannel(make(chan int)).Read(ctx)
	testutil.AssertErrorIs(t, err, context.DeadlineExceeded)
}

func counter(limit int) ReadFunc[int] {
	n := 0
	return func(context.Context) (int, error) {
		if n >= limit {
			return 0, io.EOF
		}
		n++
		return n, nil
	}
}

func TestReadFunc(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	got, err := duplex.Collect[int](ctx, counter(4))
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []int{1, 2, 3, 4})
}

func TestToChannel(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	out, errc := ToChannel[int](ctx, FromSlice([]int{1, 2, 3}), 0)

	var got []int
	for v := range out {
		got = append(got, v)
	}
	testutil.AssertNoError(t, <-errc)
	testutil.AssertSliceEqual(t, got, []int{1, 2, 3})
}

func TestToChannelError(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	boom := errors.New("boom")
	calls := 0
	src := ReadFunc[int](func(context.Context) (int, error) {
		calls++
		if calls > 1 {
			return 0, boom
		}
		return 7, nil
	})

	out, errc := ToChannel[int](ctx, src, 1)
	var got []int
	for v := range out {
		got = append(got, v)
	}
	testutil.AssertErrorIs(t, <-errc, boom)
	testutil.AssertSliceEqual(t, got, []int{7})
}

func TestToChannelStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	out, errc := ToChannel[int](ctx, counter(100), 0)
	testutil.AssertEqual(t, <-out, 1)
	cancel()

	testutil.AssertErrorIs(t, <-errc, context.Canceled)
	_, open := <-out
	testutil.AssertEqual(t, open, false)
}

func TestSliceThroughObjectStream(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	stage := objectstream.New(objectstream.Map(func(n int) int { return n * 5 }))
	pipeErr := duplex.Pipe[int](ctx, FromSlice([]int{1, 2, 4}), stage)

	got, err := duplex.Collect[int](ctx, stage)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, <-pipeErr)
	testutil.AssertSliceEqual(t, got, []int{5, 10, 20})
}
