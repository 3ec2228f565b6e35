package duplex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	osctx "github.com/vnykmshr/objstream/pkg/common/context"
	"github.com/vnykmshr/objstream/pkg/metrics"
	"github.com/vnykmshr/objstream/pkg/streaming/buffer"
)

var (
	// ErrMultipleCallback is the stream error when a completion callback is
	// invoked more than once for the same item or flush.
	ErrMultipleCallback = errors.New("completion callback called multiple times")

	// ErrTooManyResults is the stream error when a completion callback is
	// given more than one result.
	ErrTooManyResults = errors.New("completion callback received more than one result")

	// ErrWriteAfterEnd is returned by Write once End has been called.
	ErrWriteAfterEnd = errors.New("write after end")

	// ErrDestroyed is the stream error after Destroy(nil).
	ErrDestroyed = errors.New("stream destroyed")

	// ErrNoTransform fails every item of a Duplex built without a TransformFunc.
	ErrNoTransform = errors.New("transform function not implemented")

	// ErrHandlerPanic wraps a panic raised by a transform or flush function.
	ErrHandlerPanic = errors.New("stream handler panicked")
)

// Context is handed to every transform and flush invocation. It is canceled
// when the stream fails or is destroyed. Push emits an output item right away.
type Context[Out any] interface {
	context.Context
	Push(item Out) error
}

// Done is the completion signal: an error, or nil and at most one result.
// A supplied result is pushed before completion is acknowledged; a nil
// result (nil interface, pointer, map, channel or func) is skipped.
type Done[Out any] func(err error, result ...Out)

// TransformFunc processes one item and must call done exactly once.
type TransformFunc[In, Out any] func(c Context[Out], item In, done Done[Out])

// FlushFunc runs once after the writable side has ended and every item has
// been processed. It must call done exactly once.
type FlushFunc[Out any] func(c Context[Out], done Done[Out])

// Duplex is an object-mode transform stream. Items written to it are handed,
// one at a time and in order, to a TransformFunc on a dedicated goroutine;
// pushed results are buffered on the readable side.
type Duplex[In, Out any] struct {
	name      string
	transform TransformFunc[In, Out]
	flush     FlushFunc[Out]
	in        *buffer.Buffer[In]
	out       *buffer.Buffer[Out]
	log       zerolog.Logger
	metrics   *metrics.Registry

	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}

	mu             sync.Mutex
	err            error
	ending         bool
	finished       bool
	ended          bool
	flowing        bool
	errNotified    bool
	dataListeners  []func(Out)
	errorListeners []func(error)
	endListeners   []func()
}

// New creates a Duplex and starts its processing goroutine. flush may be nil.
func New[In, Out any](config Config, transform TransformFunc[In, Out], flush FlushFunc[Out]) *Duplex[In, Out] {
	config = config.normalize()

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	if transform == nil {
		transform = func(_ Context[Out], _ In, done Done[Out]) {
			done(ErrNoTransform)
		}
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	d := &Duplex[In, Out]{
		name:      config.Name,
		transform: transform,
		flush:     flush,
		log:       logger.With().Str("component", "duplex").Str("stream", config.Name).Logger(),
		metrics:   config.Metrics,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	d.in = buffer.NewWithConfig[In](buffer.Config{
		HighWaterMark: config.WritableHighWaterMark,
		Strategy:      config.Strategy,
		OnDrop:        d.onDrop,
	})
	d.out = buffer.NewWithConfig[Out](buffer.Config{
		HighWaterMark: config.ReadableHighWaterMark,
		Strategy:      buffer.Block,
	})

	if d.metrics != nil {
		d.metrics.BufferSize.WithLabelValues(d.name, metrics.SideWritable).Set(float64(d.in.Cap()))
		d.metrics.BufferSize.WithLabelValues(d.name, metrics.SideReadable).Set(float64(d.out.Cap()))
	}

	go d.run()
	return d
}

// Name returns the stream name used in logs and metrics.
func (d *Duplex[In, Out]) Name() string {
	return d.name
}

// Write queues item for transformation, waiting for buffer space if the
// strategy is buffer.Block.
func (d *Duplex[In, Out]) Write(ctx context.Context, item In) error {
	d.mu.Lock()
	err, ending := d.err, d.ending
	d.mu.Unlock()

	if err != nil {
		return err
	}
	if ending {
		return ErrWriteAfterEnd
	}

	ctx, cancel := osctx.Join(ctx, d.ctx)
	defer cancel()

	if err := d.in.Send(ctx, item); err != nil {
		if serr := d.Err(); serr != nil {
			return serr
		}
		if errors.Is(err, buffer.ErrClosed) {
			return ErrWriteAfterEnd
		}
		return err
	}

	if d.metrics != nil {
		d.metrics.ItemsWritten.WithLabelValues(d.name).Inc()
	}
	d.observeBuffers()
	return nil
}

// End signals that no more items will be written. Items already written are
// still transformed, then the flush function runs. End is idempotent.
func (d *Duplex[In, Out]) End() error {
	d.mu.Lock()
	if d.ending {
		d.mu.Unlock()
		return nil
	}
	d.ending = true
	d.mu.Unlock()

	d.log.Debug().Msg("writable side ended")
	return d.in.Close()
}

// Read returns the next output item. It returns io.EOF after a clean finish
// and the stream error after a failure; items pushed before a failure are
// still returned first.
func (d *Duplex[In, Out]) Read(ctx context.Context) (Out, error) {
	item, err := d.out.Receive(ctx)
	if err == nil {
		d.observeBuffers()
		return item, nil
	}

	var zero Out
	if errors.Is(err, buffer.ErrClosed) {
		if serr := d.Err(); serr != nil {
			return zero, serr
		}
		d.emitEnd()
		return zero, io.EOF
	}
	return zero, err
}

// OnData switches the stream to flowing mode: a goroutine reads every output
// item and hands it to the registered data listeners in order.
func (d *Duplex[In, Out]) OnData(fn func(Out)) *Duplex[In, Out] {
	d.mu.Lock()
	d.dataListeners = append(d.dataListeners, fn)
	start := !d.flowing
	d.flowing = true
	d.mu.Unlock()

	if start {
		go d.flow()
	}
	return d
}

// OnError registers fn to receive the stream error. If the error has already
// been emitted, fn is called immediately. In flowing mode the error is emitted
// after every item buffered before the failure has reached the data listeners.
func (d *Duplex[In, Out]) OnError(fn func(error)) *Duplex[In, Out] {
	d.mu.Lock()
	err, notified := d.err, d.errNotified
	if !notified {
		d.errorListeners = append(d.errorListeners, fn)
	}
	d.mu.Unlock()

	if notified {
		fn(err)
	}
	return d
}

// OnEnd registers fn to run once the readable side has been fully consumed.
// If that has already happened, fn is called immediately.
func (d *Duplex[In, Out]) OnEnd(fn func()) *Duplex[In, Out] {
	d.mu.Lock()
	ended := d.ended
	if !ended {
		d.endListeners = append(d.endListeners, fn)
	}
	d.mu.Unlock()

	if ended {
		fn()
	}
	return d
}

// Destroy fails the stream with err (ErrDestroyed if nil), cancels any
// in-flight handler context and releases blocked readers and writers.
func (d *Duplex[In, Out]) Destroy(err error) {
	if err == nil {
		err = ErrDestroyed
	}
	d.fail("destroy", err)
	d.cancel(err)
	_ = d.in.Close()
	_ = d.out.Close()
}

// Err returns the stream error, or nil.
func (d *Duplex[In, Out]) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Done returns a channel that is closed when processing stops, after the
// flush completes or the stream fails. Buffered output may still be unread.
func (d *Duplex[In, Out]) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until processing stops or ctx is done, and returns the stream error.
func (d *Duplex[In, Out]) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadableHighWaterMark returns the output buffer size.
func (d *Duplex[In, Out]) ReadableHighWaterMark() int {
	return d.out.Cap()
}

// WritableHighWaterMark returns the input buffer size.
func (d *Duplex[In, Out]) WritableHighWaterMark() int {
	return d.in.Cap()
}

// ReadableLength returns the number of buffered output items.
func (d *Duplex[In, Out]) ReadableLength() int {
	return d.out.Len()
}

// WritableLength returns the number of buffered input items.
func (d *Duplex[In, Out]) WritableLength() int {
	return d.in.Len()
}

// WritableStrategy returns the overflow strategy of the input buffer.
func (d *Duplex[In, Out]) WritableStrategy() buffer.Strategy {
	return d.in.Strategy()
}

func (d *Duplex[In, Out]) run() {
	defer close(d.done)
	d.log.Debug().
		Int("readable_hwm", d.out.Cap()).
		Int("writable_hwm", d.in.Cap()).
		Msg("stream started")

	for {
		item, err := d.in.Receive(d.ctx)
		if errors.Is(err, buffer.ErrClosed) {
			break
		}
		if err != nil {
			d.fail(metrics.PhaseTransform, context.Cause(d.ctx))
			return
		}
		d.observeBuffers()

		err = d.invoke(metrics.PhaseTransform, func(c Context[Out], done Done[Out]) {
			d.transform(c, item, done)
		})
		if err != nil {
			d.fail(metrics.PhaseTransform, err)
			return
		}
	}

	if d.ctx.Err() != nil {
		return
	}

	err := d.invoke(metrics.PhaseFlush, func(c Context[Out], done Done[Out]) {
		if d.flush == nil {
			done(nil)
			return
		}
		d.flush(c, done)
	})
	if err != nil {
		d.fail(metrics.PhaseFlush, err)
		return
	}

	d.mu.Lock()
	d.finished = true
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.Flushes.WithLabelValues(d.name).Inc()
	}
	d.log.Debug().Msg("stream finished")
	_ = d.out.Close()
}

// invoke calls fn with a fresh completion callback and waits for it.
func (d *Duplex[In, Out]) invoke(phase string, fn func(Context[Out], Done[Out])) error {
	start := time.Now()
	result := make(chan error, 1)
	var calls atomic.Int32

	done := func(err error, res ...Out) {
		if calls.Add(1) > 1 {
			d.log.Warn().Str("phase", phase).Msg("completion callback called more than once")
			d.fail(phase, ErrMultipleCallback)
			return
		}
		if err == nil {
			switch len(res) {
			case 0:
			case 1:
				if !isNil(res[0]) {
					err = d.push(res[0])
				}
			default:
				err = ErrTooManyResults
			}
		}
		result <- err
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				d.fail(phase, fmt.Errorf("%w: %v", ErrHandlerPanic, r))
			}
		}()
		fn(procContext[In, Out]{Context: d.ctx, d: d}, done)
	}()

	select {
	case err := <-result:
		if d.metrics != nil {
			d.metrics.HandlerDuration.WithLabelValues(d.name, phase).Observe(time.Since(start).Seconds())
		}
		return err
	case <-d.ctx.Done():
		return context.Cause(d.ctx)
	}
}

// push sends item to the readable side.
func (d *Duplex[In, Out]) push(item Out) error {
	if err := d.out.Send(d.ctx, item); err != nil {
		if d.ctx.Err() != nil {
			return context.Cause(d.ctx)
		}
		return err
	}
	if d.metrics != nil {
		d.metrics.ItemsPushed.WithLabelValues(d.name).Inc()
	}
	d.observeBuffers()
	return nil
}

// fail records the first error and stops processing. Error listeners are
// notified here unless the stream is flowing, in which case flow emits the
// error once the buffered items are drained. Errors after a clean finish are
// logged and otherwise ignored.
func (d *Duplex[In, Out]) fail(phase string, err error) {
	d.mu.Lock()
	if d.err != nil || d.finished {
		d.mu.Unlock()
		d.log.Warn().Err(err).Str("phase", phase).Msg("error after stream completed")
		return
	}
	d.err = err
	var listeners []func(error)
	if !d.flowing {
		listeners = d.takeErrorListenersLocked()
	}
	d.mu.Unlock()

	d.cancel(err)
	_ = d.in.Close()
	_ = d.out.Close()

	if d.metrics != nil {
		d.metrics.Errors.WithLabelValues(d.name, phase).Inc()
	}
	d.log.Error().Err(err).Str("phase", phase).Msg("stream failed")

	for _, fn := range listeners {
		fn(err)
	}
}

// flow drives data listeners until the readable side is exhausted.
func (d *Duplex[In, Out]) flow() {
	for {
		item, err := d.Read(context.Background())
		if err != nil {
			if !errors.Is(err, io.EOF) {
				d.emitError(err)
			}
			return
		}
		d.mu.Lock()
		listeners := append([]func(Out){}, d.dataListeners...)
		d.mu.Unlock()
		for _, fn := range listeners {
			fn(item)
		}
	}
}

func (d *Duplex[In, Out]) emitError(err error) {
	d.mu.Lock()
	if d.errNotified {
		d.mu.Unlock()
		return
	}
	listeners := d.takeErrorListenersLocked()
	d.mu.Unlock()

	for _, fn := range listeners {
		fn(err)
	}
}

// takeErrorListenersLocked marks the error as emitted and hands over the
// registered listeners. d.mu must be held.
func (d *Duplex[In, Out]) takeErrorListenersLocked() []func(error) {
	d.errNotified = true
	listeners := d.errorListeners
	d.errorListeners = nil
	return listeners
}

func (d *Duplex[In, Out]) emitEnd() {
	d.mu.Lock()
	if d.ended {
		d.mu.Unlock()
		return
	}
	d.ended = true
	listeners := d.endListeners
	d.endListeners = nil
	d.mu.Unlock()

	d.log.Debug().Msg("readable side ended")
	for _, fn := range listeners {
		fn()
	}
}

func (d *Duplex[In, Out]) onDrop(value interface{}) {
	if d.metrics != nil {
		d.metrics.ItemsDropped.WithLabelValues(d.name).Inc()
	}
	d.log.Debug().Interface("item", value).Msg("item dropped")
}

func (d *Duplex[In, Out]) observeBuffers() {
	if d.metrics == nil {
		return
	}
	d.metrics.BufferUsage.WithLabelValues(d.name, metrics.SideWritable).Set(float64(d.in.Len()))
	d.metrics.BufferUsage.WithLabelValues(d.name, metrics.SideReadable).Set(float64(d.out.Len()))
}

// isNil reports whether v is nil or a nil value of a nillable kind.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// procContext binds the stream context to the Push operation.
type procContext[In, Out any] struct {
	context.Context
	d *Duplex[In, Out]
}

func (c procContext[In, Out]) Push(item Out) error {
	return c.d.push(item)
}
