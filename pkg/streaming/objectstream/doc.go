// Package objectstream builds object-mode transform streams from a single
// per-item handler and an optional end-of-stream finalizer.
//
// A handler is written in whichever convention suits it:
//
//	objectstream.Callback(func(c objectstream.Context[Out], item In, done objectstream.Done[Out]) { ... })
//	objectstream.Returning(func(c objectstream.Context[Out], item In) (Out, error) { ... })
//	objectstream.Async(func(c objectstream.Context[Out], item In) *future.Future[Out] { ... })
//	objectstream.Map(func(item In) Out { ... })
//
// All of them are normalized into the completion protocol of
// duplex.Duplex. Callback handlers complete an item explicitly and may emit
// nothing. Returning, Async and Map handlers must produce a truthy value for
// every item (see Truthy); a falsy one fails the stream with ErrNoResult.
//
// Finalizers follow the same three conventions (FlushCallback,
// FlushReturning, FlushAsync) but are lenient: a falsy final value just
// means no final item.
//
// Basic usage:
//
//	times5 := objectstream.New(objectstream.Map(func(n int) int { return n * 5 }))
//	go func() { _ = duplex.WriteAll(ctx, times5, 1, 2, 4) }()
//	out, err := duplex.Collect[int](ctx, times5) // [5 10 20]
//
// A nil handler yields a pass-through stream.
package objectstream
