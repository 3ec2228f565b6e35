/*
Package duplex provides Duplex, an object-mode transform stream.

A Duplex has a writable side that accepts items of type In and a readable side
that yields items of type Out. Between them a single goroutine takes one item
at a time from the writable buffer and hands it to a TransformFunc together
with a Context and a Done callback:

	d := duplex.New[int, int](duplex.DefaultConfig(),
		func(c duplex.Context[int], n int, done duplex.Done[int]) {
			done(nil, n*2)
		}, nil)

The next item is not started until done has been called. Calling done with a
result pushes it to the readable side; a handler may also push any number of
items itself through Context.Push and then call done(nil). Calling done twice
fails the stream with ErrMultipleCallback.

After End, remaining items are processed, then the FlushFunc (if any) runs
once and the readable side closes. Read returns io.EOF from then on.

# Buffering

Both sides are bounded by a high-water mark (16 items by default). Writes
beyond the writable mark follow Config.Strategy; pushes beyond the readable
mark block until a reader catches up, so a stream nobody reads from stalls
its writers.

# Errors

The first error from a handler, from a push, or from Destroy becomes the
stream error. Processing stops, error listeners are notified once, and Write
returns the error. Output pushed before the failure is still delivered by
Read, which then returns the error.

# Composition

Any Readable can be piped into any Writable:

	errc := duplex.Pipe(ctx, source, d)
	out, err := duplex.Collect(ctx, d)
*/
package duplex
