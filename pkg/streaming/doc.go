/*
Package streaming groups the object stream packages.

  - objectstream: build transform stages from a single handler and finalizer
  - duplex: the transform primitive with buffering, events and pipes
  - buffer: high-water-mark buffers with overflow strategies
  - future: single-assignment deferred results for async handlers
  - sources: slice, channel, cron and Redis endpoints

Basic usage:

	stage := objectstream.New(objectstream.Map(func(n int) int { return n * 5 }))
	errc := duplex.Pipe[int](ctx, sources.FromSlice([]int{1, 2, 4}), stage)
	out, err := duplex.Collect[int](ctx, stage) // [5 10 20]

Every stage reports the first error once, drains what it already produced and
then fails its readers with that error.
*/
package streaming
