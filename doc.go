/*
Package objstream provides object-mode transform streams for Go.

Streaming (pkg/streaming):
  - objectstream: handler-based stage constructor (callback, return, future)
  - duplex: transform primitive with backpressure, events and Pipe
  - buffer: bounded buffers with block, drop and error strategies
  - future: deferred results for asynchronous handlers
  - sources: slice, channel, cron and Redis list endpoints

Supporting packages:
  - pkg/metrics: Prometheus instrumentation for streams
  - pkg/common/config: stream options from files and environment

Example usage:

	import (
		"github.com/vnykmshr/objstream/pkg/streaming/duplex"
		"github.com/vnykmshr/objstream/pkg/streaming/objectstream"
	)

	times5 := objectstream.New(
		objectstream.Map(func(n int) any { return n * 5 }),
		objectstream.FlushReturning(func(objectstream.Context[any]) (any, error) {
			return "the end", nil
		}),
	)
	_ = duplex.WriteAll[int](ctx, times5, 1, 2, 4)
	out, err := duplex.Collect[any](ctx, times5) // [5 10 20 the end]
*/
package objstream
