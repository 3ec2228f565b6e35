/*
Package buffer provides the bounded object queues that sit on either side of a
duplex transform stream.

A Buffer holds at most HighWaterMark items. What happens to a send beyond that
point is decided by its Strategy:

  - Block: the producer waits until a consumer makes room (default).
  - Drop: the new item is discarded and OnDrop is told about it.
  - DropOldest: the oldest buffered item is evicted for the new one.
  - Error: Send returns ErrFull.

Send and Receive take a context and return its error if it ends while they are
waiting. Close stops new sends; items already buffered are still delivered, and
Receive returns ErrClosed once the buffer is drained.

	b := buffer.New[int](16)
	_ = b.Send(ctx, 1)
	v, err := b.Receive(ctx)
*/
package buffer
