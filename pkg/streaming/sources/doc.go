// Package sources provides endpoints to feed and drain object streams.
//
// FromSlice, FromChannel and ReadFunc are in-memory Readables and ToChannel
// drains any Readable into a channel. Cron writes one generated item per
// schedule tick into a Writable. RedisListSink and RedisListSource carry
// msgpack-encoded items between processes through a Redis list, with a
// "<key>:eof" marker signalling the end of the stream.
//
//	src := sources.FromSlice([]int{1, 2, 4})
//	err := <-duplex.Pipe[int](ctx, src, stage)
package sources
