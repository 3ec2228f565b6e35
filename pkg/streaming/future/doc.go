// Package future provides Future, a single-assignment deferred result.
//
// A Future is what an asynchronous stream handler returns instead of a value:
// the stream waits for it to settle and treats the settled value exactly as it
// would a synchronous return. Then follows the two-callback resolve/reject
// convention; Await is the blocking form.
//
//	f := future.Go(ctx, func(ctx context.Context) (string, error) {
//		return fetch(ctx, id)
//	})
//	f.Then(func(v string) { ... }, func(err error) { ... })
package future
