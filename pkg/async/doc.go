// Package async provides a minimal Future for work that callers may want to
// gate on, such as the session bootstrap that must finish before anything
// reads the signed-in identity.
//
//	f := async.Go(ctx, func(ctx context.Context) (State, error) { ... })
//	<-f.Done()              // block until resolved, or
//	state, err := f.Await(ctx)
package async
