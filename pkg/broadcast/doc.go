// Package broadcast fans values out to any number of in-process subscribers.
//
// Publish never blocks: when a subscriber's buffer is full the value is
// dropped for that subscriber only. It suits state-change notifications where
// a consumer re-reads the latest state anyway, such as cart snapshots pushed
// to views.
//
//	b := broadcast.New[cart.Snapshot](4)
//	sub := b.Subscribe(ctx) // removed automatically when ctx is done
//	for snap := range sub.C() {
//		render(snap)
//	}
package broadcast
