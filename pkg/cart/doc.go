// Package cart keeps a local mirror of the signed-in user's server cart.
//
// A Synchronizer follows the session's identity: signing out empties the
// mirror immediately with no request, signing in resets it and forces a fetch
// for the new user. Refresh collapses bursts with a cooldown window and never
// runs two GET /cart requests at once; a response that arrives after the
// identity changed is dropped.
//
//	sync := cart.New(apiClient, cart.WithLogger(log))
//	detach := sync.Attach(ctx, sessionManager)
//	defer detach()
//
//	if err := sync.AddOrIncrement(ctx, "P1", 1, "M", ""); err != nil {
//	    fmt.Println(cart.Message(err))
//	}
//	fmt.Println(sync.Count(), sync.LineQuantityFor("P1"))
//
// Views that render cart state subscribe for snapshots instead of polling:
//
//	sub := sync.Subscribe(ctx)
//	for snap := range sub.C() {
//	    render(snap)
//	}
package cart
