// Package session owns the signed-in identity of a storefront client.
//
// A Manager bootstraps the identity once, from durable storage or from a
// GET /auth/me round-trip with a persisted bearer token, and then moves
// between the Authenticated and Anonymous states through login, register and
// logout calls against the storefront API.
//
//	┌──────────────┐  restore   ┌───────────────┐   login    ┌─────────────┐
//	│ Initializing │ ─────────► │   Anonymous   │ ─────────► │Authenticated│
//	└──────────────┘            └───────────────┘ ◄───────── └─────────────┘
//	        │                                       logout          ▲
//	        └───────────────────────────────────────────────────────┘
//
// # Usage
//
//	mgr := session.New(apiClient, store, session.WithLogger(log))
//	state, err := mgr.Wait(ctx) // runs Start on first use
//
//	unsubscribe := mgr.Subscribe(func(c session.Change) {
//	    // c.Identity is nil after sign-out
//	})
//	defer unsubscribe()
//
//	user, err := mgr.LoginWithPassword(ctx, "a@b.com", "secret")
//	switch {
//	case errors.Is(err, session.ErrInvalidInput):
//	case errors.Is(err, session.ErrAuthFailed):
//	    msg := session.Message(err) // backend "message" or a fallback
//	}
//
// Listeners run synchronously, in registration order, after every identity
// transition. Each Change carries a generation number that increases with
// every transition so consumers can discard work started for an older
// identity.
//
// Restoration failures and the server side of logout are absorbed and logged;
// local state always ends up consistent with what was persisted.
package session
