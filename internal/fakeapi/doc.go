// Package fakeapi is an in-memory storefront backend for tests.
//
// It serves the /api routes the client packages call (auth, cart and the
// catalog collections) from seeded data, counts hits per route, and can
// inject failures or hold requests open:
//
//	backend := fakeapi.New()
//	backend.AddUser(fakeapi.User{ID: "u1", Email: "a@b.com", Password: "pw"})
//	url := backend.Serve(t)
//
//	backend.Fail("GET /cart", http.StatusInternalServerError, "boom")
//	release := backend.Hold("GET /cart")
//	defer release()
//
// Route keys are the method and the path below /api, e.g. "POST /cart/add"
// or "GET /products/p1".
package fakeapi
