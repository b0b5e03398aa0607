// Package storefront wires the storefront client together: configuration,
// durable session storage, the API client, the session manager, the cart
// synchronizer and the catalog client.
//
//	cfg, err := storefront.LoadConfig()
//	app, err := storefront.New(ctx, cfg)
//	defer app.Close()
//
//	state, err := app.Open(ctx) // restores the session and attaches the cart
//	if state == session.StateAuthenticated {
//	    fmt.Println(app.Cart.Count())
//	}
//
// Configuration comes from STOREFRONT_* environment variables and an
// optional .env file; see Config for the full list.
package storefront
