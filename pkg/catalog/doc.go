// Package catalog reads the storefront's product collections.
//
// Three collections share one shape: products (new arrivals), topsellers and
// dressstyles. Reads are cached in an LRU with a TTL, and identical reads
// issued concurrently share one request.
//
//	c := catalog.New(apiClient, catalog.WithTTL(time.Minute))
//	items, err := c.List(ctx, catalog.Products)
//	item, err := c.Get(ctx, catalog.DressStyles, id)
//	if errors.Is(err, catalog.ErrNotFound) { ... }
//
// The backend is inconsistent about envelopes: lists may arrive bare or
// wrapped in products, items or data, and single items bare or wrapped in
// product or data. Prices may be numbers or numeric strings.
package catalog
