// Package cache provides a generic, thread-safe LRU cache with optional
// per-cache entry expiry.
//
// The catalog client uses it to hold decoded product listings between calls:
//
//	c := cache.New[string, []catalog.Product](128, cache.WithTTL(time.Minute))
//	c.Put("products", items)
//	if items, ok := c.Get("products"); ok {
//		// fresh hit
//	}
//
// Expired entries are removed lazily on access. Capacity must be positive.
package cache
