// Package storage persists the small amount of client state that must
// survive restarts: the serialized signed-in identity and the bearer token.
//
// Store is a string key/value contract. Implementations:
//
//   - MemoryStore: process-local, for tests and short-lived embedding.
//   - FileStore: a YAML document on disk, used by the CLI.
//   - RedisStore: a Redis hash per client, for server-side embedding where
//     many storefront sessions are held by one process.
//   - SealedStore: wraps any Store and encrypts values at rest.
//
// Only the session manager writes to a Store; every other component reads
// identity through the session manager.
package storage
