// Package apiclient is the HTTP transport shared by the session, cart and
// catalog packages.
//
// A Client resolves paths against the storefront API base URL, keeps a
// cookie jar so cookie-based sessions survive between calls, attaches the
// bearer token reported by its TokenSource, stamps every request with an
// X-Request-ID, and encodes/decodes JSON bodies. Non-2xx responses become
// *Error values carrying the backend "message" field; transport failures wrap
// ErrRequestFailed.
//
// The client never retries. Callers decide what a failure means.
package apiclient
