// Package cli implements the storefront command line: cobra commands over
// the session, cart and catalog packages, with colored status lines and
// tables for output.
package cli
