package cart

import (
	"errors"

	"github.com/fabricstore/storefront/pkg/apiclient"
)

var (
	// ErrCartFetchFailed indicates GET /cart failed; the previous lines are kept
	ErrCartFetchFailed = errors.New("cart.fetch_failed")

	// ErrCartMutationFailed indicates an add or decrement did not take effect
	ErrCartMutationFailed = errors.New("cart.mutation_failed")

	// ErrNotAuthenticated indicates a mutation without a signed-in identity
	ErrNotAuthenticated = errors.New("cart.not_authenticated")

	// ErrInvalidInput indicates a mutation with a missing product or bad quantity
	ErrInvalidInput = errors.New("cart.invalid_input")
)

// Message returns the user-facing text for a cart error: the backend message
// when one was sent, otherwise a generic fallback.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCartFetchFailed):
		return apiclient.Message(err, "Failed to load cart")
	case errors.Is(err, ErrCartMutationFailed):
		return apiclient.Message(err, "Failed to update cart")
	case errors.Is(err, ErrNotAuthenticated):
		return "Sign in to use the cart"
	}
	return err.Error()
}
