package catalog

import "errors"

var (
	ErrNotFound          = errors.New("catalog.not_found")
	ErrUnknownCollection = errors.New("catalog.unknown_collection")
	ErrInvalidInput      = errors.New("catalog.invalid_input")
	ErrMalformedResponse = errors.New("catalog.malformed_response")
)
