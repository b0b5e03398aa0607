package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/fabricstore/storefront/pkg/apiclient"
	"github.com/fabricstore/storefront/pkg/cart"
	"github.com/fabricstore/storefront/pkg/catalog"
	"github.com/fabricstore/storefront/pkg/session"
	"github.com/fabricstore/storefront/pkg/validator"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitGeneral     = 1
	ExitUsageError  = 2
	ExitAuthError   = 3
	ExitConfigError = 4
)

// CLIError is a structured error with user-facing context
type CLIError struct {
	Summary    string
	Detail     string
	Suggestion string
	ExitCode   int
	Err        error
}

func (e *CLIError) Error() string {
	return e.Summary
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// FormatError prints a structured error message to stderr
func (p *Printer) FormatError(e *CLIError) {
	if p.useColors {
		p.paint(color.FgRed, color.Bold).Fprintf(p.err, "Error: %s\n", e.Summary)
	} else {
		fmt.Fprintf(p.err, "[ERROR] %s\n", e.Summary)
	}
	if e.Detail != "" {
		fmt.Fprintf(p.err, "  Cause: %s\n", e.Detail)
	}
	if e.Suggestion != "" {
		if p.useColors {
			p.paint(color.FgCyan).Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
		} else {
			fmt.Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
		}
	}
}

func configError(err error) *CLIError {
	return &CLIError{
		Summary:    "Invalid configuration",
		Detail:     validationDetail(err),
		Suggestion: "Check the STOREFRONT_* environment variables",
		ExitCode:   ExitConfigError,
		Err:        err,
	}
}

// describe maps an error from the SDK packages to what the user sees.
// Backend-provided messages win over generic text.
func describe(err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	switch {
	case errors.Is(err, session.ErrInvalidInput),
		errors.Is(err, session.ErrInvalidCredential),
		errors.Is(err, cart.ErrInvalidInput),
		errors.Is(err, catalog.ErrInvalidInput):
		return &CLIError{
			Summary:  "Invalid input",
			Detail:   validationDetail(err),
			ExitCode: ExitUsageError,
			Err:      err,
		}
	case errors.Is(err, session.ErrAuthFailed):
		return &CLIError{Summary: session.Message(err), ExitCode: ExitAuthError, Err: err}
	case errors.Is(err, session.ErrNotReady):
		return &CLIError{Summary: "Session is still initializing", ExitCode: ExitGeneral, Err: err}
	case errors.Is(err, cart.ErrNotAuthenticated):
		return &CLIError{
			Summary:    cart.Message(err),
			Suggestion: "Run 'storefront login' first",
			ExitCode:   ExitAuthError,
			Err:        err,
		}
	case apiclient.IsUnauthorized(err):
		return &CLIError{
			Summary:    apiclient.Message(err, "Session expired"),
			Suggestion: "Run 'storefront login' again",
			ExitCode:   ExitAuthError,
			Err:        err,
		}
	case errors.Is(err, cart.ErrCartFetchFailed), errors.Is(err, cart.ErrCartMutationFailed):
		return &CLIError{Summary: cart.Message(err), ExitCode: ExitGeneral, Err: err}
	case errors.Is(err, catalog.ErrUnknownCollection):
		return &CLIError{
			Summary:    "Unknown collection",
			Detail:     err.Error(),
			Suggestion: "Use one of: " + strings.Join(collectionNames(), ", "),
			ExitCode:   ExitUsageError,
			Err:        err,
		}
	case errors.Is(err, catalog.ErrNotFound):
		return &CLIError{Summary: apiclient.Message(err, "Product not found"), ExitCode: ExitGeneral, Err: err}
	case errors.Is(err, validator.ErrValidationFailed):
		return configError(err)
	}
	return &CLIError{Summary: apiclient.Message(err, err.Error()), ExitCode: ExitGeneral, Err: err}
}

func validationDetail(err error) string {
	verrs := validator.ExtractValidationErrors(err)
	if len(verrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, v := range verrs {
		parts = append(parts, v.Field+" "+v.Message)
	}
	return strings.Join(parts, "; ")
}
