// Package validator provides small composable input checks used before any
// request leaves the client.
//
// A Rule pairs a check with the ValidationError reported when it fails.
// Apply runs every rule and returns a ValidationErrors value (which is an
// error) holding all failures, or nil:
//
//	err := validator.Apply(
//		validator.Required("email", email),
//		validator.ValidEmail("email", email),
//		validator.Required("password", password),
//	)
//	if errs := validator.ExtractValidationErrors(err); errs.Has("email") {
//		// ...
//	}
package validator
