// Package logger builds the *slog.Logger shared by the storefront client
// packages.
//
// New applies functional options on top of production defaults (JSON output,
// INFO level) and wraps the chosen slog.Handler with a decorator that pulls
// request-scoped values, such as the outgoing request id, out of the
// context.Context passed to the *Context logging methods.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "storefront"),
//		logger.WithContextExtractors(apiclient.RequestIDExtractor()),
//	)
//	log.InfoContext(ctx, "cart refreshed", logger.UserID(id), logger.Count(n))
//
// Attribute helpers in attr.go keep key names consistent across packages.
// Helpers given a zero value return an empty slog.Attr, which slog drops.
package logger
