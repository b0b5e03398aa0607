package logger

import (
	"context"
	"log/slog"
	"strings"
)

// ContextExtractor pulls one attribute out of a context, reporting false when
// the context carries nothing for it.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// FromContextValue builds an extractor reporting ctx.Value(key) under name.
func FromContextValue(name string, key any) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v := ctx.Value(key); v != nil {
			return slog.Any(name, v), true
		}
		return slog.Attr{}, false
	}
}

// contextHandler appends extractor attributes to each record at Handle time.
type contextHandler struct {
	slog.Handler
	extractors []ContextExtractor
}

func withContext(next slog.Handler, extractors []ContextExtractor) slog.Handler {
	if len(extractors) == 0 {
		return next
	}
	return &contextHandler{Handler: next, extractors: extractors}
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	if ctx != nil {
		for _, ex := range h.extractors {
			if attr, ok := ex(ctx); ok {
				rec.AddAttrs(attr)
			}
		}
	}
	return h.Handler.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), extractors: h.extractors}
}

const redacted = "[REDACTED]"

// DefaultRedactedKeys are masked in every record unless WithRedactedKeys
// replaces them.
var DefaultRedactedKeys = []string{"token", "password", "credential", "authorization", "id_token"}

// redactor masks string-valued attributes whose key matches, at any group
// depth, case-insensitively.
func redactor(keys []string) func(groups []string, a slog.Attr) slog.Attr {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}
	return func(_ []string, a slog.Attr) slog.Attr {
		if _, ok := set[strings.ToLower(a.Key)]; ok && a.Value.Kind() != slog.KindGroup {
			return slog.String(a.Key, redacted)
		}
		return a
	}
}
