package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the signed-in identity id under the key "user_id".
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// RequestID records the outgoing request id under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Component names the emitting package, e.g. "session" or "cart".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Collection(name string) slog.Attr {
	return slog.String("collection", name)
}

func ProductID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("product_id", id)
}

func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// HTTPRequest groups method, path and status of an API call.
func HTTPRequest(method, path string, status int) slog.Attr {
	attrs := []slog.Attr{slog.String("method", method), slog.String("path", path)}
	if status > 0 {
		attrs = append(attrs, slog.Int("status", status))
	}
	return slog.Attr{Key: "http", Value: slog.GroupValue(attrs...)}
}
