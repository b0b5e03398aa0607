package session

import "log/slog"

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger; the default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMinPasswordLength sets the minimum password length enforced before
// register calls. Zero disables the check.
func WithMinPasswordLength(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.minPasswordLen = n
		}
	}
}
