package cart

import (
	"log/slog"
	"time"
)

// DefaultCooldown suppresses non-forced refreshes this soon after a fetch.
const DefaultCooldown = 800 * time.Millisecond

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithCooldown sets the refresh cooldown window. Zero disables it.
func WithCooldown(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d >= 0 {
			s.cooldown = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSubscriberBuffer sets how many snapshots a slow subscriber may lag
// before updates are dropped for it.
func WithSubscriberBuffer(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}
