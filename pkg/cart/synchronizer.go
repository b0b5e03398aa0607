package cart

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fabricstore/storefront/pkg/broadcast"
	"github.com/fabricstore/storefront/pkg/logger"
	"github.com/fabricstore/storefront/pkg/session"
	"github.com/fabricstore/storefront/pkg/validator"
)

const (
	pathCart      = "/cart"
	pathAdd       = "/cart/add"
	pathDecrement = "/cart/decrement"
)

// API is the subset of the storefront API client the Synchronizer calls.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
}

// Notifier publishes identity changes. *session.Manager implements it.
type Notifier interface {
	Subscribe(fn session.Listener) (unsubscribe func())
	Ready() bool
	Latest() session.Change
}

// Snapshot is a point-in-time copy of the synchronizer state.
type Snapshot struct {
	Lines     Mirror
	Count     int
	Subtotal  float64
	Loading   bool
	Err       error
	SignedIn  bool
	UserKey   string
	FetchedAt time.Time
}

// Synchronizer owns the cart mirror for the current identity.
// All methods are safe for concurrent use.
type Synchronizer struct {
	api        API
	cooldown   time.Duration
	now        func() time.Time
	logger     *slog.Logger
	bufferSize int
	updates    *broadcast.Broadcaster[Snapshot]

	mu         sync.Mutex
	sessionGen uint64
	epoch      uint64
	signedIn   bool
	userKey    string
	lines      Mirror
	err        error
	inFlight   bool
	lastFetch  time.Time
}

func New(api API, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		api:        api,
		cooldown:   DefaultCooldown,
		now:        time.Now,
		logger:     logger.Discard(),
		bufferSize: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("cart"))
	s.updates = broadcast.New[Snapshot](s.bufferSize)
	return s
}

// Attach follows n's identity changes until the returned function is called.
// Refreshes triggered by a change use ctx.
func (s *Synchronizer) Attach(ctx context.Context, n Notifier) (detach func()) {
	unsubscribe := n.Subscribe(func(c session.Change) {
		s.Apply(ctx, c)
	})
	if n.Ready() {
		s.Apply(ctx, n.Latest())
	}
	return unsubscribe
}

// Apply handles one identity change: the mirror is reset synchronously, and
// for a signed-in identity a forced refresh follows. Generations start at 1;
// a change at or below the last applied generation, including 0, is ignored.
func (s *Synchronizer) Apply(ctx context.Context, c session.Change) {
	s.mu.Lock()
	if c.Generation <= s.sessionGen {
		s.mu.Unlock()
		return
	}
	s.sessionGen = c.Generation
	s.epoch++
	s.signedIn = c.Identity != nil
	s.userKey = c.Identity.Key()
	s.lines = nil
	s.err = nil
	s.inFlight = false
	s.lastFetch = time.Time{}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.updates.Publish(snap)

	if snap.SignedIn {
		if err := s.Refresh(ctx, true); err != nil {
			s.logger.WarnContext(ctx, "cart load after sign-in failed", logger.Error(err))
		}
	}
}

// Refresh fetches the cart. Without force it is skipped while the cooldown
// window since the last completed fetch is open. It is always skipped while
// another fetch is in flight. Signed out, it empties the mirror without a
// request.
func (s *Synchronizer) Refresh(ctx context.Context, force bool) error {
	s.mu.Lock()
	if !s.signedIn {
		s.lines = nil
		s.err = nil
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.updates.Publish(snap)
		return nil
	}
	if !force && !s.lastFetch.IsZero() && s.now().Sub(s.lastFetch) < s.cooldown {
		s.mu.Unlock()
		return nil
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil
	}
	s.inFlight = true
	s.err = nil
	epoch := s.epoch
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.updates.Publish(snap)

	var resp struct {
		Cart *struct {
			Items []Line `json:"items"`
		} `json:"cart"`
	}
	fetchErr := s.api.Get(ctx, pathCart, &resp)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "discarding cart response for superseded identity")
		return nil
	}
	s.inFlight = false
	s.lastFetch = s.now()
	if fetchErr != nil {
		s.err = fmt.Errorf("%w: %w", ErrCartFetchFailed, fetchErr)
	} else if resp.Cart != nil {
		s.lines = Mirror(resp.Cart.Items)
	} else {
		s.lines = nil
	}
	err := s.err
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.updates.Publish(snap)

	if err != nil {
		s.logger.WarnContext(ctx, "cart fetch failed", logger.Error(fetchErr))
		return err
	}
	s.logger.DebugContext(ctx, "cart refreshed", logger.Count(snap.Count))
	return nil
}

type mutation struct {
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity,omitempty"`
	SelectedSize  string `json:"selectedSize"`
	SelectedColor string `json:"selectedColor"`
}

// AddOrIncrement adds quantity of a product variant. It is not idempotent:
// every successful call adds quantity again.
func (s *Synchronizer) AddOrIncrement(ctx context.Context, productID string, quantity int, size, color string) error {
	if err := validator.Apply(
		validator.Required("productId", productID),
		validator.Positive("quantity", quantity),
	); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.mutate(ctx, pathAdd, mutation{
		ProductID:     productID,
		Quantity:      quantity,
		SelectedSize:  size,
		SelectedColor: color,
	})
}

// Decrement removes one unit of a product variant. Dropping the line at zero
// is up to the backend.
func (s *Synchronizer) Decrement(ctx context.Context, productID, size, color string) error {
	if err := validator.Apply(validator.Required("productId", productID)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.mutate(ctx, pathDecrement, mutation{
		ProductID:     productID,
		SelectedSize:  size,
		SelectedColor: color,
	})
}

// mutate posts m and then force-refreshes. A failed refresh is recorded in
// Err and does not fail the mutation.
func (s *Synchronizer) mutate(ctx context.Context, path string, m mutation) error {
	s.mu.Lock()
	signedIn := s.signedIn
	s.mu.Unlock()
	if !signedIn {
		return ErrNotAuthenticated
	}

	if err := s.api.Post(ctx, path, m, nil); err != nil {
		s.logger.WarnContext(ctx, "cart mutation failed",
			logger.ProductID(m.ProductID),
			slog.String("path", path),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrCartMutationFailed, err)
	}

	_ = s.Refresh(ctx, true)
	return nil
}

// Subscribe delivers a Snapshot after every state change until ctx is done.
func (s *Synchronizer) Subscribe(ctx context.Context) *broadcast.Subscription[Snapshot] {
	return s.updates.Subscribe(ctx)
}

// Close ends every subscription.
func (s *Synchronizer) Close() {
	s.updates.Close()
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Lines returns a copy of the mirrored lines.
func (s *Synchronizer) Lines() Mirror {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines)
}

func (s *Synchronizer) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Count()
}

func (s *Synchronizer) Subtotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Subtotal()
}

// Err returns the error of the last fetch, nil after a successful one.
func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Loading reports whether a fetch is in flight.
func (s *Synchronizer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Synchronizer) LineQuantityFor(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.LineQuantityFor(productID)
}

func (s *Synchronizer) LineQuantityForVariant(productID, size, color string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.LineQuantityForVariant(productID, size, color)
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	return Snapshot{
		Lines:     slices.Clone(s.lines),
		Count:     s.lines.Count(),
		Subtotal:  s.lines.Subtotal(),
		Loading:   s.inFlight,
		Err:       s.err,
		SignedIn:  s.signedIn,
		UserKey:   s.userKey,
		FetchedAt: s.lastFetch,
	}
}
