package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fabricstore/storefront/pkg/async"
	"github.com/fabricstore/storefront/pkg/logger"
	"github.com/fabricstore/storefront/pkg/statemachine"
	"github.com/fabricstore/storefront/pkg/storage"
	"github.com/fabricstore/storefront/pkg/validator"
)

const (
	pathMe       = "/auth/me"
	pathGoogle   = "/auth/google"
	pathLogin    = "/auth/login"
	pathRegister = "/auth/register"
	pathLogout   = "/auth/logout"
)

// API is the subset of the storefront API client the Manager calls.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
}

// Change describes an identity transition delivered to listeners.
type Change struct {
	// Identity is a copy of the new identity, nil when signed out.
	Identity   *Identity
	Generation uint64
}

// Listener observes identity transitions.
type Listener func(Change)

type listenerEntry struct {
	id int
	fn Listener
}

// Manager owns the identity, its bearer token and their persisted copies.
// All methods are safe for concurrent use.
type Manager struct {
	api            API
	store          storage.Store
	logger         *slog.Logger
	minPasswordLen int

	machine *statemachine.Machine[State, Event]

	startOnce sync.Once
	init      *async.Future[State]

	mu         sync.RWMutex
	identity   *Identity
	token      string
	generation uint64

	listenersMu sync.Mutex
	listeners   []listenerEntry
	nextID      int
}

// New creates a Manager. Call Start (or Wait) to resolve the initial identity.
func New(api API, store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		api:     api,
		store:   store,
		logger:  logger.Discard(),
		machine: newStateMachine(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("session"))
	return m
}

// Start resolves the initial identity in the background. It runs once; later
// calls return the same future.
func (m *Manager) Start(ctx context.Context) *async.Future[State] {
	m.startOnce.Do(func() {
		m.init = async.Go(ctx, m.restore)
	})
	return m.init
}

// Wait starts initialization if needed and blocks until it completes or ctx
// is done.
func (m *Manager) Wait(ctx context.Context) (State, error) {
	return m.Start(ctx).Await(ctx)
}

// Ready reports whether initialization has completed.
func (m *Manager) Ready() bool {
	return m.State() != StateInitializing
}

func (m *Manager) State() State {
	return m.machine.Current()
}

// Current returns a copy of the signed-in identity, or nil.
func (m *Manager) Current() *Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity.clone()
}

// Token returns the bearer token to attach to API calls, or "".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Generation returns the number of identity transitions so far.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// Latest returns the current identity and generation as one consistent Change.
func (m *Manager) Latest() Change {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Change{Identity: m.identity.clone(), Generation: m.generation}
}

// Subscribe registers fn for identity transitions and returns a function
// that removes it.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			defer m.listenersMu.Unlock()
			for i, l := range m.listeners {
				if l.id == id {
					m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// LoginWithFederatedCredential exchanges a Google ID token for a session.
// The follow-up session verification is best effort and never fails the call.
func (m *Manager) LoginWithFederatedCredential(ctx context.Context, credential string) (*Identity, error) {
	if err := validator.Apply(
		validator.Required("credential", credential),
		validator.NoWhitespace("credential", credential),
	); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if err := m.ready(); err != nil {
		return nil, err
	}

	id, err := m.authenticate(ctx, "google login", "Login failed", pathGoogle,
		map[string]string{"credential": credential})
	if err != nil {
		return nil, err
	}

	m.verifySession(ctx)
	if current := m.Current(); current != nil {
		return current, nil
	}
	return id, nil
}

// LoginWithPassword signs in with email and password.
func (m *Manager) LoginWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	if err := validator.Apply(
		validator.Required("email", email),
		validator.ValidEmail("email", email),
		validator.Required("password", password),
	); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := m.ready(); err != nil {
		return nil, err
	}

	return m.authenticate(ctx, "login", "Email/password login failed", pathLogin,
		map[string]string{"email": email, "password": password})
}

// Register creates an account and signs in with it.
func (m *Manager) Register(ctx context.Context, name, email, password string) (*Identity, error) {
	rules := []validator.Rule{
		validator.Required("name", name),
		validator.Required("email", email),
		validator.ValidEmail("email", email),
		validator.Required("password", password),
	}
	if m.minPasswordLen > 0 {
		rules = append(rules, validator.MinLen("password", password, m.minPasswordLen))
	}
	if err := validator.Apply(rules...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := m.ready(); err != nil {
		return nil, err
	}

	return m.authenticate(ctx, "register", "Registration failed", pathRegister,
		map[string]string{"name": name, "email": email, "password": password})
}

// Logout ends the server session on a best-effort basis, then always clears
// the local identity. Only ErrNotReady is returned.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.machine.Check(EventLogout); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}

	if err := m.api.Post(ctx, pathLogout, nil, nil); err != nil {
		m.logger.WarnContext(ctx, "logout api call failed", logger.Error(err))
	}

	m.clearPersisted(ctx)
	if err := m.transition(EventLogout, nil, ""); err != nil {
		m.logger.ErrorContext(ctx, "logout transition failed", logger.Error(err))
	}
	return nil
}

// restore resolves the initial identity. Failures are absorbed.
func (m *Manager) restore(ctx context.Context) (State, error) {
	token := m.loadToken(ctx)

	if id := m.loadIdentity(ctx); id != nil {
		m.logger.DebugContext(ctx, "identity restored from storage", logger.UserID(id.Key()))
		return m.resolve(EventRestored, id, token)
	}
	if token == "" {
		return m.resolve(EventRestoreNil, nil, "")
	}

	// Attach the persisted token so /auth/me is sent with it.
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	id, err := m.fetchMe(ctx)
	if err != nil {
		m.logger.InfoContext(ctx, "session restore failed", logger.Error(err))
		m.clearPersisted(ctx)
		return m.resolve(EventRestoreNil, nil, "")
	}

	m.persistIdentity(ctx, id)
	return m.resolve(EventRestored, id, token)
}

func (m *Manager) resolve(event Event, id *Identity, token string) (State, error) {
	if err := m.transition(event, id, token); err != nil {
		return m.State(), err
	}
	return m.State(), nil
}

// authenticate posts body to path and adopts the returned identity.
func (m *Manager) authenticate(ctx context.Context, op, fallback, path string, body any) (*Identity, error) {
	var raw json.RawMessage
	if err := m.api.Post(ctx, path, body, &raw); err != nil {
		m.logger.WarnContext(ctx, op+" failed", logger.Error(err))
		return nil, authFailed(op, fallback, err)
	}

	id, token, err := parseAuthPayload(raw)
	if err != nil {
		m.logger.WarnContext(ctx, op+" returned no identity", logger.Error(err))
		return nil, err
	}

	if token != "" {
		if err := m.store.Set(ctx, storage.KeyToken, token); err != nil {
			m.logger.ErrorContext(ctx, "failed to persist token", logger.Error(err))
		}
	} else if err := m.store.Delete(ctx, storage.KeyToken); err != nil {
		// Cookie-only session: a token from an earlier login must not linger.
		m.logger.ErrorContext(ctx, "failed to clear stale token", logger.Error(err))
	}
	m.persistIdentity(ctx, id)

	if err := m.transition(EventLogin, id, token); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	m.logger.InfoContext(ctx, op+" succeeded", logger.UserID(id.Key()))
	return m.Current(), nil
}

// verifySession re-reads the identity through the cookie session. Failures
// are logged only.
func (m *Manager) verifySession(ctx context.Context) {
	id, err := m.fetchMe(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "session verification after login failed", logger.Error(err))
		return
	}

	m.mu.Lock()
	current := m.identity
	if current == nil {
		// Signed out while verifying.
		m.mu.Unlock()
		return
	}
	id.Token = current.Token
	sameKey := current.Key() == id.Key()
	if sameKey {
		m.identity = id
	}
	m.mu.Unlock()

	m.persistIdentity(ctx, id)
	if !sameKey {
		if err := m.transition(EventLogin, id, id.Token); err != nil {
			m.logger.ErrorContext(ctx, "verification transition failed", logger.Error(err))
		}
	}
}

func (m *Manager) fetchMe(ctx context.Context) (*Identity, error) {
	var raw json.RawMessage
	if err := m.api.Get(ctx, pathMe, &raw); err != nil {
		return nil, err
	}
	var envelope struct {
		User *Identity `json:"user"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadServerResponse, err)
	}
	if !envelope.User.Valid() {
		return nil, fmt.Errorf("%w: /auth/me returned no user", ErrBadServerResponse)
	}
	return envelope.User, nil
}

// transition fires event, swaps the in-memory identity and notifies listeners.
func (m *Manager) transition(event Event, id *Identity, token string) error {
	m.mu.Lock()
	if _, _, err := m.machine.Fire(event); err != nil {
		m.mu.Unlock()
		return err
	}
	if id != nil {
		id = id.clone()
		id.Token = token
	}
	m.identity = id
	m.token = token
	m.generation++
	change := Change{Identity: id.clone(), Generation: m.generation}
	m.mu.Unlock()

	m.notify(change)
	return nil
}

func (m *Manager) notify(change Change) {
	m.listenersMu.Lock()
	listeners := make([]listenerEntry, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenersMu.Unlock()

	for _, l := range listeners {
		l.fn(Change{Identity: change.Identity.clone(), Generation: change.Generation})
	}
}

func (m *Manager) ready() error {
	if err := m.machine.Check(EventLogin); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

func (m *Manager) loadIdentity(ctx context.Context) *Identity {
	raw, ok, err := storage.Lookup(ctx, m.store, storage.KeyIdentity)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to read persisted identity", logger.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || !id.Valid() {
		m.logger.WarnContext(ctx, "discarding unreadable persisted identity", logger.Error(err))
		if err := m.store.Delete(ctx, storage.KeyIdentity); err != nil {
			m.logger.ErrorContext(ctx, "failed to delete persisted identity", logger.Error(err))
		}
		return nil
	}
	return &id
}

func (m *Manager) loadToken(ctx context.Context) string {
	token, _, err := storage.Lookup(ctx, m.store, storage.KeyToken)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to read persisted token", logger.Error(err))
		return ""
	}
	return token
}

func (m *Manager) persistIdentity(ctx context.Context, id *Identity) {
	data, err := json.Marshal(id)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to encode identity", logger.Error(err))
		return
	}
	if err := m.store.Set(ctx, storage.KeyIdentity, string(data)); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist identity", logger.Error(err))
	}
}

func (m *Manager) clearPersisted(ctx context.Context) {
	if err := m.store.Delete(ctx, storage.KeyIdentity, storage.KeyToken); err != nil {
		m.logger.ErrorContext(ctx, "failed to clear persisted session", logger.Error(err))
	}
}
