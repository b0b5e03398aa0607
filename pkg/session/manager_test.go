package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/fabricstore/storefront/internal/fakeapi"
	"github.com/fabricstore/storefront/pkg/apiclient"
	"github.com/fabricstore/storefront/pkg/session"
	"github.com/fabricstore/storefront/pkg/storage"
	"github.com/fabricstore/storefront/pkg/validator"
)

type fixture struct {
	backend *fakeapi.Backend
	store   *storage.MemoryStore
	mgr     *session.Manager
}

func newFixture(t *testing.T, seed func(*fakeapi.Backend, *storage.MemoryStore)) *fixture {
	t.Helper()

	backend := fakeapi.New()
	store := storage.NewMemoryStore()
	if seed != nil {
		seed(backend, store)
	}

	var mgr *session.Manager
	client, err := apiclient.New(backend.Serve(t), apiclient.WithTokenSource(func() string {
		return mgr.Token()
	}))
	require.NoError(t, err)

	mgr = session.New(client, store)
	return &fixture{backend: backend, store: store, mgr: mgr}
}

func (f *fixture) totalHits() int {
	total := 0
	for _, route := range []string{
		"GET /auth/me", "POST /auth/google", "POST /auth/login",
		"POST /auth/register", "POST /auth/logout",
	} {
		total += f.backend.Hits(route)
	}
	return total
}

func waitReady(t *testing.T, mgr *session.Manager) session.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := mgr.Wait(ctx)
	require.NoError(t, err)
	return state
}

func TestManager_Restore(t *testing.T) {
	t.Parallel()

	t.Run("persisted identity is adopted without network calls", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, func(_ *fakeapi.Backend, s *storage.MemoryStore) {
			require.NoError(t, s.Set(context.Background(), storage.KeyIdentity, `{"id":"u1","email":"a@b.com"}`))
		})

		assert.Equal(t, session.StateAuthenticated, waitReady(t, f.mgr))
		require.NotNil(t, f.mgr.Current())
		assert.Equal(t, "u1", f.mgr.Current().ID)
		assert.Equal(t, 0, f.totalHits())
	})

	t.Run("persisted token is resolved through auth me", func(t *testing.T) {
		t.Parallel()
		var token string
		f := newFixture(t, func(b *fakeapi.Backend, s *storage.MemoryStore) {
			u := b.AddUser(fakeapi.User{ID: "u2", Name: "Ann", Email: "ann@example.com"})
			token = b.IssueToken(u.ID)
			require.NoError(t, s.Set(context.Background(), storage.KeyToken, token))
		})

		assert.Equal(t, session.StateAuthenticated, waitReady(t, f.mgr))
		assert.Equal(t, "u2", f.mgr.Current().ID)
		assert.Equal(t, token, f.mgr.Token())
		assert.Equal(t, 1, f.backend.Hits("GET /auth/me"))

		raw, err := f.store.Get(context.Background(), storage.KeyIdentity)
		require.NoError(t, err)
		var persisted session.Identity
		require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
		assert.Equal(t, "u2", persisted.ID)
	})

	t.Run("rejected token clears storage and ends anonymous", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, func(_ *fakeapi.Backend, s *storage.MemoryStore) {
			require.NoError(t, s.Set(context.Background(), storage.KeyToken, "expired"))
		})

		assert.Equal(t, session.StateAnonymous, waitReady(t, f.mgr))
		assert.Nil(t, f.mgr.Current())
		assert.Empty(t, f.mgr.Token())
		assert.Equal(t, 1, f.backend.Hits("GET /auth/me"))

		_, ok, err := storage.Lookup(context.Background(), f.store, storage.KeyToken)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("nothing persisted", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		assert.Equal(t, session.StateAnonymous, waitReady(t, f.mgr))
		assert.Equal(t, 0, f.totalHits())
	})

	t.Run("unreadable identity is discarded", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, func(_ *fakeapi.Backend, s *storage.MemoryStore) {
			require.NoError(t, s.Set(context.Background(), storage.KeyIdentity, "{not json"))
		})

		assert.Equal(t, session.StateAnonymous, waitReady(t, f.mgr))
		_, ok, _ := storage.Lookup(context.Background(), f.store, storage.KeyIdentity)
		assert.False(t, ok)
	})

	t.Run("start runs once", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		first := f.mgr.Start(context.Background())
		second := f.mgr.Start(context.Background())
		assert.Same(t, first, second)
	})
}

func TestManager_NotReady(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	_, err := f.mgr.LoginWithPassword(context.Background(), "a@b.com", "pw")
	require.ErrorIs(t, err, session.ErrNotReady)

	var terr *session.TransitionError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, session.StateInitializing, terr.From)

	assert.ErrorIs(t, f.mgr.Logout(context.Background()), session.ErrNotReady)
	assert.Equal(t, 0, f.totalHits())
}

func TestManager_LoginWithFederatedCredential(t *testing.T) {
	t.Parallel()

	t.Run("missing credential fails before any request", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		waitReady(t, f.mgr)

		for _, cred := range []string{"", "   ", "has space"} {
			_, err := f.mgr.LoginWithFederatedCredential(context.Background(), cred)
			assert.ErrorIs(t, err, session.ErrInvalidCredential, cred)
		}
		assert.Equal(t, 0, f.totalHits())
	})

	t.Run("success adopts and persists identity", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, func(b *fakeapi.Backend, _ *storage.MemoryStore) {
			b.AddGoogleCredential("google-cred", fakeapi.User{ID: "g1", Name: "Gia", Email: "gia@example.com", Picture: "https://img/g.png"})
		})
		waitReady(t, f.mgr)

		id, err := f.mgr.LoginWithFederatedCredential(context.Background(), "google-cred")
		require.NoError(t, err)
		assert.Equal(t, "g1", id.ID)
		assert.Equal(t, "https://img/g.png", id.Picture)
		assert.NotEmpty(t, id.Token)
		assert.Equal(t, session.StateAuthenticated, f.mgr.State())
		assert.Equal(t, 1, f.backend.Hits("GET /auth/me"), "follow-up verification")

		token, err := f.store.Get(context.Background(), storage.KeyToken)
		require.NoError(t, err)
		assert.Equal(t, id.Token, token)
	})

	t.Run("follow-up failure does not affect the login", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, func(b *fakeapi.Backend, _ *storage.MemoryStore) {
			b.AddGoogleCredential("google-cred", fakeapi.User{ID: "g1", Email: "gia@example.com"})
			b.Fail("GET /auth/me", http.StatusInternalServerError, "cookie blocked")
		})
		waitReady(t, f.mgr)

		id, err := f.mgr.LoginWithFederatedCredential(context.Background(), "google-cred")
		require.NoError(t, err)
		assert.Equal(t, "g1", id.ID)
		assert.Equal(t, session.StateAuthenticated, f.mgr.State())
		assert.Equal(t, 1, f.backend.Hits("GET /auth/me"))
	})

	t.Run("rejected credential surfaces backend message", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		waitReady(t, f.mgr)

		_, err := f.mgr.LoginWithFederatedCredential(context.Background(), "unknown")
		require.ErrorIs(t, err, session.ErrAuthFailed)
		assert.Equal(t, "Invalid Google credential", session.Message(err))

		var authErr *session.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
		assert.Equal(t, session.StateAnonymous, f.mgr.State())
	})

	t.Run("2xx without user is a bad server response", func(t *testing.T) {
		t.Parallel()
		mgr := session.New(stubAPI{post: `{"token":"t"}`}, storage.NewMemoryStore())
		waitReady(t, mgr)

		_, err := mgr.LoginWithFederatedCredential(context.Background(), "cred")
		assert.ErrorIs(t, err, session.ErrBadServerResponse)
		assert.Nil(t, mgr.Current())
	})

	t.Run("bare user object is accepted", func(t *testing.T) {
		t.Parallel()
		mgr := session.New(stubAPI{post: `{"_id":"m1","email":"m@example.com","avatar":"a.png"}`}, storage.NewMemoryStore())
		waitReady(t, mgr)

		id, err := mgr.LoginWithFederatedCredential(context.Background(), "cred")
		require.NoError(t, err)
		assert.Equal(t, "m1", id.ID)
		assert.Equal(t, "a.png", id.Picture)
	})
}

func TestManager_PasswordAndRegister(t *testing.T) {
	t.Parallel()

	t.Run("invalid input is rejected locally", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		waitReady(t, f.mgr)

		_, err := f.mgr.LoginWithPassword(context.Background(), "not-an-email", "")
		require.ErrorIs(t, err, session.ErrInvalidInput)
		verrs := validator.ExtractValidationErrors(err)
		require.NotNil(t, verrs)
		assert.True(t, verrs.Has("email"))
		assert.True(t, verrs.Has("password"))

		_, err = f.mgr.Register(context.Background(), "", "a@b.com", "pw")
		assert.ErrorIs(t, err, session.ErrInvalidInput)
		assert.Equal(t, 0, f.totalHits())
	})

	t.Run("login and wrong password", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, func(b *fakeapi.Backend, _ *storage.MemoryStore) {
			b.AddUser(fakeapi.User{ID: "u1", Email: "a@b.com", Password: "secret"})
		})
		waitReady(t, f.mgr)

		_, err := f.mgr.LoginWithPassword(context.Background(), "a@b.com", "wrong")
		require.ErrorIs(t, err, session.ErrAuthFailed)
		assert.Equal(t, "Invalid email or password", session.Message(err))

		id, err := f.mgr.LoginWithPassword(context.Background(), "a@b.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "u1", id.ID)
		assert.Equal(t, session.StateAuthenticated, f.mgr.State())
	})

	t.Run("register then duplicate", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		waitReady(t, f.mgr)

		id, err := f.mgr.Register(context.Background(), "Neo", "neo@example.com", "matrix")
		require.NoError(t, err)
		assert.Equal(t, "Neo", id.Name)

		_, err = f.mgr.Register(context.Background(), "Neo", "neo@example.com", "matrix")
		require.ErrorIs(t, err, session.ErrAuthFailed)
		assert.Equal(t, "User already exists", session.Message(err))
		assert.Equal(t, "neo@example.com", f.mgr.Current().Email, "failed call keeps identity")
	})

	t.Run("minimum password length", func(t *testing.T) {
		t.Parallel()
		mgr := session.New(stubAPI{}, storage.NewMemoryStore(), session.WithMinPasswordLength(8))
		waitReady(t, mgr)
		_, err := mgr.Register(context.Background(), "Neo", "neo@example.com", "short")
		assert.ErrorIs(t, err, session.ErrInvalidInput)
	})
}

func TestManager_Logout(t *testing.T) {
	t.Parallel()

	t.Run("server failure still signs out", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, func(b *fakeapi.Backend, s *storage.MemoryStore) {
			require.NoError(t, s.Set(context.Background(), storage.KeyIdentity, `{"id":"u1","email":"a@b.com"}`))
			require.NoError(t, s.Set(context.Background(), storage.KeyToken, "tok"))
			b.Fail("POST /auth/logout", http.StatusBadGateway, "down")
		})
		waitReady(t, f.mgr)

		require.NoError(t, f.mgr.Logout(context.Background()))
		assert.Equal(t, session.StateAnonymous, f.mgr.State())
		assert.Nil(t, f.mgr.Current())
		assert.Empty(t, f.mgr.Token())
		assert.Equal(t, 1, f.backend.Hits("POST /auth/logout"))

		for _, key := range []string{storage.KeyIdentity, storage.KeyToken} {
			_, ok, err := storage.Lookup(context.Background(), f.store, key)
			require.NoError(t, err)
			assert.False(t, ok, key)
		}
	})
}

func TestManager_Subscribe(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(b *fakeapi.Backend, _ *storage.MemoryStore) {
		b.AddUser(fakeapi.User{ID: "u1", Email: "a@b.com", Password: "pw"})
	})

	var (
		mu      sync.Mutex
		changes []session.Change
		order   []int
	)
	f.mgr.Subscribe(func(c session.Change) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, c)
		order = append(order, 1)
	})
	unsubscribe := f.mgr.Subscribe(func(session.Change) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, 2)
	})

	waitReady(t, f.mgr)
	_, err := f.mgr.LoginWithPassword(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	unsubscribe()
	unsubscribe()
	require.NoError(t, f.mgr.Logout(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 3)
	assert.Nil(t, changes[0].Identity)
	assert.Equal(t, "u1", changes[1].Identity.ID)
	assert.Nil(t, changes[2].Identity)
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{changes[0].Generation, changes[1].Generation, changes[2].Generation})
	assert.Equal(t, []int{1, 2, 1, 2, 1}, order)
	assert.Equal(t, uint64(3), f.mgr.Generation())
}

func TestCredentialFromToken(t *testing.T) {
	t.Parallel()

	tok := (&oauth2.Token{AccessToken: "access"}).WithExtra(map[string]any{"id_token": "eyJhbGciOi"})
	cred, err := session.CredentialFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOi", cred)

	_, err = session.CredentialFromToken(&oauth2.Token{AccessToken: "access"})
	assert.ErrorIs(t, err, session.ErrInvalidCredential)

	_, err = session.CredentialFromToken(nil)
	assert.ErrorIs(t, err, session.ErrInvalidCredential)
}

// stubAPI answers every POST with a fixed body and every GET with 401.
type stubAPI struct {
	post string
}

func (s stubAPI) Get(context.Context, string, any) error {
	return &apiclient.Error{Method: http.MethodGet, StatusCode: http.StatusUnauthorized}
}

func (s stubAPI) Post(_ context.Context, _ string, _, out any) error {
	if out == nil || s.post == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.post), out)
}
