package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fabricstore/storefront/pkg/apiclient"
	"github.com/fabricstore/storefront/pkg/cart"
	"github.com/fabricstore/storefront/pkg/catalog"
	"github.com/fabricstore/storefront/pkg/logger"
	"github.com/fabricstore/storefront/pkg/session"
	"github.com/fabricstore/storefront/pkg/storage"
)

const serviceName = "storefront"

// App holds one explicitly constructed set of client components.
type App struct {
	Config  Config
	Logger  *slog.Logger
	Store   storage.Store
	API     *apiclient.Client
	Session *session.Manager
	Cart    *cart.Synchronizer
	Catalog *catalog.Client

	closers   []func() error
	detach    func()
	closeOnce sync.Once
}

// Option overrides a component New would otherwise build from Config.
type Option func(*appOptions)

type appOptions struct {
	logger     *slog.Logger
	store      storage.Store
	httpClient *http.Client
}

func WithLogger(l *slog.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithStore replaces the configured storage backend.
func WithStore(s storage.Store) Option {
	return func(o *appOptions) { o.store = s }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *appOptions) { o.httpClient = hc }
}

// New builds the components. It performs no API calls; call Open to restore
// the session.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Logger: o.logger}
	if app.Logger == nil {
		app.Logger = NewLogger(cfg)
	}

	app.Store = o.store
	if app.Store == nil {
		store, closer, err := OpenStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		app.Store = store
		if closer != nil {
			app.closers = append(app.closers, closer)
		}
	}

	var mgr atomic.Pointer[session.Manager]
	api, err := apiclient.New(cfg.APIURL,
		apiclient.WithHTTPClient(o.httpClient),
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		apiclient.WithUserAgent(cfg.UserAgent),
		apiclient.WithLogger(app.Logger),
		apiclient.WithTokenSource(func() string {
			if m := mgr.Load(); m != nil {
				return m.Token()
			}
			return ""
		}),
	)
	if err != nil {
		_ = app.runClosers()
		return nil, err
	}
	app.API = api

	app.Session = session.New(api, app.Store, session.WithLogger(app.Logger))
	mgr.Store(app.Session)

	app.Cart = cart.New(api,
		cart.WithCooldown(cfg.CartCooldown),
		cart.WithLogger(app.Logger),
	)
	app.Catalog = catalog.New(api,
		catalog.WithCacheSize(cfg.CatalogCacheSize),
		catalog.WithTTL(cfg.CatalogTTL),
		catalog.WithLogger(app.Logger),
	)
	return app, nil
}

// Open waits for session restoration and attaches the cart to the session.
// Refreshes triggered by later identity changes run under ctx.
func (a *App) Open(ctx context.Context) (session.State, error) {
	state, err := a.Session.Wait(ctx)
	if err != nil {
		return state, fmt.Errorf("failed to restore session: %w", err)
	}
	if a.detach == nil {
		a.detach = a.Cart.Attach(ctx, a.Session)
	}
	return state, nil
}

// Close detaches the cart, ends its subscriptions and releases the store.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.detach != nil {
			a.detach()
		}
		a.Cart.Close()
		err = a.runClosers()
	})
	return err
}

func (a *App) runClosers() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewLogger builds the stderr logger described by cfg.
func NewLogger(cfg Config) *slog.Logger {
	return logger.New(
		logger.WithEnvironment(cfg.Env, serviceName),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithOutput(os.Stderr),
		logger.WithContextExtractors(apiclient.RequestIDExtractor()),
	)
}

// OpenStore builds the configured storage backend, sealed when a secret is
// set. The returned closer, if any, releases backend connections.
func OpenStore(ctx context.Context, cfg Config) (storage.Store, func() error, error) {
	var (
		store  storage.Store
		closer func() error
	)
	switch cfg.Storage {
	case StorageMemory:
		store = storage.NewMemoryStore()
	case StorageFile, "":
		path, err := cfg.ResolvedStoragePath()
		if err != nil {
			return nil, nil, err
		}
		fs, err := storage.NewFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		store = fs
	case StorageRedis:
		client, err := storage.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		store = storage.NewRedisStore(client, cfg.RedisNamespace, storage.WithTTL(cfg.RedisTTL))
		closer = client.Close
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}

	if cfg.StorageSecret != "" {
		sealed, err := storage.NewSealedStore(store, cfg.StorageSecret)
		if err != nil {
			if closer != nil {
				_ = closer()
			}
			return nil, nil, err
		}
		store = sealed
	}
	return store, closer, nil
}
