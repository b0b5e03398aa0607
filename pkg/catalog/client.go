package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fabricstore/storefront/pkg/apiclient"
	"github.com/fabricstore/storefront/pkg/cache"
	"github.com/fabricstore/storefront/pkg/logger"
)

const (
	DefaultCacheSize = 64
	DefaultTTL       = time.Minute
)

// API is the subset of the storefront API client the catalog calls.
type API interface {
	Get(ctx context.Context, path string, out any) error
	GetQuery(ctx context.Context, path string, query url.Values, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Client reads and administers catalog collections.
type Client struct {
	api    API
	logger *slog.Logger
	size   int
	ttl    time.Duration
	now    func() time.Time

	lists *cache.LRU[Collection, []Product]
	items *cache.LRU[string, Product]
	group singleflight.Group

	genMu sync.Mutex
	gens  map[Collection]uint64
}

// Option configures a Client.
type Option func(*Client)

// WithCacheSize bounds the number of cached items (lists use the same bound).
func WithCacheSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithTTL sets how long cached reads stay fresh. Zero keeps them until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(api API, opts ...Option) *Client {
	c := &Client{
		api:    api,
		logger: logger.Discard(),
		size:   DefaultCacheSize,
		ttl:    DefaultTTL,
		now:    time.Now,
		gens:   make(map[Collection]uint64, len(Collections)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("catalog"))
	cacheOpts := []cache.Option{cache.WithTTL(c.ttl), cache.WithClock(c.now)}
	c.lists = cache.New[Collection, []Product](len(Collections), cacheOpts...)
	c.items = cache.New[string, Product](c.size, cacheOpts...)
	return c
}

// List returns every product of col.
func (c *Client) List(ctx context.Context, col Collection) ([]Product, error) {
	if _, err := ParseCollection(string(col)); err != nil {
		return nil, err
	}
	if items, ok := c.lists.Get(col); ok {
		return slices.Clone(items), nil
	}

	gen := c.generation(col)
	v, shared, err := c.shared(ctx, flightKey("list:"+string(col), gen), func(ctx context.Context) (any, error) {
		var raw json.RawMessage
		if err := c.api.Get(ctx, "/"+string(col), &raw); err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", col, err)
		}
		items, err := decodeList(raw)
		if err != nil {
			return nil, err
		}
		c.fill(col, gen, func() {
			c.lists.Put(col, items)
			for _, p := range items {
				c.items.Put(itemKey(col, p.ID), p)
			}
		})
		return items, nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "catalog list failed", logger.Collection(string(col)), logger.Error(err))
		return nil, err
	}
	items := v.([]Product)
	c.logger.DebugContext(ctx, "catalog listed",
		logger.Collection(string(col)),
		logger.Count(len(items)),
		slog.Bool("shared", shared),
	)
	return slices.Clone(items), nil
}

// Get returns one product of col.
func (c *Client) Get(ctx context.Context, col Collection, id string) (Product, error) {
	if _, err := ParseCollection(string(col)); err != nil {
		return Product{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}
	key := itemKey(col, id)
	if p, ok := c.items.Get(key); ok {
		return p, nil
	}

	gen := c.generation(col)
	v, _, err := c.shared(ctx, flightKey(key, gen), func(ctx context.Context) (any, error) {
		var raw json.RawMessage
		if err := c.api.Get(ctx, "/"+string(col)+"/"+url.PathEscape(id), &raw); err != nil {
			if apiclient.IsStatus(err, http.StatusNotFound) {
				return nil, fmt.Errorf("%w: %s/%s: %w", ErrNotFound, col, id, err)
			}
			return nil, fmt.Errorf("failed to get %s/%s: %w", col, id, err)
		}
		p, err := decodeItem(raw)
		if err != nil {
			return nil, err
		}
		c.fill(col, gen, func() { c.items.Put(key, p) })
		return p, nil
	})
	if err != nil {
		return Product{}, err
	}
	return v.(Product), nil
}

// shared runs fn once per key for all concurrent callers. The request ignores
// any single caller's cancellation; each caller still returns as soon as its
// own ctx is done.
func (c *Client) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) { return fn(detached) })
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	}
}

func (c *Client) generation(col Collection) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.gens[col]
}

// fill stores a fetch result unless col was invalidated after the fetch began.
func (c *Client) fill(col Collection, gen uint64, put func()) {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if c.gens[col] != gen {
		c.logger.Debug("discarding catalog response fetched before invalidation", logger.Collection(string(col)))
		return
	}
	put()
}

func flightKey(key string, gen uint64) string {
	return key + "@" + strconv.FormatUint(gen, 10)
}

// NameExists asks the backend whether col already holds a product named name.
// It is never cached.
func (c *Client) NameExists(ctx context.Context, col Collection, name string) (bool, error) {
	if _, err := ParseCollection(string(col)); err != nil {
		return false, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.api.GetQuery(ctx, "/"+string(col), url.Values{"name": {name}}, &resp); err != nil {
		return false, fmt.Errorf("failed to check %s name: %w", col, err)
	}
	return resp.Exists, nil
}

// Delete removes a product and drops the cached list and item.
func (c *Client) Delete(ctx context.Context, col Collection, id string) error {
	if _, err := ParseCollection(string(col)); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}

	err := c.api.Delete(ctx, "/"+string(col)+"/"+url.PathEscape(id), nil)
	c.Invalidate(col, id)
	if err != nil {
		if apiclient.IsStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: %s/%s: %w", ErrNotFound, col, id, err)
		}
		return fmt.Errorf("failed to delete %s/%s: %w", col, id, err)
	}
	c.logger.InfoContext(ctx, "catalog item deleted", logger.Collection(string(col)), logger.ProductID(id))
	return nil
}

// Invalidate drops the cached list of col and the given items. Reads of col
// already in flight return their result but no longer cache it.
func (c *Client) Invalidate(col Collection, ids ...string) {
	c.genMu.Lock()
	c.gens[col]++
	c.genMu.Unlock()

	c.lists.Remove(col)
	for _, id := range ids {
		c.items.Remove(itemKey(col, id))
	}
}

func itemKey(col Collection, id string) string {
	return string(col) + "/" + id
}
