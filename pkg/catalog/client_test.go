package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricstore/storefront/internal/fakeapi"
	"github.com/fabricstore/storefront/pkg/apiclient"
	"github.com/fabricstore/storefront/pkg/catalog"
)

func newClient(t *testing.T, opts ...catalog.Option) (*catalog.Client, *fakeapi.Backend) {
	t.Helper()
	backend := fakeapi.New()
	backend.AddProduct("products", fakeapi.Product{ID: "p1", Name: "Oxford Shirt", Price: 45, OriginalPrice: 60, Sizes: []string{"S", "M"}})
	backend.AddProduct("products", fakeapi.Product{ID: "p2", Name: "Chinos", Price: 55})
	backend.AddProduct("topsellers", fakeapi.Product{ID: "t1", Name: "Denim Jacket", Price: 120})
	backend.AddProduct("dressstyles", fakeapi.Product{ID: "d1", Name: "Casual", Price: 999, Images: []string{"c1.jpg", "c2.jpg"}})

	api, err := apiclient.New(backend.Serve(t))
	require.NoError(t, err)
	return catalog.New(api, opts...), backend
}

func TestClient_List(t *testing.T) {
	t.Parallel()

	t.Run("bare and wrapped lists", func(t *testing.T) {
		t.Parallel()
		c, _ := newClient(t)

		items, err := c.List(context.Background(), catalog.Products)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Oxford Shirt", items[0].Name)
		assert.Equal(t, 25, items[0].Discount())

		top, err := c.List(context.Background(), catalog.TopSellers)
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, "t1", top[0].ID)
	})

	t.Run("cached until ttl", func(t *testing.T) {
		t.Parallel()
		now := time.Now()
		var mu sync.Mutex
		clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
		c, backend := newClient(t, catalog.WithTTL(time.Minute), catalog.WithClock(clock))

		_, err := c.List(context.Background(), catalog.Products)
		require.NoError(t, err)
		_, err = c.List(context.Background(), catalog.Products)
		require.NoError(t, err)
		assert.Equal(t, 1, backend.Hits("GET /products"))

		mu.Lock()
		now = now.Add(time.Minute)
		mu.Unlock()
		_, err = c.List(context.Background(), catalog.Products)
		require.NoError(t, err)
		assert.Equal(t, 2, backend.Hits("GET /products"))
	})

	t.Run("concurrent reads share one request", func(t *testing.T) {
		t.Parallel()
		c, backend := newClient(t)
		release := backend.Hold("GET /dressstyles")

		var wg sync.WaitGroup
		results := make([][]catalog.Product, 8)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				items, err := c.List(context.Background(), catalog.DressStyles)
				assert.NoError(t, err)
				results[i] = items
			}()
		}
		require.Eventually(t, func() bool { return backend.Hits("GET /dressstyles") >= 1 }, 2*time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		release()
		wg.Wait()

		assert.Equal(t, 1, backend.Hits("GET /dressstyles"))
		for _, items := range results {
			require.Len(t, items, 1)
			assert.Equal(t, "c1.jpg", items[0].Cover())
		}
	})

	t.Run("unknown collection", func(t *testing.T) {
		t.Parallel()
		c, _ := newClient(t)
		_, err := c.List(context.Background(), catalog.Collection("shoes"))
		assert.ErrorIs(t, err, catalog.ErrUnknownCollection)
	})

	t.Run("backend failure is not cached", func(t *testing.T) {
		t.Parallel()
		c, backend := newClient(t)
		backend.Fail("GET /products", http.StatusInternalServerError, "boom")
		_, err := c.List(context.Background(), catalog.Products)
		require.Error(t, err)
		assert.Equal(t, "boom", apiclient.Message(err, ""))

		backend.Recover("GET /products")
		items, err := c.List(context.Background(), catalog.Products)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})
}

func TestClient_Get(t *testing.T) {
	t.Parallel()
	c, backend := newClient(t)
	ctx := context.Background()

	p, err := c.Get(ctx, catalog.Products, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "M"}, p.Sizes)

	d, err := c.Get(ctx, catalog.DressStyles, "d1")
	require.NoError(t, err)
	assert.Equal(t, "Casual", d.Name)

	_, err = c.Get(ctx, catalog.Products, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Hits("GET /products/p1"))

	_, err = c.Get(ctx, catalog.Products, "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = c.Get(ctx, catalog.Products, " ")
	assert.ErrorIs(t, err, catalog.ErrInvalidInput)

	// A listed item is served from the list fill.
	_, err = c.List(ctx, catalog.TopSellers)
	require.NoError(t, err)
	_, err = c.Get(ctx, catalog.TopSellers, "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, backend.Hits("GET /topsellers/t1"))
}

func TestClient_NameExists(t *testing.T) {
	t.Parallel()
	c, backend := newClient(t)
	ctx := context.Background()

	exists, err := c.NameExists(ctx, catalog.Products, "chinos")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.NameExists(ctx, catalog.Products, "Kilt")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 2, backend.Hits("GET /products"))

	_, err = c.NameExists(ctx, catalog.Products, "")
	assert.ErrorIs(t, err, catalog.ErrInvalidInput)
}

func TestClient_Delete(t *testing.T) {
	t.Parallel()
	c, backend := newClient(t)
	ctx := context.Background()

	_, err := c.List(ctx, catalog.Products)
	require.NoError(t, err)
	_, err = c.Get(ctx, catalog.Products, "p2")
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, catalog.Products, "p2"))

	items, err := c.List(ctx, catalog.Products)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, backend.Hits("GET /products"), "delete invalidates the cached list")

	_, err = c.Get(ctx, catalog.Products, "p2")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	assert.ErrorIs(t, c.Delete(ctx, catalog.Products, "p2"), catalog.ErrNotFound)
}

// snapshotAPI answers reads with the products as they were when the request
// arrived. The first GET blocks until release is closed.
type snapshotAPI struct {
	mu       sync.Mutex
	products map[string]fakeapi.Product
	order    []string
	gets     int
	started  chan struct{}
	release  chan struct{}
}

func newSnapshotAPI(ids ...string) *snapshotAPI {
	a := &snapshotAPI{
		products: make(map[string]fakeapi.Product),
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	for _, id := range ids {
		a.products[id] = fakeapi.Product{ID: id, Name: strings.ToUpper(id)}
		a.order = append(a.order, id)
	}
	return a
}

func (a *snapshotAPI) Get(_ context.Context, path string, out any) error {
	a.mu.Lock()
	a.gets++
	first := a.gets == 1
	var body any
	if id, ok := strings.CutPrefix(path, "/products/"); ok {
		body = a.products[id]
	} else {
		list := make([]fakeapi.Product, 0, len(a.order))
		for _, id := range a.order {
			if p, ok := a.products[id]; ok {
				list = append(list, p)
			}
		}
		body = list
	}
	a.mu.Unlock()

	if first {
		close(a.started)
		<-a.release
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (a *snapshotAPI) GetQuery(context.Context, string, url.Values, any) error { return nil }

func (a *snapshotAPI) Delete(_ context.Context, path string, _ any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.products, strings.TrimPrefix(path, "/products/"))
	return nil
}

func (a *snapshotAPI) getCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gets
}

func ids(items []catalog.Product) []string {
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}

func TestClient_DeleteDuringRead(t *testing.T) {
	t.Parallel()

	t.Run("list", func(t *testing.T) {
		t.Parallel()
		api := newSnapshotAPI("p1", "p2")
		c := catalog.New(api)
		ctx := context.Background()

		done := make(chan []catalog.Product)
		go func() {
			items, err := c.List(ctx, catalog.Products)
			assert.NoError(t, err)
			done <- items
		}()
		<-api.started

		require.NoError(t, c.Delete(ctx, catalog.Products, "p1"))
		close(api.release)
		assert.Equal(t, []string{"p1", "p2"}, ids(<-done), "the read that raced the delete sees the old list")

		items, err := c.List(ctx, catalog.Products)
		require.NoError(t, err)
		assert.Equal(t, []string{"p2"}, ids(items))
		assert.Equal(t, 2, api.getCount(), "the stale list was not cached")

		_, err = c.List(ctx, catalog.Products)
		require.NoError(t, err)
		assert.Equal(t, 2, api.getCount(), "the fresh list is cached")
	})

	t.Run("get", func(t *testing.T) {
		t.Parallel()
		api := newSnapshotAPI("p1")
		c := catalog.New(api)
		ctx := context.Background()

		done := make(chan error)
		go func() {
			_, err := c.Get(ctx, catalog.Products, "p1")
			done <- err
		}()
		<-api.started

		require.NoError(t, c.Delete(ctx, catalog.Products, "p1"))
		close(api.release)
		require.NoError(t, <-done)

		_, _ = c.Get(ctx, catalog.Products, "p1")
		assert.Equal(t, 2, api.getCount(), "the item fetched before the delete was not cached")
	})
}

func TestClient_SharedReadCancellation(t *testing.T) {
	t.Parallel()
	c, backend := newClient(t)
	release := backend.Hold("GET /dressstyles")

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error)
	go func() {
		_, err := c.List(ctx, catalog.DressStyles)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return backend.Hits("GET /dressstyles") == 1 }, 2*time.Second, 5*time.Millisecond)

	type result struct {
		items []catalog.Product
		err   error
	}
	second := make(chan result)
	go func() {
		items, err := c.List(context.Background(), catalog.DressStyles)
		second <- result{items, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	release()
	res := <-second
	require.NoError(t, res.err, "a cancelled caller does not fail callers sharing its request")
	require.Len(t, res.items, 1)
	assert.Equal(t, 1, backend.Hits("GET /dressstyles"))
}

func TestParseCollection(t *testing.T) {
	t.Parallel()
	col, err := catalog.ParseCollection(" TopSellers ")
	require.NoError(t, err)
	assert.Equal(t, catalog.TopSellers, col)

	_, err = catalog.ParseCollection("hats")
	assert.ErrorIs(t, err, catalog.ErrUnknownCollection)
}
