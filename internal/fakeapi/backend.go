package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const sessionCookie = "sid"

// User is a seeded account.
type User struct {
	ID       string `json:"_id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Picture  string `json:"picture,omitempty"`
	Password string `json:"-"`
}

// Product is a seeded catalog item.
type Product struct {
	ID            string   `json:"_id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"originalPrice,omitempty"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category,omitempty"`
	Image         string   `json:"image,omitempty"`
	Images        []string `json:"images,omitempty"`
	Sizes         []string `json:"sizes,omitempty"`
	Colors        []string `json:"colors,omitempty"`
}

// CartLine is one stored cart line. Product holds either the product id or
// an embedded Product, mirroring a populated and an unpopulated backend.
type CartLine struct {
	ID            string  `json:"_id"`
	Product       any     `json:"product"`
	SelectedSize  string  `json:"selectedSize"`
	SelectedColor string  `json:"selectedColor"`
	Quantity      int     `json:"quantity"`
	PriceSnapshot float64 `json:"priceSnapshot"`
	NameSnapshot  string  `json:"nameSnapshot,omitempty"`
}

type failure struct {
	status  int
	message string
}

// Backend holds the fake state. All methods are safe for concurrent use.
type Backend struct {
	mu       sync.Mutex
	users    map[string]*User // by id
	google   map[string]string
	tokens   map[string]string // bearer token -> user id
	sessions map[string]string // cookie -> user id
	carts    map[string][]CartLine
	catalog  map[string][]Product

	hits     map[string]int
	failures map[string]failure
	holds    map[string]chan struct{}
}

func New() *Backend {
	return &Backend{
		users:    make(map[string]*User),
		google:   make(map[string]string),
		tokens:   make(map[string]string),
		sessions: make(map[string]string),
		carts:    make(map[string][]CartLine),
		catalog: map[string][]Product{
			"products":    nil,
			"topsellers":  nil,
			"dressstyles": nil,
		},
		hits:     make(map[string]int),
		failures: make(map[string]failure),
		holds:    make(map[string]chan struct{}),
	}
}

// Serve starts an httptest server that is closed when tb finishes and returns
// its URL.
func (b *Backend) Serve(tb testing.TB) string {
	tb.Helper()
	srv := httptest.NewServer(b.Handler())
	tb.Cleanup(srv.Close)
	return srv.URL
}

// Handler returns the chi router serving /api.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		api.Use(b.instrument)

		api.Route("/auth", func(auth chi.Router) {
			auth.Get("/me", b.me)
			auth.Post("/google", b.loginGoogle)
			auth.Post("/login", b.loginPassword)
			auth.Post("/register", b.register)
			auth.Post("/logout", b.logout)
		})

		api.Route("/cart", func(cart chi.Router) {
			cart.Use(b.requireUser)
			cart.Get("/", b.getCart)
			cart.Post("/add", b.addToCart)
			cart.Post("/decrement", b.decrementCart)
		})

		api.Route("/{collection}", func(col chi.Router) {
			col.Use(b.knownCollection)
			col.Get("/", b.listProducts)
			col.Get("/{id}", b.getProduct)
			col.Delete("/{id}", b.deleteProduct)
		})
	})
	return r
}

// AddUser seeds an account; an empty ID gets a generated one.
func (b *Backend) AddUser(u User) User {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	b.users[u.ID] = &u
	return u
}

// AddGoogleCredential makes credential sign in as u, seeding u if needed.
func (b *Backend) AddGoogleCredential(credential string, u User) User {
	u = b.AddUser(u)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.google[credential] = u.ID
	return u
}

// IssueToken returns a bearer token valid for userID.
func (b *Backend) IssueToken(userID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueTokenLocked(userID)
}

func (b *Backend) AddProduct(collection string, p Product) Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	b.catalog[collection] = append(b.catalog[collection], p)
	return p
}

// SetCart replaces the stored cart of userID.
func (b *Backend) SetCart(userID string, lines ...CartLine) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.carts[userID] = append([]CartLine(nil), lines...)
}

// Cart returns a copy of the stored cart of userID.
func (b *Backend) Cart(userID string) []CartLine {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]CartLine(nil), b.carts[userID]...)
}

// Hits reports how many requests reached route.
func (b *Backend) Hits(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

// Fail makes route answer status with {"message": message} until Recover.
func (b *Backend) Fail(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, message: message}
}

func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// Hold blocks requests to route after they are counted until the returned
// release function is called. Release is idempotent.
func (b *Backend) Hold(route string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.holds[route] = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.holds[route] == ch {
				delete(b.holds, route)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Backend) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api"), "/")

		b.mu.Lock()
		b.hits[route]++
		fail, failing := b.failures[route]
		hold := b.holds[route]
		b.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			writeMessage(w, fail.status, fail.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) issueTokenLocked(userID string) string {
	token := "tok-" + uuid.NewString()
	b.tokens[token] = userID
	return token
}
