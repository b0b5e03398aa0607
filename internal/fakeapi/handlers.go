package fakeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ctxKey struct{}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// userFor resolves the caller from the bearer token or the session cookie.
func (b *Backend) userFor(r *http.Request) (*User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if id, ok := b.tokens[strings.TrimPrefix(auth, "Bearer ")]; ok {
			u, ok := b.users[id]
			return u, ok
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, ok := b.sessions[c.Value]; ok {
			u, ok := b.users[id]
			return u, ok
		}
	}
	return nil, false
}

func (b *Backend) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := b.userFor(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u.ID)))
	})
}

// signIn starts a cookie session and answers {user, token}.
func (b *Backend) signIn(w http.ResponseWriter, status int, u User) {
	sid := uuid.NewString()
	b.mu.Lock()
	b.sessions[sid] = u.ID
	token := b.issueTokenLocked(u.ID)
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sid, Path: "/", HttpOnly: true})
	writeJSON(w, status, map[string]any{"user": u, "token": token})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	u, ok := b.userFor(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (b *Backend) loginGoogle(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Credential string `json:"credential"`
	}
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	id, ok := b.google[in.Credential]
	var u User
	if ok {
		u = *b.users[id]
	}
	b.mu.Unlock()

	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Invalid Google credential")
		return
	}
	b.signIn(w, http.StatusOK, u)
}

func (b *Backend) loginPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}

	u, ok := b.userByEmail(in.Email)
	if !ok || u.Password != in.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	b.signIn(w, http.StatusOK, u)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	if _, exists := b.userByEmail(in.Email); exists {
		writeMessage(w, http.StatusConflict, "User already exists")
		return
	}
	u := b.AddUser(User{Name: in.Name, Email: in.Email, Password: in.Password})
	b.signIn(w, http.StatusCreated, u)
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		b.mu.Lock()
		delete(b.sessions, c.Value)
		b.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeMessage(w, http.StatusOK, "Logged out")
}

func (b *Backend) userByEmail(email string) (User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, email) {
			return *u, true
		}
	}
	return User{}, false
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func (b *Backend) getCart(w http.ResponseWriter, r *http.Request) {
	b.writeCart(w, userID(r))
}

func (b *Backend) writeCart(w http.ResponseWriter, uid string) {
	b.mu.Lock()
	items := append([]CartLine{}, b.carts[uid]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"cart": map[string]any{"items": items}})
}

type cartMutation struct {
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity"`
	SelectedSize  string `json:"selectedSize"`
	SelectedColor string `json:"selectedColor"`
}

func (b *Backend) addToCart(w http.ResponseWriter, r *http.Request) {
	var in cartMutation
	if !decode(w, r, &in) {
		return
	}
	if in.ProductID == "" {
		writeMessage(w, http.StatusBadRequest, "productId is required")
		return
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	uid := userID(r)
	b.mu.Lock()
	lines := b.carts[uid]
	found := false
	for i := range lines {
		if lineProductID(lines[i]) == in.ProductID &&
			lines[i].SelectedSize == in.SelectedSize && lines[i].SelectedColor == in.SelectedColor {
			lines[i].Quantity += in.Quantity
			found = true
			break
		}
	}
	if !found {
		line := CartLine{
			ID:            uuid.NewString(),
			Product:       in.ProductID,
			SelectedSize:  in.SelectedSize,
			SelectedColor: in.SelectedColor,
			Quantity:      in.Quantity,
		}
		if p, ok := b.findProductLocked(in.ProductID); ok {
			line.Product = p
			line.PriceSnapshot = p.Price
			line.NameSnapshot = p.Name
		}
		lines = append(lines, line)
	}
	b.carts[uid] = lines
	b.mu.Unlock()

	b.writeCart(w, uid)
}

func (b *Backend) decrementCart(w http.ResponseWriter, r *http.Request) {
	var in cartMutation
	if !decode(w, r, &in) {
		return
	}

	uid := userID(r)
	b.mu.Lock()
	lines := b.carts[uid]
	idx := -1
	for i := range lines {
		if lineProductID(lines[i]) == in.ProductID &&
			lines[i].SelectedSize == in.SelectedSize && lines[i].SelectedColor == in.SelectedColor {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		writeMessage(w, http.StatusNotFound, "Item not in cart")
		return
	}
	lines[idx].Quantity--
	if lines[idx].Quantity <= 0 {
		lines = append(lines[:idx], lines[idx+1:]...)
	}
	b.carts[uid] = lines
	b.mu.Unlock()

	b.writeCart(w, uid)
}

func lineProductID(l CartLine) string {
	switch p := l.Product.(type) {
	case string:
		return p
	case Product:
		return p.ID
	}
	return ""
}

func (b *Backend) findProductLocked(id string) (Product, bool) {
	for _, items := range b.catalog {
		for _, p := range items {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Product{}, false
}

func (b *Backend) knownCollection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		_, ok := b.catalog[chi.URLParam(r, "collection")]
		b.mu.Unlock()
		if !ok {
			writeMessage(w, http.StatusNotFound, "Not found")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) listProducts(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	b.mu.Lock()
	items := append([]Product{}, b.catalog[collection]...)
	b.mu.Unlock()

	if r.URL.Query().Has("name") {
		name := r.URL.Query().Get("name")
		exists := false
		for _, p := range items {
			if strings.EqualFold(p.Name, name) {
				exists = true
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
		return
	}

	// topsellers answers with a wrapped list, like the live backend.
	if collection == "topsellers" {
		writeJSON(w, http.StatusOK, map[string]any{"products": items})
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (b *Backend) getProduct(w http.ResponseWriter, r *http.Request) {
	collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")

	b.mu.Lock()
	var (
		found Product
		ok    bool
	)
	for _, p := range b.catalog[collection] {
		if p.ID == id {
			found, ok = p, true
			break
		}
	}
	b.mu.Unlock()

	if !ok {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}
	if collection == "products" {
		writeJSON(w, http.StatusOK, map[string]any{"product": found})
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (b *Backend) deleteProduct(w http.ResponseWriter, r *http.Request) {
	collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")

	b.mu.Lock()
	items := b.catalog[collection]
	idx := -1
	for i, p := range items {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		b.catalog[collection] = append(items[:idx], items[idx+1:]...)
	}
	b.mu.Unlock()

	if idx < 0 {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}
	writeMessage(w, http.StatusOK, "Deleted")
}
