package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ProductRef is a cart line's product: a bare id from an unpopulated
// backend, or an embedded product document.
type ProductRef struct {
	ID       string
	Name     string
	Image    string
	Price    float64
	Embedded bool
}

func (p *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ProductRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = ProductRef{ID: id}
		return nil
	}

	var doc struct {
		MongoID string   `json:"_id"`
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Image   string   `json:"image"`
		Images  []string `json:"images"`
		Price   amount   `json:"price"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode cart product: %w", err)
	}
	*p = ProductRef{
		ID:       doc.MongoID,
		Name:     doc.Name,
		Image:    doc.Image,
		Price:    float64(doc.Price),
		Embedded: true,
	}
	if p.ID == "" {
		p.ID = doc.ID
	}
	if p.Image == "" && len(doc.Images) > 0 {
		p.Image = doc.Images[0]
	}
	return nil
}

func (p ProductRef) MarshalJSON() ([]byte, error) {
	if !p.Embedded {
		return json.Marshal(p.ID)
	}
	return json.Marshal(struct {
		ID    string  `json:"_id"`
		Name  string  `json:"name,omitempty"`
		Image string  `json:"image,omitempty"`
		Price float64 `json:"price"`
	}{p.ID, p.Name, p.Image, p.Price})
}

// amount accepts a JSON number or a numeric string.
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	*a = amount(f)
	return nil
}

// Line is one (product, size, color) entry of the cart.
type Line struct {
	ID            string     `json:"_id"`
	Product       ProductRef `json:"product"`
	SelectedSize  string     `json:"selectedSize"`
	SelectedColor string     `json:"selectedColor"`
	Quantity      int        `json:"quantity"`
	PriceSnapshot float64    `json:"priceSnapshot"`
	NameSnapshot  string     `json:"nameSnapshot,omitempty"`
	ImageSnapshot string     `json:"imageSnapshot,omitempty"`
}

func (l *Line) UnmarshalJSON(data []byte) error {
	type plain Line
	var raw struct {
		plain
		PriceSnapshot amount `json:"priceSnapshot"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = Line(raw.plain)
	l.PriceSnapshot = float64(raw.PriceSnapshot)
	return nil
}

// Name prefers the denormalized snapshot over the embedded product name.
func (l Line) Name() string {
	if l.NameSnapshot != "" {
		return l.NameSnapshot
	}
	if l.Product.Name != "" {
		return l.Product.Name
	}
	return l.Product.ID
}

func (l Line) Image() string {
	if l.ImageSnapshot != "" {
		return l.ImageSnapshot
	}
	return l.Product.Image
}

// Total is priceSnapshot times quantity.
func (l Line) Total() float64 {
	return l.PriceSnapshot * float64(l.Quantity)
}

func (l Line) matches(productID string) bool {
	return productID != "" && l.Product.ID == productID
}

// Mirror is an immutable view of cart lines.
type Mirror []Line

// Count is the sum of line quantities.
func (m Mirror) Count() int {
	n := 0
	for _, l := range m {
		n += l.Quantity
	}
	return n
}

func (m Mirror) Subtotal() float64 {
	var total float64
	for _, l := range m {
		total += l.Total()
	}
	return total
}

// LineQuantityFor sums the quantities of every line for productID, across
// all variants.
func (m Mirror) LineQuantityFor(productID string) int {
	n := 0
	for _, l := range m {
		if l.matches(productID) {
			n += l.Quantity
		}
	}
	return n
}

func (m Mirror) LineQuantityForVariant(productID, size, color string) int {
	n := 0
	for _, l := range m {
		if l.matches(productID) && l.SelectedSize == size && l.SelectedColor == color {
			n += l.Quantity
		}
	}
	return n
}
