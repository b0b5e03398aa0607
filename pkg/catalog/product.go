package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Collection names a product listing on the backend.
type Collection string

const (
	Products    Collection = "products"
	TopSellers  Collection = "topsellers"
	DressStyles Collection = "dressstyles"
)

// Collections lists every known collection.
var Collections = []Collection{Products, TopSellers, DressStyles}

// ParseCollection validates a collection name.
func ParseCollection(name string) (Collection, error) {
	c := Collection(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Collections {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// Product is one catalog entry.
type Product struct {
	ID               string    `json:"_id"`
	Name             string    `json:"name"`
	Price            float64   `json:"price"`
	OriginalPrice    float64   `json:"originalPrice,omitempty"`
	Description      string    `json:"description,omitempty"`
	Category         string    `json:"category,omitempty"`
	Material         string    `json:"material,omitempty"`
	Occasion         string    `json:"occasion,omitempty"`
	CareInstructions string    `json:"careInstructions,omitempty"`
	Colors           []string  `json:"colors,omitempty"`
	Sizes            []string  `json:"sizes,omitempty"`
	Image            string    `json:"image,omitempty"`
	Images           []string  `json:"images,omitempty"`
	Rating           float64   `json:"rating,omitempty"`
	ReviewCount      int       `json:"reviewCount,omitempty"`
	CreatedAt        time.Time `json:"createdAt,omitzero"`
}

func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var raw struct {
		plain
		AltID         string `json:"id"`
		Price         number `json:"price"`
		OriginalPrice number `json:"originalPrice"`
		Rating        number `json:"rating"`
		ReviewCount   number `json:"reviewCount"`
		Color         string `json:"color"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Product(raw.plain)
	if p.ID == "" {
		p.ID = raw.AltID
	}
	p.Price = float64(raw.Price)
	p.OriginalPrice = float64(raw.OriginalPrice)
	p.Rating = float64(raw.Rating)
	p.ReviewCount = int(raw.ReviewCount)
	if len(p.Colors) == 0 && raw.Color != "" {
		p.Colors = []string{raw.Color}
	}
	return nil
}

// Cover returns the first image, falling back to the single image field.
func (p Product) Cover() string {
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return p.Image
}

// Discount is the rounded percentage off the original price, or 0.
func (p Product) Discount() int {
	if p.OriginalPrice <= 0 || p.OriginalPrice <= p.Price {
		return 0
	}
	return int(math.Round((p.OriginalPrice - p.Price) / p.OriginalPrice * 100))
}

// number accepts a JSON number or a numeric string.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*n = number(f)
	return nil
}

// decodeList accepts a bare array or an object wrapping one.
func decodeList(raw json.RawMessage) ([]Product, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var items []Product
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	for _, key := range []string{"products", "items", "data"} {
		if inner, ok := envelope[key]; ok {
			return decodeList(inner)
		}
	}
	return nil, fmt.Errorf("%w: no product list in response", ErrMalformedResponse)
}

// decodeItem accepts a bare product or one wrapped in product or data.
func decodeItem(raw json.RawMessage) (Product, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Product{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	for _, key := range []string{"product", "data"} {
		if inner, ok := envelope[key]; ok && len(inner) > 0 && inner[0] == '{' {
			raw = inner
			break
		}
	}

	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return Product{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if p.ID == "" {
		return Product{}, fmt.Errorf("%w: product has no id", ErrMalformedResponse)
	}
	return p, nil
}
