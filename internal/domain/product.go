package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOfferAbovePrice = errors.New("offer price is greater than price")
	ErrInvalidProduct  = errors.New("invalid product")
)

type Product struct {
	ID          string           `json:"_id"`
	Name        string           `json:"name"`
	Category    string           `json:"category"`
	Description []string         `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	OfferPrice  *decimal.Decimal `json:"offerPrice,omitempty"`
	InStock     bool             `json:"inStock"`
	Images      []string         `json:"image"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// UnitPrice is the price a customer pays for one unit: the offer price when present.
func (p Product) UnitPrice() decimal.Decimal {
	if p.OfferPrice != nil {
		return *p.OfferPrice
	}
	return p.Price
}

func (p Product) Validate() error {
	if p.ID == "" {
		return errors.New("product id is empty")
	}
	if p.OfferPrice != nil && p.OfferPrice.GreaterThan(p.Price) {
		return fmt.Errorf("product %s: %w", p.ID, ErrOfferAbovePrice)
	}
	return nil
}

// ProductUpdate is the editable part of a product. A nil OfferPrice removes
// the offer.
type ProductUpdate struct {
	Name       string           `json:"name"`
	Category   string           `json:"category"`
	Price      decimal.Decimal  `json:"price"`
	OfferPrice *decimal.Decimal `json:"offerPrice"`
	InStock    bool             `json:"inStock"`
}

func (u ProductUpdate) Validate() error {
	switch {
	case strings.TrimSpace(u.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case strings.TrimSpace(u.Category) == "":
		return fmt.Errorf("%w: category is required", ErrInvalidProduct)
	case !u.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	case u.OfferPrice != nil && !u.OfferPrice.IsPositive():
		return fmt.Errorf("%w: offer price must be positive", ErrInvalidProduct)
	case u.OfferPrice != nil && u.OfferPrice.GreaterThan(u.Price):
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrOfferAbovePrice)
	}
	return nil
}

// Apply returns p with the update's fields.
func (u ProductUpdate) Apply(p Product) Product {
	p.Name = strings.TrimSpace(u.Name)
	p.Category = strings.TrimSpace(u.Category)
	p.Price = u.Price
	p.OfferPrice = u.OfferPrice
	p.InStock = u.InStock
	return p
}

// Catalog is an immutable index of products by id.
type Catalog struct {
	products map[string]Product
	order    []string
}

func NewCatalog(products []Product) Catalog {
	c := Catalog{
		products: make(map[string]Product, len(products)),
		order:    make([]string, 0, len(products)),
	}
	for _, p := range products {
		if _, dup := c.products[p.ID]; !dup {
			c.order = append(c.order, p.ID)
		}
		c.products[p.ID] = p
	}
	return c
}

func (c Catalog) Lookup(id string) (Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

func (c Catalog) Len() int {
	return len(c.products)
}

// Products returns the products in the order the backend listed them.
func (c Catalog) Products() []Product {
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}
