// Package pricing computes cart totals from a catalog and a quantity map.
// Every function is pure: no clock, no randomness, no I/O.
//
// Rounding: tax and grand total are truncated to cents (toward zero), not rounded.
package pricing

import (
	"sort"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const centsPlaces = 2

var DefaultTaxRate = decimal.RequireFromString("0.02")

func LineTotal(p domain.Product, quantity int) decimal.Decimal {
	return p.UnitPrice().Mul(decimal.NewFromInt(int64(quantity)))
}

func CartCount(cart domain.Cart) int {
	return cart.Count()
}

// CartSubtotal sums line totals; products missing from the catalog contribute zero.
func CartSubtotal(catalog domain.Catalog, cart domain.Cart) decimal.Decimal {
	subtotal := decimal.Zero
	for id, q := range cart {
		p, ok := catalog.Lookup(id)
		if !ok {
			continue
		}
		subtotal = subtotal.Add(LineTotal(p, q))
	}
	return subtotal
}

func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Truncate(centsPlaces)
}

func GrandTotal(subtotal, tax decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax.Truncate(centsPlaces)).Truncate(centsPlaces)
}

type Line struct {
	Product  domain.Product  `json:"product"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

type Breakdown struct {
	Lines    []Line          `json:"lines"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Compute builds the view of a cart. Lines only include resolvable products and
// are sorted by product id so the result is independent of map iteration order.
func Compute(catalog domain.Catalog, cart domain.Cart, rate decimal.Decimal) Breakdown {
	lines := make([]Line, 0, len(cart))
	for id, q := range cart {
		p, ok := catalog.Lookup(id)
		if !ok {
			continue
		}
		lines = append(lines, Line{Product: p, Quantity: q, Total: LineTotal(p, q)})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Product.ID < lines[j].Product.ID })

	subtotal := CartSubtotal(catalog, cart)
	tax := Tax(subtotal, rate)
	return Breakdown{
		Lines:    lines,
		Count:    CartCount(cart),
		Subtotal: subtotal,
		Tax:      tax,
		Total:    GrandTotal(subtotal, tax),
	}
}
