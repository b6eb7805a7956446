package checkout

import (
	"fmt"
	"sort"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// SnapshotLine is a cart line with the unit price captured at checkout time.
type SnapshotLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Snapshot is the immutable content of an order request. Later catalog price
// changes do not affect it.
type Snapshot struct {
	Lines      []SnapshotLine  `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	CapturedAt time.Time       `json:"captured_at"`
}

func (s Snapshot) Count() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}

func buildSnapshot(catalog domain.Catalog, cart domain.Cart, taxRate decimal.Decimal) (Snapshot, error) {
	snap := Snapshot{
		Lines:      make([]SnapshotLine, 0, len(cart)),
		Subtotal:   decimal.Zero,
		CapturedAt: time.Now().UTC(),
	}

	for id, q := range cart {
		p, ok := catalog.Lookup(id)
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: product %s is no longer available", ErrValidation, id)
		}
		unit := p.UnitPrice()
		sub := unit.Mul(decimal.NewFromInt(int64(q)))
		snap.Lines = append(snap.Lines, SnapshotLine{
			ProductID: id,
			Name:      p.Name,
			Quantity:  q,
			UnitPrice: unit,
			Subtotal:  sub,
		})
		snap.Subtotal = snap.Subtotal.Add(sub)
	}
	sort.Slice(snap.Lines, func(i, j int) bool { return snap.Lines[i].ProductID < snap.Lines[j].ProductID })

	snap.Tax = pricing.Tax(snap.Subtotal, taxRate)
	snap.Total = pricing.GrandTotal(snap.Subtotal, snap.Tax)
	return snap, nil
}

func (s Snapshot) orderLines() []backend.OrderLine {
	lines := make([]backend.OrderLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, backend.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity, Price: l.UnitPrice})
	}
	return lines
}
