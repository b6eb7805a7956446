package domain

// Cart maps product id to desired quantity. A product that is not in the map
// has quantity zero; the map never holds zero or negative entries.
type Cart map[string]int

func (c Cart) Count() int {
	total := 0
	for _, q := range c {
		total += q
	}
	return total
}

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for id, q := range c {
		out[id] = q
	}
	return out
}

// Normalize drops entries with a non-positive quantity.
func (c Cart) Normalize() Cart {
	out := make(Cart, len(c))
	for id, q := range c {
		if q > 0 && id != "" {
			out[id] = q
		}
	}
	return out
}

type CartItem struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

// Items flattens the cart into a slice; order is not significant.
func (c Cart) Items() []CartItem {
	items := make([]CartItem, 0, len(c))
	for id, q := range c {
		items = append(items, CartItem{ProductID: id, Quantity: q})
	}
	return items
}

func CartFromItems(items []CartItem) Cart {
	c := make(Cart, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		c[item.ProductID] += item.Quantity
	}
	return c
}
