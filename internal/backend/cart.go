package backend

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// PullCart fetches the authoritative cart of the logged-in user.
func (c *Client) PullCart(ctx context.Context, _ string) (domain.Cart, error) {
	var resp cartResponse
	if err := c.do(ctx, call{op: "pull cart", method: http.MethodGet, path: "/cart"}, &resp); err != nil {
		return nil, err
	}

	items := make([]domain.CartItem, 0, len(resp.Cart.Items))
	for _, it := range resp.Cart.Items {
		items = append(items, domain.CartItem{ProductID: it.Product.ID, Quantity: it.Quantity})
	}
	return domain.CartFromItems(items), nil
}

// PushCart replaces the server-side cart with cart.
func (c *Client) PushCart(ctx context.Context, userID string, cart domain.Cart) error {
	items := make(map[string]int, len(cart))
	for id, q := range cart {
		items[id] = q
	}
	return c.do(ctx, call{
		op:     "push cart",
		method: http.MethodPost,
		path:   "/cart/update",
		body:   cartUpdateRequest{UserID: userID, CartItems: items},
	}, nil)
}
