package backend

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) FetchAddresses(ctx context.Context) ([]domain.Address, error) {
	var resp addressesResponse
	if err := c.do(ctx, call{op: "fetch addresses", method: http.MethodGet, path: "/address/get"}, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

func (c *Client) AddAddress(ctx context.Context, addr domain.Address) error {
	return c.do(ctx, call{
		op:     "add address",
		method: http.MethodPost,
		path:   "/address/add",
		body:   addAddressRequest{Address: addr},
	}, nil)
}
