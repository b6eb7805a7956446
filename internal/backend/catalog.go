package backend

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// FetchProducts lists the whole catalog.
func (c *Client) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	var resp productsResponse
	err := c.do(ctx, call{op: "fetch products", method: http.MethodGet, path: "/product/list"}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// SetProductStock toggles the in-stock flag of a product. Seller session required.
func (c *Client) SetProductStock(ctx context.Context, productID string, inStock bool) error {
	return c.do(ctx, call{
		op:     "set product stock",
		method: http.MethodPost,
		path:   "/product/stock",
		body:   stockRequest{ID: productID, InStock: inStock},
	}, nil)
}

// UpdateProduct replaces the editable fields of a product. Seller session required.
func (c *Client) UpdateProduct(ctx context.Context, productID string, u domain.ProductUpdate) error {
	return c.do(ctx, call{
		op:     "update product",
		method: http.MethodPut,
		path:   "/product/update",
		body:   productUpdateRequest{ID: productID, ProductData: u},
	}, nil)
}

// DeleteProduct removes a product. Seller session required.
func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	return c.do(ctx, call{
		op:     "delete product",
		method: http.MethodDelete,
		path:   "/product/delete",
		body:   productIDRequest{ID: productID},
	}, nil)
}
