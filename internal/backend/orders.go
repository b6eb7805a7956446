package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// SubmitCODOrder creates a cash-on-delivery order.
func (c *Client) SubmitCODOrder(ctx context.Context, req CODOrderRequest) (PlacedOrder, error) {
	var resp orderResponse
	err := c.do(ctx, call{
		op:     "submit cod order",
		method: http.MethodPost,
		path:   "/order/cod",
		body:   req,
		header: idempotency(req.IdempotencyKey),
	}, &resp)
	if err != nil {
		return PlacedOrder{}, err
	}
	return placed(resp.Order), nil
}

// SubmitPayment runs the simulated card payment; on success the backend
// creates the order and returns it.
func (c *Client) SubmitPayment(ctx context.Context, req PaymentRequest) (PlacedOrder, error) {
	var resp orderResponse
	err := c.do(ctx, call{
		op:     "submit payment",
		method: http.MethodPost,
		path:   "/payment/fake-payment",
		body:   req,
		header: idempotency(req.IdempotencyKey),
	}, &resp)
	if err != nil {
		return PlacedOrder{}, err
	}
	return placed(resp.Order), nil
}

func (c *Client) UserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	var resp ordersResponse
	err := c.do(ctx, call{
		op:     "user orders",
		method: http.MethodGet,
		path:   "/order/user",
		query:  url.Values{"userId": []string{userID}},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return toOrders(resp.Orders), nil
}

func (c *Client) SellerOrders(ctx context.Context) ([]domain.Order, error) {
	var resp ordersResponse
	if err := c.do(ctx, call{op: "seller orders", method: http.MethodGet, path: "/order/seller"}, &resp); err != nil {
		return nil, err
	}
	return toOrders(resp.Orders), nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	return c.do(ctx, call{
		op:     "update order status",
		method: http.MethodPut,
		path:   "/order/status/" + url.PathEscape(orderID),
		body:   statusRequest{Status: status.String()},
	}, nil)
}

func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, call{
		op:     "delete order",
		method: http.MethodDelete,
		path:   "/order/delete/" + url.PathEscape(orderID),
	}, nil)
}

func toOrders(dtos []orderDTO) []domain.Order {
	out := make([]domain.Order, 0, len(dtos))
	for _, o := range dtos {
		out = append(out, o.toDomain())
	}
	return out
}

func placed(o orderDTO) PlacedOrder {
	return PlacedOrder{OrderID: o.ID, OrderNumber: o.OrderNumber, Order: o.toDomain()}
}

func idempotency(key string) http.Header {
	if key == "" {
		return nil
	}
	h := http.Header{}
	h.Set(idempotencyHeader, key)
	return h
}
