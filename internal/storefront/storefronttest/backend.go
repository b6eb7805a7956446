// Package storefronttest provides an in-memory backend for tests of code
// built on the storefront.
package storefronttest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Backend fakes the REST backend. Zero value is an empty shop with no
// logged-in user. Err* fields make the matching calls fail.
type Backend struct {
	mu sync.Mutex

	Products  []domain.Product
	Addresses []domain.Address
	Orders    []domain.Order
	Remote    domain.Cart
	User      domain.User
	Seller    bool
	Stats     domain.DashboardStats

	PushErr   error
	PullErr   error
	SubmitErr error
	UpdateErr error

	Pushes        []domain.Cart
	Submitted     int
	StatusSets    map[string]domain.OrderStatus
	sellerFetches int
}

func (b *Backend) authErr(op string) error {
	return &backend.APIError{Op: op, Status: 401, Err: backend.ErrAuthRequired, Message: "Not Authorized"}
}

func (b *Backend) PushCart(_ context.Context, _ string, c domain.Cart) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PushErr != nil {
		return b.PushErr
	}
	b.Pushes = append(b.Pushes, c.Clone())
	b.Remote = c.Clone()
	return nil
}

func (b *Backend) PullCart(context.Context, string) (domain.Cart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PullErr != nil {
		return nil, b.PullErr
	}
	return b.Remote.Clone(), nil
}

func (b *Backend) LastPush() domain.Cart {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Pushes) == 0 {
		return nil
	}
	return b.Pushes[len(b.Pushes)-1]
}

func (b *Backend) FetchProducts(context.Context) ([]domain.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.Products), nil
}

func (b *Backend) SetProductStock(_ context.Context, id string, inStock bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Seller {
		return b.authErr("set product stock")
	}
	for i := range b.Products {
		if b.Products[i].ID == id {
			b.Products[i].InStock = inStock
		}
	}
	return nil
}

func (b *Backend) UpdateProduct(_ context.Context, id string, u domain.ProductUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Seller {
		return b.authErr("update product")
	}
	for i := range b.Products {
		if b.Products[i].ID == id {
			b.Products[i] = u.Apply(b.Products[i])
			return nil
		}
	}
	return &backend.APIError{Op: "update product", Status: 200, Err: backend.ErrRejected, Message: "Product not found"}
}

func (b *Backend) DeleteProduct(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Seller {
		return b.authErr("delete product")
	}
	b.Products = slices.DeleteFunc(b.Products, func(p domain.Product) bool { return p.ID == id })
	return nil
}

func (b *Backend) FetchAddresses(context.Context) ([]domain.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.User.ID == "" {
		return nil, b.authErr("fetch addresses")
	}
	return slices.Clone(b.Addresses), nil
}

func (b *Backend) AddAddress(_ context.Context, a domain.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.User.ID == "" {
		return b.authErr("add address")
	}
	if a.ID == "" {
		a.ID = fmt.Sprintf("addr-%d", len(b.Addresses)+1)
	}
	b.Addresses = append(b.Addresses, a)
	return nil
}

func (b *Backend) SubmitCODOrder(_ context.Context, req backend.CODOrderRequest) (backend.PlacedOrder, error) {
	return b.place(req.UserID, domain.PaymentCOD, len(req.Items))
}

func (b *Backend) SubmitPayment(_ context.Context, req backend.PaymentRequest) (backend.PlacedOrder, error) {
	return b.place(req.UserID, domain.PaymentOnline, len(req.CartItems))
}

func (b *Backend) place(userID string, method domain.PaymentMethod, lines int) (backend.PlacedOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Submitted++
	if b.SubmitErr != nil {
		return backend.PlacedOrder{}, b.SubmitErr
	}
	id := fmt.Sprintf("order-%d", b.Submitted)
	o := domain.Order{
		ID:            id,
		OrderNumber:   fmt.Sprintf("ORD-%04d", b.Submitted),
		UserID:        userID,
		PaymentMethod: method,
		Status:        domain.OrderStatusPending,
		Items:         make([]domain.OrderItem, lines),
	}
	b.Orders = append(b.Orders, o)
	return backend.PlacedOrder{OrderID: id, OrderNumber: o.OrderNumber, Order: o}, nil
}

func (b *Backend) UserOrders(_ context.Context, userID string) ([]domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Order
	for _, o := range b.Orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (b *Backend) SellerOrders(context.Context) ([]domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sellerFetches++
	if !b.Seller {
		return nil, b.authErr("seller orders")
	}
	return slices.Clone(b.Orders), nil
}

// SellerFetches counts seller order list requests, successful or not.
func (b *Backend) SellerFetches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sellerFetches
}

func (b *Backend) UpdateOrderStatus(_ context.Context, id string, s domain.OrderStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.UpdateErr != nil {
		return b.UpdateErr
	}
	if b.StatusSets == nil {
		b.StatusSets = map[string]domain.OrderStatus{}
	}
	b.StatusSets[id] = s
	for i := range b.Orders {
		if b.Orders[i].ID == id {
			b.Orders[i].Status = s
		}
	}
	return nil
}

func (b *Backend) DeleteOrder(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Orders = slices.DeleteFunc(b.Orders, func(o domain.Order) bool { return o.ID == id })
	return nil
}

func (b *Backend) SellerDashboard(context.Context) (domain.DashboardStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Seller {
		return domain.DashboardStats{}, b.authErr("seller dashboard")
	}
	return b.Stats, nil
}

func (b *Backend) Login(_ context.Context, email, _ string) (domain.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.User.ID == "" {
		b.User = domain.User{ID: "user-1", Email: email}
	}
	return b.User, nil
}

func (b *Backend) Register(_ context.Context, name, email, _ string) (domain.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.User = domain.User{ID: "user-1", Name: name, Email: email}
	return b.User, nil
}

func (b *Backend) IsAuth(context.Context) (domain.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.User.ID == "" {
		return domain.User{}, b.authErr("is-auth")
	}
	return b.User, nil
}

func (b *Backend) Logout(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.User = domain.User{}
	return nil
}

func (b *Backend) SellerLogin(context.Context, string, string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Seller = true
	return nil
}

func (b *Backend) SellerIsAuth(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Seller {
		return b.authErr("seller is-auth")
	}
	return nil
}

func (b *Backend) SellerLogout(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Seller = false
	return nil
}
