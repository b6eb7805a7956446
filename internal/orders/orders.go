// Package orders is the order status view model shared by the customer
// "my orders" page and the seller order list.
package orders

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrSellerOnly    = errors.New("operation requires a seller session")
	ErrOrderNotFound = errors.New("order not found")
	ErrUnknownFilter = errors.New("unknown order filter")
)

type Scope int

const (
	ScopeCustomer Scope = iota
	ScopeSeller
)

func (s Scope) String() string {
	if s == ScopeSeller {
		return "seller"
	}
	return "customer"
}

type Backend interface {
	UserOrders(ctx context.Context, userID string) ([]domain.Order, error)
	SellerOrders(ctx context.Context) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	DeleteOrder(ctx context.Context, orderID string) error
	SellerDashboard(ctx context.Context) (domain.DashboardStats, error)
}

type Option func(*ViewModel)

func WithLogger(l *zap.Logger) Option {
	return func(v *ViewModel) { v.log = l }
}

func WithPublisher(p events.Publisher) Option {
	return func(v *ViewModel) { v.publisher = p }
}

type ViewModel struct {
	backend   Backend
	scope     Scope
	publisher events.Publisher
	log       *zap.Logger
	sfg       singleflight.Group

	mu        sync.RWMutex
	userID    string
	orders    []domain.Order // newest first, replaced wholesale on every change
	fetchedAt time.Time
}

func NewViewModel(b Backend, scope Scope, opts ...Option) *ViewModel {
	v := &ViewModel{
		backend:   b,
		scope:     scope,
		publisher: events.Noop{},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *ViewModel) Scope() Scope {
	return v.scope
}

// SetUser changes the customer whose orders are shown and drops the current set.
func (v *ViewModel) SetUser(userID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.userID == userID {
		return
	}
	v.userID = userID
	v.orders = nil
	v.fetchedAt = time.Time{}
}

// refreshTimeout bounds a shared refresh once it no longer follows any
// single caller's context.
const refreshTimeout = 30 * time.Second

// Refresh re-pulls the order set. Concurrent calls share one request; a
// caller giving up does not cancel the request for the others.
func (v *ViewModel) Refresh(ctx context.Context) error {
	ch := v.sfg.DoChan("refresh", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return nil, v.refresh(fetchCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *ViewModel) refresh(ctx context.Context) error {
	v.mu.RLock()
	userID := v.userID
	v.mu.RUnlock()

	var (
		fetched []domain.Order
		err     error
	)
	switch {
	case v.scope == ScopeSeller:
		fetched, err = v.backend.SellerOrders(ctx)
	case userID == "":
		// anonymous visitors have no orders
	default:
		fetched, err = v.backend.UserOrders(ctx, userID)
	}
	if err != nil {
		return fmt.Errorf("refresh %s orders: %w", v.scope, err)
	}

	sorted := slices.Clone(fetched)
	slices.SortStableFunc(sorted, func(a, b domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	v.mu.Lock()
	if v.scope == ScopeSeller || v.userID == userID {
		v.orders = sorted
		v.fetchedAt = time.Now()
	}
	v.mu.Unlock()
	return nil
}

func (v *ViewModel) FetchedAt() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fetchedAt
}

// Filter selects orders by status; the zero value selects every order.
type Filter struct {
	status domain.OrderStatus
}

var All = Filter{}

// ParseFilter accepts "all" (or empty) and any status name, case-insensitively.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return All, nil
	}
	st, err := domain.ParseOrderStatus(s)
	if err != nil {
		return Filter{}, fmt.Errorf("%w: %q", ErrUnknownFilter, s)
	}
	return Filter{status: st}, nil
}

func ByStatus(s domain.OrderStatus) Filter {
	return Filter{status: s}
}

func (f Filter) Match(o domain.Order) bool {
	return f.status == "" || o.Status == f.status
}

func (f Filter) String() string {
	if f.status == "" {
		return "all"
	}
	return f.status.String()
}

// List yields the latest fetched orders matching f, newest first. The
// sequence is lazy and may be ranged over again; every pass sees the set
// current at the start of that pass.
func (v *ViewModel) List(f Filter) iter.Seq[domain.Order] {
	return func(yield func(domain.Order) bool) {
		v.mu.RLock()
		set := v.orders
		v.mu.RUnlock()

		for _, o := range set {
			if !f.Match(o) {
				continue
			}
			if !yield(o) {
				return
			}
		}
	}
}

// Counts returns the number of orders per status, for filter tabs.
func (v *ViewModel) Counts() map[domain.OrderStatus]int {
	counts := make(map[domain.OrderStatus]int, len(domain.OrderStatuses))
	for o := range v.List(All) {
		counts[o.Status]++
	}
	return counts
}

func (v *ViewModel) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.orders)
}

func (v *ViewModel) Get(orderID string) (domain.Order, bool) {
	for o := range v.List(All) {
		if o.ID == orderID {
			return o, true
		}
	}
	return domain.Order{}, false
}
