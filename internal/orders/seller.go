package orders

import (
	"context"
	"fmt"
	"slices"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"go.uber.org/zap"
)

// TransitionStatus moves an order along the status DAG. Transitions outside
// the table fail with domain.ErrInvalidTransition before any backend call.
func (v *ViewModel) TransitionStatus(ctx context.Context, orderID string, to domain.OrderStatus) (domain.Order, error) {
	if v.scope != ScopeSeller {
		return domain.Order{}, ErrSellerOnly
	}
	current, ok := v.Get(orderID)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	from := current.Status
	if !domain.CanTransition(from, to) {
		return domain.Order{}, fmt.Errorf("order %s %s -> %s: %w", orderID, from, to, domain.ErrInvalidTransition)
	}

	if err := v.backend.UpdateOrderStatus(ctx, orderID, to); err != nil {
		return domain.Order{}, fmt.Errorf("update status of order %s: %w", orderID, err)
	}

	updated := v.replace(orderID, func(o *domain.Order) { o.Status = to })
	v.log.Info("order status changed",
		zap.String("order_id", orderID),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	events.Emit(ctx, v.publisher, v.log, events.New(events.TypeOrderStatusChanged, orderID, events.OrderStatusChanged{
		OrderID: orderID,
		From:    from.String(),
		To:      to.String(),
	}))
	return updated, nil
}

func (v *ViewModel) Delete(ctx context.Context, orderID string) error {
	if v.scope != ScopeSeller {
		return ErrSellerOnly
	}
	if _, ok := v.Get(orderID); !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err := v.backend.DeleteOrder(ctx, orderID); err != nil {
		return fmt.Errorf("delete order %s: %w", orderID, err)
	}

	v.mu.Lock()
	v.orders = slices.DeleteFunc(slices.Clone(v.orders), func(o domain.Order) bool { return o.ID == orderID })
	v.mu.Unlock()

	events.Emit(ctx, v.publisher, v.log, events.New(events.TypeOrderDeleted, orderID, events.OrderDeleted{OrderID: orderID}))
	return nil
}

func (v *ViewModel) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	if v.scope != ScopeSeller {
		return domain.DashboardStats{}, ErrSellerOnly
	}
	stats, err := v.backend.SellerDashboard(ctx)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("seller dashboard: %w", err)
	}
	return stats, nil
}

// replace applies fn to a copy of the order set so running iterations keep
// their own view.
func (v *ViewModel) replace(orderID string, fn func(*domain.Order)) domain.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := slices.Clone(v.orders)
	var out domain.Order
	for i := range next {
		if next[i].ID == orderID {
			fn(&next[i])
			out = next[i]
		}
	}
	v.orders = next
	return out
}
