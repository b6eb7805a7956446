// Package checkout runs the order placement workflow: validate the cart and
// delivery address, snapshot prices, submit exactly one order and clear the
// cart on success.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Backend is the order-creation side of the backend client.
type Backend interface {
	FetchAddresses(ctx context.Context) ([]domain.Address, error)
	SubmitCODOrder(ctx context.Context, req backend.CODOrderRequest) (backend.PlacedOrder, error)
	SubmitPayment(ctx context.Context, req backend.PaymentRequest) (backend.PlacedOrder, error)
}

type Cart interface {
	Snapshot() domain.Cart
	UserID() string
	Clear()
}

type Catalog interface {
	Catalog() domain.Catalog
}

type Request struct {
	AddressID  string
	Method     domain.PaymentMethod
	CardNumber string
}

type Result struct {
	OrderID     string
	OrderNumber string
	Method      domain.PaymentMethod
	Snapshot    Snapshot
}

type Option func(*Workflow)

func WithLogger(l *zap.Logger) Option {
	return func(w *Workflow) { w.log = l }
}

func WithPublisher(p events.Publisher) Option {
	return func(w *Workflow) { w.publisher = p }
}

func WithTaxRate(rate decimal.Decimal) Option {
	return func(w *Workflow) { w.taxRate = rate }
}

// WithPaymentDelay sets how long the simulated card processing takes.
func WithPaymentDelay(d time.Duration) Option {
	return func(w *Workflow) { w.paymentDelay = d }
}

type Workflow struct {
	backend Backend
	cart    Cart
	catalog Catalog

	publisher    events.Publisher
	taxRate      decimal.Decimal
	paymentDelay time.Duration
	log          *zap.Logger

	mu      sync.Mutex
	state   State
	lastErr error
	last    *Result
}

func NewWorkflow(b Backend, cart Cart, catalog Catalog, opts ...Option) *Workflow {
	w := &Workflow{
		backend:      b,
		cart:         cart,
		catalog:      catalog,
		publisher:    events.Noop{},
		taxRate:      pricing.DefaultTaxRate,
		paymentDelay: 1500 * time.Millisecond,
		log:          zap.NewNop(),
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PlaceOrder runs one checkout attempt. While an attempt is in flight every
// other call returns ErrCheckoutInProgress without touching the backend.
// Success empties the whole cart, including items added while the order was
// being submitted; only the snapshot in the Result was ordered.
func (w *Workflow) PlaceOrder(ctx context.Context, req Request) (Result, error) {
	if err := w.begin(); err != nil {
		return Result{}, err
	}

	res, err := w.run(ctx, req)
	if err != nil {
		w.finish(StateFailed, nil, err)
		w.log.Warn("checkout failed",
			zap.String("user_id", w.cart.UserID()),
			zap.String("payment_method", string(req.Method)),
			zap.Error(err))
		return Result{}, err
	}

	// the cart is cleared while the state is still Submitting
	w.cart.Clear()
	w.finish(StateSucceeded, &res, nil)

	w.log.Info("order placed",
		zap.String("order_id", res.OrderID),
		zap.String("payment_method", string(res.Method)),
		zap.String("total", res.Snapshot.Total.StringFixed(2)))
	events.Emit(ctx, w.publisher, w.log, events.New(events.TypeOrderPlaced, res.OrderID, events.OrderPlaced{
		OrderID:       res.OrderID,
		OrderNumber:   res.OrderNumber,
		UserID:        w.cart.UserID(),
		PaymentMethod: string(res.Method),
		Amount:        res.Snapshot.Total,
		Items:         res.Snapshot.Count(),
	}))
	return res, nil
}

func (w *Workflow) run(ctx context.Context, req Request) (Result, error) {
	userID := w.cart.UserID()
	if userID == "" {
		return Result{}, ErrAuthRequired
	}

	items := w.cart.Snapshot()
	if items.Count() == 0 {
		return Result{}, ErrEmptyCart
	}
	if req.AddressID == "" {
		return Result{}, ErrNoAddressSelected
	}

	method := req.Method
	if method == "" {
		method = domain.PaymentCOD
	}
	var card string
	if method == domain.PaymentOnline {
		n, err := NormalizeCardNumber(req.CardNumber)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		card = n
	}

	addr, err := w.resolveAddress(ctx, req.AddressID)
	if err != nil {
		return Result{}, err
	}

	snap, err := buildSnapshot(w.catalog.Catalog(), items, w.taxRate)
	if err != nil {
		return Result{}, err
	}

	w.setState(StateSubmitting)
	key := uuid.NewString()
	var placed backend.PlacedOrder
	if method == domain.PaymentOnline {
		if err := simulateProcessing(ctx, w.paymentDelay); err != nil {
			return Result{}, classify(err, true)
		}
		placed, err = w.backend.SubmitPayment(ctx, backend.PaymentRequest{
			CardNumber:      card,
			UserID:          userID,
			CartItems:       snap.orderLines(),
			Amount:          snap.Total,
			ShippingAddress: backend.ShippingAddressFrom(addr),
			IdempotencyKey:  key,
		})
	} else {
		placed, err = w.backend.SubmitCODOrder(ctx, backend.CODOrderRequest{
			UserID:         userID,
			Items:          snap.orderLines(),
			Address:        backend.ShippingAddressFrom(addr),
			IdempotencyKey: key,
		})
	}
	if err != nil {
		return Result{}, classify(err, method == domain.PaymentOnline)
	}

	return Result{
		OrderID:     placed.OrderID,
		OrderNumber: placed.OrderNumber,
		Method:      method,
		Snapshot:    snap,
	}, nil
}

func (w *Workflow) resolveAddress(ctx context.Context, id string) (domain.Address, error) {
	addrs, err := w.backend.FetchAddresses(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrAuthRequired) {
			return domain.Address{}, fmt.Errorf("%w: %w", ErrAuthRequired, err)
		}
		return domain.Address{}, fmt.Errorf("%w: fetch addresses: %w", ErrNetwork, err)
	}
	for _, a := range addrs {
		if a.ID != id {
			continue
		}
		if err := a.Validate(); err != nil {
			return domain.Address{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return a, nil
	}
	return domain.Address{}, fmt.Errorf("%w: address %s not found", ErrNoAddressSelected, id)
}

func (w *Workflow) begin() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Busy() {
		return ErrCheckoutInProgress
	}
	w.state = StateValidating
	w.lastErr = nil
	w.last = nil
	return nil
}

func (w *Workflow) setState(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if CanTransitionTo(w.state, s) {
		w.state = s
	}
}

func (w *Workflow) finish(s State, res *Result, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
	w.last = res
	w.lastErr = err
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// LastResult returns the confirmation of the last successful attempt.
func (w *Workflow) LastResult() (Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return Result{}, false
	}
	return *w.last, true
}

// Reset returns a finished workflow to Idle. It is a no-op while an attempt is
// in flight.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Busy() {
		return
	}
	w.state = StateIdle
	w.lastErr = nil
	w.last = nil
}
