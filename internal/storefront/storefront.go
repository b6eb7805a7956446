// Package storefront wires the cart, catalog, checkout, orders and session
// components into one application state object that view code receives
// explicitly.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Backend is every capability the storefront needs from the REST backend.
type Backend interface {
	cart.Syncer
	catalog.Source
	checkout.Backend
	orders.Backend
	session.Backend
	AddAddress(ctx context.Context, addr domain.Address) error
}

type Option func(*options)

type options struct {
	log          *zap.Logger
	mirror       cache.CartCache
	publisher    events.Publisher
	taxRate      decimal.Decimal
	paymentDelay time.Duration
	sessionID    string
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func WithCartMirror(c cache.CartCache) Option {
	return func(o *options) { o.mirror = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithTaxRate(rate decimal.Decimal) Option {
	return func(o *options) { o.taxRate = rate }
}

func WithPaymentDelay(d time.Duration) Option {
	return func(o *options) { o.paymentDelay = d }
}

// WithSessionID keys the anonymous cart mirror; a random id is used otherwise.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

type Storefront struct {
	Cart         *cart.Store
	Catalog      *catalog.Service
	Checkout     *checkout.Workflow
	Orders       *orders.ViewModel
	SellerOrders *orders.ViewModel
	Session      *session.Manager

	backend   Backend
	publisher events.Publisher
	taxRate   decimal.Decimal
	log       *zap.Logger

	mu           sync.Mutex
	lastSyncErr  error
	polling      bool
	pollCtx      context.Context
	pollInterval time.Duration
	polls        []*orders.Subscription
	sellerPoll   *orders.Subscription
}

func New(b Backend, opts ...Option) *Storefront {
	o := options{
		log:          zap.NewNop(),
		publisher:    events.Noop{},
		taxRate:      pricing.DefaultTaxRate,
		paymentDelay: 1500 * time.Millisecond,
		sessionID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Storefront{
		backend:   b,
		publisher: o.publisher,
		taxRate:   o.taxRate,
		log:       o.log,
	}

	cartOpts := []cart.Option{
		cart.WithLogger(o.log.Named("cart")),
		cart.WithSyncErrorHandler(s.recordSyncError),
	}
	if o.mirror != nil {
		cartOpts = append(cartOpts, cart.WithMirror(o.mirror, o.sessionID))
	}
	s.Cart = cart.NewStore(b, cartOpts...)
	s.Catalog = catalog.NewService(b, o.log.Named("catalog"))
	s.Checkout = checkout.NewWorkflow(b, s.Cart, s.Catalog,
		checkout.WithLogger(o.log.Named("checkout")),
		checkout.WithPublisher(o.publisher),
		checkout.WithTaxRate(o.taxRate),
		checkout.WithPaymentDelay(o.paymentDelay))
	s.Orders = orders.NewViewModel(b, orders.ScopeCustomer,
		orders.WithLogger(o.log.Named("orders")),
		orders.WithPublisher(o.publisher))
	s.SellerOrders = orders.NewViewModel(b, orders.ScopeSeller,
		orders.WithLogger(o.log.Named("seller_orders")),
		orders.WithPublisher(o.publisher))
	s.Session = session.NewManager(b, o.log.Named("session"))
	s.Session.OnUserChange(s.bindUser)
	s.Session.OnSellerChange(s.bindSeller)
	return s
}

// Start restores the session, the cart and the catalog. Failures are logged;
// the storefront still serves an anonymous, possibly empty, view. An
// anonymous visitor gets the cart mirrored under the session id back.
func (s *Storefront) Start(ctx context.Context) {
	if _, _, err := s.Session.CheckAuth(ctx); err != nil {
		s.log.Warn("session check failed", zap.Error(err))
	}
	if _, ok := s.Session.User(); !ok {
		src := s.Cart.Load(ctx)
		s.log.Info("anonymous cart restored", zap.String("source", string(src)))
	}
	if _, err := s.Session.CheckSeller(ctx); err != nil {
		s.log.Warn("seller session check failed", zap.Error(err))
	}
	if _, err := s.Catalog.Load(ctx); err != nil {
		s.log.Warn("catalog load failed", zap.Error(err))
	}
}

// bindUser follows login and logout: the cart is synced under the new
// identity and the customer order list is reset.
func (s *Storefront) bindUser(ctx context.Context, u domain.User) {
	s.Cart.SetUser(u.ID)
	s.Orders.SetUser(u.ID)
	if u.ID == "" {
		s.Cart.ReplaceAll(nil)
		return
	}
	src := s.Cart.Load(ctx)
	s.log.Info("cart restored", zap.String("user_id", u.ID), zap.String("source", string(src)))
}

// CartView prices the current cart against the current catalog.
func (s *Storefront) CartView() pricing.Breakdown {
	return pricing.Compute(s.Catalog.Catalog(), s.Cart.Snapshot(), s.taxRate)
}

func (s *Storefront) TaxRate() decimal.Decimal {
	return s.taxRate
}

func (s *Storefront) Addresses(ctx context.Context) ([]domain.Address, error) {
	addrs, err := s.backend.FetchAddresses(ctx)
	if err != nil {
		s.Session.HandleAuthError(ctx, err)
		return nil, fmt.Errorf("fetch addresses: %w", err)
	}
	return addrs, nil
}

func (s *Storefront) AddAddress(ctx context.Context, addr domain.Address) error {
	if err := addr.Validate(); err != nil {
		return err
	}
	if err := s.backend.AddAddress(ctx, addr); err != nil {
		s.Session.HandleAuthError(ctx, err)
		return fmt.Errorf("add address: %w", err)
	}
	return nil
}

func (s *Storefront) recordSyncError(err error) {
	s.mu.Lock()
	s.lastSyncErr = err
	s.mu.Unlock()
	s.Session.HandleAuthError(context.Background(), err)
}

// SyncNotice returns and clears the last cart sync failure, for a
// non-blocking notification in the view.
func (s *Storefront) SyncNotice() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.lastSyncErr
	s.lastSyncErr = nil
	return err
}

// StartPolling keeps the customer order list fresh until Close or ctx ends.
// The seller list is polled while a seller session is active.
func (s *Storefront) StartPolling(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polling = true
	s.pollCtx = ctx
	s.pollInterval = interval
	s.polls = append(s.polls, s.Orders.Poll(ctx, interval))
	if s.Session.IsSeller() {
		s.startSellerPollLocked()
	}
}

func (s *Storefront) bindSeller(_ context.Context, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active {
		s.startSellerPollLocked()
		return
	}
	if s.sellerPoll != nil {
		s.sellerPoll.Stop()
		s.sellerPoll = nil
		s.log.Info("seller order polling stopped")
	}
}

func (s *Storefront) startSellerPollLocked() {
	if !s.polling || s.sellerPoll != nil {
		return
	}
	s.sellerPoll = s.SellerOrders.Poll(s.pollCtx, s.pollInterval)
	s.log.Info("seller order polling started", zap.Duration("interval", s.pollInterval))
}

// Close stops the pollers, flushes the pending cart push and closes the
// event publisher.
func (s *Storefront) Close(ctx context.Context) error {
	s.mu.Lock()
	polls := s.polls
	if s.sellerPoll != nil {
		polls = append(polls, s.sellerPoll)
	}
	s.polls = nil
	s.sellerPoll = nil
	s.polling = false
	s.mu.Unlock()
	for _, p := range polls {
		p.Stop()
	}

	var errs []error
	if err := s.Cart.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close cart: %w", err))
	}
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	return errors.Join(errs...)
}
