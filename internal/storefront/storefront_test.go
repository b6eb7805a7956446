package storefront

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/storefront/storefronttest"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func shop() *storefronttest.Backend {
	offer := dec("10")
	return &storefronttest.Backend{
		Products: []domain.Product{
			{ID: "A", Name: "Apples", Price: dec("12"), OfferPrice: &offer, InStock: true},
			{ID: "B", Name: "Bread", Price: dec("5"), InStock: true},
		},
		Addresses: []domain.Address{
			{ID: "addr1", Street: "1 Main", City: "Town", State: "S", Country: "X", ZipCode: "123", Phone: "555"},
		},
	}
}

func newTestStorefront(t *testing.T, b *storefronttest.Backend, opts ...Option) *Storefront {
	opts = append([]Option{WithPaymentDelay(0)}, opts...)
	s := New(b, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}

func TestStart_AnonymousVisitor(t *testing.T) {
	s := newTestStorefront(t, shop())
	s.Start(context.Background())

	_, ok := s.Session.User()
	assert.False(t, ok)
	assert.Equal(t, 2, s.Catalog.Catalog().Len())
}

func TestCartView_PricesCurrentCart(t *testing.T) {
	s := newTestStorefront(t, shop())
	s.Start(context.Background())

	s.Cart.AddOne("A")
	s.Cart.AddOne("A")
	s.Cart.AddOne("B")

	view := s.CartView()
	assert.Equal(t, 3, view.Count)
	assert.True(t, view.Subtotal.Equal(dec("25")))
	assert.True(t, view.Tax.Equal(dec("0.5")))
	assert.True(t, view.Total.Equal(dec("25.5")))
}

func TestLogin_RestoresRemoteCart(t *testing.T) {
	b := shop()
	b.Remote = domain.Cart{"B": 4}
	s := newTestStorefront(t, b)
	s.Start(context.Background())
	s.Cart.AddOne("A")

	_, err := s.Session.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	assert.Equal(t, domain.Cart{"B": 4}, s.Cart.Snapshot())
	assert.Equal(t, "user-1", s.Cart.UserID())
}

func TestLogin_FallsBackToMirror(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mirror := cache.NewRedisCache(client, time.Hour)
	require.NoError(t, mirror.Set(context.Background(), "user-1", domain.Cart{"A": 2}))

	b := shop()
	b.PullErr = &backend.APIError{Op: "pull cart", Err: backend.ErrUnavailable}
	s := newTestStorefront(t, b, WithCartMirror(mirror))

	_, err := s.Session.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, domain.Cart{"A": 2}, s.Cart.Snapshot())
}

func TestStart_RestoresAnonymousCartFromMirror(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mirror := cache.NewRedisCache(client, time.Hour)
	require.NoError(t, mirror.Set(context.Background(), "kiosk-1", domain.Cart{"B": 3}))

	s := newTestStorefront(t, shop(), WithCartMirror(mirror), WithSessionID("kiosk-1"))
	s.Start(context.Background())

	assert.Equal(t, domain.Cart{"B": 3}, s.Cart.Snapshot())
	assert.Empty(t, s.Cart.UserID())
}

func TestLogout_ResetsCartAndOrders(t *testing.T) {
	s := newTestStorefront(t, shop())
	_, err := s.Session.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	s.Cart.AddOne("A")

	require.NoError(t, s.Session.Logout(context.Background()))

	assert.Empty(t, s.Cart.Snapshot())
	assert.Empty(t, s.Cart.UserID())
	assert.Zero(t, s.Orders.Len())
}

func TestCheckoutFlow_EndToEnd(t *testing.T) {
	b := shop()
	s := newTestStorefront(t, b)
	s.Start(context.Background())
	_, err := s.Session.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	s.Cart.AddOne("A")
	res, err := s.Checkout.PlaceOrder(context.Background(), checkout.Request{AddressID: "addr1"})
	require.NoError(t, err)
	assert.Equal(t, "order-1", res.OrderID)
	assert.Empty(t, s.Cart.Snapshot())

	require.NoError(t, s.Orders.Refresh(context.Background()))
	got, ok := s.Orders.Get("order-1")
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusPending, got.Status)

	require.Eventually(t, func() bool {
		last := b.LastPush()
		return last != nil && len(last) == 0
	}, time.Second, 5*time.Millisecond, "cleared cart is pushed")
}

func TestSyncFailure_IsReportedOnce(t *testing.T) {
	b := shop()
	b.PushErr = &backend.APIError{Op: "push cart", Err: backend.ErrUnavailable}
	s := newTestStorefront(t, b)
	_, err := s.Session.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	s.Cart.AddOne("A")
	var notice error
	require.Eventually(t, func() bool {
		notice = s.SyncNotice()
		return notice != nil
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, notice, backend.ErrUnavailable)
	assert.NoError(t, s.SyncNotice())
	assert.Equal(t, 1, s.Cart.Quantity("A"), "local state kept")
}

func TestSyncAuthFailure_ResetsUser(t *testing.T) {
	b := shop()
	s := newTestStorefront(t, b)
	_, err := s.Session.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	b.PushErr = &backend.APIError{Op: "push cart", Status: 401, Err: backend.ErrAuthRequired}
	s.Cart.AddOne("A")

	require.Eventually(t, func() bool {
		_, ok := s.Session.User()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestAddresses(t *testing.T) {
	s := newTestStorefront(t, shop())

	_, err := s.Addresses(context.Background())
	assert.ErrorIs(t, err, backend.ErrAuthRequired)

	_, err = s.Session.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	err = s.AddAddress(context.Background(), domain.Address{Street: "2 Side"})
	assert.ErrorIs(t, err, domain.ErrIncompleteAddress)

	require.NoError(t, s.AddAddress(context.Background(), domain.Address{
		Street: "2 Side", City: "Town", State: "S", Country: "X", ZipCode: "9", Phone: "1",
	}))
	addrs, err := s.Addresses(context.Background())
	require.NoError(t, err)
	assert.Len(t, addrs, 2)
}

func TestSellerFlow(t *testing.T) {
	b := shop()
	b.Orders = []domain.Order{{ID: "o1", Status: domain.OrderStatusPending, CreatedAt: time.Now()}}
	s := newTestStorefront(t, b)
	require.NoError(t, s.Session.SellerLogin(context.Background(), "admin@x.y", "pw"))

	require.NoError(t, s.SellerOrders.Refresh(context.Background()))
	_, err := s.SellerOrders.TransitionStatus(context.Background(), "o1", domain.OrderStatusDelivered)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = s.SellerOrders.TransitionStatus(context.Background(), "o1", domain.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, b.StatusSets["o1"])
}

func TestStartPolling_StopsOnClose(t *testing.T) {
	b := shop()
	s := New(b, WithPaymentDelay(0))
	_, err := s.Session.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	b.Orders = []domain.Order{{ID: "o1", UserID: "user-1", Status: domain.OrderStatusShipped}}

	s.StartPolling(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return s.Orders.Len() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))

	counts := s.Orders.Counts()
	assert.Equal(t, 1, counts[domain.OrderStatusShipped])
	assert.Equal(t, orders.ScopeCustomer, s.Orders.Scope())
}

func TestSellerLogin_StartsAndStopsSellerPolling(t *testing.T) {
	b := shop()
	b.Orders = []domain.Order{{ID: "o1", Status: domain.OrderStatusPending, CreatedAt: time.Now()}}
	s := newTestStorefront(t, b)
	s.Start(context.Background())
	s.StartPolling(context.Background(), 5*time.Millisecond)
	assert.Zero(t, b.SellerFetches())

	require.NoError(t, s.Session.SellerLogin(context.Background(), "admin@x.y", "pw"))
	require.Eventually(t, func() bool { return !s.SellerOrders.FetchedAt().IsZero() }, time.Second, time.Millisecond)
	assert.Equal(t, 1, s.SellerOrders.Len())
	require.Eventually(t, func() bool { return b.SellerFetches() >= 3 }, time.Second, time.Millisecond)

	require.NoError(t, s.Session.SellerLogout(context.Background()))
	time.Sleep(10 * time.Millisecond)
	after := b.SellerFetches()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, b.SellerFetches(), "seller polling stops on logout")
}

func TestClose_JoinsErrors(t *testing.T) {
	s := New(shop(), WithPublisher(failingPublisher{}))
	err := s.Close(context.Background())
	assert.ErrorContains(t, err, "close publisher")
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error { return nil }
func (failingPublisher) Close() error { return errors.New("broker gone") }
