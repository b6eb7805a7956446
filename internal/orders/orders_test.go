package orders

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockBackend struct {
	mu         sync.Mutex
	orders     []domain.Order
	listErr    error
	updateErr  error
	userCalls  atomic.Int32
	sellCalls  atomic.Int32
	updates    []domain.OrderStatus
	deleted    []string
	lastUserID string
	gate       chan struct{}
}

func (m *mockBackend) UserOrders(_ context.Context, userID string) ([]domain.Order, error) {
	m.userCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUserID = userID
	return slices.Clone(m.orders), m.listErr
}

func (m *mockBackend) SellerOrders(context.Context) ([]domain.Order, error) {
	m.sellCalls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.orders), m.listErr
}

func (m *mockBackend) UpdateOrderStatus(_ context.Context, _ string, s domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, s)
	return nil
}

func (m *mockBackend) DeleteOrder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockBackend) SellerDashboard(context.Context) (domain.DashboardStats, error) {
	return domain.DashboardStats{TotalOrders: 3, TotalRevenue: decimal.NewFromInt(42)}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func sampleOrders() []domain.Order {
	return []domain.Order{
		{ID: "old", Status: domain.OrderStatusDelivered, CreatedAt: base},
		{ID: "new", Status: domain.OrderStatusPending, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "mid", Status: domain.OrderStatusPending, CreatedAt: base.Add(time.Hour)},
	}
}

func ids(seq func(func(domain.Order) bool)) []string {
	var out []string
	for o := range seq {
		out = append(out, o.ID)
	}
	return out
}

func TestRefresh_NewestFirst(t *testing.T) {
	b := &mockBackend{orders: sampleOrders()}
	v := NewViewModel(b, ScopeCustomer)
	v.SetUser("u1")

	require.NoError(t, v.Refresh(context.Background()))

	assert.Equal(t, []string{"new", "mid", "old"}, ids(v.List(All)))
	assert.Equal(t, "u1", b.lastUserID)
	assert.False(t, v.FetchedAt().IsZero())
}

func TestRefresh_AnonymousCustomerHasNoOrders(t *testing.T) {
	b := &mockBackend{orders: sampleOrders()}
	v := NewViewModel(b, ScopeCustomer)

	require.NoError(t, v.Refresh(context.Background()))
	assert.Zero(t, v.Len())
	assert.Zero(t, b.userCalls.Load())
}

func TestRefresh_IsIdempotent(t *testing.T) {
	b := &mockBackend{orders: sampleOrders()}
	v := NewViewModel(b, ScopeSeller)

	require.NoError(t, v.Refresh(context.Background()))
	first := ids(v.List(All))
	require.NoError(t, v.Refresh(context.Background()))

	assert.Equal(t, first, ids(v.List(All)))
}

func TestRefresh_ErrorKeepsLastSet(t *testing.T) {
	b := &mockBackend{orders: sampleOrders()}
	v := NewViewModel(b, ScopeSeller)
	require.NoError(t, v.Refresh(context.Background()))

	b.mu.Lock()
	b.listErr = errors.New("offline")
	b.mu.Unlock()

	assert.Error(t, v.Refresh(context.Background()))
	assert.Equal(t, 3, v.Len())
}

func TestRefresh_ConcurrentCallsShareOneRequest(t *testing.T) {
	b := &mockBackend{orders: sampleOrders(), gate: make(chan struct{})}
	v := NewViewModel(b, ScopeSeller)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, v.Refresh(context.Background()))
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(b.gate)
	wg.Wait()

	assert.Equal(t, int32(1), b.sellCalls.Load())
}

func TestRefresh_CancelledCallerDoesNotFailJoinedCaller(t *testing.T) {
	b := &mockBackend{orders: sampleOrders(), gate: make(chan struct{})}
	v := NewViewModel(b, ScopeSeller)

	pollCtx, stopPoll := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- v.Refresh(pollCtx) }()
	require.Eventually(t, func() bool { return b.sellCalls.Load() == 1 }, time.Second, time.Millisecond)

	joined := make(chan error, 1)
	go func() { joined <- v.Refresh(context.Background()) }()
	time.Sleep(10 * time.Millisecond)

	stopPoll()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(b.gate)
	require.NoError(t, <-joined)
	assert.Equal(t, int32(1), b.sellCalls.Load())
	assert.False(t, v.FetchedAt().IsZero())
	assert.Equal(t, len(sampleOrders()), v.Len())
}

func TestList_FilterAndRestart(t *testing.T) {
	v := NewViewModel(&mockBackend{orders: sampleOrders()}, ScopeSeller)
	require.NoError(t, v.Refresh(context.Background()))

	f, err := ParseFilter("PENDING")
	require.NoError(t, err)
	seq := v.List(f)

	assert.Equal(t, []string{"new", "mid"}, ids(seq))
	assert.Equal(t, []string{"new", "mid"}, ids(seq), "sequence is restartable")

	for o := range v.List(All) {
		assert.Equal(t, "new", o.ID)
		break
	}

	_, err = ParseFilter("lost")
	assert.ErrorIs(t, err, ErrUnknownFilter)
	f, err = ParseFilter("all")
	require.NoError(t, err)
	assert.Equal(t, "all", f.String())
}

func TestCounts(t *testing.T) {
	v := NewViewModel(&mockBackend{orders: sampleOrders()}, ScopeSeller)
	require.NoError(t, v.Refresh(context.Background()))

	c := v.Counts()
	assert.Equal(t, 2, c[domain.OrderStatusPending])
	assert.Equal(t, 1, c[domain.OrderStatusDelivered])
	assert.Zero(t, c[domain.OrderStatusShipped])
}

func TestTransitionStatus(t *testing.T) {
	b := &mockBackend{orders: sampleOrders()}
	pub := &recordingPublisher{}
	v := NewViewModel(b, ScopeSeller, WithPublisher(pub))
	require.NoError(t, v.Refresh(context.Background()))

	updated, err := v.TransitionStatus(context.Background(), "new", domain.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, updated.Status)

	got, _ := v.Get("new")
	assert.Equal(t, domain.OrderStatusProcessing, got.Status)
	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusProcessing}, b.updates)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeOrderStatusChanged, pub.events[0].Type)
}

func TestTransitionStatus_PendingToDeliveredRejected(t *testing.T) {
	b := &mockBackend{orders: sampleOrders()}
	v := NewViewModel(b, ScopeSeller)
	require.NoError(t, v.Refresh(context.Background()))

	_, err := v.TransitionStatus(context.Background(), "mid", domain.OrderStatusDelivered)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Empty(t, b.updates)
	got, _ := v.Get("mid")
	assert.Equal(t, domain.OrderStatusPending, got.Status)
}

func TestTransitionStatus_Guards(t *testing.T) {
	b := &mockBackend{orders: sampleOrders()}

	customer := NewViewModel(b, ScopeCustomer)
	customer.SetUser("u1")
	require.NoError(t, customer.Refresh(context.Background()))
	_, err := customer.TransitionStatus(context.Background(), "new", domain.OrderStatusProcessing)
	assert.ErrorIs(t, err, ErrSellerOnly)
	assert.ErrorIs(t, customer.Delete(context.Background(), "new"), ErrSellerOnly)
	_, err = customer.Dashboard(context.Background())
	assert.ErrorIs(t, err, ErrSellerOnly)

	seller := NewViewModel(b, ScopeSeller)
	require.NoError(t, seller.Refresh(context.Background()))
	_, err = seller.TransitionStatus(context.Background(), "nope", domain.OrderStatusProcessing)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	b.updateErr = errors.New("rejected")
	_, err = seller.TransitionStatus(context.Background(), "new", domain.OrderStatusCancelled)
	assert.ErrorContains(t, err, "rejected")
	got, _ := seller.Get("new")
	assert.Equal(t, domain.OrderStatusPending, got.Status)
}

func TestDelete(t *testing.T) {
	b := &mockBackend{orders: sampleOrders()}
	v := NewViewModel(b, ScopeSeller)
	require.NoError(t, v.Refresh(context.Background()))

	require.NoError(t, v.Delete(context.Background(), "mid"))
	assert.Equal(t, []string{"new", "old"}, ids(v.List(All)))
	assert.Equal(t, []string{"mid"}, b.deleted)
	assert.ErrorIs(t, v.Delete(context.Background(), "mid"), ErrOrderNotFound)
}

func TestDashboard(t *testing.T) {
	v := NewViewModel(&mockBackend{}, ScopeSeller)
	stats, err := v.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalOrders)
}

func TestPoll_RefreshesUntilStopped(t *testing.T) {
	b := &mockBackend{orders: sampleOrders()}
	v := NewViewModel(b, ScopeSeller)

	sub := v.Poll(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return b.sellCalls.Load() >= 3 }, time.Second, time.Millisecond)
	sub.Stop()
	sub.Stop()

	// a fetch already handed off before Stop may still land
	time.Sleep(10 * time.Millisecond)
	after := b.sellCalls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, b.sellCalls.Load(), "no refresh after Stop")

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done must be closed after Stop")
	}
}

func TestPoll_StopsOnContextCancel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	b := &mockBackend{listErr: errors.New("offline")}
	v := NewViewModel(b, ScopeSeller, WithLogger(zap.New(core)))

	ctx, cancel := context.WithCancel(context.Background())
	sub := v.Poll(ctx, time.Hour)
	require.Eventually(t, func() bool { return logs.FilterMessage("order poll failed").Len() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}
