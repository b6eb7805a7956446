package catalog

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockSource struct {
	mu       sync.Mutex
	products []domain.Product
	fetchErr error
	stockErr error
	updates  int
	fetches  atomic.Int32
	gate     chan struct{}
}

func (m *mockSource) FetchProducts(context.Context) ([]domain.Product, error) {
	m.fetches.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return append([]domain.Product(nil), m.products...), nil
}

func (m *mockSource) SetProductStock(_ context.Context, id string, inStock bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stockErr != nil {
		return m.stockErr
	}
	for i := range m.products {
		if m.products[i].ID == id {
			m.products[i].InStock = inStock
		}
	}
	return nil
}

func (m *mockSource) UpdateProduct(_ context.Context, id string, u domain.ProductUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	for i := range m.products {
		if m.products[i].ID == id {
			m.products[i] = u.Apply(m.products[i])
		}
	}
	return nil
}

func (m *mockSource) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = slices.DeleteFunc(m.products, func(p domain.Product) bool { return p.ID == id })
	return nil
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func offer(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

func sampleProducts() []domain.Product {
	return []domain.Product{
		{ID: "p1", Name: "Organic Apple", Category: "Fruits", Price: price("3"), InStock: true},
		{ID: "p2", Name: "Banana", Category: "fruits", Price: price("2"), OfferPrice: offer("1.5"), InStock: false},
		{ID: "p3", Name: "Milk", Category: "Dairy", Price: price("1.2"), InStock: true},
		{ID: "p4", Name: "Green Apple", Category: "Fruits", Price: price("2.5"), InStock: true},
	}
}

func TestLoad_DropsInvalidProducts(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	src := &mockSource{products: append(sampleProducts(),
		domain.Product{ID: "bad", Price: price("1"), OfferPrice: offer("2")})}
	s := NewService(src, zap.New(core))

	c, err := s.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, c.Len())
	_, ok := c.Lookup("bad")
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("dropping invalid product").Len())
	assert.True(t, s.Loaded())
}

func TestLoad_ErrorKeepsPreviousCatalog(t *testing.T) {
	src := &mockSource{products: sampleProducts()}
	s := NewService(src, nil)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	src.mu.Lock()
	src.fetchErr = errors.New("offline")
	src.mu.Unlock()

	_, err = s.Load(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 4, s.Catalog().Len())
}

func TestLoad_ConcurrentCallsShareOneFetch(t *testing.T) {
	src := &mockSource{products: sampleProducts(), gate: make(chan struct{})}
	s := NewService(src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Load(context.Background())
			assert.NoError(t, err)
		}()
	}
	// let every goroutine join the in-flight call before releasing it
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.fetches.Load())
}

func TestSetStock_ReloadsCatalog(t *testing.T) {
	src := &mockSource{products: sampleProducts()}
	s := NewService(src, nil)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.SetStock(context.Background(), "p2", true))
	p, ok := s.Catalog().Lookup("p2")
	require.True(t, ok)
	assert.True(t, p.InStock)

	err = s.SetStock(context.Background(), "missing", true)
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestSetStock_BackendError(t *testing.T) {
	src := &mockSource{products: sampleProducts(), stockErr: errors.New("rejected")}
	s := NewService(src, nil)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	err = s.SetStock(context.Background(), "p1", false)
	assert.ErrorContains(t, err, "rejected")
}

func TestFilters(t *testing.T) {
	s := NewService(&mockSource{products: sampleProducts()}, nil)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	ids := func(ps []domain.Product) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Equal(t, []string{"p1", "p2", "p4"}, ids(s.ByCategory("FRUITS")))
	assert.Equal(t, []string{"p1", "p4"}, ids(s.Search(" apple")))
	assert.Equal(t, []string{"p1", "p3"}, ids(s.BestSellers(2)))
	assert.Equal(t, []string{"p1", "p3", "p4"}, ids(s.BestSellers(10)))
}

func TestUpdate_ValidatesAndReloads(t *testing.T) {
	src := &mockSource{products: sampleProducts()}
	s := NewService(src, nil)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	p, err := s.Update(context.Background(), "p3", domain.ProductUpdate{
		Name:       "Oat Milk",
		Category:   "Dairy",
		Price:      price("2"),
		OfferPrice: offer("1.8"),
		InStock:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Oat Milk", p.Name)
	assert.True(t, p.UnitPrice().Equal(price("1.8")))

	got, ok := s.Catalog().Lookup("p3")
	require.True(t, ok)
	assert.Equal(t, "Oat Milk", got.Name)
}

func TestUpdate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		update domain.ProductUpdate
		want   error
	}{
		{"offer above price", "p1", domain.ProductUpdate{Name: "A", Category: "Fruits", Price: price("2"), OfferPrice: offer("3")}, domain.ErrOfferAbovePrice},
		{"zero price", "p1", domain.ProductUpdate{Name: "A", Category: "Fruits", Price: price("0")}, domain.ErrInvalidProduct},
		{"missing name", "p1", domain.ProductUpdate{Category: "Fruits", Price: price("2")}, domain.ErrInvalidProduct},
		{"unknown product", "missing", domain.ProductUpdate{Name: "A", Category: "Fruits", Price: price("2")}, ErrUnknownProduct},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockSource{products: sampleProducts()}
			s := NewService(src, nil)
			_, err := s.Load(context.Background())
			require.NoError(t, err)

			_, err = s.Update(context.Background(), tt.id, tt.update)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, src.updates, "rejected before the backend call")
		})
	}
}

func TestDelete_RemovesFromCatalog(t *testing.T) {
	src := &mockSource{products: sampleProducts()}
	s := NewService(src, nil)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), "p2"))
	_, ok := s.Catalog().Lookup("p2")
	assert.False(t, ok)
	assert.Equal(t, 3, s.Catalog().Len())

	assert.ErrorIs(t, s.Delete(context.Background(), "p2"), ErrUnknownProduct)
}
