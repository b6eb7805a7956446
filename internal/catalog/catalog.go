// Package catalog keeps the latest product catalog fetched from the backend.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Source interface {
	FetchProducts(ctx context.Context) ([]domain.Product, error)
	SetProductStock(ctx context.Context, productID string, inStock bool) error
	UpdateProduct(ctx context.Context, productID string, u domain.ProductUpdate) error
	DeleteProduct(ctx context.Context, productID string) error
}

type Service struct {
	source Source
	log    *zap.Logger
	sfg    singleflight.Group // concurrent loads share one request

	mu      sync.RWMutex
	current domain.Catalog
	loaded  bool
}

func NewService(source Source, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{source: source, log: log, current: domain.NewCatalog(nil)}
}

// Load fetches the product list and installs it as the current catalog.
// Products failing validation are dropped and logged.
func (s *Service) Load(ctx context.Context) (domain.Catalog, error) {
	v, err, shared := s.sfg.Do("products", func() (interface{}, error) {
		products, err := s.source.FetchProducts(ctx)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}

		valid := make([]domain.Product, 0, len(products))
		for _, p := range products {
			if err := p.Validate(); err != nil {
				s.log.Warn("dropping invalid product", zap.String("product_id", p.ID), zap.Error(err))
				continue
			}
			valid = append(valid, p)
		}

		c := domain.NewCatalog(valid)
		s.mu.Lock()
		s.current = c
		s.loaded = true
		s.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	if shared {
		s.log.Debug("catalog load shared")
	}
	return v.(domain.Catalog), nil
}

// Catalog returns the last loaded catalog; empty before the first Load.
func (s *Service) Catalog() domain.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// SetStock flips a product's availability and reloads the catalog.
func (s *Service) SetStock(ctx context.Context, productID string, inStock bool) error {
	if err := s.known(productID); err != nil {
		return err
	}
	if err := s.source.SetProductStock(ctx, productID, inStock); err != nil {
		return fmt.Errorf("set stock of %s: %w", productID, err)
	}
	s.reload(ctx, "stock change")
	return nil
}

// Update edits a product and reloads the catalog. The update is validated
// before the backend sees it.
func (s *Service) Update(ctx context.Context, productID string, u domain.ProductUpdate) (domain.Product, error) {
	if err := s.known(productID); err != nil {
		return domain.Product{}, err
	}
	if err := u.Validate(); err != nil {
		return domain.Product{}, fmt.Errorf("update %s: %w", productID, err)
	}
	if err := s.source.UpdateProduct(ctx, productID, u); err != nil {
		return domain.Product{}, fmt.Errorf("update %s: %w", productID, err)
	}
	s.reload(ctx, "product update")

	if p, ok := s.Catalog().Lookup(productID); ok {
		return p, nil
	}
	return u.Apply(domain.Product{ID: productID}), nil
}

// Delete removes a product and reloads the catalog.
func (s *Service) Delete(ctx context.Context, productID string) error {
	if err := s.known(productID); err != nil {
		return err
	}
	if err := s.source.DeleteProduct(ctx, productID); err != nil {
		return fmt.Errorf("delete %s: %w", productID, err)
	}
	s.log.Info("product deleted", zap.String("product_id", productID))
	s.reload(ctx, "product delete")
	return nil
}

func (s *Service) known(productID string) error {
	if _, ok := s.Catalog().Lookup(productID); !ok && s.Loaded() {
		return fmt.Errorf("product %s: %w", productID, ErrUnknownProduct)
	}
	return nil
}

// reload refreshes the catalog after a seller change. The change is applied
// on the backend; a stale view is corrected on the next load.
func (s *Service) reload(ctx context.Context, reason string) {
	if _, err := s.Load(ctx); err != nil {
		s.log.Warn("catalog reload failed", zap.String("after", reason), zap.Error(err))
	}
}

// ByCategory matches case-insensitively, like the category pages.
func (s *Service) ByCategory(category string) []domain.Product {
	return s.filter(func(p domain.Product) bool {
		return strings.EqualFold(p.Category, category)
	})
}

// Search returns in-stock products whose name contains query.
func (s *Service) Search(query string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	return s.filter(func(p domain.Product) bool {
		return p.InStock && strings.Contains(strings.ToLower(p.Name), q)
	})
}

// BestSellers returns the first n in-stock products.
func (s *Service) BestSellers(n int) []domain.Product {
	out := s.filter(func(p domain.Product) bool { return p.InStock })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *Service) filter(keep func(domain.Product) bool) []domain.Product {
	var out []domain.Product
	for _, p := range s.Catalog().Products() {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
