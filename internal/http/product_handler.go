package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storefront"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	sf      *storefront.Storefront
	timeout time.Duration
}

func NewProductHandler(sf *storefront.Storefront, timeout time.Duration) *ProductHandler {
	return &ProductHandler{sf: sf, timeout: timeout}
}

type SetStockRequestDTO struct {
	InStock *bool `json:"in_stock"`
}

type UpdateProductRequestDTO struct {
	Name       string           `json:"name"`
	Category   string           `json:"category"`
	Price      decimal.Decimal  `json:"price"`
	OfferPrice *decimal.Decimal `json:"offer_price"`
	InStock    bool             `json:"in_stock"`
}

// GET /api/v1/products?category=&q=&best_sellers=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if !h.sf.Catalog.Loaded() {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if _, err := h.sf.Catalog.Load(ctx); err != nil {
			handleError(w, err)
			return
		}
	}

	q := r.URL.Query()
	var products []domain.Product
	switch {
	case q.Get("category") != "":
		products = h.sf.Catalog.ByCategory(q.Get("category"))
	case q.Get("q") != "":
		products = h.sf.Catalog.Search(q.Get("q"))
	case q.Get("best_sellers") != "":
		n, err := strconv.Atoi(q.Get("best_sellers"))
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "best_sellers must be a non-negative integer")
			return
		}
		products = h.sf.Catalog.BestSellers(n)
	default:
		products = h.sf.Catalog.Catalog().Products()
	}
	if products == nil {
		products = []domain.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

// POST /api/v1/products/{id}/stock
func (h *ProductHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetStockRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.InStock == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "in_stock is required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.sf.Catalog.SetStock(ctx, id, *req.InStock); err != nil {
		handleError(w, err)
		return
	}
	p, _ := h.sf.Catalog.Catalog().Lookup(id)
	respondJSON(w, http.StatusOK, p)
}

// PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateProductRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.sf.Catalog.Update(ctx, chi.URLParam(r, "id"), domain.ProductUpdate{
		Name:       req.Name,
		Category:   req.Category,
		Price:      req.Price,
		OfferPrice: req.OfferPrice,
		InStock:    req.InStock,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.sf.Catalog.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
