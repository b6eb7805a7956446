package http

import (
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/storefront"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	sf *storefront.Storefront
}

func NewCartHandler(sf *storefront.Storefront) *CartHandler {
	return &CartHandler{sf: sf}
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartLineDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
}

type CartResponseDTO struct {
	Items       []CartLineDTO `json:"items"`
	Count       int           `json:"count"`
	Subtotal    string        `json:"subtotal"`
	Tax         string        `json:"tax"`
	Total       string        `json:"total"`
	SyncWarning string        `json:"sync_warning,omitempty"`
}

func convertBreakdown(b pricing.Breakdown) CartResponseDTO {
	items := make([]CartLineDTO, 0, len(b.Lines))
	for _, l := range b.Lines {
		items = append(items, CartLineDTO{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.UnitPrice().StringFixed(2),
			Total:     l.Total.StringFixed(2),
		})
	}
	return CartResponseDTO{
		Items:    items,
		Count:    b.Count,
		Subtotal: b.Subtotal.StringFixed(2),
		Tax:      b.Tax.StringFixed(2),
		Total:    b.Total.StringFixed(2),
	}
}

func (h *CartHandler) respondCart(w http.ResponseWriter, status int) {
	dto := convertBreakdown(h.sf.CartView())
	if err := h.sf.SyncNotice(); err != nil {
		dto.SyncWarning = "cart could not be saved, changes are kept locally"
	}
	respondJSON(w, status, dto)
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, http.StatusOK)
}

// POST /api/v1/cart/items/{product_id}
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if _, ok := h.sf.Catalog.Catalog().Lookup(productID); !ok {
		respondError(w, http.StatusNotFound, "not_found", "unknown product "+productID)
		return
	}
	h.sf.Cart.AddOne(productID)
	h.respondCart(w, http.StatusCreated)
}

// DELETE /api/v1/cart/items/{product_id}[?all=true]
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if strings.EqualFold(r.URL.Query().Get("all"), "true") {
		h.sf.Cart.Remove(productID)
	} else {
		h.sf.Cart.RemoveOne(productID)
	}
	h.respondCart(w, http.StatusOK)
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.sf.Cart.SetQuantity(chi.URLParam(r, "product_id"), req.Quantity); err != nil {
		handleError(w, err)
		return
	}
	h.respondCart(w, http.StatusOK)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.sf.Cart.Clear()
	h.respondCart(w, http.StatusOK)
}
