package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/storefront"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	sf      *storefront.Storefront
	timeout time.Duration
}

func NewOrdersHandler(sf *storefront.Storefront, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{sf: sf, timeout: timeout}
}

type OrdersResponseDTO struct {
	Orders    []domain.Order             `json:"orders"`
	Counts    map[domain.OrderStatus]int `json:"counts"`
	Filter    string                     `json:"filter"`
	FetchedAt *time.Time                 `json:"fetched_at,omitempty"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

func listOrders(w http.ResponseWriter, r *http.Request, vm *orders.ViewModel, timeout time.Duration) {
	filter, err := orders.ParseFilter(r.URL.Query().Get("status"))
	if err != nil {
		handleError(w, err)
		return
	}

	if vm.FetchedAt().IsZero() {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := vm.Refresh(ctx); err != nil {
			handleError(w, err)
			return
		}
	}

	dto := OrdersResponseDTO{
		Orders: make([]domain.Order, 0, vm.Len()),
		Counts: vm.Counts(),
		Filter: filter.String(),
	}
	for o := range vm.List(filter) {
		dto.Orders = append(dto.Orders, o)
	}
	if at := vm.FetchedAt(); !at.IsZero() {
		dto.FetchedAt = &at
	}
	respondJSON(w, http.StatusOK, dto)
}

func refreshOrders(w http.ResponseWriter, r *http.Request, vm *orders.ViewModel, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	if err := vm.Refresh(ctx); err != nil {
		handleError(w, err)
		return
	}
	listOrders(w, r, vm, timeout)
}

// GET /api/v1/orders?status=
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	listOrders(w, r, h.sf.Orders, h.timeout)
}

// POST /api/v1/orders/refresh
func (h *OrdersHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshOrders(w, r, h.sf.Orders, h.timeout)
}

// GET /api/v1/seller/orders?status=
func (h *OrdersHandler) ListSellerOrders(w http.ResponseWriter, r *http.Request) {
	listOrders(w, r, h.sf.SellerOrders, h.timeout)
}

// POST /api/v1/seller/orders/refresh
func (h *OrdersHandler) RefreshSeller(w http.ResponseWriter, r *http.Request) {
	refreshOrders(w, r, h.sf.SellerOrders, h.timeout)
}

// PUT /api/v1/seller/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		handleError(w, err)
		return
	}

	updated, err := h.sf.SellerOrders.TransitionStatus(ctx, chi.URLParam(r, "order_id"), status)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// DELETE /api/v1/seller/orders/{order_id}
func (h *OrdersHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.sf.SellerOrders.Delete(ctx, chi.URLParam(r, "order_id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/seller/dashboard
func (h *OrdersHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stats, err := h.sf.SellerOrders.Dashboard(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
