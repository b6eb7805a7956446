package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storefront"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	sf      *storefront.Storefront
	timeout time.Duration
}

func NewCheckoutHandler(sf *storefront.Storefront, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{sf: sf, timeout: timeout}
}

type PlaceOrderRequestDTO struct {
	AddressID     string `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
	CardNumber    string `json:"card_number,omitempty"`
}

type CheckoutResponseDTO struct {
	State       string `json:"state"`
	OrderID     string `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	Total       string `json:"total,omitempty"`
	Error       string `json:"error,omitempty"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PlaceOrderRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payment_method", err.Error())
		return
	}

	res, err := h.sf.Checkout.PlaceOrder(ctx, checkout.Request{
		AddressID:  req.AddressID,
		Method:     method,
		CardNumber: req.CardNumber,
	})
	if err != nil {
		h.sf.Session.HandleAuthError(ctx, err)
		zap.L().Info("checkout rejected",
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err))
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		State:       checkout.StateSucceeded.String(),
		OrderID:     res.OrderID,
		OrderNumber: res.OrderNumber,
		Total:       res.Snapshot.Total.StringFixed(2),
	})
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetState(w http.ResponseWriter, r *http.Request) {
	dto := CheckoutResponseDTO{State: h.sf.Checkout.State().String()}
	if err := h.sf.Checkout.LastError(); err != nil {
		dto.Error = err.Error()
	}
	if res, ok := h.sf.Checkout.LastResult(); ok {
		dto.OrderID = res.OrderID
		dto.OrderNumber = res.OrderNumber
		dto.Total = res.Snapshot.Total.StringFixed(2)
	}
	respondJSON(w, http.StatusOK, dto)
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.sf.Checkout.Reset()
	respondJSON(w, http.StatusOK, CheckoutResponseDTO{State: h.sf.Checkout.State().String()})
}
