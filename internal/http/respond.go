package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON relies on the router's RequestSize middleware to bound the body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

type errorMapping struct {
	target error
	status int
	code   string
}

// checked in order; wrapping errors come before the errors they wrap
var errorMappings = []errorMapping{
	{checkout.ErrCheckoutInProgress, http.StatusConflict, "checkout_in_progress"},
	{checkout.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
	{checkout.ErrNoAddressSelected, http.StatusBadRequest, "no_address_selected"},
	{checkout.ErrPaymentDeclined, http.StatusPaymentRequired, "payment_declined"},
	{checkout.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{checkout.ErrAuthRequired, http.StatusUnauthorized, "unauthorized"},
	{checkout.ErrNetwork, http.StatusServiceUnavailable, "service_unavailable"},
	{cart.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{session.ErrMissingCredentials, http.StatusBadRequest, "missing_credentials"},
	{domain.ErrIncompleteAddress, http.StatusBadRequest, "incomplete_address"},
	{domain.ErrInvalidProduct, http.StatusBadRequest, "invalid_product"},
	{domain.ErrUnknownStatus, http.StatusBadRequest, "unknown_status"},
	{orders.ErrUnknownFilter, http.StatusBadRequest, "unknown_filter"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{orders.ErrSellerOnly, http.StatusForbidden, "seller_only"},
	{orders.ErrOrderNotFound, http.StatusNotFound, "not_found"},
	{catalog.ErrUnknownProduct, http.StatusNotFound, "not_found"},
	{backend.ErrAuthRequired, http.StatusUnauthorized, "unauthorized"},
	{backend.ErrRejected, http.StatusUnprocessableEntity, "rejected"},
	{backend.ErrUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// handleError writes err as an ErrorResponse. The backend message, when
// present, is preferred over the wrapped error text.
func handleError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := backend.Message(err)
	if msg == "" {
		msg = err.Error()
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("unhandled error", zap.Error(err))
		msg = "internal server error"
	}
	respondError(w, status, code, msg)
}
