package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storefront"
)

type SessionHandler struct {
	sf      *storefront.Storefront
	timeout time.Duration
}

func NewSessionHandler(sf *storefront.Storefront, timeout time.Duration) *SessionHandler {
	return &SessionHandler{sf: sf, timeout: timeout}
}

type CredentialsDTO struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponseDTO struct {
	LoggedIn bool         `json:"logged_in"`
	User     *domain.User `json:"user,omitempty"`
	Seller   bool         `json:"seller"`
}

func (h *SessionHandler) current() SessionResponseDTO {
	dto := SessionResponseDTO{Seller: h.sf.Session.IsSeller()}
	if u, ok := h.sf.Session.User(); ok {
		dto.LoggedIn = true
		dto.User = &u
	}
	return dto
}

// GET /api/v1/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.current())
}

// POST /api/v1/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CredentialsDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.sf.Session.Login(ctx, req.Email, req.Password); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.current())
}

// POST /api/v1/session/register
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CredentialsDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.sf.Session.Register(ctx, req.Name, req.Email, req.Password); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.current())
}

// POST /api/v1/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.sf.Session.Logout(ctx); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.current())
}

// POST /api/v1/seller/login
func (h *SessionHandler) SellerLogin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CredentialsDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.sf.Session.SellerLogin(ctx, req.Email, req.Password); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.current())
}

// POST /api/v1/seller/logout
func (h *SessionHandler) SellerLogout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.sf.Session.SellerLogout(ctx); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.current())
}

// GET /api/v1/addresses
func (h *SessionHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	addrs, err := h.sf.Addresses(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	if addrs == nil {
		addrs = []domain.Address{}
	}
	respondJSON(w, http.StatusOK, addrs)
}

// POST /api/v1/addresses
func (h *SessionHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var addr domain.Address
	if !decodeJSON(w, r, &addr) {
		return
	}
	if err := h.sf.AddAddress(ctx, addr); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, addr)
}
