// Package http exposes the storefront to view code as a JSON API.
package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/storefront"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodySize    int64
	Log            *zap.Logger
}

func NewRouter(sf *storefront.Storefront, cfg RouterConfig) http.Handler {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}

	products := NewProductHandler(sf, cfg.RequestTimeout)
	cart := NewCartHandler(sf)
	checkout := NewCheckoutHandler(sf, cfg.RequestTimeout)
	orders := NewOrdersHandler(sf, cfg.RequestTimeout)
	sessions := NewSessionHandler(sf, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(cfg.Log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxBodySize))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessions.Get)
			r.Post("/login", sessions.Login)
			r.Post("/register", sessions.Register)
			r.Post("/logout", sessions.Logout)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.ListProducts)
			r.Group(func(r chi.Router) {
				r.Use(SellerOnly(sf))
				r.Post("/{id}/stock", products.SetStock)
				r.Put("/{id}", products.UpdateProduct)
				r.Delete("/{id}", products.DeleteProduct)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Delete("/", cart.ClearCart)
			r.Post("/items/{product_id}", cart.AddItem)
			r.Put("/items/{product_id}", cart.UpdateQuantity)
			r.Delete("/items/{product_id}", cart.RemoveItem)
		})

		r.Group(func(r chi.Router) {
			r.Use(UserOnly(sf))
			r.Get("/addresses", sessions.ListAddresses)
			r.Post("/addresses", sessions.AddAddress)
			r.Get("/orders", orders.ListOrders)
			r.Post("/orders/refresh", orders.Refresh)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkout.GetState)
			r.Post("/", checkout.PlaceOrder)
			r.Delete("/", checkout.Reset)
		})

		r.Route("/seller", func(r chi.Router) {
			r.Post("/login", sessions.SellerLogin)
			r.Group(func(r chi.Router) {
				r.Use(SellerOnly(sf))
				r.Post("/logout", sessions.SellerLogout)
				r.Get("/dashboard", orders.Dashboard)
				r.Get("/orders", orders.ListSellerOrders)
				r.Post("/orders/refresh", orders.RefreshSeller)
				r.Put("/orders/{order_id}/status", orders.UpdateStatus)
				r.Delete("/orders/{order_id}", orders.DeleteOrder)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
