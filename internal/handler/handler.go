// Package handler exposes the storefront HTTP API on a chi router.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pix"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// CouponService is the coupon surface used by public and admin routes.
type CouponService interface {
	Validate(ctx context.Context, code string) (*coupon.Applied, error)
	Apply(ctx context.Context, code string) (*coupon.Applied, error)
	Create(ctx context.Context, p coupon.CreateParams) (*coupon.Coupon, error)
	BulkImport(ctx context.Context, rows []coupon.ImportRow) coupon.ImportResult
	List(ctx context.Context) ([]coupon.Coupon, error)
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active *bool) (bool, error)
}

// OrderService is the checkout surface.
type OrderService interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	GeneratePix(ctx context.Context, id string) (*pix.Charge, error)
	Quote(ctx context.Context, req order.QuoteRequest) (*order.Quote, error)
}

// Authenticator resolves admin API keys.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative product image paths.
	ImageBaseURL string
	// AdminScope is required on admin API keys. Keys without scopes pass.
	AdminScope string
	// MaxImportBytes bounds the bulk import payload.
	MaxImportBytes int64
}

// Handler serves the storefront API.
type Handler struct {
	coupons  CouponService
	orders   OrderService
	products product.Repository
	auth     Authenticator
	cfg      Config
}

// New constructs a Handler.
func New(cfg Config, coupons CouponService, orders OrderService, products product.Repository, authn Authenticator) *Handler {
	if cfg.AdminScope == "" {
		cfg.AdminScope = "admin"
	}
	if cfg.MaxImportBytes <= 0 {
		cfg.MaxImportBytes = 5 << 20
	}
	return &Handler{
		coupons:  coupons,
		orders:   orders,
		products: products,
		auth:     authn,
		cfg:      cfg,
	}
}

// Register mounts every API route on r. validateLimit, when set, guards
// the public coupon validation route against code enumeration.
func (h *Handler) Register(r chi.Router, validateLimit httpmiddleware.Middleware) {
	r.Route("/coupons", func(r chi.Router) {
		if validateLimit != nil {
			r.With(validateLimit).Get("/validate/{code}", h.ValidateCoupon)
		} else {
			r.Get("/validate/{code}", h.ValidateCoupon)
		}
		r.Post("/apply", h.ApplyCoupon)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.PlaceOrder)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/generate-pix", h.GeneratePix)
	})
	r.Post("/checkout/quote", h.Quote)

	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)

	r.Route("/admin/coupons", func(r chi.Router) {
		r.Use(h.RequireAPIKey)
		r.Post("/", h.CreateCoupon)
		r.Get("/", h.ListCoupons)
		r.Post("/import", h.ImportCoupons)
		r.Delete("/{id}", h.DeleteCoupon)
		r.Patch("/{id}/toggle", h.ToggleCoupon)
	})
}

// Router returns a standalone router with request logging and route
// labelling installed.
func (h *Handler) Router(validateLimit httpmiddleware.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(httpmiddleware.LogRequests(), httpmiddleware.RouteLabel())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	h.Register(r, validateLimit)
	return r
}
