// Package handler implements the storefront HTTP API.
package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/contact"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/wire"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
	// MaxBodyBytes caps request bodies. Zero means 1 MiB.
	MaxBodyBytes int64
}

// Handler serves the public and admin API routes, delegating business logic
// to the order service and the repositories.
type Handler struct {
	products     product.Repository
	orders       *order.Service
	addresses    address.Repository
	carts        cart.Store
	contacts     contact.Repository
	imageBaseURL string
	maxBody      int64
	now          func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	orders *order.Service,
	addresses address.Repository,
	carts cart.Store,
	contacts contact.Repository,
) *Handler {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Handler{
		products:     products,
		orders:       orders,
		addresses:    addresses,
		carts:        carts,
		contacts:     contacts,
		imageBaseURL: cfg.ImageBaseURL,
		maxBody:      maxBody,
		now:          time.Now,
	}
}

// Register adds all API routes to mux. Admin routes are wrapped with admin.
func (h *Handler) Register(mux *http.ServeMux, admin func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.Handle("PATCH /api/orders/{id}/status", admin(http.HandlerFunc(h.UpdateOrderStatus)))
	mux.Handle("PATCH /api/orders/{id}/ship", admin(http.HandlerFunc(h.ShipOrder)))
	mux.Handle("GET /api/admin/orders", admin(http.HandlerFunc(h.AdminListOrders)))

	mux.HandleFunc("GET /api/addresses", h.ListAddresses)
	mux.HandleFunc("POST /api/addresses", h.CreateAddress)
	mux.HandleFunc("PUT /api/addresses/{id}/default", h.SetDefaultAddress)

	mux.HandleFunc("GET /api/carts/{key}", h.LoadCart)
	mux.HandleFunc("PUT /api/carts/{key}", h.SaveCart)

	mux.HandleFunc("GET /api/contact", h.GetContact)
	mux.HandleFunc("PUT /api/contact", h.SaveContact)
}

// userID returns the identity set by the authentication collaborator.
func userID(r *http.Request) string {
	return r.Header.Get(wire.UserIDHeader)
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", wire.ContentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// fail writes the response for err. Unexpected errors are logged and hidden
// from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	body := mapError(err)
	if body.Code >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, body.Code, wire.EncodeError(body))
}
