package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/wire"
)

// ListProducts returns the catalog, optionally narrowed by ?category=.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), product.Filter{
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list products"))
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeProducts(products, h.imageBaseURL))
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "get product"))
		return
	}
	var e jx.Encoder
	wire.EncodeProduct(&e, *p, h.imageBaseURL)
	writeJSON(w, http.StatusOK, e.Bytes())
}
