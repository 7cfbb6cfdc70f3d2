package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/validation"
	"github.com/xenking/storefront/internal/wire"
)

// ListAddresses returns the saved addresses of the calling user.
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		h.fail(w, r, errUnauthenticated)
		return
	}
	list, err := h.addresses.ListByUser(r.Context(), uid)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list addresses"))
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeAddresses(list))
}

// CreateAddress validates and saves a new address for the calling user.
func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		h.fail(w, r, errUnauthenticated)
		return
	}
	body, err := h.readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := wire.DecodeAddress(body)
	if err != nil {
		h.fail(w, r, badRequest(err))
		return
	}

	var v validation.Validator
	a.Validate(&v, "")
	if err := v.Err(); err != nil {
		h.fail(w, r, err)
		return
	}

	a.ID = uuid.New().String()
	a.UserID = uid
	a.CreatedAt = h.now().UTC()
	if a.Country == "" {
		a.Country = address.DefaultCountry
	}
	if err := h.addresses.Create(r.Context(), &a); err != nil {
		h.fail(w, r, errors.Wrap(err, "create address"))
		return
	}

	var e jx.Encoder
	wire.EncodeAddress(&e, a)
	writeJSON(w, http.StatusCreated, e.Bytes())
}

// SetDefaultAddress makes an address the calling user's default.
func (h *Handler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		h.fail(w, r, errUnauthenticated)
		return
	}
	if err := h.addresses.SetDefault(r.Context(), uid, r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
