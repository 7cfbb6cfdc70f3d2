package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/validation"
	"github.com/xenking/storefront/internal/wire"
)

// GetContact returns where the calling user receives order notices.
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		h.fail(w, r, errUnauthenticated)
		return
	}
	c, err := h.contacts.Get(r.Context(), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeContact(c))
}

// SaveContact replaces the notification contact of the calling user.
func (h *Handler) SaveContact(w http.ResponseWriter, r *http.Request) {
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
	c, err := wire.DecodeContact(body)
	if err != nil {
		h.fail(w, r, badRequest(err))
		return
	}

	var v validation.Validator
	c.Validate(&v)
	if err := v.Err(); err != nil {
		h.fail(w, r, err)
		return
	}

	c.UserID = uid
	c.UpdatedAt = h.now().UTC()
	if err := h.contacts.Save(r.Context(), &c); err != nil {
		h.fail(w, r, errors.Wrap(err, "save contact"))
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeContact(&c))
}
