package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// LoadCart returns the cart snapshot of the calling user. Carts are keyed by
// user identity; a user can only reach their own.
func (h *Handler) LoadCart(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.carts.Load(r.Context(), key)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "load cart"))
		return
	}
	if data == nil {
		h.fail(w, r, &requestError{status: http.StatusNotFound, msg: "cart not found"})
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// SaveCart replaces the cart snapshot of the calling user.
func (h *Handler) SaveCart(w http.ResponseWriter, r *http.Request) {
	key, err := cartKey(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := h.readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if jx.DecodeBytes(body).Next() != jx.Array {
		h.fail(w, r, badRequest(errors.New("cart must be a JSON array")))
		return
	}
	if err := jx.DecodeBytes(body).Validate(); err != nil {
		h.fail(w, r, badRequest(err))
		return
	}
	if err := h.carts.Save(r.Context(), key, body); err != nil {
		h.fail(w, r, errors.Wrap(err, "save cart"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func cartKey(r *http.Request) (string, error) {
	uid := userID(r)
	if uid == "" {
		return "", errUnauthenticated
	}
	if r.PathValue("key") != uid {
		return "", errForbidden
	}
	return uid, nil
}
