package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/validation"
	"github.com/xenking/storefront/internal/wire"
)

// PlaceOrder decodes the order request, delegates to the order service and
// returns the confirmation.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := wire.DecodePlaceOrderRequest(body)
	if err != nil {
		h.fail(w, r, badRequest(err))
		return
	}
	req.Customer.UserID = userID(r)

	o, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wire.EncodeConfirmation(o))
}

// GetOrder returns a single order. Orders placed by a signed-in user are
// visible to that user only; guest orders are addressed by their ID.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if owner := o.Customer.UserID; owner != "" && owner != userID(r) {
		h.fail(w, r, order.ErrNotFound)
		return
	}
	var e jx.Encoder
	wire.EncodeOrder(&e, o, false)
	writeJSON(w, http.StatusOK, e.Bytes())
}

// maxListLimit caps ?limit= on order history.
const maxListLimit = 100

// ListOrders returns the order history of the calling user, or of a guest
// given as ?email= together with one of that guest's orders as ?orderId=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uid := userID(r)
	if requested := q.Get("userId"); requested != "" && requested != uid {
		h.fail(w, r, errForbidden)
		return
	}

	var v validation.Validator
	filter := order.Filter{Status: order.Status(q.Get("status"))}
	switch {
	case uid != "":
		filter.UserID = uid
	case q.Get("email") != "":
		filter.Email = q.Get("email")
		filter.OrderID = q.Get("orderId")
	default:
		v.Fail("email", "email or user identity is required")
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil || n < 1:
			v.Fail("limit", "must be a positive integer")
		default:
			filter.Limit = min(n, maxListLimit)
		}
	}
	if err := v.Err(); err != nil {
		h.fail(w, r, err)
		return
	}

	list, err := h.orders.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list orders"))
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeOrders(list, false))
}

// AdminListOrders returns all orders with the transitions each one allows.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context(), order.Filter{
		Status: order.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list orders"))
		return
	}
	writeJSON(w, http.StatusOK, wire.EncodeOrders(list, true))
}

// UpdateOrderStatus moves an order to the requested status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status, err := wire.DecodeStatusRequest(body)
	if err != nil {
		h.fail(w, r, badRequest(err))
		return
	}
	if status == order.StatusShipped {
		var v validation.Validator
		v.Fail("status", "use the ship endpoint to provide a tracking number")
		h.fail(w, r, v.Err())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeAdminOrder(w, o)
}

// ShipOrder marks an order shipped with a tracking number.
func (h *Handler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tracking, err := wire.DecodeShipRequest(body)
	if err != nil {
		h.fail(w, r, badRequest(err))
		return
	}

	o, err := h.orders.Ship(r.Context(), r.PathValue("id"), tracking)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeAdminOrder(w, o)
}

func (h *Handler) writeAdminOrder(w http.ResponseWriter, o *order.Order) {
	var e jx.Encoder
	wire.EncodeOrder(&e, o, true)
	writeJSON(w, http.StatusOK, e.Bytes())
}
