package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/contact"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
	"github.com/xenking/storefront/internal/domain/validation"
	"github.com/xenking/storefront/internal/wire"
)

var (
	errUnauthenticated = &requestError{status: http.StatusUnauthorized, msg: "user identity required"}
	errForbidden       = &requestError{status: http.StatusForbidden, msg: "forbidden"}
)

// requestError is a client error raised by the HTTP layer itself.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(err error) error {
	return &requestError{status: http.StatusBadRequest, msg: "malformed request body: " + err.Error()}
}

// mapError converts domain errors to response bodies.
func mapError(err error) wire.Error {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return wire.Error{Code: reqErr.status, Message: reqErr.msg}
	}

	if errors.Is(err, order.ErrEmptyItems) {
		return wire.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		return wire.Error{Code: http.StatusUnprocessableEntity, Message: "validation failed", Fields: verr.Fields}
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		return wire.Error{
			Code:    http.StatusUnprocessableEntity,
			Message: iqErr.Error(),
			Fields:  []validation.FieldError{{Field: "items.quantity", Message: iqErr.Error()}},
		}
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		return wire.Error{Code: http.StatusUnprocessableEntity, Message: pnfErr.Error(), ProductID: pnfErr.ProductID}
	}

	if errors.Is(err, order.ErrTrackingNumberRequired) {
		return wire.Error{
			Code:    http.StatusUnprocessableEntity,
			Message: err.Error(),
			Fields:  []validation.FieldError{{Field: "trackingNumber", Message: "is required"}},
		}
	}

	var oos *stock.OutOfStockError
	if errors.As(err, &oos) {
		return wire.Error{
			Code:      http.StatusConflict,
			Message:   oos.Error(),
			ProductID: oos.ProductID,
			Size:      oos.Size,
			Requested: oos.Requested,
			Available: oos.Available,
		}
	}

	var itErr *order.InvalidTransitionError
	if errors.As(err, &itErr) {
		return wire.Error{Code: http.StatusConflict, Message: itErr.Error(), From: string(itErr.From), To: string(itErr.To)}
	}
	if errors.Is(err, order.ErrStatusConflict) {
		return wire.Error{Code: http.StatusConflict, Message: err.Error()}
	}

	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, address.ErrNotFound),
		errors.Is(err, contact.ErrNotFound):
		return wire.Error{Code: http.StatusNotFound, Message: err.Error()}
	}

	return wire.Error{Code: http.StatusInternalServerError, Message: "internal server error"}
}
