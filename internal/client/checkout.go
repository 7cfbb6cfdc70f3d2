package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/wire"
)

var (
	_ checkout.Backend   = (*Client)(nil)
	_ product.Repository = (*Client)(nil)
	_ cart.Store         = (*Client)(nil)
)

// PlaceOrder submits req. Every error is either a domain error the server
// rejected the order with, or a *checkout.SubmissionError telling whether
// the order may have been created anyway.
func (c *Client) PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*checkout.Confirmation, error) {
	// The identity of the ordering user travels in a header.
	cc := *c
	cc.userID = req.Customer.UserID
	body := wire.EncodePlaceOrderRequest(req)

	r, err := cc.do(ctx, http.MethodPost, "/api/orders", nil, body)
	if err != nil {
		var te *transportError
		if errors.As(err, &te) && !te.sent {
			return nil, &checkout.SubmissionError{Outcome: checkout.OutcomeFailed, Err: err}
		}
		status := 0
		if te != nil {
			status = te.status
		}
		return nil, &checkout.SubmissionError{Outcome: checkout.OutcomeUnknown, StatusCode: status, Err: err}
	}

	switch {
	case ok(r.status):
		conf, err := wire.DecodeConfirmation(r.body)
		if err != nil {
			return nil, &checkout.SubmissionError{Outcome: checkout.OutcomeUnknown, StatusCode: r.status, Err: err}
		}
		return conf, nil
	case r.status == http.StatusTooManyRequests, r.status == http.StatusServiceUnavailable:
		// Rejected before reaching the order handler.
		return nil, &checkout.SubmissionError{Outcome: checkout.OutcomeFailed, StatusCode: r.status, Err: apiError(r, nil)}
	case r.status >= 500:
		return nil, &checkout.SubmissionError{Outcome: checkout.OutcomeUnknown, StatusCode: r.status, Err: apiError(r, nil)}
	}

	err = apiError(r, nil)
	var ae *APIError
	if errors.As(err, &ae) {
		return nil, &checkout.SubmissionError{Outcome: checkout.OutcomeFailed, StatusCode: r.status, Err: err}
	}
	return nil, err
}

// Load fetches the cart snapshot stored under key. A missing cart is nil
// data without error.
func (c *Client) Load(ctx context.Context, key string) ([]byte, error) {
	r, err := c.do(ctx, http.MethodGet, "/api/carts/"+url.PathEscape(key), nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if r.status == http.StatusNotFound {
		return nil, nil
	}
	if !ok(r.status) {
		return nil, apiError(r, nil)
	}
	return r.body, nil
}

// Save replaces the cart snapshot stored under key.
func (c *Client) Save(ctx context.Context, key string, data []byte) error {
	r, err := c.do(ctx, http.MethodPut, "/api/carts/"+url.PathEscape(key), nil, data)
	if err != nil {
		return errors.Wrap(err, "save cart")
	}
	if !ok(r.status) {
		return apiError(r, nil)
	}
	return nil
}
