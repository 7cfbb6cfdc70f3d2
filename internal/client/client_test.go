package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
	"github.com/xenking/storefront/internal/domain/validation"
	"github.com/xenking/storefront/internal/wire"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func writeError(w http.ResponseWriter, e wire.Error) {
	w.Header().Set("Content-Type", wire.ContentType)
	w.WriteHeader(e.Code)
	_, _ = w.Write(wire.EncodeError(e))
}

func guestRequest() order.PlaceOrderRequest {
	return order.PlaceOrderRequest{
		Items:            []order.LineRequest{{ProductID: "P1", Quantity: 2}},
		Customer:         order.Customer{Guest: &order.Guest{Name: "Ann Lee", Email: "ann@example.com"}},
		Shipping:         order.ShippingRequest{AddressID: "a1"},
		PaymentReference: "tok_1",
	}
}

func TestNew(t *testing.T) {
	_, err := New("localhost:8080")
	require.Error(t, err)

	c, err := New("http://localhost:8080/", WithUserID("u1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID())
}

func TestPlaceOrder_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "user-1", r.Header.Get(wire.UserIDHeader))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		req, err := wire.DecodePlaceOrderRequest(body)
		if assert.NoError(t, err) && assert.Len(t, req.Items, 1) {
			assert.Equal(t, "P1", req.Items[0].ProductID)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(wire.EncodeConfirmation(&order.Order{
			ID: "o-1", Status: order.StatusPending, Total: decimal.RequireFromString("45.30"),
		}))
	})

	req := guestRequest()
	req.Customer = order.Customer{UserID: "user-1"}
	conf, err := c.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "o-1", conf.OrderID)
	assert.Equal(t, order.StatusPending, conf.Status)
	assert.Equal(t, "45.3", conf.Total.String())
}

func TestPlaceOrder_Rejections(t *testing.T) {
	for _, tc := range []struct {
		name  string
		reply wire.Error
		check func(t *testing.T, err error)
	}{
		{
			name:  "OutOfStock",
			reply: wire.Error{Code: 409, Message: "out of stock", ProductID: "P2", Size: "M", Requested: 3, Available: 1},
			check: func(t *testing.T, err error) {
				var oos *stock.OutOfStockError
				require.ErrorAs(t, err, &oos)
				assert.Equal(t, "P2", oos.ProductID)
				assert.Equal(t, "M", oos.Size)
				assert.Equal(t, 1, oos.Available)
			},
		},
		{
			name: "Validation",
			reply: wire.Error{Code: 422, Message: "validation failed", Fields: []validation.FieldError{
				{Field: "guest.email", Message: "is not a valid email address"},
			}},
			check: func(t *testing.T, err error) {
				var verr *validation.Error
				require.ErrorAs(t, err, &verr)
				assert.True(t, verr.Has("guest.email"))
			},
		},
		{
			name:  "ProductNotFound",
			reply: wire.Error{Code: 422, Message: "product not found", ProductID: "P9"},
			check: func(t *testing.T, err error) {
				var pnf *order.ProductNotFoundError
				require.ErrorAs(t, err, &pnf)
				assert.Equal(t, "P9", pnf.ProductID)
			},
		},
		{
			name:  "EmptyItems",
			reply: wire.Error{Code: 400, Message: order.ErrEmptyItems.Error()},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, order.ErrEmptyItems)
			},
		},
		{
			name:  "BadRequest",
			reply: wire.Error{Code: 400, Message: "malformed body"},
			check: func(t *testing.T, err error) {
				var se *checkout.SubmissionError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, checkout.OutcomeFailed, se.Outcome)
				assert.Equal(t, 400, se.StatusCode)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tc.reply)
			})
			_, err := c.PlaceOrder(context.Background(), guestRequest())
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestPlaceOrder_Outcome(t *testing.T) {
	for _, tc := range []struct {
		status  int
		outcome checkout.Outcome
	}{
		{http.StatusInternalServerError, checkout.OutcomeUnknown},
		{http.StatusBadGateway, checkout.OutcomeUnknown},
		{http.StatusGatewayTimeout, checkout.OutcomeUnknown},
		{http.StatusServiceUnavailable, checkout.OutcomeFailed},
		{http.StatusTooManyRequests, checkout.OutcomeFailed},
	} {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, wire.Error{Code: tc.status, Message: "nope"})
			})
			_, err := c.PlaceOrder(context.Background(), guestRequest())
			var se *checkout.SubmissionError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.outcome, se.Outcome)
			assert.Equal(t, tc.status, se.StatusCode)
		})
	}
}

func TestPlaceOrder_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}, WithTimeout(50*time.Millisecond))

	_, err := c.PlaceOrder(context.Background(), guestRequest())
	var se *checkout.SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, checkout.OutcomeUnknown, se.Outcome)
	assert.False(t, se.Retryable())
}

func TestPlaceOrder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	_, err = c.PlaceOrder(context.Background(), guestRequest())
	var se *checkout.SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, checkout.OutcomeFailed, se.Outcome)
	assert.True(t, se.Retryable())
}

func TestCatalog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/products":
			assert.Equal(t, "Apparel", r.URL.Query().Get("category"))
			_, _ = w.Write(wire.EncodeProducts([]product.Product{
				{ID: "P1", Name: "Tee", Price: decimal.NewFromInt(20), Category: "Apparel", Stock: 3},
			}, ""))
		case "/api/products/P1":
			var e jx.Encoder
			wire.EncodeProduct(&e, product.Product{ID: "P1", Name: "Tee", Price: decimal.NewFromInt(20), Stock: 3}, "")
			_, _ = w.Write(e.Bytes())
		default:
			writeError(w, wire.Error{Code: 404, Message: "product not found"})
		}
	})
	ctx := context.Background()

	list, err := c.List(ctx, product.Filter{Category: "Apparel"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Stock)

	p, err := c.GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Tee", p.Name)

	_, err = c.GetByID(ctx, "P404")
	require.ErrorIs(t, err, product.ErrNotFound)

	got, err := c.GetByIDs(ctx, []string{"P404"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOrderAdmin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(wire.APIKeyHeader) != "secret" {
			writeError(w, wire.Error{Code: 401, Message: "unauthorized"})
			return
		}
		switch r.URL.Path {
		case "/api/orders/o-1/ship":
			body, _ := io.ReadAll(r.Body)
			tn, err := wire.DecodeShipRequest(body)
			assert.NoError(t, err)
			var e jx.Encoder
			wire.EncodeOrder(&e, &order.Order{ID: "o-1", Status: order.StatusShipped, TrackingNumber: tn}, true)
			_, _ = w.Write(e.Bytes())
		case "/api/orders/o-2/status":
			writeError(w, wire.Error{Code: 409, Message: "invalid status transition", From: "delivered", To: "processing"})
		case "/api/orders/o-3/status":
			writeError(w, wire.Error{Code: 409, Message: "order status changed concurrently"})
		default:
			writeError(w, wire.Error{Code: 404, Message: "order not found"})
		}
	}, WithAPIKey("secret"))
	ctx := context.Background()

	o, err := c.Ship(ctx, "o-1", "TRK123")
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, o.Status)
	assert.Equal(t, "TRK123", o.TrackingNumber)

	_, err = c.UpdateStatus(ctx, "o-2", order.StatusProcessing)
	var ite *order.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, order.StatusDelivered, ite.From)

	_, err = c.UpdateStatus(ctx, "o-3", order.StatusProcessing)
	require.ErrorIs(t, err, order.ErrStatusConflict)

	_, err = c.UpdateStatus(ctx, "o-404", order.StatusProcessing)
	require.ErrorIs(t, err, order.ErrNotFound)

	anon, err := New(c.base.String())
	require.NoError(t, err)
	_, err = anon.Ship(ctx, "o-1", "TRK123")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestListOrders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("orderId") != "o-1" {
			writeError(w, wire.Error{Code: 404, Message: "order not found"})
			return
		}
		assert.Equal(t, "ann@example.com", q.Get("email"))
		assert.Equal(t, "shipped", q.Get("status"))
		assert.Equal(t, "5", q.Get("limit"))
		_, _ = w.Write(wire.EncodeOrders([]order.Order{{ID: "o-1", Status: order.StatusShipped}}, false))
	})
	ctx := context.Background()

	orders, err := c.ListOrders(ctx, order.Filter{
		Email: "ann@example.com", OrderID: "o-1", Status: order.StatusShipped, Limit: 5,
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o-1", orders[0].ID)

	_, err = c.ListOrders(ctx, order.Filter{Email: "ann@example.com", OrderID: "o-2"})
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCartStore(t *testing.T) {
	stored := map[string][]byte{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path[len("/api/carts/"):]
		switch r.Method {
		case http.MethodGet:
			data, ok := stored[key]
			if !ok {
				writeError(w, wire.Error{Code: 404, Message: "cart not found"})
				return
			}
			_, _ = w.Write(data)
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			stored[key] = data
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	data, err := c.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, c.Save(ctx, "u1", []byte(`[]`)))
	data, err = c.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
}

func TestAPIError(t *testing.T) {
	err := apiError(&response{status: 418, body: []byte("teapot")}, nil)
	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 418, ae.StatusCode)
	assert.Equal(t, "api error 418: teapot", err.Error())
}
