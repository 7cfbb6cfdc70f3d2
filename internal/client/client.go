// Package client is a Go client for the storefront HTTP API. It serves as the
// catalog reader, the order backend and a remote cart store for sessions
// that run outside the server, such as the shopctl CLI.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/contact"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
	"github.com/xenking/storefront/internal/domain/validation"
	"github.com/xenking/storefront/internal/wire"
)

// ErrUnauthorized is returned for 401 and 403 responses.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response that maps to no domain error.
type APIError struct {
	StatusCode int
	Body       wire.Error
}

func (e *APIError) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is used
// as is, without instrumentation.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUserID sends requests on behalf of an authenticated user.
func WithUserID(id string) Option {
	return func(c *Client) { c.userID = id }
}

// WithAPIKey authenticates admin requests.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTelemetry instruments the default transport.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(c *Client) {
		c.tracerProvider = tp
		c.meterProvider = mp
	}
}

// Client talks to one storefront API server.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	userID  string
	apiKey  string

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// New returns a client for the API at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{base: u, timeout: 15 * time.Second}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		var topts []otelhttp.Option
		if c.tracerProvider != nil {
			topts = append(topts, otelhttp.WithTracerProvider(c.tracerProvider))
		}
		if c.meterProvider != nil {
			topts = append(topts, otelhttp.WithMeterProvider(c.meterProvider))
		}
		c.http = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport, topts...)}
	}
	return c, nil
}

// UserID returns the user requests are sent for, or "".
func (c *Client) UserID() string { return c.userID }

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

// do sends one request. The returned error is a transport failure; a
// response with any status is returned as is.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", wire.ContentType)
	if body != nil {
		req.Header.Set("Content-Type", wire.ContentType)
	}
	if c.userID != "" {
		req.Header.Set(wire.UserIDHeader, c.userID)
	}
	if c.apiKey != "" {
		req.Header.Set(wire.APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &transportError{err: err, sent: !isDialError(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: errors.Wrap(err, "read response"), sent: true, status: resp.StatusCode}
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

// transportError is a failure to complete an exchange. sent is false only
// when the request provably never left the client.
type transportError struct {
	err    error
	sent   bool
	status int
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isDialError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// apiError turns a non-2xx response into a domain error where one applies.
func apiError(r *response, notFound error) error {
	body, err := wire.DecodeError(r.body)
	if err != nil {
		body = wire.Error{Code: r.status, Message: strings.TrimSpace(string(r.body))}
	}

	switch r.status {
	case http.StatusBadRequest:
		if body.Message == order.ErrEmptyItems.Error() {
			return order.ErrEmptyItems
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		if notFound != nil {
			return notFound
		}
	case http.StatusConflict:
		switch {
		case body.ProductID != "":
			return &stock.OutOfStockError{
				ProductID: body.ProductID,
				Size:      body.Size,
				Requested: body.Requested,
				Available: body.Available,
			}
		case body.From != "":
			return &order.InvalidTransitionError{From: order.Status(body.From), To: order.Status(body.To)}
		default:
			return order.ErrStatusConflict
		}
	case http.StatusUnprocessableEntity:
		switch {
		case len(body.Fields) > 0:
			return &validation.Error{Fields: body.Fields}
		case body.ProductID != "":
			return &order.ProductNotFoundError{ProductID: body.ProductID}
		}
	}
	return &APIError{StatusCode: r.status, Body: body}
}

func ok(status int) bool { return status >= 200 && status < 300 }

// List returns the catalog, optionally narrowed to a category.
func (c *Client) List(ctx context.Context, filter product.Filter) ([]product.Product, error) {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	r, err := c.do(ctx, http.MethodGet, "/api/products", q, nil)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	if !ok(r.status) {
		return nil, apiError(r, nil)
	}
	return wire.DecodeProducts(r.body)
}

// GetByID returns a single product.
func (c *Client) GetByID(ctx context.Context, id string) (*product.Product, error) {
	r, err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	if !ok(r.status) {
		return nil, apiError(r, product.ErrNotFound)
	}
	p, err := wire.DecodeProduct(r.body)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns the products among ids that exist.
func (c *Client) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		p, err := c.GetByID(ctx, id)
		if errors.Is(err, product.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// GetOrder returns a single order.
func (c *Client) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	r, err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	if !ok(r.status) {
		return nil, apiError(r, order.ErrNotFound)
	}
	return wire.DecodeOrder(r.body)
}

// ListOrders returns the order history of the configured user, or of a
// guest when filter.Email and filter.OrderID are set.
func (c *Client) ListOrders(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	q := url.Values{}
	if filter.Email != "" {
		q.Set("email", filter.Email)
	}
	if filter.OrderID != "" {
		q.Set("orderId", filter.OrderID)
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	r, err := c.do(ctx, http.MethodGet, "/api/orders", q, nil)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if !ok(r.status) {
		return nil, apiError(r, order.ErrNotFound)
	}
	return wire.DecodeOrders(r.body)
}

// AdminListOrders returns all orders, optionally with one status. Requires
// an API key.
func (c *Client) AdminListOrders(ctx context.Context, status order.Status) ([]order.Order, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	r, err := c.do(ctx, http.MethodGet, "/api/admin/orders", q, nil)
	if err != nil {
		return nil, errors.Wrap(err, "admin list orders")
	}
	if !ok(r.status) {
		return nil, apiError(r, nil)
	}
	return wire.DecodeOrders(r.body)
}

// UpdateStatus moves an order to status. Requires an API key.
func (c *Client) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	return c.patchOrder(ctx, id, "/status", wire.EncodeStatusRequest(status))
}

// Ship marks an order shipped. Requires an API key.
func (c *Client) Ship(ctx context.Context, id, trackingNumber string) (*order.Order, error) {
	return c.patchOrder(ctx, id, "/ship", wire.EncodeShipRequest(trackingNumber))
}

func (c *Client) patchOrder(ctx context.Context, id, suffix string, body []byte) (*order.Order, error) {
	r, err := c.do(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(id)+suffix, nil, body)
	if err != nil {
		return nil, errors.Wrapf(err, "update order %q", id)
	}
	if !ok(r.status) {
		return nil, apiError(r, order.ErrNotFound)
	}
	return wire.DecodeOrder(r.body)
}

// ListAddresses returns the saved addresses of the configured user.
func (c *Client) ListAddresses(ctx context.Context) ([]address.Address, error) {
	r, err := c.do(ctx, http.MethodGet, "/api/addresses", nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	if !ok(r.status) {
		return nil, apiError(r, nil)
	}
	return wire.DecodeAddresses(r.body)
}

// CreateAddress saves a new address for the configured user.
func (c *Client) CreateAddress(ctx context.Context, a address.Address) (*address.Address, error) {
	var e jx.Encoder
	wire.EncodeAddress(&e, a)
	r, err := c.do(ctx, http.MethodPost, "/api/addresses", nil, e.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "create address")
	}
	if !ok(r.status) {
		return nil, apiError(r, nil)
	}
	out, err := wire.DecodeAddress(r.body)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetDefaultAddress makes id the default address of the configured user.
func (c *Client) SetDefaultAddress(ctx context.Context, id string) error {
	r, err := c.do(ctx, http.MethodPut, "/api/addresses/"+url.PathEscape(id)+"/default", nil, nil)
	if err != nil {
		return errors.Wrap(err, "set default address")
	}
	if !ok(r.status) {
		return apiError(r, address.ErrNotFound)
	}
	return nil
}

// GetContact returns the notification contact of the configured user.
func (c *Client) GetContact(ctx context.Context) (*contact.Contact, error) {
	r, err := c.do(ctx, http.MethodGet, "/api/contact", nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "get contact")
	}
	if !ok(r.status) {
		return nil, apiError(r, contact.ErrNotFound)
	}
	out, err := wire.DecodeContact(r.body)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveContact replaces the notification contact of the configured user.
func (c *Client) SaveContact(ctx context.Context, ct contact.Contact) (*contact.Contact, error) {
	r, err := c.do(ctx, http.MethodPut, "/api/contact", nil, wire.EncodeContact(&ct))
	if err != nil {
		return nil, errors.Wrap(err, "save contact")
	}
	if !ok(r.status) {
		return nil, apiError(r, nil)
	}
	out, err := wire.DecodeContact(r.body)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
