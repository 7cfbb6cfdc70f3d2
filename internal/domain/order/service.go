package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
	"github.com/xenking/storefront/internal/domain/validation"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems = errors.New("items required")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items            []LineRequest
	Customer         Customer
	Shipping         ShippingRequest
	PaymentReference string
	// Quote is the total the client displayed, if any. The order is always
	// priced from the live catalog; a differing quote is only logged.
	Quote *pricing.Totals
}

// Notice describes a shipped order for the customer notification.
type Notice struct {
	OrderID        string
	TrackingNumber string
	UserID         string
	Name           string
	Email          string
}

// Notifier requests customer notifications. Delivery is best-effort.
type Notifier interface {
	OrderShipped(ctx context.Context, n Notice) error
}

// Option configures a Service.
type Option func(*Service)

// WithMeterProvider sets the provider for order metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service encapsulates order placement and the order lifecycle.
type Service struct {
	products  product.Repository
	addresses address.Repository
	orders    Repository
	notifier  Notifier

	now           func() time.Time
	meterProvider metric.MeterProvider

	placed      metric.Int64Counter
	rejected    metric.Int64Counter
	transitions metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	addresses address.Repository,
	orders Repository,
	notifier Notifier,
	opts ...Option,
) *Service {
	s := &Service{
		products:      products,
		addresses:     addresses,
		orders:        orders,
		notifier:      notifier,
		now:           time.Now,
		meterProvider: noop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	meter := s.meterProvider.Meter("github.com/xenking/storefront/internal/domain/order")
	s.placed = counter(meter, "orders.placed", "Orders created")
	s.rejected = counter(meter, "orders.rejected", "Order placements rejected, by reason")
	s.transitions = counter(meter, "orders.transitions", "Order status transitions")
	return s
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		c, _ = noop.NewMeterProvider().Meter("").Int64Counter(name)
	}
	return c
}

// PlaceOrder validates the request, re-checks live stock, freezes current
// prices into the order and persists it together with the stock decrement.
// All input problems are reported before the catalog is consulted.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	o, err := s.placeOrder(ctx, req)
	if err != nil {
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(err))))
		return nil, err
	}
	s.placed.Add(ctx, 1)
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.Int("items", len(o.Items)),
		zap.Stringer("total", o.Total),
	)
	return o, nil
}

func (s *Service) placeOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, 0, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}

	var v validation.Validator
	req.Customer.Validate(&v)
	if req.PaymentReference == "" {
		v.Fail("paymentReference", "is required")
	}
	shipTo, err := s.resolveShipping(ctx, &v, req.Customer, req.Shipping)
	if err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		productMap[fetched[i].ID] = &fetched[i]
	}

	// Merge lines of the same product and size, then check live stock for
	// the merged quantities.
	type key struct{ productID, size string }
	var (
		items []Item
		index = make(map[key]int, len(req.Items))
	)
	for _, line := range req.Items {
		p, ok := productMap[line.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		size := line.Size
		if !p.HasSizes {
			size = ""
		}
		k := key{p.ID, size}
		if i, ok := index[k]; ok {
			items[i].Quantity += line.Quantity
			continue
		}
		index[k] = len(items)
		items = append(items, Item{
			ProductID:          p.ID,
			Name:               p.Name,
			UnitPrice:          p.Price,
			DiscountPercentage: p.DiscountPercentage,
			Quantity:           line.Quantity,
			Size:               size,
		})
	}
	for _, item := range items {
		if err := stock.Check(productMap[item.ProductID], item.Quantity, item.Size); err != nil {
			return nil, err
		}
	}

	lines := make([]pricing.Line, len(items))
	for i, item := range items {
		lines[i] = item.Line()
	}
	totals := pricing.Calculate(lines).Rounded()
	if req.Quote != nil && !req.Quote.Rounded().Equal(totals) {
		zctx.From(ctx).Warn("Client quote differs from live pricing",
			zap.Stringer("quoted_total", req.Quote.Total),
			zap.Stringer("total", totals.Total),
		)
	}

	now := s.now().UTC()
	o := &Order{
		ID:               uuid.New().String(),
		Items:            items,
		Subtotal:         totals.Subtotal,
		Shipping:         totals.Shipping,
		Tax:              totals.Tax,
		Total:            totals.Total,
		Status:           StatusPending,
		Customer:         req.Customer,
		ShippingAddress:  shipTo,
		PaymentReference: req.PaymentReference,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		var oos *stock.OutOfStockError
		if errors.As(err, &oos) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// resolveShipping returns the address snapshot to store with the order.
// Input problems are recorded on v; only repository failures are returned.
func (s *Service) resolveShipping(ctx context.Context, v *validation.Validator, c Customer, req ShippingRequest) (address.Address, error) {
	if !req.Validate(v, c) {
		return address.Address{}, nil
	}
	if req.Address != nil {
		return req.Address.Snapshot(), nil
	}
	a, err := s.addresses.Get(ctx, c.UserID, req.AddressID)
	if errors.Is(err, address.ErrNotFound) {
		v.Fail("shipping.addressId", "not found")
		return address.Address{}, nil
	}
	if err != nil {
		return address.Address{}, errors.Wrap(err, "get address")
	}
	return a.Snapshot(), nil
}

func rejectReason(err error) string {
	var (
		verr *validation.Error
		oos  *stock.OutOfStockError
		pnf  *ProductNotFoundError
		iq   *InvalidQuantityError
	)
	switch {
	case errors.Is(err, ErrEmptyItems):
		return "empty"
	case errors.As(err, &iq), errors.As(err, &verr):
		return "validation"
	case errors.As(err, &pnf):
		return "unknown_product"
	case errors.As(err, &oos):
		return "out_of_stock"
	default:
		return "error"
	}
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// List returns orders matching filter, newest first. A guest lookup by
// Email must name one of that guest's orders in OrderID, otherwise it fails
// with ErrNotFound.
func (s *Service) List(ctx context.Context, filter Filter) ([]Order, error) {
	var v validation.Validator
	if filter.Status != "" && !filter.Status.Valid() {
		v.Fail("status", "unknown status")
	}
	if filter.Limit < 0 {
		v.Fail("limit", "must not be negative")
	}
	guest := filter.UserID == "" && filter.Email != ""
	if guest && filter.OrderID == "" {
		v.Fail("orderId", "required to look up guest orders")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if guest {
		if err := s.checkGuestOrder(ctx, filter.Email, filter.OrderID); err != nil {
			return nil, err
		}
	}
	return s.orders.List(ctx, filter)
}

// checkGuestOrder reports ErrNotFound unless order id was placed by the
// guest with email.
func (s *Service) checkGuestOrder(ctx context.Context, email, id string) error {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return err
	}
	if g := o.Customer.Guest; g == nil || !strings.EqualFold(g.Email, email) {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves an order to status to. Shipping goes through Ship,
// which carries the tracking number.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	return s.transition(ctx, id, to, "")
}

// Ship marks an order shipped with trackingNumber and requests the customer
// notification. A failed notification request is logged; the status change
// stands.
func (s *Service) Ship(ctx context.Context, id, trackingNumber string) (*Order, error) {
	o, err := s.transition(ctx, id, StatusShipped, trackingNumber)
	if err != nil {
		return nil, err
	}

	n := Notice{
		OrderID:        o.ID,
		TrackingNumber: o.TrackingNumber,
		UserID:         o.Customer.UserID,
	}
	if g := o.Customer.Guest; g != nil {
		n.Name, n.Email = g.Name, g.Email
	} else {
		n.Name = o.ShippingAddress.FullName
	}
	if err := s.notifier.OrderShipped(ctx, n); err != nil {
		zctx.From(ctx).Warn("Shipment notification not requested",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
	return o, nil
}

func (s *Service) transition(ctx context.Context, id string, to Status, trackingNumber string) (*Order, error) {
	if !to.Valid() {
		var v validation.Validator
		v.Fail("status", "unknown status")
		return nil, v.Err()
	}

	current, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := current.Status
	if err := Transition(current, to, trackingNumber); err != nil {
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, StatusChange{
		OrderID:        id,
		From:           from,
		To:             to,
		TrackingNumber: current.TrackingNumber,
		Restock:        to == StatusCancelled && (from == StatusPending || from == StatusProcessing),
	})
	if err != nil {
		return nil, err
	}

	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return updated, nil
}
