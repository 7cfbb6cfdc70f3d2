// Package checkout submits a session cart as an order.
//
// Submission happens at most once per call: ambiguous failures are reported,
// never retried, so that a shopper is not charged twice. Everything that can
// be checked locally is checked before the backend is contacted.
package checkout

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
	"github.com/xenking/storefront/internal/domain/validation"
)

// ErrSubmissionInFlight is returned when Submit is called while a previous
// submission through the same Submitter is still running.
var ErrSubmissionInFlight = errors.New("order submission already in flight")

// Outcome classifies a failed submission.
type Outcome int

const (
	// OutcomeFailed means the order was definitely not created. Retrying is safe.
	OutcomeFailed Outcome = iota + 1
	// OutcomeUnknown means the order may or may not exist. The shopper
	// should check order history before submitting again.
	OutcomeUnknown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// SubmissionError is a network or server failure while creating an order.
type SubmissionError struct {
	Outcome Outcome
	// StatusCode is the HTTP status, if a response was received.
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("submit order (%s, status %d): %v", e.Outcome, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("submit order (%s): %v", e.Outcome, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Retryable reports whether resubmitting cannot create a duplicate order.
func (e *SubmissionError) Retryable() bool { return e.Outcome == OutcomeFailed }

// Confirmation is the backend's answer to a successful submission.
type Confirmation struct {
	OrderID string
	Status  order.Status
	Total   decimal.Decimal
}

// Backend creates orders. Implementations return *SubmissionError for
// transport and server failures, and the domain errors of the order package
// (*validation.Error, *stock.OutOfStockError, ...) for rejections.
type Backend interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*Confirmation, error)
}

// Payment is either a token from the payment collaborator or raw card fields.
type Payment struct {
	Token string
	Card  validation.Card
}

// Reference returns the payment reference attached to the order.
func (p Payment) Reference() string {
	if p.Token != "" {
		return p.Token
	}
	return "card:" + p.Card.Last4()
}

// Submission is everything besides the cart needed to place an order.
type Submission struct {
	Customer order.Customer
	Shipping order.ShippingRequest
	Payment  Payment
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithClock overrides the time source used for card expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Submitter) { s.now = now }
}

// Submitter places orders for one session.
type Submitter struct {
	backend  Backend
	now      func() time.Time
	inFlight atomic.Bool
}

// NewSubmitter returns a Submitter sending orders to backend.
func NewSubmitter(backend Backend, opts ...Option) *Submitter {
	s := &Submitter{backend: backend, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// InFlight reports whether a submission is running.
func (s *Submitter) InFlight() bool { return s.inFlight.Load() }

// Submit places c as an order. On success the cart is cleared; on any error
// it is left as is.
func (s *Submitter) Submit(ctx context.Context, c *cart.Cart, sub Submission) (*Confirmation, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer s.inFlight.Store(false)

	req, err := s.Prepare(c, sub)
	if err != nil {
		return nil, err
	}

	lg := zctx.From(ctx).With(zap.String("cart", c.Key()))
	conf, err := s.backend.PlaceOrder(ctx, req)
	if err != nil {
		err = classify(err)
		lg.Warn("Order submission failed", zap.Error(err))
		return nil, err
	}

	c.Clear()
	lg.Info("Order submitted", zap.String("order_id", conf.OrderID))
	return conf, nil
}

// Prepare validates the cart and submission and builds the order request
// without sending it.
func (s *Submitter) Prepare(c *cart.Cart, sub Submission) (order.PlaceOrderRequest, error) {
	items := c.Items()
	if len(items) == 0 {
		return order.PlaceOrderRequest{}, order.ErrEmptyItems
	}

	var v validation.Validator
	sub.Customer.Validate(&v)
	sub.Shipping.Validate(&v, sub.Customer)
	if sub.Payment.Token == "" {
		v.Card("card.", sub.Payment.Card, s.now())
	}
	if err := v.Err(); err != nil {
		return order.PlaceOrderRequest{}, err
	}

	lines := make([]order.LineRequest, len(items))
	for i, it := range items {
		lines[i] = order.LineRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Size:      it.Size,
		}
	}
	quote := c.Totals().Rounded()
	return order.PlaceOrderRequest{
		Items:            lines,
		Customer:         sub.Customer,
		Shipping:         sub.Shipping,
		PaymentReference: sub.Payment.Reference(),
		Quote:            &quote,
	}, nil
}

// classify passes domain rejections through and turns everything else into
// a *SubmissionError. Errors of unknown origin are treated as ambiguous.
func classify(err error) error {
	var (
		subErr *SubmissionError
		verr   *validation.Error
		oos    *stock.OutOfStockError
		pnf    *order.ProductNotFoundError
		iq     *order.InvalidQuantityError
	)
	switch {
	case errors.As(err, &subErr),
		errors.As(err, &verr),
		errors.As(err, &oos),
		errors.As(err, &pnf),
		errors.As(err, &iq),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, product.ErrNotFound):
		return err
	}
	return &SubmissionError{Outcome: OutcomeUnknown, Err: err}
}
