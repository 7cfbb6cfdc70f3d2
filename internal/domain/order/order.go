package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/pricing"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict is returned when the stored status changed between
	// reading an order and updating it.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// Order is a placed order. Only Status and TrackingNumber change after
// creation.
type Order struct {
	ID    string
	Items []Item

	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal

	Status         Status
	TrackingNumber string

	Customer         Customer
	ShippingAddress  address.Address
	PaymentReference string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Totals returns the stored price breakdown.
func (o *Order) Totals() pricing.Totals {
	return pricing.Totals{
		Subtotal: o.Subtotal,
		Shipping: o.Shipping,
		Tax:      o.Tax,
		Total:    o.Total,
	}
}

// Item is a line of an order with the product name and price frozen at
// placement time.
type Item struct {
	ProductID          string
	Name               string
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	Quantity           int
	Size               string
}

// Line returns the pricing view of the item.
func (i Item) Line() pricing.Line {
	return pricing.Line{
		UnitPrice:          i.UnitPrice,
		Quantity:           i.Quantity,
		DiscountPercentage: i.DiscountPercentage,
	}
}

// Customer identifies who placed an order: either an authenticated user or
// a guest, never both.
type Customer struct {
	UserID string
	Guest  *Guest
}

// Guest holds the contact details of an unauthenticated shopper.
type Guest struct {
	Name  string
	Email string
	Phone string
}

// Filter narrows order listings. Empty fields match everything.
type Filter struct {
	UserID string
	Email  string
	// OrderID names one order placed with Email. Service.List requires it
	// for guest lookups; repositories do not filter on it.
	OrderID string
	Status  Status
	// Limit caps the number of orders returned, newest first. Zero means
	// the repository default.
	Limit int
}

// StatusChange is a compare-and-set status update.
type StatusChange struct {
	OrderID        string
	From           Status
	To             Status
	TrackingNumber string
	// Restock returns the order's quantities to inventory in the same
	// transaction.
	Restock bool
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores o and decrements stock for its items atomically. When
	// stock no longer covers an item, nothing is stored and a
	// *stock.OutOfStockError is returned.
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, filter Filter) ([]Order, error)
	// UpdateStatus applies change if the order is still in change.From and
	// returns the updated order. Otherwise it returns ErrStatusConflict.
	UpdateStatus(ctx context.Context, change StatusChange) (*Order, error)
}
