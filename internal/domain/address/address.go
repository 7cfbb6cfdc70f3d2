// Package address models saved shipping addresses.
package address

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/validation"
)

// ErrNotFound is returned when an address does not exist or belongs to a
// different user.
var ErrNotFound = errors.New("address not found")

// DefaultCountry is used when an address carries no country.
const DefaultCountry = "US"

// Address is the one shipping address shape used for saved addresses and
// for inline guest snapshots alike.
type Address struct {
	ID          string
	UserID      string
	FullName    string
	Address1    string
	Address2    string
	City        string
	State       string
	PostalCode  string
	Country     string
	PhoneNumber string
	IsDefault   bool
	CreatedAt   time.Time
}

// Validate records every failing field of a on v. Field names are prefixed
// with prefix.
func (a *Address) Validate(v *validation.Validator, prefix string) {
	v.Name(prefix+"fullName", a.FullName)
	v.MinLength(prefix+"address1", a.Address1, validation.MinAddressLength)
	v.Required(prefix+"city", a.City)
	v.Required(prefix+"state", a.State)
	v.Zip(prefix+"postalCode", a.PostalCode)
	v.Phone(prefix+"phoneNumber", a.PhoneNumber)
}

// Snapshot returns a copy detached from the address book, suitable for
// embedding in an order.
func (a Address) Snapshot() Address {
	a.ID = ""
	a.UserID = ""
	a.IsDefault = false
	a.CreatedAt = time.Time{}
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

// Repository persists address books. At most one address per user is the
// default.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Address, error)
	Get(ctx context.Context, userID, id string) (*Address, error)
	// Create stores a. When a.IsDefault is set, or the user has no
	// addresses yet, it becomes the only default.
	Create(ctx context.Context, a *Address) error
	SetDefault(ctx context.Context, userID, id string) error
}
