package order

import (
	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/validation"
)

// LineRequest is a requested quantity of a product in a size.
type LineRequest struct {
	ProductID string
	Quantity  int
	Size      string
}

// ShippingRequest points at a saved address or carries an inline one.
// Guests must use an inline address.
type ShippingRequest struct {
	AddressID string
	Address   *address.Address
}

// Validate records problems with the shipping choice of customer c on v and
// reports whether the request is usable. Saved addresses are not looked up.
func (r ShippingRequest) Validate(v *validation.Validator, c Customer) bool {
	switch {
	case r.AddressID != "" && r.Address != nil:
		v.Fail("shipping", "must be either a saved address or an inline address")
	case r.AddressID != "":
		if c.UserID == "" {
			v.Fail("shipping.addressId", "saved addresses require a signed-in user")
			return false
		}
		return true
	case r.Address != nil:
		before := v.Len()
		r.Address.Validate(v, "shipping.")
		return v.Len() == before
	default:
		v.Fail("shipping", "is required")
	}
	return false
}

// Validate records problems with the customer identity on v. A user needs
// no contact fields; a guest needs a name, an email and, optionally, a phone.
func (c Customer) Validate(v *validation.Validator) {
	switch {
	case c.UserID != "" && c.Guest != nil:
		v.Fail("customer", "must be either a user or a guest")
	case c.UserID != "":
	case c.Guest != nil:
		v.Name("guest.name", c.Guest.Name)
		v.Email("guest.email", c.Guest.Email)
		v.Phone("guest.phone", c.Guest.Phone)
	default:
		v.Fail("customer", "is required")
	}
}
