// Package contact holds how signed-in customers want to be reached about
// their orders.
package contact

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/validation"
)

// ErrNotFound is returned when a user has not saved contact details.
var ErrNotFound = errors.New("contact not found")

// Contact is the notification address of one user.
type Contact struct {
	UserID    string
	Name      string
	Email     string
	UpdatedAt time.Time
}

// Validate records every failing field of c on v. The name is optional.
func (c *Contact) Validate(v *validation.Validator) {
	if c.Name != "" {
		v.Name("name", c.Name)
	}
	v.Email("email", c.Email)
}

// Repository stores one Contact per user.
type Repository interface {
	Get(ctx context.Context, userID string) (*Contact, error)
	Save(ctx context.Context, c *Contact) error
}
