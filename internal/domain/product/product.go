package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Values of this
// type are always canonical: records in other shapes go through Decode first.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	// Stock is only meaningful when HasSizes is false.
	Stock    int
	HasSizes bool
	// Sizes is only meaningful when HasSizes is true.
	Sizes    []SizeStock
	Category string
	// DiscountPercentage is in [0, 100]; zero means no discount.
	DiscountPercentage decimal.Decimal
	Image              string
}

// SizeStock is the stock level of a single size variant.
type SizeStock struct {
	Size  string
	Stock int
}

// Size returns the size entry matching name exactly.
func (p *Product) Size(name string) (SizeStock, bool) {
	for _, s := range p.Sizes {
		if s.Size == name {
			return s, true
		}
	}
	return SizeStock{}, false
}

// Filter narrows catalog listings.
type Filter struct {
	Category string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
