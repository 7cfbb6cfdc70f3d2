// Package stock decides whether requested quantities can be served from
// product inventory. The same rules run in the cart (advisory) and at order
// creation (authoritative, against live stock).
package stock

import (
	"fmt"

	"github.com/xenking/storefront/internal/domain/product"
)

// OutOfStockError identifies the product and size that cannot be fulfilled.
type OutOfStockError struct {
	ProductID string
	Size      string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	if e.Size != "" {
		return fmt.Sprintf("product %s size %s: requested %d, available %d", e.ProductID, e.Size, e.Requested, e.Available)
	}
	return fmt.Sprintf("product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Available returns the stock that can serve size. Sized products are read
// per matching size entry only; an unknown size has no stock.
func Available(p *product.Product, size string) int {
	if !p.HasSizes {
		return p.Stock
	}
	s, ok := p.Size(size)
	if !ok {
		return 0
	}
	return s.Stock
}

// CanFulfill reports whether qty units of size can be served. Sized products
// always need a size.
func CanFulfill(p *product.Product, qty int, size string) bool {
	if p.HasSizes && size == "" {
		return false
	}
	return qty <= Available(p, size)
}

// Check is CanFulfill returning an *OutOfStockError on failure.
func Check(p *product.Product, qty int, size string) error {
	if CanFulfill(p, qty, size) {
		return nil
	}
	return &OutOfStockError{
		ProductID: p.ID,
		Size:      size,
		Requested: qty,
		Available: Available(p, size),
	}
}
