// Package cart holds a shopper's line items for one browsing session.
//
// A Cart is owned by a single session. Mutations apply synchronously in call
// order; persistence runs in the background through an injected Store and
// never blocks or fails the caller.
package cart

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
)

// Store persists cart snapshots. Load returns nil data when nothing is
// stored under key.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Item is one distinct product and size combination. Price, name, image and
// discount are snapshots taken when the item was first added.
type Item struct {
	ProductID          string          `json:"productId"`
	Name               string          `json:"name"`
	UnitPrice          decimal.Decimal `json:"price"`
	Quantity           int             `json:"quantity"`
	Size               string          `json:"selectedSize,omitempty"`
	Image              string          `json:"image,omitempty"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
}

// Line returns the pricing view of the item.
func (i Item) Line() pricing.Line {
	return pricing.Line{
		UnitPrice:          i.UnitPrice,
		Quantity:           i.Quantity,
		DiscountPercentage: i.DiscountPercentage,
	}
}

func (i Item) matches(productID, size string) bool {
	return i.ProductID == productID && i.Size == size
}

// Cart is a session's ordered list of items.
type Cart struct {
	key   string
	lg    *zap.Logger
	saver *saver

	mu    sync.Mutex
	items []Item
}

// Open loads the cart stored under key. A missing snapshot yields an empty
// cart; so does an unreadable one, after logging the failure. The returned
// cart must be closed to flush pending writes.
func Open(ctx context.Context, key string, store Store) *Cart {
	lg := zctx.From(ctx).With(zap.String("cart", key))
	c := &Cart{
		key:   key,
		lg:    lg,
		saver: newSaver(context.WithoutCancel(ctx), key, store, lg),
	}

	data, err := store.Load(ctx, key)
	if err != nil {
		lg.Warn("Load cart failed, starting empty", zap.Error(err))
		return c
	}
	if len(data) == 0 {
		return c
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		lg.Warn("Decode cart failed, starting empty", zap.Error(err))
		return c
	}
	for _, it := range items {
		if it.ProductID == "" || it.Quantity < 1 {
			continue
		}
		if idx := c.find(it.ProductID, it.Size); idx >= 0 {
			c.items[idx].Quantity += it.Quantity
			continue
		}
		c.items = append(c.items, it)
	}
	return c
}

// Key returns the session key the cart persists under.
func (c *Cart) Key() string { return c.key }

// Add puts qty units of p in the cart, merging with an existing item of the
// same product and size. A non-positive qty counts as 1. The merged quantity
// must pass the stock check; on failure the cart is left unchanged and a
// *stock.OutOfStockError is returned. A size given for an unsized product is
// ignored.
func (c *Cart) Add(p *product.Product, qty int, size string) (Item, error) {
	if qty < 1 {
		qty = 1
	}
	if !p.HasSizes {
		size = ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.find(p.ID, size)
	want := qty
	if idx >= 0 {
		want += c.items[idx].Quantity
	}
	if err := stock.Check(p, want, size); err != nil {
		return Item{}, err
	}

	if idx >= 0 {
		c.items[idx].Quantity = want
	} else {
		c.items = append(c.items, Item{
			ProductID:          p.ID,
			Name:               p.Name,
			UnitPrice:          p.Price,
			Quantity:           qty,
			Size:               size,
			Image:              p.Image,
			DiscountPercentage: p.DiscountPercentage,
		})
		idx = len(c.items) - 1
	}
	c.persist()
	return c.items[idx], nil
}

// AddInput is Add with a free-text quantity, coerced with CoerceQuantity.
func (c *Cart) AddInput(p *product.Product, raw, size string) (Item, error) {
	return c.Add(p, CoerceQuantity(raw), size)
}

// UpdateQuantity replaces the quantity of the matching item. A quantity of
// zero or less removes it. Unknown items are ignored.
func (c *Cart) UpdateQuantity(productID, size string, qty int) {
	if qty <= 0 {
		c.Remove(productID, size)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.find(productID, size)
	if idx < 0 || c.items[idx].Quantity == qty {
		return
	}
	c.items[idx].Quantity = qty
	c.persist()
}

// UpdateQuantityInput is UpdateQuantity with a free-text quantity. Input that
// is not an integer is ignored.
func (c *Cart) UpdateQuantityInput(productID, size, raw string) {
	qty, ok := ParseQuantity(raw)
	if !ok {
		return
	}
	c.UpdateQuantity(productID, size, qty)
}

// UpdateQuantityChecked is UpdateQuantity that refuses increases p cannot
// serve. Decreases and removals always succeed.
func (c *Cart) UpdateQuantityChecked(p *product.Product, size string, qty int) error {
	if !p.HasSizes {
		size = ""
	}

	c.mu.Lock()
	idx := c.find(p.ID, size)
	current := 0
	if idx >= 0 {
		current = c.items[idx].Quantity
	}
	c.mu.Unlock()

	if idx >= 0 && qty > current {
		if err := stock.Check(p, qty, size); err != nil {
			return err
		}
	}
	c.UpdateQuantity(p.ID, size, qty)
	return nil
}

// Remove deletes the matching item, if any.
func (c *Cart) Remove(productID, size string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.find(productID, size)
	if idx < 0 {
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.persist()
}

// Clear empties the cart and persists the empty state.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.persist()
}

// Items returns a copy of the cart contents in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct items.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Count returns the total number of units across all items.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Totals prices the current items. An empty cart has zero totals.
func (c *Cart) Totals() pricing.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return pricing.Totals{}
	}
	lines := make([]pricing.Line, len(c.items))
	for i, it := range c.items {
		lines[i] = it.Line()
	}
	return pricing.Calculate(lines)
}

// Total is shorthand for Totals().Total.
func (c *Cart) Total() decimal.Decimal {
	return c.Totals().Total
}

// Close flushes the last snapshot and stops background persistence.
// Mutations after Close are kept in memory only.
func (c *Cart) Close() {
	c.saver.close()
}

func (c *Cart) find(productID, size string) int {
	for i, it := range c.items {
		if it.matches(productID, size) {
			return i
		}
	}
	return -1
}

// persist schedules a snapshot of the current items. Called with c.mu held.
func (c *Cart) persist() {
	items := c.items
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		c.lg.Error("Encode cart failed", zap.Error(err))
		return
	}
	c.saver.schedule(data)
}

// CoerceQuantity parses a free-text quantity, falling back to 1 for input
// that is not a positive integer.
func CoerceQuantity(raw string) int {
	n, ok := ParseQuantity(raw)
	if !ok || n < 1 {
		return 1
	}
	return n
}

// ParseQuantity parses a free-text integer quantity. Surrounding whitespace is
// allowed; anything else that is not an integer fails.
func ParseQuantity(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}
