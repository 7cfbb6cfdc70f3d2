package postgres

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/stock"
)

// DefaultListLimit caps order listings that do not set a limit.
const DefaultListLimit = 100

const (
	orderColumns = `id, status, tracking_number, user_id, guest_name, guest_email, guest_phone,
		ship_full_name, ship_address1, ship_address2, ship_city, ship_state, ship_postal_code,
		ship_country, ship_phone_number, payment_reference, subtotal, shipping, tax, total,
		created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listItemsSQL = `SELECT order_id, product_id, name, unit_price, discount_percentage, quantity, size
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`

	takeStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND NOT has_sizes AND stock >= $2`

	takeSizeStockSQL = `UPDATE product_sizes SET stock = stock - $3
		WHERE product_id = $1 AND size = $2 AND stock >= $3`

	stockSQL = `SELECT stock FROM products WHERE id = $1 AND NOT has_sizes`

	sizeStockSQL = `SELECT stock FROM product_sizes WHERE product_id = $1 AND size = $2`

	returnStockSQL = `UPDATE products SET stock = stock + $2 WHERE id = $1`

	returnSizeStockSQL = `UPDATE product_sizes SET stock = stock + $3 WHERE product_id = $1 AND size = $2`

	updateStatusSQL = `UPDATE orders SET status = $3, tracking_number = $4, updated_at = now()
		WHERE id = $1 AND status = $2`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

var itemColumns = []string{
	"order_id", "position", "product_id", "name", "unit_price", "discount_percentage", "quantity", "size",
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create stores o and takes its quantities out of inventory in one
// transaction. Every decrement is guarded by the live stock level, so two
// concurrent orders can never oversell; the loser gets a
// *stock.OutOfStockError and nothing is written.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, it := range lockOrder(o.Items) {
			if err := takeStock(ctx, tx, it); err != nil {
				return err
			}
		}

		var guest order.Guest
		if o.Customer.Guest != nil {
			guest = *o.Customer.Guest
		}
		a := o.ShippingAddress
		if _, err := tx.Exec(ctx, createOrderSQL,
			o.ID, string(o.Status), o.TrackingNumber, o.Customer.UserID, guest.Name, guest.Email, guest.Phone,
			a.FullName, a.Address1, a.Address2, a.City, a.State, a.PostalCode, a.Country, a.PhoneNumber,
			o.PaymentReference, o.Subtotal, o.Shipping, o.Tax, o.Total, o.CreatedAt, o.UpdatedAt,
		); err != nil {
			return errors.Wrapf(err, "insert order %q", o.ID)
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"order_items"}, itemColumns,
			pgx.CopyFromSlice(len(o.Items), func(i int) ([]any, error) {
				it := o.Items[i]
				return []any{o.ID, i, it.ProductID, it.Name, it.UnitPrice, it.DiscountPercentage, it.Quantity, it.Size}, nil
			}),
		); err != nil {
			return errors.Wrapf(err, "insert items of order %q", o.ID)
		}
		return nil
	})
}

// lockOrder returns items sorted by product and size so that concurrent
// transactions lock stock rows in the same order.
func lockOrder(items []order.Item) []order.Item {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b order.Item) int {
		return cmp.Or(cmp.Compare(a.ProductID, b.ProductID), cmp.Compare(a.Size, b.Size))
	})
	return sorted
}

func takeStock(ctx context.Context, tx pgx.Tx, it order.Item) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if it.Size != "" {
		tag, err = tx.Exec(ctx, takeSizeStockSQL, it.ProductID, it.Size, it.Quantity)
	} else {
		tag, err = tx.Exec(ctx, takeStockSQL, it.ProductID, it.Quantity)
	}
	if err != nil {
		return errors.Wrapf(err, "take stock of %q", it.ProductID)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	available, err := liveStock(ctx, tx, it.ProductID, it.Size)
	if err != nil {
		return err
	}
	return &stock.OutOfStockError{
		ProductID: it.ProductID,
		Size:      it.Size,
		Requested: it.Quantity,
		Available: available,
	}
}

// liveStock reads the current stock for a product or size. Unknown rows
// have no stock.
func liveStock(ctx context.Context, q execer, productID, size string) (int, error) {
	var row pgx.Row
	if size != "" {
		row = q.QueryRow(ctx, sizeStockSQL, productID, size)
	} else {
		row = q.QueryRow(ctx, stockSQL, productID)
	}
	var n int
	if err := row.Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "read stock of %q", productID)
	}
	return n, nil
}

// Get returns a single order or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return getOrder(ctx, r.pool, id)
}

func getOrder(ctx context.Context, q execer, id string) (*order.Order, error) {
	rows, err := q.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	orders := []order.Order{o}
	if err := attachItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns orders matching filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	query, args := listOrdersQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if err := attachItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func listOrdersQuery(filter order.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.UserID != "" {
		where = append(where, "user_id = "+arg(filter.UserID))
	}
	if filter.Email != "" {
		where = append(where, "lower(guest_email) = lower("+arg(filter.Email)+")")
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var b strings.Builder
	b.WriteString("SELECT " + orderColumns + " FROM orders")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id LIMIT " + arg(limit))
	return b.String(), args
}

// UpdateStatus applies change only while the order is still in change.From.
// Cancellations flagged for restock return every item to inventory in the
// same transaction.
func (r *OrderRepository) UpdateStatus(ctx context.Context, change order.StatusChange) (*order.Order, error) {
	var updated *order.Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateStatusSQL, change.OrderID, string(change.From), string(change.To), change.TrackingNumber)
		if err != nil {
			return errors.Wrapf(err, "update status of order %q", change.OrderID)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, orderExistsSQL, change.OrderID).Scan(&exists); err != nil {
				return errors.Wrapf(err, "check order %q", change.OrderID)
			}
			if !exists {
				return order.ErrNotFound
			}
			return order.ErrStatusConflict
		}

		o, err := getOrder(ctx, tx, change.OrderID)
		if err != nil {
			return err
		}
		if change.Restock {
			for _, it := range lockOrder(o.Items) {
				if err := returnStock(ctx, tx, it); err != nil {
					return err
				}
			}
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func returnStock(ctx context.Context, tx pgx.Tx, it order.Item) error {
	var err error
	if it.Size != "" {
		_, err = tx.Exec(ctx, returnSizeStockSQL, it.ProductID, it.Size, it.Quantity)
	} else {
		_, err = tx.Exec(ctx, returnStockSQL, it.ProductID, it.Quantity)
	}
	if err != nil {
		return errors.Wrapf(err, "return stock of %q", it.ProductID)
	}
	return nil
}

func attachItems(ctx context.Context, q execer, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := q.Query(ctx, listItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list order items")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID string
			it      order.Item
		)
		if err := rows.Scan(
			&orderID, &it.ProductID, &it.Name, &it.UnitPrice, &it.DiscountPercentage, &it.Quantity, &it.Size,
		); err != nil {
			return errors.Wrap(err, "scan order item")
		}
		o := &orders[index[orderID]]
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "list order items")
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
		guest  order.Guest
		a      = &o.ShippingAddress
	)
	err := row.Scan(
		&o.ID, &status, &o.TrackingNumber, &o.Customer.UserID, &guest.Name, &guest.Email, &guest.Phone,
		&a.FullName, &a.Address1, &a.Address2, &a.City, &a.State, &a.PostalCode,
		&a.Country, &a.PhoneNumber, &o.PaymentReference, &o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if o.Customer.UserID == "" {
		o.Customer.Guest = &guest
	}
	return o, nil
}
