package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	productColumns = `id, name, price, category, stock, has_sizes, discount_percentage, image`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE ($1 = '' OR category = $1) ORDER BY id`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	listSizesSQL = `SELECT product_id, size, stock FROM product_sizes
		WHERE product_id = ANY($1) ORDER BY product_id, position`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			stock = EXCLUDED.stock,
			has_sizes = EXCLUDED.has_sizes,
			discount_percentage = EXCLUDED.discount_percentage,
			image = EXCLUDED.image,
			updated_at = now()`

	deleteSizesSQL = `DELETE FROM product_sizes WHERE product_id = $1`

	insertSizeSQL = `INSERT INTO product_sizes (product_id, size, position, stock) VALUES ($1, $2, $3, $4)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
// Size variants live in product_sizes, keyed by product and ordered by
// position.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the catalog ordered by ID, narrowed to filter.Category when
// set.
func (r *ProductRepository) List(ctx context.Context, filter product.Filter) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, filter.Category)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	if err := r.attachSizes(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product or product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	products, err := r.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	if len(products) == 0 {
		return nil, product.ErrNotFound
	}
	return &products[0], nil
}

// GetByIDs returns the products matching ids. Unknown IDs are skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	if err := r.attachSizes(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// Upsert writes products in one transaction, replacing the size variants of
// every product it touches.
func (r *ProductRepository) Upsert(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, p := range products {
			b.Queue(upsertProductSQL,
				p.ID, p.Name, p.Price, p.Category, p.Stock, p.HasSizes, p.DiscountPercentage, p.Image,
			)
			b.Queue(deleteSizesSQL, p.ID)
			for i, s := range p.Sizes {
				b.Queue(insertSizeSQL, p.ID, s.Size, i, s.Stock)
			}
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return errors.Wrapf(err, "upsert %d products", len(products))
		}
		return nil
	})
}

func (r *ProductRepository) attachSizes(ctx context.Context, products []product.Product) error {
	var sized []string
	index := make(map[string]int, len(products))
	for i, p := range products {
		if p.HasSizes {
			sized = append(sized, p.ID)
			index[p.ID] = i
		}
	}
	if len(sized) == 0 {
		return nil
	}

	rows, err := r.pool.Query(ctx, listSizesSQL, sized)
	if err != nil {
		return errors.Wrap(err, "list product sizes")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			productID string
			s         product.SizeStock
		)
		if err := rows.Scan(&productID, &s.Size, &s.Stock); err != nil {
			return errors.Wrap(err, "scan product size")
		}
		p := &products[index[productID]]
		p.Sizes = append(p.Sizes, s)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "list product sizes")
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Price, &p.Category, &p.Stock, &p.HasSizes, &p.DiscountPercentage, &p.Image,
	)
	return p, err
}
