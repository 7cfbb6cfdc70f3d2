package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/contact"
)

const (
	getContactSQL = `SELECT user_id, name, email, updated_at FROM user_contacts WHERE user_id = $1`

	saveContactSQL = `INSERT INTO user_contacts (user_id, name, email, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, updated_at = EXCLUDED.updated_at`
)

var _ contact.Repository = (*ContactRepository)(nil)

// ContactRepository implements contact.Repository backed by PostgreSQL.
type ContactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository returns a ContactRepository that uses the given pool.
func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

// Get returns the contact of userID, or contact.ErrNotFound.
func (r *ContactRepository) Get(ctx context.Context, userID string) (*contact.Contact, error) {
	rows, err := r.pool.Query(ctx, getContactSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "get contact %q", userID)
	}
	c, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[contact.Contact])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contact.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get contact %q", userID)
	}
	return &c, nil
}

// Save creates or replaces the contact of c.UserID.
func (r *ContactRepository) Save(ctx context.Context, c *contact.Contact) error {
	if _, err := r.pool.Exec(ctx, saveContactSQL, c.UserID, c.Name, c.Email, c.UpdatedAt); err != nil {
		return errors.Wrapf(err, "save contact %q", c.UserID)
	}
	return nil
}
