package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/address"
)

const (
	addressColumns = `id, user_id, full_name, address1, address2, city, state, postal_code,
		country, phone_number, is_default, created_at`

	listAddressesSQL = `SELECT ` + addressColumns + ` FROM addresses
		WHERE user_id = $1 ORDER BY is_default DESC, created_at, id`

	getAddressSQL = `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 AND id = $2`

	createAddressSQL = `INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	// Serializes default changes per user inside a transaction.
	lockAddressBookSQL = `SELECT pg_advisory_xact_lock(hashtext('addresses:' || $1))`

	hasAddressesSQL = `SELECT EXISTS (SELECT 1 FROM addresses WHERE user_id = $1)`

	clearDefaultSQL = `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`

	setDefaultSQL = `UPDATE addresses SET is_default = TRUE WHERE user_id = $1 AND id = $2`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
// A partial unique index keeps at most one default address per user.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// ListByUser returns the user's addresses, the default first.
func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	addresses, err := pgx.CollectRows(rows, scanAddress)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	return addresses, nil
}

// Get returns the address id owned by userID, or address.ErrNotFound.
func (r *AddressRepository) Get(ctx context.Context, userID, id string) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressSQL, userID, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get address %q", id)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get address %q", id)
	}
	return &a, nil
}

// Create stores a. The first address of a user always becomes the default.
func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockAddressBookSQL, a.UserID); err != nil {
			return errors.Wrap(err, "lock address book")
		}
		var exists bool
		if err := tx.QueryRow(ctx, hasAddressesSQL, a.UserID).Scan(&exists); err != nil {
			return errors.Wrap(err, "count addresses")
		}
		if !exists {
			a.IsDefault = true
		}
		if a.IsDefault {
			if _, err := tx.Exec(ctx, clearDefaultSQL, a.UserID); err != nil {
				return errors.Wrap(err, "clear default address")
			}
		}

		if _, err := tx.Exec(ctx, createAddressSQL,
			a.ID, a.UserID, a.FullName, a.Address1, a.Address2, a.City, a.State, a.PostalCode,
			a.Country, a.PhoneNumber, a.IsDefault, a.CreatedAt,
		); err != nil {
			return errors.Wrapf(err, "insert address %q", a.ID)
		}
		return nil
	})
}

// SetDefault makes id the user's only default address.
func (r *AddressRepository) SetDefault(ctx context.Context, userID, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockAddressBookSQL, userID); err != nil {
			return errors.Wrap(err, "lock address book")
		}
		if _, err := tx.Exec(ctx, clearDefaultSQL, userID); err != nil {
			return errors.Wrap(err, "clear default address")
		}
		tag, err := tx.Exec(ctx, setDefaultSQL, userID, id)
		if err != nil {
			return errors.Wrapf(err, "set default address %q", id)
		}
		if tag.RowsAffected() == 0 {
			return address.ErrNotFound
		}
		return nil
	})
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.FullName, &a.Address1, &a.Address2, &a.City, &a.State, &a.PostalCode,
		&a.Country, &a.PhoneNumber, &a.IsDefault, &a.CreatedAt,
	)
	return a, err
}
