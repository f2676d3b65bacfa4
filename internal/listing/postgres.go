package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/backend-market/internal/lineitems"
)

// DB is the subset of pgxpool.Pool used by PostgresStore.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore reads listing snapshots from the listings table.
type PostgresStore struct {
	DB DB
}

const getListingSQL = `
SELECT title, price_amount, price_currency, unit_type,
       shipping_price_one_item, shipping_price_additional_items, updated_at
FROM listings
WHERE id = $1`

const upsertListingSQL = `
INSERT INTO listings (id, title, price_amount, price_currency, unit_type,
                      shipping_price_one_item, shipping_price_additional_items, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    price_amount = EXCLUDED.price_amount,
    price_currency = EXCLUDED.price_currency,
    unit_type = EXCLUDED.unit_type,
    shipping_price_one_item = EXCLUDED.shipping_price_one_item,
    shipping_price_additional_items = EXCLUDED.shipping_price_additional_items,
    updated_at = now()`

// Get implements Store.
func (s PostgresStore) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	if s.DB == nil {
		return Snapshot{}, errors.New("listing database not configured")
	}
	snap := Snapshot{ID: id}
	var unitType string
	err := s.DB.QueryRow(ctx, getListingSQL, id).Scan(
		&snap.Title,
		&snap.Price.Amount,
		&snap.Price.Currency,
		&unitType,
		&snap.ShippingPriceInSubunitsOneItem,
		&snap.ShippingPriceInSubunitsAdditionalItems,
		&snap.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("query listing %s: %w", id, err)
	}
	snap.UnitType = lineitems.UnitType(unitType)
	return snap, nil
}

// Upsert inserts or replaces a listing row.
func (s PostgresStore) Upsert(ctx context.Context, snap Snapshot) error {
	if s.DB == nil {
		return errors.New("listing database not configured")
	}
	_, err := s.DB.Exec(ctx, upsertListingSQL,
		snap.ID,
		snap.Title,
		snap.Price.Amount,
		snap.Price.Currency,
		string(snap.UnitType),
		snap.ShippingPriceInSubunitsOneItem,
		snap.ShippingPriceInSubunitsAdditionalItems,
	)
	if err != nil {
		return fmt.Errorf("upsert listing %s: %w", snap.ID, err)
	}
	return nil
}
