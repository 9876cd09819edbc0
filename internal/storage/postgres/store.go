package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/bazaar-checkout/internal/domain/store"
)

const (
	getStoreByIDSQL = `SELECT id, owner_id, name, street, city, state, pin_code, active
		FROM stores WHERE id = $1`

	upsertStoreSQL = `INSERT INTO stores (id, owner_id, name, street, city, state, pin_code, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET owner_id = EXCLUDED.owner_id, name = EXCLUDED.name,
			street = EXCLUDED.street, city = EXCLUDED.city, state = EXCLUDED.state,
			pin_code = EXCLUDED.pin_code, active = EXCLUDED.active`
)

var _ store.Repository = (*StoreRepository)(nil)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	q querier
}

// NewStoreRepository returns a StoreRepository that uses q, either a pool or
// a transaction.
func NewStoreRepository(q querier) *StoreRepository {
	return &StoreRepository{q: q}
}

// FindByID returns the store with the given id.
func (r *StoreRepository) FindByID(ctx context.Context, id string) (*store.Store, error) {
	rows, err := r.q.Query(ctx, getStoreByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting store %q: %w", id, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (store.Store, error) {
		var s store.Store
		err := row.Scan(&s.ID, &s.OwnerID, &s.Name,
			&s.Address.Street, &s.Address.City, &s.Address.State, &s.Address.PinCode, &s.Active)
		return s, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("getting store %q: %w", id, err)
	}
	return &s, nil
}

// Upsert inserts or replaces a store.
func (r *StoreRepository) Upsert(ctx context.Context, s store.Store) error {
	_, err := r.q.Exec(ctx, upsertStoreSQL, s.ID, s.OwnerID, s.Name,
		s.Address.Street, s.Address.City, s.Address.State, s.Address.PinCode, s.Active)
	if err != nil {
		return fmt.Errorf("upserting store %q: %w", s.ID, err)
	}
	return nil
}
