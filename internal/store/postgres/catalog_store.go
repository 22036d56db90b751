package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

// CatalogStore implements domain.CatalogStore using PostgreSQL.
type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

var _ domain.CatalogStore = (*CatalogStore)(nil)

func (s *CatalogStore) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, sell_price, supplier_cost, w_sugar, w_health, w_caffeine
		FROM catalog
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list catalog: %w", err)
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		var e domain.CatalogEntry
		if err := rows.Scan(&e.Name, &e.SellPrice, &e.SupplierCost,
			&e.Weights.Sugar, &e.Weights.Health, &e.Weights.Caffeine); err != nil {
			return nil, fmt.Errorf("postgres: scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Put upserts entries by product name.
func (s *CatalogStore) Put(ctx context.Context, entries []domain.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO catalog (name, sell_price, supplier_cost, w_sugar, w_health, w_caffeine)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			sell_price = EXCLUDED.sell_price,
			supplier_cost = EXCLUDED.supplier_cost,
			w_sugar = EXCLUDED.w_sugar,
			w_health = EXCLUDED.w_health,
			w_caffeine = EXCLUDED.w_caffeine`
	for _, e := range entries {
		batch.Queue(query, e.Name, e.SellPrice, e.SupplierCost,
			e.Weights.Sugar, e.Weights.Health, e.Weights.Caffeine)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert catalog entry %d: %w", i, err)
		}
	}
	return nil
}
