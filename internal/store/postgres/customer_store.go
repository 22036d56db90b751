package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

// CustomerStore implements domain.CustomerStore using PostgreSQL.
type CustomerStore struct {
	pool *pgxpool.Pool
}

func NewCustomerStore(pool *pgxpool.Pool) *CustomerStore {
	return &CustomerStore{pool: pool}
}

var _ domain.CustomerStore = (*CustomerStore)(nil)

func (s *CustomerStore) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, segment, sugar, health, caffeine, hunger, price_sensitivity
		FROM customers
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Segment, &c.Prefs.Sugar, &c.Prefs.Health,
			&c.Prefs.Caffeine, &c.Prefs.Hunger, &c.Prefs.PriceSensitivity); err != nil {
			return nil, fmt.Errorf("postgres: scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// Put upserts customers by ID.
func (s *CustomerStore) Put(ctx context.Context, customers []domain.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO customers (id, segment, sugar, health, caffeine, hunger, price_sensitivity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			segment = EXCLUDED.segment,
			sugar = EXCLUDED.sugar,
			health = EXCLUDED.health,
			caffeine = EXCLUDED.caffeine,
			hunger = EXCLUDED.hunger,
			price_sensitivity = EXCLUDED.price_sensitivity`
	for _, c := range customers {
		batch.Queue(query, c.ID, c.Segment, c.Prefs.Sugar, c.Prefs.Health,
			c.Prefs.Caffeine, c.Prefs.Hunger, c.Prefs.PriceSensitivity)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range customers {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert customer %d: %w", i, err)
		}
	}
	return nil
}
