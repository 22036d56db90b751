package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

var _ domain.SnapshotStore = (*SnapshotStore)(nil)

// ReadActiveStock returns the active stock snapshot. Active rows belonging
// to more than one (day, phase) pair mean two snapshots are live at once,
// which is reported as ErrStoreInconsistent rather than silently merged.
func (s *SnapshotStore) ReadActiveStock(ctx context.Context) (domain.StockSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, quantity, price, day, phase
		FROM stock_records
		WHERE active
		ORDER BY name`)
	if err != nil {
		return domain.StockSnapshot{}, fmt.Errorf("postgres: read active stock: %w", err)
	}
	defer rows.Close()

	snap := domain.StockSnapshot{Items: map[string]domain.StockItem{}}
	for rows.Next() {
		rec := domain.StockRecord{Active: true}
		var phase string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Quantity, &rec.Price, &rec.Date, &phase); err != nil {
			return domain.StockSnapshot{}, fmt.Errorf("postgres: scan stock record: %w", err)
		}
		rec.Phase = domain.Phase(phase)

		if snap.Date == "" {
			snap.Date, snap.Phase = rec.Date, rec.Phase
		} else if snap.Date != rec.Date || snap.Phase != rec.Phase {
			return domain.StockSnapshot{}, fmt.Errorf("postgres: active stock spans %s/%s and %s/%s: %w",
				snap.Date, snap.Phase, rec.Date, rec.Phase, domain.ErrStoreInconsistent)
		}
		snap.Items[rec.Name] = domain.StockItem{Quantity: rec.Quantity, Price: rec.Price}
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return domain.StockSnapshot{}, fmt.Errorf("postgres: read active stock: %w", err)
	}
	return snap, nil
}

// ReadActiveBalance returns the single active balance row.
func (s *SnapshotStore) ReadActiveBalance(ctx context.Context) (domain.BalanceSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, balance, day, phase
		FROM balance_snapshots
		WHERE active`)
	if err != nil {
		return domain.BalanceSnapshot{}, fmt.Errorf("postgres: read active balance: %w", err)
	}
	defer rows.Close()

	var (
		found bool
		bal   domain.BalanceSnapshot
	)
	for rows.Next() {
		if found {
			return domain.BalanceSnapshot{}, fmt.Errorf("postgres: active balance: %w", domain.ErrStoreInconsistent)
		}
		var phase string
		if err := rows.Scan(&bal.ID, &bal.Balance, &bal.Date, &phase); err != nil {
			return domain.BalanceSnapshot{}, fmt.Errorf("postgres: scan balance: %w", err)
		}
		bal.Phase = domain.Phase(phase)
		bal.Active = true
		found = true
	}
	if err := rows.Err(); err != nil {
		return domain.BalanceSnapshot{}, fmt.Errorf("postgres: read active balance: %w", err)
	}
	if !found {
		return domain.BalanceSnapshot{}, fmt.Errorf("postgres: active balance: %w", domain.ErrNotFound)
	}
	return bal, nil
}

// ReadEvents returns the ledger for one simulated day, ordered by simulated
// time. An empty date returns the whole ledger.
func (s *SnapshotStore) ReadEvents(ctx context.Context, date string) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, ts, type, title, price, customer_id
		FROM events
		WHERE $1 = '' OR day = $1
		ORDER BY ts, id`, date)
	if err != nil {
		return nil, fmt.Errorf("postgres: read events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var typ string
		if err := rows.Scan(&ev.ID, &ev.Time, &typ, &ev.Title, &ev.Price, &ev.Customer); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		ev.Type = domain.EventType(typ)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CommitTransition deactivates and activates snapshot rows in a single
// transaction.
func (s *SnapshotStore) CommitTransition(ctx context.Context, t domain.Transition) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(t.DeactivateStockIDs) > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE stock_records SET active = FALSE WHERE id = ANY($1)`,
			t.DeactivateStockIDs,
		); err != nil {
			return fmt.Errorf("postgres: deactivate stock: %w", err)
		}
	}
	if t.DeactivateBalanceID != "" {
		if _, err := tx.Exec(ctx,
			`UPDATE balance_snapshots SET active = FALSE WHERE id = $1`,
			t.DeactivateBalanceID,
		); err != nil {
			return fmt.Errorf("postgres: deactivate balance: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, rec := range t.NewStock {
		batch.Queue(`
			INSERT INTO stock_records (id, name, quantity, price, day, phase, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, rec.Name, rec.Quantity, rec.Price, rec.Date, string(rec.Phase), rec.Active,
		)
	}
	if len(t.NewStock) > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := range t.NewStock {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("postgres: insert stock record %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close stock batch: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO balance_snapshots (id, balance, day, phase, active)
		VALUES ($1, $2, $3, $4, $5)`,
		t.NewBalance.ID, t.NewBalance.Balance, t.NewBalance.Date,
		string(t.NewBalance.Phase), t.NewBalance.Active,
	); err != nil {
		return fmt.Errorf("postgres: insert balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit transition: %w", err)
	}
	return nil
}

// AppendEvents appends the batch. Replayed events (same ID) are skipped via
// ON CONFLICT DO NOTHING, making the append idempotent.
func (s *SnapshotStore) AppendEvents(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO events (id, ts, day, type, title, price, customer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`
	for _, ev := range events {
		batch.Queue(query,
			ev.ID, ev.Time, ev.Time.Format("2006-01-02"),
			string(ev.Type), ev.Title, ev.Price, ev.Customer,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: append event %d: %w", i, err)
		}
	}
	return nil
}
