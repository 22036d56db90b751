// Package memory is the in-process snapshot store used by tests and by the
// seed and demo modes. It honors the same contract as the postgres store:
// atomic transitions, idempotent event appends, and a single active
// snapshot per kind.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

// Store keeps the whole ledger in memory behind one mutex.
type Store struct {
	mu        sync.Mutex
	stock     []domain.StockRecord
	balances  []domain.BalanceSnapshot
	events    []domain.Event
	seenIDs   map[string]struct{}
	catalog   []domain.CatalogEntry
	customers []domain.Customer
}

// New returns an empty store.
func New() *Store {
	return &Store{seenIDs: map[string]struct{}{}}
}

var _ domain.SnapshotStore = (*Store)(nil)

// Catalog returns the catalog view of the store.
func (s *Store) Catalog() domain.CatalogStore { return catalogStore{s} }

// Customers returns the customer-roster view of the store.
func (s *Store) Customers() domain.CustomerStore { return customerStore{s} }

func (s *Store) ReadActiveStock(ctx context.Context) (domain.StockSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.StockSnapshot{Items: map[string]domain.StockItem{}}
	for _, rec := range s.stock {
		if !rec.Active {
			continue
		}
		if snap.Date == "" {
			snap.Date, snap.Phase = rec.Date, rec.Phase
		} else if snap.Date != rec.Date || snap.Phase != rec.Phase {
			return domain.StockSnapshot{}, domain.ErrStoreInconsistent
		}
		snap.Items[rec.Name] = domain.StockItem{Quantity: rec.Quantity, Price: rec.Price}
		snap.Records = append(snap.Records, rec)
	}
	return snap, nil
}

func (s *Store) ReadActiveBalance(ctx context.Context) (domain.BalanceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *domain.BalanceSnapshot
	for i := range s.balances {
		if !s.balances[i].Active {
			continue
		}
		if found != nil {
			return domain.BalanceSnapshot{}, domain.ErrStoreInconsistent
		}
		found = &s.balances[i]
	}
	if found == nil {
		return domain.BalanceSnapshot{}, domain.ErrNotFound
	}
	return *found, nil
}

func (s *Store) ReadEvents(ctx context.Context, date string) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Event
	for _, ev := range s.events {
		if date == "" || ev.Time.Format("2006-01-02") == date {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (s *Store) CommitTransition(ctx context.Context, t domain.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deactivate := make(map[string]struct{}, len(t.DeactivateStockIDs))
	for _, id := range t.DeactivateStockIDs {
		deactivate[id] = struct{}{}
	}
	for i := range s.stock {
		if _, ok := deactivate[s.stock[i].ID]; ok {
			s.stock[i].Active = false
		}
	}
	s.stock = append(s.stock, t.NewStock...)

	if t.DeactivateBalanceID != "" {
		for i := range s.balances {
			if s.balances[i].ID == t.DeactivateBalanceID {
				s.balances[i].Active = false
			}
		}
	}
	s.balances = append(s.balances, t.NewBalance)
	return nil
}

func (s *Store) AppendEvents(ctx context.Context, events []domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range events {
		if _, dup := s.seenIDs[ev.ID]; dup {
			continue
		}
		s.seenIDs[ev.ID] = struct{}{}
		s.events = append(s.events, ev)
	}
	return nil
}

type catalogStore struct{ s *Store }

func (c catalogStore) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := make([]domain.CatalogEntry, len(c.s.catalog))
	copy(out, c.s.catalog)
	return out, nil
}

// Put upserts entries by product name.
func (c catalogStore) Put(ctx context.Context, entries []domain.CatalogEntry) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	byName := make(map[string]int, len(c.s.catalog))
	for i, e := range c.s.catalog {
		byName[e.Name] = i
	}
	for _, e := range entries {
		if i, ok := byName[e.Name]; ok {
			c.s.catalog[i] = e
		} else {
			byName[e.Name] = len(c.s.catalog)
			c.s.catalog = append(c.s.catalog, e)
		}
	}
	return nil
}

type customerStore struct{ s *Store }

func (c customerStore) List(ctx context.Context) ([]domain.Customer, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := make([]domain.Customer, len(c.s.customers))
	copy(out, c.s.customers)
	return out, nil
}

func (c customerStore) Put(ctx context.Context, customers []domain.Customer) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	byID := make(map[string]int, len(c.s.customers))
	for i, cu := range c.s.customers {
		byID[cu.ID] = i
	}
	for _, cu := range customers {
		if i, ok := byID[cu.ID]; ok {
			c.s.customers[i] = cu
		} else {
			byID[cu.ID] = len(c.s.customers)
			c.s.customers = append(c.s.customers, cu)
		}
	}
	return nil
}
