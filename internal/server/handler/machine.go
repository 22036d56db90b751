// Package handler contains the read-only status API handlers: active
// snapshots, the event ledger, and health.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

// MachineHandler serves the machine state endpoints backed by the snapshot
// store.
type MachineHandler struct {
	store  domain.SnapshotStore
	logger *slog.Logger
}

// NewMachineHandler creates a MachineHandler.
func NewMachineHandler(store domain.SnapshotStore, logger *slog.Logger) *MachineHandler {
	return &MachineHandler{
		store:  store,
		logger: logger.With(slog.String("handler", "machine")),
	}
}

type stockItemResponse struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// GetActiveStock responds with the single active stock snapshot.
// GET /api/stock/active
func (h *MachineHandler) GetActiveStock(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.ReadActiveStock(r.Context())
	if err != nil {
		h.fail(w, r, "read active stock", err)
		return
	}

	items := make([]stockItemResponse, 0, len(snap.Items))
	for _, name := range snap.Names() {
		it := snap.Items[name]
		items = append(items, stockItemResponse{Name: name, Quantity: it.Quantity, Price: it.Price})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  snap.Date,
		"phase": snap.Phase,
		"items": items,
	})
}

// GetActiveBalance responds with the single active balance snapshot.
// GET /api/balance/active
func (h *MachineHandler) GetActiveBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.store.ReadActiveBalance(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no balance snapshot yet")
			return
		}
		h.fail(w, r, "read active balance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": bal.Balance,
		"date":    bal.Date,
		"phase":   bal.Phase,
	})
}

// ListEvents responds with the ledger for one simulated day, or the whole
// ledger when no date is given.
// GET /api/events?date=YYYY-MM-DD
func (h *MachineHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	events, err := h.store.ReadEvents(r.Context(), date)
	if err != nil {
		h.fail(w, r, "read events", err)
		return
	}

	type eventResponse struct {
		ID       string  `json:"id"`
		Time     string  `json:"time"`
		Type     string  `json:"type"`
		Title    string  `json:"title"`
		Price    float64 `json:"price,omitempty"`
		Customer string  `json:"customer,omitempty"`
	}
	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, eventResponse{
			ID:       ev.ID,
			Time:     ev.Time.Format("2006-01-02 15:04:05"),
			Type:     string(ev.Type),
			Title:    ev.Title,
			Price:    ev.Price,
			Customer: ev.Customer,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "events": out})
}

func (h *MachineHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, domain.ErrStoreInconsistent) {
		h.logger.ErrorContext(r.Context(), op, slog.String("error", err.Error()))
		writeError(w, http.StatusConflict, "snapshot store inconsistent")
		return
	}
	h.logger.ErrorContext(r.Context(), op, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "store unavailable")
}
