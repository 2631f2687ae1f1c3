// Package inventory is the inventory adjustment service: atomic increment and
// decrement over the stock ledger, plus derived low-stock alerts.
package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/inventory-tracker/internal/eventbus"
	"github.com/fairyhunter13/inventory-tracker/internal/httpx"
	"github.com/fairyhunter13/inventory-tracker/internal/model"
	"github.com/fairyhunter13/inventory-tracker/internal/obs"
	"github.com/fairyhunter13/inventory-tracker/internal/storage"
)

type App struct {
	Store   storage.Ledger
	Events  eventbus.Publisher
	Metrics *obs.Metrics
}

func NewApp(store storage.Ledger, events eventbus.Publisher, m *obs.Metrics) *App {
	return &App{Store: store, Events: events, Metrics: m}
}

// NewRouter registers the inventory routes and returns the wrapped handler.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/inventory", app.inventoryHandler)
	mux.HandleFunc("/inventory/", app.getStockHandler)
	mux.HandleFunc("/restock", app.restockHandler)
	mux.HandleFunc("/restocks", app.listRestocksHandler)
	mux.HandleFunc("/alerts", app.alertsHandler)
	mux.HandleFunc("/health", httpx.Health("inventory"))
	mux.Handle("/metrics", app.Metrics.Handler())
	return httpx.Wrap(app.Metrics, mux)
}

func (a *App) inventoryHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listStock(w, r)
	case http.MethodPut:
		a.decrement(w, r)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *App) listStock(w http.ResponseWriter, r *http.Request) {
	records, err := a.Store.ListStock(r.Context())
	if err != nil {
		a.Metrics.IncError("list_stock")
		httpx.WriteError(w, httpx.StatusFor(err), "internal server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    records,
		"count":   len(records),
	})
}

func (a *App) getStockHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sku := strings.TrimPrefix(r.URL.Path, "/inventory/")
	if sku == "" {
		httpx.WriteError(w, http.StatusNotFound, "Inventory not found")
		return
	}
	rec, err := a.Store.GetStock(r.Context(), sku)
	if err != nil {
		a.Metrics.IncError("get_stock")
		httpx.WriteError(w, httpx.StatusFor(err), "Inventory not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": rec})
}

type adjustRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func (a *App) decrement(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SKU == "" || req.Quantity <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "sku and a positive quantity are required")
		return
	}
	rec, err := a.Store.Decrement(r.Context(), req.SKU, req.Quantity)
	if err != nil {
		a.Metrics.IncError("decrement")
		httpx.WriteError(w, httpx.StatusFor(err), decrementErrMessage(err))
		return
	}
	a.Metrics.SetStock(rec.SKU, rec.Quantity)
	a.publishIfLow(r, rec)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Inventory updated"})
}

func decrementErrMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrInsufficientStock):
		return "Insufficient stock"
	case errors.Is(err, storage.ErrNotFound):
		return "Inventory not found"
	default:
		return "internal server error"
	}
}

type restockRequest struct {
	SKU         string              `json:"sku"`
	Quantity    int                 `json:"quantity"`
	Supplier    string              `json:"supplier"`
	CostPerUnit decimal.NullDecimal `json:"cost_per_unit"`
	TotalCost   decimal.NullDecimal `json:"total_cost"`
}

func (a *App) restockHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SKU == "" || req.Quantity <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "sku and a positive quantity are required")
		return
	}
	entry := model.RestockEntry{
		Supplier:    req.Supplier,
		CostPerUnit: req.CostPerUnit,
		TotalCost:   req.TotalCost,
	}
	rec, err := a.Store.Increment(r.Context(), req.SKU, req.Quantity, entry)
	if err != nil {
		a.Metrics.IncError("restock")
		httpx.WriteError(w, httpx.StatusFor(err), "SKU not found")
		return
	}
	a.Metrics.SetStock(rec.SKU, rec.Quantity)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Inventory restocked and logged"})
}

func (a *App) listRestocksHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries, err := a.Store.ListRestocks(r.Context())
	if err != nil {
		a.Metrics.IncError("list_restocks")
		httpx.WriteError(w, httpx.StatusFor(err), "internal server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    entries,
		"count":   len(entries),
	})
}

func (a *App) alertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	alerts, err := a.Store.ListAlerts(r.Context())
	if err != nil {
		a.Metrics.IncError("list_alerts")
		httpx.WriteError(w, httpx.StatusFor(err), "internal server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"alerts":  alerts,
		"count":   len(alerts),
	})
}

// publishIfLow emits a stock.low event after a decrement leaves the record
// under its threshold. Best effort: the decrement is already durable.
func (a *App) publishIfLow(r *http.Request, rec model.StockRecord) {
	if rec.Quantity >= rec.Threshold {
		return
	}
	ev := eventbus.StockLow{
		SKU:        rec.SKU,
		Quantity:   rec.Quantity,
		Threshold:  rec.Threshold,
		Deficit:    rec.Threshold - rec.Quantity,
		OccurredAt: time.Now().UTC(),
	}
	if err := a.Events.PublishStockLow(r.Context(), ev); err != nil {
		log.Warn().Err(err).Str("sku", rec.SKU).Msg("stock.low publish failed")
	}
}
