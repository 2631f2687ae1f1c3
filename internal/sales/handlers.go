package sales

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fairyhunter13/inventory-tracker/internal/httpx"
	"github.com/fairyhunter13/inventory-tracker/internal/obs"
	"github.com/fairyhunter13/inventory-tracker/internal/storage"
)

type App struct {
	Service *Service
	Metrics *obs.Metrics
}

func NewApp(svc *Service, m *obs.Metrics) *App {
	return &App{Service: svc, Metrics: m}
}

// NewRouter registers the sales routes and returns the wrapped handler.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sales", app.salesHandler)
	mux.HandleFunc("/sales/", app.getSaleHandler)
	mux.HandleFunc("/report", app.reportHandler)
	mux.HandleFunc("/health", httpx.Health("sales"))
	mux.Handle("/metrics", app.Metrics.Handler())
	return httpx.Wrap(app.Metrics, mux)
}

func (a *App) salesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listSales(w, r)
	case http.MethodPost:
		a.createSale(w, r)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type saleRequest struct {
	SKU           string `json:"sku"`
	Quantity      int    `json:"quantity"`
	PaymentMethod string `json:"payment_method"`
}

func (a *App) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sale, err := a.Service.RecordSale(r.Context(), req.SKU, req.Quantity, req.PaymentMethod)
	if err != nil {
		a.Metrics.IncError("record_sale")
		status, msg := saleError(err)
		httpx.WriteError(w, status, msg)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success":        true,
		"message":        "Sale recorded",
		"transaction_id": sale.TransactionID,
		"total":          sale.Total,
	})
}

// saleError maps the error taxonomy onto the sale response contract: 400 for
// anything the caller must change (missing product, bad input, insufficient
// stock), 503 for transient storage failure that is safe to retry.
func saleError(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusBadRequest, "Product not found"
	case errors.Is(err, storage.ErrInsufficientStock):
		return http.StatusBadRequest, "Insufficient stock"
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (a *App) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := a.Service.ListSales(r.Context())
	if err != nil {
		a.Metrics.IncError("list_sales")
		httpx.WriteError(w, httpx.StatusFor(err), "internal server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    sales,
		"count":   len(sales),
	})
}

func (a *App) getSaleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/sales/")
	if id == "" {
		httpx.WriteError(w, http.StatusNotFound, "Sale not found")
		return
	}
	sale, err := a.Service.GetSale(r.Context(), id)
	if err != nil {
		a.Metrics.IncError("get_sale")
		httpx.WriteError(w, httpx.StatusFor(err), "Sale not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": sale})
}

func (a *App) reportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	report, err := a.Service.DailyReport(r.Context())
	if err != nil {
		a.Metrics.IncError("report")
		httpx.WriteError(w, httpx.StatusFor(err), "internal server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "report": report})
}
