// Package catalog is the product catalog service: CRUD over products keyed by
// SKU. The sales service reads it to price sales.
package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fairyhunter13/inventory-tracker/internal/httpx"
	"github.com/fairyhunter13/inventory-tracker/internal/model"
	"github.com/fairyhunter13/inventory-tracker/internal/obs"
	"github.com/fairyhunter13/inventory-tracker/internal/storage"
)

type App struct {
	Store   storage.Catalog
	Metrics *obs.Metrics
}

func NewApp(store storage.Catalog, m *obs.Metrics) *App {
	return &App{Store: store, Metrics: m}
}

// NewRouter registers the catalog routes and returns the wrapped handler.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/products", app.productsHandler)
	mux.HandleFunc("/products/", app.getProductHandler)
	mux.HandleFunc("/health", httpx.Health("product-catalog"))
	mux.Handle("/metrics", app.Metrics.Handler())
	return httpx.Wrap(app.Metrics, mux)
}

func (a *App) productsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listProducts(w, r)
	case http.MethodPost:
		a.createProduct(w, r)
	case http.MethodPut:
		a.updateProduct(w, r)
	case http.MethodDelete:
		a.deleteProduct(w, r)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *App) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.Store.ListProducts(r.Context())
	if err != nil {
		a.Metrics.IncError("list_products")
		httpx.WriteError(w, httpx.StatusFor(err), "internal server error")
		return
	}
	// Catalog reads are cacheable for a short window.
	w.Header().Set("Cache-Control", "public, max-age=30")
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    products,
		"count":   len(products),
	})
}

func (a *App) getProductHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sku := strings.TrimPrefix(r.URL.Path, "/products/")
	if sku == "" {
		httpx.WriteError(w, http.StatusNotFound, "Product not found")
		return
	}
	p, err := a.Store.GetProduct(r.Context(), sku)
	if err != nil {
		a.Metrics.IncError("get_product")
		httpx.WriteError(w, httpx.StatusFor(err), "Product not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": p})
}

func (a *App) createProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if p.SKU == "" || p.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "sku and name are required")
		return
	}
	if p.Price.IsNegative() {
		httpx.WriteError(w, http.StatusBadRequest, "price must be >= 0")
		return
	}
	if err := a.Store.CreateProduct(r.Context(), p); err != nil {
		a.Metrics.IncError("create_product")
		httpx.WriteError(w, httpx.StatusFor(err), createErrMessage(err))
		return
	}
	created, err := a.Store.GetProduct(r.Context(), p.SKU)
	if err != nil {
		created = p
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Product created",
		"data":    created,
	})
}

func createErrMessage(err error) string {
	if errors.Is(err, storage.ErrConflict) {
		return "SKU already exists"
	}
	return "internal server error"
}

func (a *App) updateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if p.SKU == "" {
		httpx.WriteError(w, http.StatusBadRequest, "sku is required")
		return
	}
	if p.Price.IsNegative() {
		httpx.WriteError(w, http.StatusBadRequest, "price must be >= 0")
		return
	}
	if err := a.Store.UpdateProduct(r.Context(), p); err != nil {
		a.Metrics.IncError("update_product")
		httpx.WriteError(w, httpx.StatusFor(err), "Product not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Product updated"})
}

func (a *App) deleteProduct(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SKU string `json:"sku"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SKU == "" {
		httpx.WriteError(w, http.StatusBadRequest, "sku is required")
		return
	}
	if err := a.Store.DeleteProduct(r.Context(), body.SKU); err != nil {
		a.Metrics.IncError("delete_product")
		httpx.WriteError(w, httpx.StatusFor(err), "Product not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Product deleted"})
}
