package sales

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/inventory-tracker/internal/eventbus"
	"github.com/fairyhunter13/inventory-tracker/internal/model"
	"github.com/fairyhunter13/inventory-tracker/internal/obs"
	"github.com/fairyhunter13/inventory-tracker/internal/storage"
)

func setupApp(t *testing.T) (*storage.Memory, http.Handler) {
	t.Helper()
	st := storage.NewMemory()
	m := obs.NewMetrics("sales-test")
	app := NewApp(NewService(st, st, eventbus.Noop{}, m), m)
	return st, NewRouter(app)
}

func mustSeed(t *testing.T, st *storage.Memory, sku, price string, qty int) {
	t.Helper()
	if err := st.CreateProduct(context.Background(), model.Product{
		SKU:   sku,
		Name:  "Widget",
		Price: decimal.RequireFromString(price),
	}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if qty > 0 {
		if _, err := st.Increment(context.Background(), sku, qty, model.RestockEntry{}); err != nil {
			t.Fatalf("seed stock: %v", err)
		}
	}
}

type saleResp struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error"`
	TransactionID string          `json:"transaction_id"`
	Total         decimal.Decimal `json:"total"`
}

func TestPostSale_HappyPath(t *testing.T) {
	st, mux := setupApp(t)
	mustSeed(t, st, "SKU-1", "100.00", 10)

	body := `{"sku":"SKU-1","quantity":3,"payment_method":"card"}`
	req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp saleResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.TransactionID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !resp.Total.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("expected total 300.00, got %s", resp.Total)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/sales/"+resp.TransactionID, nil)
	rr2 := httptest.NewRecorder()
	mux.ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching recorded sale, got %d", rr2.Code)
	}
}

func TestPostSale_UnknownProduct(t *testing.T) {
	_, mux := setupApp(t)
	body := `{"sku":"SKU-missing","quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp saleResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Error != "Product not found" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestPostSale_InsufficientStock(t *testing.T) {
	st, mux := setupApp(t)
	mustSeed(t, st, "SKU-1", "10.00", 2)

	body := `{"sku":"SKU-1","quantity":5}`
	req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var resp saleResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Insufficient stock" {
		t.Fatalf("unexpected error message: %q", resp.Error)
	}

	// No sale row may exist for the aborted attempt.
	lr := httptest.NewRequest(http.MethodGet, "/sales", nil)
	lw := httptest.NewRecorder()
	mux.ServeHTTP(lw, lr)
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(lw.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 0 {
		t.Fatalf("expected 0 sales after aborted attempt, got %d", list.Count)
	}
}

func TestPostSale_InvalidBody(t *testing.T) {
	_, mux := setupApp(t)
	req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetSale_NotFound(t *testing.T) {
	_, mux := setupApp(t)
	req := httptest.NewRequest(http.MethodGet, "/sales/TXN-unknown", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestReport(t *testing.T) {
	st, mux := setupApp(t)
	mustSeed(t, st, "SKU-1", "50.00", 10)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString(`{"sku":"SKU-1","quantity":1}`))
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Success bool                   `json:"success"`
		Report  []model.DailyReportRow `json:"report"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(resp.Report) != 1 || resp.Report[0].Transactions != 2 {
		t.Fatalf("unexpected report: %+v", resp.Report)
	}
}

func TestHealth(t *testing.T) {
	_, mux := setupApp(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "healthy" || body["service"] != "sales" {
		t.Fatalf("unexpected health body: %v", body)
	}
}
