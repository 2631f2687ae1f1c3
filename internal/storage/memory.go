package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fairyhunter13/inventory-tracker/internal/model"
)

// Memory is a mutex-guarded in-memory Store. It mirrors the Postgres
// semantics exactly and backs the tests and single-process demo runs; it is
// not coherent across processes.
type Memory struct {
	mu        sync.RWMutex
	products  map[string]model.Product
	stock     map[string]model.StockRecord
	sales     map[string]model.SaleTransaction
	saleOrder []string
	restocks  []model.RestockEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		products: make(map[string]model.Product),
		stock:    make(map[string]model.StockRecord),
		sales:    make(map[string]model.SaleTransaction),
	}
}

func (m *Memory) ListProducts(ctx context.Context) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Product, 0, len(m.products))
	for _, p := range m.products {
		p.Threshold = m.stock[p.SKU].Threshold
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SKU < out[j].SKU
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) GetProduct(ctx context.Context, sku string) (model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[sku]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	p.Threshold = m.stock[sku].Threshold
	return p, nil
}

func (m *Memory) CreateProduct(ctx context.Context, p model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.SKU]; ok {
		return ErrConflict
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = model.DefaultThreshold
	}
	m.products[p.SKU] = p
	m.stock[p.SKU] = model.StockRecord{
		SKU:       p.SKU,
		Name:      p.Name,
		Quantity:  0,
		Threshold: threshold,
		UpdatedAt: p.CreatedAt,
	}
	return nil
}

func (m *Memory) UpdateProduct(ctx context.Context, p model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.products[p.SKU]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	m.products[p.SKU] = p
	rec := m.stock[p.SKU]
	rec.Name = p.Name
	if p.Threshold > 0 {
		rec.Threshold = p.Threshold
	}
	m.stock[p.SKU] = rec
	return nil
}

func (m *Memory) DeleteProduct(ctx context.Context, sku string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[sku]; !ok {
		return ErrNotFound
	}
	delete(m.products, sku)
	delete(m.stock, sku)
	return nil
}

func (m *Memory) GetStock(ctx context.Context, sku string) (model.StockRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.stock[sku]
	if !ok {
		return model.StockRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListStock(ctx context.Context) ([]model.StockRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.StockRecord, 0, len(m.stock))
	for _, rec := range m.stock {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (m *Memory) Decrement(ctx context.Context, sku string, qty int) (model.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decrementLocked(sku, qty)
}

// decrementLocked is the in-memory equivalent of the conditional
// UPDATE ... WHERE quantity >= $1: the guard and the mutation happen under
// one lock, so the quantity can never go negative.
func (m *Memory) decrementLocked(sku string, qty int) (model.StockRecord, error) {
	rec, ok := m.stock[sku]
	if !ok {
		return model.StockRecord{}, ErrNotFound
	}
	if rec.Quantity < qty {
		return model.StockRecord{}, ErrInsufficientStock
	}
	rec.Quantity -= qty
	rec.UpdatedAt = time.Now().UTC()
	m.stock[sku] = rec
	return rec, nil
}

func (m *Memory) Increment(ctx context.Context, sku string, qty int, entry model.RestockEntry) (model.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.stock[sku]
	if !ok {
		return model.StockRecord{}, ErrNotFound
	}
	rec.Quantity += qty
	rec.UpdatedAt = time.Now().UTC()
	m.stock[sku] = rec
	entry.SKU = sku
	entry.Quantity = qty
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = rec.UpdatedAt
	}
	m.restocks = append(m.restocks, entry)
	return rec, nil
}

func (m *Memory) ListAlerts(ctx context.Context) ([]model.StockAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.StockAlert
	for _, rec := range m.stock {
		if rec.Quantity >= rec.Threshold {
			continue
		}
		out = append(out, model.StockAlert{
			SKU:       rec.SKU,
			Name:      rec.Name,
			Quantity:  rec.Quantity,
			Threshold: rec.Threshold,
			Deficit:   rec.Threshold - rec.Quantity,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Deficit == out[j].Deficit {
			return out[i].SKU < out[j].SKU
		}
		return out[i].Deficit > out[j].Deficit
	})
	return out, nil
}

func (m *Memory) ListRestocks(ctx context.Context) ([]model.RestockEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.RestockEntry, len(m.restocks))
	for i, e := range m.restocks {
		out[len(m.restocks)-1-i] = e
	}
	return out, nil
}

func (m *Memory) RecordSale(ctx context.Context, sale model.SaleTransaction) (model.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sales[sale.TransactionID]; ok {
		return model.StockRecord{}, ErrConflict
	}
	// Validate every line before touching any row, so a failure leaves no
	// partial decrement behind.
	for _, line := range sale.Lines {
		rec, ok := m.stock[line.SKU]
		if !ok {
			return model.StockRecord{}, ErrNotFound
		}
		if rec.Quantity < line.Quantity {
			return model.StockRecord{}, ErrInsufficientStock
		}
	}
	var first model.StockRecord
	for i, line := range sale.Lines {
		rec, _ := m.decrementLocked(line.SKU, line.Quantity)
		if i == 0 {
			first = rec
		}
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.Status = model.SaleStatusCompleted
	sale.Lines = append([]model.SaleLine(nil), sale.Lines...)
	m.sales[sale.TransactionID] = sale
	m.saleOrder = append(m.saleOrder, sale.TransactionID)
	return first, nil
}

func (m *Memory) GetSale(ctx context.Context, transactionID string) (model.SaleTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sale, ok := m.sales[transactionID]
	if !ok {
		return model.SaleTransaction{}, ErrNotFound
	}
	sale.Lines = append([]model.SaleLine(nil), sale.Lines...)
	return sale, nil
}

func (m *Memory) ListSales(ctx context.Context, limit int) ([]model.SaleTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.SaleTransaction
	for i := len(m.saleOrder) - 1; i >= 0 && len(out) < limit; i-- {
		sale := m.sales[m.saleOrder[i]]
		sale.Lines = append([]model.SaleLine(nil), sale.Lines...)
		out = append(out, sale)
	}
	return out, nil
}

func (m *Memory) DailyReport(ctx context.Context, days int) ([]model.DailyReportRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byDay := make(map[string]*model.DailyReportRow)
	for _, sale := range m.sales {
		day := sale.CreatedAt.UTC().Format("2006-01-02")
		row, ok := byDay[day]
		if !ok {
			row = &model.DailyReportRow{Date: day}
			byDay[day] = row
		}
		row.Transactions++
		for _, line := range sale.Lines {
			row.Quantity += line.Quantity
		}
		row.Revenue = row.Revenue.Add(sale.Total)
	}
	out := make([]model.DailyReportRow, 0, len(byDay))
	for _, row := range byDay {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if len(out) > days {
		out = out[:days]
	}
	return out, nil
}
