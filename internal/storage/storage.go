// Package storage defines the persistence contracts for the catalog, the
// stock ledger and the sales records, and provides the Postgres and the
// in-memory implementations.
package storage

import (
	"context"
	"errors"

	"github.com/fairyhunter13/inventory-tracker/internal/model"
)

// Sentinel errors returned by every implementation. HTTP layers map these to
// status codes; everything else is treated as a transient storage failure.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnavailable       = errors.New("storage unavailable")
)

// Catalog owns product attributes keyed by SKU.
type Catalog interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, sku string) (model.Product, error)
	// CreateProduct inserts the product and its zero-quantity stock record.
	CreateProduct(ctx context.Context, p model.Product) error
	UpdateProduct(ctx context.Context, p model.Product) error
	DeleteProduct(ctx context.Context, sku string) error
}

// Ledger owns stock quantities. Decrement is conditional: it takes effect only
// if the row still holds at least the requested quantity at the moment of the
// write, so concurrent attempts on one SKU serialize without application locks.
type Ledger interface {
	GetStock(ctx context.Context, sku string) (model.StockRecord, error)
	// ListStock returns all records ordered by SKU.
	ListStock(ctx context.Context) ([]model.StockRecord, error)
	// Decrement returns the updated record, or ErrInsufficientStock when the
	// guard fails with the row untouched.
	Decrement(ctx context.Context, sku string, qty int) (model.StockRecord, error)
	// Increment adds stock unconditionally and appends the provenance entry.
	Increment(ctx context.Context, sku string, qty int, entry model.RestockEntry) (model.StockRecord, error)
	// ListAlerts returns records with quantity < threshold, most urgent first.
	ListAlerts(ctx context.Context) ([]model.StockAlert, error)
	ListRestocks(ctx context.Context) ([]model.RestockEntry, error)
}

// Sales owns sale transactions. RecordSale persists the sale, its line items
// and the conditional stock decrement as one atomic unit: either all of it is
// visible afterwards or none of it is.
type Sales interface {
	// RecordSale returns the stock record left behind by the decrement of the
	// first line, so callers can derive low-stock alerts without a re-read.
	RecordSale(ctx context.Context, sale model.SaleTransaction) (model.StockRecord, error)
	GetSale(ctx context.Context, transactionID string) (model.SaleTransaction, error)
	// ListSales returns the most recent sales, newest first.
	ListSales(ctx context.Context, limit int) ([]model.SaleTransaction, error)
	// DailyReport aggregates sales per calendar day over the last days days.
	DailyReport(ctx context.Context, days int) ([]model.DailyReportRow, error)
}

// Store bundles the three contracts; both implementations satisfy it.
type Store interface {
	Catalog
	Ledger
	Sales
}
