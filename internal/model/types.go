// Package model defines the domain types shared by the services.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money fields marshal as bare JSON numbers, matching the wire format the
	// dashboard consumes.
	decimal.MarshalJSONWithoutQuotes = true
}

// Sale statuses.
const (
	SaleStatusPending   = "pending"
	SaleStatusCompleted = "completed"
	SaleStatusFailed    = "failed"
)

// DefaultThreshold is applied to stock records created without an explicit
// reorder threshold.
const DefaultThreshold = 10

// Product is a catalog entry. SKU is the stable external identifier and never
// changes after creation.
type Product struct {
	SKU         string              `db:"sku" json:"sku"`
	Name        string              `db:"name" json:"name"`
	Category    string              `db:"category" json:"category,omitempty"`
	Price       decimal.Decimal     `db:"price" json:"price"`
	Cost        decimal.NullDecimal `db:"cost" json:"cost,omitempty"`
	Description string              `db:"description" json:"description,omitempty"`
	ImageURL    string              `db:"image_url" json:"image_url,omitempty"`
	Threshold   int                 `db:"stock_threshold" json:"stock_threshold"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
}

// StockRecord tracks the on-hand quantity for one SKU. The reorder threshold
// on this record is authoritative; the copy surfaced on Product reads is a
// join for display only. Quantity is mutated exclusively through the ledger's
// increment/decrement operations.
type StockRecord struct {
	SKU       string    `db:"sku" json:"sku"`
	Name      string    `db:"name" json:"name"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Threshold int       `db:"stock_threshold" json:"stock_threshold"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SaleLine is one line item of a sale. UnitPrice is captured at sale time and
// is unaffected by later catalog price changes.
type SaleLine struct {
	SKU       string          `db:"sku" json:"sku"`
	Name      string          `db:"name" json:"name,omitempty"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal decimal.Decimal `db:"line_total" json:"line_total"`
}

// SaleTransaction is a recorded sale. Immutable once completed.
type SaleTransaction struct {
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	Lines         []SaleLine      `json:"items"`
	Total         decimal.Decimal `db:"total_amount" json:"total"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Status        string          `db:"status" json:"status"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// StockAlert is derived on read from the stock record; it is never stored.
type StockAlert struct {
	SKU       string `db:"sku" json:"sku"`
	Name      string `db:"name" json:"name"`
	Quantity  int    `db:"quantity" json:"quantity"`
	Threshold int    `db:"stock_threshold" json:"stock_threshold"`
	Deficit   int    `db:"deficit" json:"deficit"`
}

// RestockEntry is an append-only provenance record for a stock increment.
type RestockEntry struct {
	SKU         string              `db:"sku" json:"sku"`
	Quantity    int                 `db:"quantity_added" json:"quantity_added"`
	Supplier    string              `db:"supplier" json:"supplier,omitempty"`
	CostPerUnit decimal.NullDecimal `db:"cost_per_unit" json:"cost_per_unit,omitempty"`
	TotalCost   decimal.NullDecimal `db:"total_cost" json:"total_cost,omitempty"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
}

// DailyReportRow is one day of the sales rollup.
type DailyReportRow struct {
	Date         string          `db:"sale_date" json:"sale_date"`
	Transactions int             `db:"transaction_count" json:"transaction_count"`
	Quantity     int             `db:"total_quantity" json:"total_quantity"`
	Revenue      decimal.Decimal `db:"total_revenue" json:"total_revenue"`
}
