// Package eventbus propagates inventory state changes to dependent readers
// (dashboard, alert consumers) over RabbitMQ. Publishing is best effort: the
// sale and the decrement are already durable before any event leaves the
// process, so a lost event never loses money or stock.
package eventbus

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys on the topic exchange.
const (
	KeySaleCompleted = "sale.completed"
	KeyStockLow      = "stock.low"
)

// SaleCompleted announces a durably committed sale.
type SaleCompleted struct {
	TransactionID string          `json:"transaction_id"`
	SKU           string          `json:"sku"`
	Quantity      int             `json:"quantity"`
	Total         decimal.Decimal `json:"total"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// StockLow announces a stock record that dropped below its threshold.
type StockLow struct {
	SKU        string    `json:"sku"`
	Quantity   int       `json:"quantity"`
	Threshold  int       `json:"stock_threshold"`
	Deficit    int       `json:"deficit"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher is what the services see. Noop satisfies it when no broker is
// configured.
type Publisher interface {
	PublishSaleCompleted(ctx context.Context, ev SaleCompleted) error
	PublishStockLow(ctx context.Context, ev StockLow) error
	Close()
}

// Noop drops every event.
type Noop struct{}

func (Noop) PublishSaleCompleted(ctx context.Context, ev SaleCompleted) error { return nil }
func (Noop) PublishStockLow(ctx context.Context, ev StockLow) error           { return nil }
func (Noop) Close()                                                           {}
