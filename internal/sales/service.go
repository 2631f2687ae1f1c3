// Package sales is the sales recording service: it validates a sale against
// the catalog, prices it, and persists the sale record together with the
// conditional stock decrement as one atomic unit.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/inventory-tracker/internal/eventbus"
	"github.com/fairyhunter13/inventory-tracker/internal/model"
	"github.com/fairyhunter13/inventory-tracker/internal/obs"
	"github.com/fairyhunter13/inventory-tracker/internal/storage"
)

// ErrInvalidInput marks requests that must change before a retry can succeed.
var ErrInvalidInput = errors.New("invalid input")

// DefaultPaymentMethod is used when the request omits payment_method.
const DefaultPaymentMethod = "cash"

type Service struct {
	catalog storage.Catalog
	sales   storage.Sales
	events  eventbus.Publisher
	metrics *obs.Metrics
}

func NewService(catalog storage.Catalog, sales storage.Sales, events eventbus.Publisher, m *obs.Metrics) *Service {
	return &Service{catalog: catalog, sales: sales, events: events, metrics: m}
}

// RecordSale converts a sale request into a durable sale record and an
// oversell-safe stock decrement. On any error no partial state is observable:
// the storage unit either fully commits or fully rolls back, so transient
// failures are safe to retry. A resend with a fresh transaction id creates a
// second sale; there is no request-level idempotency key.
func (s *Service) RecordSale(ctx context.Context, sku string, quantity int, paymentMethod string) (model.SaleTransaction, error) {
	if sku == "" {
		return model.SaleTransaction{}, fmt.Errorf("%w: sku is required", ErrInvalidInput)
	}
	if quantity < 1 {
		return model.SaleTransaction{}, fmt.Errorf("%w: quantity must be a positive integer", ErrInvalidInput)
	}
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}

	product, err := s.catalog.GetProduct(ctx, sku)
	if err != nil {
		return model.SaleTransaction{}, err
	}

	// The unit price is captured here; later catalog price changes do not
	// affect this sale's total.
	total := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
	sale := model.SaleTransaction{
		TransactionID: newTransactionID(time.Now().UTC()),
		Lines: []model.SaleLine{{
			SKU:       product.SKU,
			Name:      product.Name,
			Quantity:  quantity,
			UnitPrice: product.Price,
			LineTotal: total,
		}},
		Total:         total,
		PaymentMethod: paymentMethod,
		Status:        model.SaleStatusCompleted,
	}

	rec, err := s.sales.RecordSale(ctx, sale)
	if err != nil {
		return model.SaleTransaction{}, err
	}

	s.metrics.AddSale(total.InexactFloat64())
	s.metrics.SetStock(rec.SKU, rec.Quantity)
	s.publishCompleted(ctx, sale, rec)

	log.Info().
		Str("transaction_id", sale.TransactionID).
		Str("sku", sku).
		Int("quantity", quantity).
		Str("total", total.String()).
		Msg("sale_recorded")
	return sale, nil
}

// publishCompleted emits events after commit, best effort.
func (s *Service) publishCompleted(ctx context.Context, sale model.SaleTransaction, rec model.StockRecord) {
	now := time.Now().UTC()
	ev := eventbus.SaleCompleted{
		TransactionID: sale.TransactionID,
		SKU:           sale.Lines[0].SKU,
		Quantity:      sale.Lines[0].Quantity,
		Total:         sale.Total,
		OccurredAt:    now,
	}
	if err := s.events.PublishSaleCompleted(ctx, ev); err != nil {
		log.Warn().Err(err).Str("transaction_id", sale.TransactionID).Msg("sale.completed publish failed")
	}
	if rec.Quantity < rec.Threshold {
		low := eventbus.StockLow{
			SKU:        rec.SKU,
			Quantity:   rec.Quantity,
			Threshold:  rec.Threshold,
			Deficit:    rec.Threshold - rec.Quantity,
			OccurredAt: now,
		}
		if err := s.events.PublishStockLow(ctx, low); err != nil {
			log.Warn().Err(err).Str("sku", rec.SKU).Msg("stock.low publish failed")
		}
	}
}

// newTransactionID builds a TXN-<timestamp>-<uuid> identifier. The UUID
// suffix keeps the collision probability negligible within and across
// processes, not merely unlikely.
func newTransactionID(now time.Time) string {
	return fmt.Sprintf("TXN-%s-%s", now.Format("20060102150405"), uuid.NewString())
}

func (s *Service) GetSale(ctx context.Context, transactionID string) (model.SaleTransaction, error) {
	return s.sales.GetSale(ctx, transactionID)
}

func (s *Service) ListSales(ctx context.Context) ([]model.SaleTransaction, error) {
	return s.sales.ListSales(ctx, 100)
}

func (s *Service) DailyReport(ctx context.Context) ([]model.DailyReportRow, error) {
	return s.sales.DailyReport(ctx, 30)
}
