package sales

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/inventory-tracker/internal/eventbus"
	"github.com/fairyhunter13/inventory-tracker/internal/model"
	"github.com/fairyhunter13/inventory-tracker/internal/obs"
	"github.com/fairyhunter13/inventory-tracker/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Memory) {
	t.Helper()
	st := storage.NewMemory()
	svc := NewService(st, st, eventbus.Noop{}, obs.NewMetrics("sales-test"))
	return svc, st
}

func seedProduct(t *testing.T, st *storage.Memory, sku, price string, qty int) {
	t.Helper()
	err := st.CreateProduct(context.Background(), model.Product{
		SKU:       sku,
		Name:      "Widget",
		Price:     decimal.RequireFromString(price),
		Threshold: 3,
	})
	require.NoError(t, err)
	if qty > 0 {
		_, err = st.Increment(context.Background(), sku, qty, model.RestockEntry{})
		require.NoError(t, err)
	}
}

func TestRecordSaleTotalCorrectness(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "SKU-1", "100.00", 10)

	sale, err := svc.RecordSale(context.Background(), "SKU-1", 3, "card")
	require.NoError(t, err)
	require.True(t, sale.Total.Equal(decimal.RequireFromString("300.00")), "total = %s", sale.Total)
	require.Equal(t, model.SaleStatusCompleted, sale.Status)
	require.Equal(t, "card", sale.PaymentMethod)

	rec, err := st.GetStock(context.Background(), "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 7, rec.Quantity, "stock reduced by exactly the sold quantity")
}

func TestRecordSalePriceCapturedAtSaleTime(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "SKU-1", "100.00", 10)
	ctx := context.Background()

	sale, err := svc.RecordSale(ctx, "SKU-1", 1, "")
	require.NoError(t, err)

	// A later catalog price change must not affect the persisted sale.
	p, err := st.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	p.Price = decimal.RequireFromString("999.00")
	require.NoError(t, st.UpdateProduct(ctx, p))

	stored, err := svc.GetSale(ctx, sale.TransactionID)
	require.NoError(t, err)
	require.True(t, stored.Total.Equal(decimal.RequireFromString("100.00")))
	require.True(t, stored.Lines[0].UnitPrice.Equal(decimal.RequireFromString("100.00")))
}

func TestRecordSaleUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RecordSale(context.Background(), "SKU-missing", 1, "")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecordSaleInvalidInput(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "SKU-1", "10.00", 10)

	_, err := svc.RecordSale(context.Background(), "", 1, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.RecordSale(context.Background(), "SKU-1", 0, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.RecordSale(context.Background(), "SKU-1", -2, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecordSaleInsufficientStockNoPartialState(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "SKU-1", "10.00", 2)
	ctx := context.Background()

	_, err := svc.RecordSale(ctx, "SKU-1", 5, "")
	require.ErrorIs(t, err, storage.ErrInsufficientStock)

	sales, err := svc.ListSales(ctx)
	require.NoError(t, err)
	require.Empty(t, sales)
	rec, err := st.GetStock(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 2, rec.Quantity)
}

func TestRecordSaleDefaultPaymentMethod(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "SKU-1", "10.00", 5)

	sale, err := svc.RecordSale(context.Background(), "SKU-1", 1, "")
	require.NoError(t, err)
	require.Equal(t, DefaultPaymentMethod, sale.PaymentMethod)
}

func TestTransactionIDsUnique(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "SKU-1", "1.00", 10000)
	ctx := context.Background()

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		sale, err := svc.RecordSale(ctx, "SKU-1", 1, "")
		require.NoError(t, err)
		if _, dup := seen[sale.TransactionID]; dup {
			t.Fatalf("duplicate transaction id %s after %d sales", sale.TransactionID, i)
		}
		seen[sale.TransactionID] = struct{}{}
	}
}

func TestConcurrentSalesNoOversell(t *testing.T) {
	svc, st := newTestService(t)
	const initial = 25
	const attempts = 40
	seedProduct(t, st, "SKU-1", "5.00", initial)

	type result struct{ err error }
	results := make(chan result, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := svc.RecordSale(context.Background(), "SKU-1", 1, "")
			results <- result{err}
		}()
	}
	successes, insufficient := 0, 0
	for i := 0; i < attempts; i++ {
		r := <-results
		switch {
		case r.err == nil:
			successes++
		case r.err == storage.ErrInsufficientStock:
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", r.err)
		}
	}
	require.Equal(t, initial, successes)
	require.Equal(t, attempts-initial, insufficient)

	rec, err := st.GetStock(context.Background(), "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 0, rec.Quantity)

	sales, err := svc.ListSales(context.Background())
	require.NoError(t, err)
	require.Len(t, sales, initial)
}
