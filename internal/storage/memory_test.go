package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/inventory-tracker/internal/model"
)

func seed(t *testing.T, m *Memory, sku string, price string, qty, threshold int) {
	t.Helper()
	err := m.CreateProduct(context.Background(), model.Product{
		SKU:       sku,
		Name:      "Widget " + sku,
		Price:     decimal.RequireFromString(price),
		Threshold: threshold,
	})
	require.NoError(t, err)
	if qty > 0 {
		_, err = m.Increment(context.Background(), sku, qty, model.RestockEntry{Supplier: "init"})
		require.NoError(t, err)
	}
}

func saleFor(sku string, qty int, unitPrice string) model.SaleTransaction {
	price := decimal.RequireFromString(unitPrice)
	total := price.Mul(decimal.NewFromInt(int64(qty)))
	return model.SaleTransaction{
		TransactionID: "TXN-test-" + sku,
		Lines: []model.SaleLine{{
			SKU:       sku,
			Quantity:  qty,
			UnitPrice: price,
			LineTotal: total,
		}},
		Total:         total,
		PaymentMethod: "cash",
	}
}

func TestDecrementConditional(t *testing.T) {
	m := NewMemory()
	seed(t, m, "SKU-1", "10.00", 5, 3)
	ctx := context.Background()

	rec, err := m.Decrement(ctx, "SKU-1", 3)
	require.NoError(t, err)
	require.Equal(t, 2, rec.Quantity)

	_, err = m.Decrement(ctx, "SKU-1", 3)
	require.ErrorIs(t, err, ErrInsufficientStock)

	rec, err = m.GetStock(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 2, rec.Quantity, "failed decrement must not touch the row")

	_, err = m.Decrement(ctx, "SKU-missing", 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDecrementConcurrentNoOversell(t *testing.T) {
	m := NewMemory()
	const initial = 60
	const attempts = 100
	seed(t, m, "SKU-1", "1.00", initial, 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, insufficient := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Decrement(context.Background(), "SKU-1", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case err == ErrInsufficientStock:
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, initial, successes)
	require.Equal(t, attempts-initial, insufficient)
	rec, err := m.GetStock(context.Background(), "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 0, rec.Quantity)
}

func TestIncrementRecordsProvenance(t *testing.T) {
	m := NewMemory()
	seed(t, m, "SKU-1", "10.00", 0, 3)
	ctx := context.Background()

	cost := decimal.NewNullDecimal(decimal.RequireFromString("4.50"))
	rec, err := m.Increment(ctx, "SKU-1", 20, model.RestockEntry{Supplier: "Acme", CostPerUnit: cost})
	require.NoError(t, err)
	require.Equal(t, 20, rec.Quantity)

	entries, err := m.ListRestocks(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "SKU-1", entries[0].SKU)
	require.Equal(t, 20, entries[0].Quantity)
	require.Equal(t, "Acme", entries[0].Supplier)

	_, err = m.Increment(ctx, "SKU-missing", 5, model.RestockEntry{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListAlertsDeficitOrdering(t *testing.T) {
	m := NewMemory()
	seed(t, m, "SKU-A", "1.00", 5, 10)  // deficit 5
	seed(t, m, "SKU-B", "1.00", 1, 10)  // deficit 9
	seed(t, m, "SKU-C", "1.00", 15, 10) // not alerting

	alerts, err := m.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	require.Equal(t, "SKU-B", alerts[0].SKU)
	require.Equal(t, 9, alerts[0].Deficit)
	require.Equal(t, "SKU-A", alerts[1].SKU)
	require.Equal(t, 5, alerts[1].Deficit)
	for _, a := range alerts {
		require.NotEqual(t, "SKU-C", a.SKU)
	}
}

func TestRecordSaleAtomicUnit(t *testing.T) {
	m := NewMemory()
	seed(t, m, "SKU-1", "100.00", 10, 3)
	ctx := context.Background()

	rec, err := m.RecordSale(ctx, saleFor("SKU-1", 3, "100.00"))
	require.NoError(t, err)
	require.Equal(t, 7, rec.Quantity)

	got, err := m.GetSale(ctx, "TXN-test-SKU-1")
	require.NoError(t, err)
	require.Equal(t, model.SaleStatusCompleted, got.Status)
	require.True(t, got.Total.Equal(decimal.RequireFromString("300.00")))
}

func TestRecordSaleInsufficientLeavesNoTrace(t *testing.T) {
	m := NewMemory()
	seed(t, m, "SKU-1", "10.00", 2, 3)
	ctx := context.Background()

	before, err := m.ListSales(ctx, 100)
	require.NoError(t, err)

	_, err = m.RecordSale(ctx, saleFor("SKU-1", 5, "10.00"))
	require.ErrorIs(t, err, ErrInsufficientStock)

	after, err := m.ListSales(ctx, 100)
	require.NoError(t, err)
	require.Len(t, after, len(before), "a failed sale must leave no sale row")
	rec, err := m.GetStock(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 2, rec.Quantity, "a failed sale must leave no stock side effect")
}

func TestRecordSaleDuplicateTransactionID(t *testing.T) {
	m := NewMemory()
	seed(t, m, "SKU-1", "10.00", 10, 3)
	ctx := context.Background()

	_, err := m.RecordSale(ctx, saleFor("SKU-1", 1, "10.00"))
	require.NoError(t, err)
	_, err = m.RecordSale(ctx, saleFor("SKU-1", 1, "10.00"))
	require.ErrorIs(t, err, ErrConflict)
}

func TestGetStockIdempotentReads(t *testing.T) {
	m := NewMemory()
	seed(t, m, "SKU-1", "10.00", 7, 3)

	first, err := m.GetStock(context.Background(), "SKU-1")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := m.GetStock(context.Background(), "SKU-1")
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestListStockOrderedBySKU(t *testing.T) {
	m := NewMemory()
	seed(t, m, "SKU-C", "1.00", 1, 1)
	seed(t, m, "SKU-A", "1.00", 1, 1)
	seed(t, m, "SKU-B", "1.00", 1, 1)

	records, err := m.ListStock(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "SKU-A", records[0].SKU)
	require.Equal(t, "SKU-B", records[1].SKU)
	require.Equal(t, "SKU-C", records[2].SKU)
}

func TestThresholdFollowsProductUpdate(t *testing.T) {
	m := NewMemory()
	seed(t, m, "SKU-1", "10.00", 5, 3)
	ctx := context.Background()

	p, err := m.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	p.Threshold = 8
	require.NoError(t, m.UpdateProduct(ctx, p))

	rec, err := m.GetStock(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 8, rec.Threshold, "stock record threshold is authoritative and synced from catalog writes")
}

func TestDailyReportAggregates(t *testing.T) {
	m := NewMemory()
	seed(t, m, "SKU-1", "50.00", 10, 3)
	ctx := context.Background()

	s1 := saleFor("SKU-1", 2, "50.00")
	s1.TransactionID = "TXN-r1"
	s2 := saleFor("SKU-1", 1, "50.00")
	s2.TransactionID = "TXN-r2"
	_, err := m.RecordSale(ctx, s1)
	require.NoError(t, err)
	_, err = m.RecordSale(ctx, s2)
	require.NoError(t, err)

	report, err := m.DailyReport(ctx, 30)
	require.NoError(t, err)
	require.Len(t, report, 1)
	require.Equal(t, 2, report[0].Transactions)
	require.Equal(t, 3, report[0].Quantity)
	require.True(t, report[0].Revenue.Equal(decimal.RequireFromString("150.00")))
}
