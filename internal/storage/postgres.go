package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/inventory-tracker/internal/config"
	"github.com/fairyhunter13/inventory-tracker/internal/model"
)

// Postgres is the relational Store. The oversell guard lives in the database:
// decrements are conditional UPDATEs and the sale unit is one transaction.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres opens the connection pool and verifies connectivity.
func NewPostgres(cfg config.Config) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("Connecting to database")
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	return &Postgres{db: db}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	_ = p.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	sku         TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
	cost        NUMERIC(12,2),
	description TEXT NOT NULL DEFAULT '',
	image_url   TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS stock_records (
	sku             TEXT PRIMARY KEY REFERENCES products(sku) ON DELETE CASCADE,
	quantity        INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
	stock_threshold INTEGER NOT NULL DEFAULT 10 CHECK (stock_threshold >= 0),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sales (
	id             BIGSERIAL PRIMARY KEY,
	transaction_id TEXT NOT NULL UNIQUE,
	total_amount   NUMERIC(12,2) NOT NULL,
	payment_method TEXT NOT NULL DEFAULT 'cash',
	status         TEXT NOT NULL DEFAULT 'completed',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sale_items (
	id         BIGSERIAL PRIMARY KEY,
	sale_id    BIGINT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
	sku        TEXT NOT NULL,
	quantity   INTEGER NOT NULL CHECK (quantity > 0),
	unit_price NUMERIC(12,2) NOT NULL,
	line_total NUMERIC(12,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS restock_log (
	id             BIGSERIAL PRIMARY KEY,
	sku            TEXT NOT NULL,
	quantity_added INTEGER NOT NULL,
	supplier       TEXT NOT NULL DEFAULT '',
	cost_per_unit  NUMERIC(12,2),
	total_cost     NUMERIC(12,2),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate applies the schema. Safe to run on every startup.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return wrapErr("migrate", err)
	}
	return nil
}

// wrapErr maps driver errors onto the package sentinels. Anything that is not
// a missing row or a unique violation is treated as transient unavailability,
// which the HTTP layers surface as a retryable 503.
func wrapErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

func (p *Postgres) ListProducts(ctx context.Context) ([]model.Product, error) {
	const q = `
SELECT p.sku, p.name, p.category, p.price, p.cost, p.description, p.image_url,
       p.created_at, COALESCE(s.stock_threshold, 10) AS stock_threshold
  FROM products p
  LEFT JOIN stock_records s ON s.sku = p.sku
 ORDER BY p.created_at DESC
 LIMIT 1000`
	out := []model.Product{}
	if err := p.db.SelectContext(ctx, &out, q); err != nil {
		return nil, wrapErr("list products", err)
	}
	return out, nil
}

func (p *Postgres) GetProduct(ctx context.Context, sku string) (model.Product, error) {
	const q = `
SELECT p.sku, p.name, p.category, p.price, p.cost, p.description, p.image_url,
       p.created_at, COALESCE(s.stock_threshold, 10) AS stock_threshold
  FROM products p
  LEFT JOIN stock_records s ON s.sku = p.sku
 WHERE p.sku = $1`
	var out model.Product
	if err := p.db.GetContext(ctx, &out, q, sku); err != nil {
		return model.Product{}, wrapErr("get product", err)
	}
	return out, nil
}

func (p *Postgres) CreateProduct(ctx context.Context, prod model.Product) error {
	threshold := prod.Threshold
	if threshold <= 0 {
		threshold = model.DefaultThreshold
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr("create product", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertProduct = `
INSERT INTO products (sku, name, category, price, cost, description, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insertProduct,
		prod.SKU, prod.Name, prod.Category, prod.Price, prod.Cost, prod.Description, prod.ImageURL); err != nil {
		return wrapErr("create product", err)
	}
	const insertRecord = `
INSERT INTO stock_records (sku, quantity, stock_threshold) VALUES ($1, 0, $2)`
	if _, err := tx.ExecContext(ctx, insertRecord, prod.SKU, threshold); err != nil {
		return wrapErr("create stock record", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("create product", err)
	}
	return nil
}

func (p *Postgres) UpdateProduct(ctx context.Context, prod model.Product) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr("update product", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
UPDATE products
   SET name = $2, category = $3, price = $4, cost = $5, description = $6, image_url = $7
 WHERE sku = $1`
	res, err := tx.ExecContext(ctx, q,
		prod.SKU, prod.Name, prod.Category, prod.Price, prod.Cost, prod.Description, prod.ImageURL)
	if err != nil {
		return wrapErr("update product", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if prod.Threshold > 0 {
		const uq = `UPDATE stock_records SET stock_threshold = $2 WHERE sku = $1`
		if _, err := tx.ExecContext(ctx, uq, prod.SKU, prod.Threshold); err != nil {
			return wrapErr("update threshold", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("update product", err)
	}
	return nil
}

func (p *Postgres) DeleteProduct(ctx context.Context, sku string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM products WHERE sku = $1`, sku)
	if err != nil {
		return wrapErr("delete product", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetStock(ctx context.Context, sku string) (model.StockRecord, error) {
	const q = `
SELECT s.sku, COALESCE(p.name, '') AS name, s.quantity, s.stock_threshold, s.updated_at
  FROM stock_records s
  LEFT JOIN products p ON p.sku = s.sku
 WHERE s.sku = $1`
	var rec model.StockRecord
	if err := p.db.GetContext(ctx, &rec, q, sku); err != nil {
		return model.StockRecord{}, wrapErr("get stock", err)
	}
	return rec, nil
}

func (p *Postgres) ListStock(ctx context.Context) ([]model.StockRecord, error) {
	const q = `
SELECT s.sku, COALESCE(p.name, '') AS name, s.quantity, s.stock_threshold, s.updated_at
  FROM stock_records s
  LEFT JOIN products p ON p.sku = s.sku
 ORDER BY s.sku`
	out := []model.StockRecord{}
	if err := p.db.SelectContext(ctx, &out, q); err != nil {
		return nil, wrapErr("list stock", err)
	}
	return out, nil
}

// decrementQuery is the oversell guard: the WHERE clause makes the check and
// the mutation a single atomic statement, so concurrent requests for the same
// SKU serialize on the row and never drive quantity negative.
const decrementQuery = `
UPDATE stock_records
   SET quantity = quantity - $1, updated_at = now()
 WHERE sku = $2 AND quantity >= $1
RETURNING sku, quantity, stock_threshold, updated_at`

func (p *Postgres) Decrement(ctx context.Context, sku string, qty int) (model.StockRecord, error) {
	var rec model.StockRecord
	err := p.db.GetContext(ctx, &rec, decrementQuery, qty, sku)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StockRecord{}, p.classifyZeroRows(ctx, p.db, sku)
	}
	if err != nil {
		return model.StockRecord{}, wrapErr("decrement", err)
	}
	_ = p.db.GetContext(ctx, &rec.Name, `SELECT name FROM products WHERE sku = $1`, sku)
	return rec, nil
}

// classifyZeroRows tells a missing SKU apart from an insufficient balance
// after a conditional update touched no rows.
func (p *Postgres) classifyZeroRows(ctx context.Context, q sqlx.QueryerContext, sku string) error {
	var one int
	err := sqlx.GetContext(ctx, q, &one, `SELECT 1 FROM stock_records WHERE sku = $1`, sku)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return wrapErr("decrement", err)
	}
	return ErrInsufficientStock
}

func (p *Postgres) Increment(ctx context.Context, sku string, qty int, entry model.RestockEntry) (model.StockRecord, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.StockRecord{}, wrapErr("increment", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
UPDATE stock_records
   SET quantity = quantity + $1, updated_at = now()
 WHERE sku = $2
RETURNING sku, quantity, stock_threshold, updated_at`
	var rec model.StockRecord
	err = tx.GetContext(ctx, &rec, q, qty, sku)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StockRecord{}, ErrNotFound
	}
	if err != nil {
		return model.StockRecord{}, wrapErr("increment", err)
	}
	const insertLog = `
INSERT INTO restock_log (sku, quantity_added, supplier, cost_per_unit, total_cost)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insertLog, sku, qty, entry.Supplier, entry.CostPerUnit, entry.TotalCost); err != nil {
		return model.StockRecord{}, wrapErr("restock log", err)
	}
	if err := tx.Commit(); err != nil {
		return model.StockRecord{}, wrapErr("increment", err)
	}
	_ = p.db.GetContext(ctx, &rec.Name, `SELECT name FROM products WHERE sku = $1`, sku)
	return rec, nil
}

func (p *Postgres) ListAlerts(ctx context.Context) ([]model.StockAlert, error) {
	const q = `
SELECT s.sku, COALESCE(p.name, '') AS name, s.quantity, s.stock_threshold,
       (s.stock_threshold - s.quantity) AS deficit
  FROM stock_records s
  LEFT JOIN products p ON p.sku = s.sku
 WHERE s.quantity < s.stock_threshold
 ORDER BY deficit DESC, s.sku`
	out := []model.StockAlert{}
	if err := p.db.SelectContext(ctx, &out, q); err != nil {
		return nil, wrapErr("list alerts", err)
	}
	return out, nil
}

func (p *Postgres) ListRestocks(ctx context.Context) ([]model.RestockEntry, error) {
	const q = `
SELECT sku, quantity_added, supplier, cost_per_unit, total_cost, created_at
  FROM restock_log
 ORDER BY created_at DESC, id DESC
 LIMIT 100`
	out := []model.RestockEntry{}
	if err := p.db.SelectContext(ctx, &out, q); err != nil {
		return nil, wrapErr("list restocks", err)
	}
	return out, nil
}

func (p *Postgres) RecordSale(ctx context.Context, sale model.SaleTransaction) (model.StockRecord, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.StockRecord{}, wrapErr("record sale", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertSale = `
INSERT INTO sales (transaction_id, total_amount, payment_method, status)
VALUES ($1, $2, $3, $4)
RETURNING id`
	var saleID int64
	if err := tx.GetContext(ctx, &saleID, insertSale,
		sale.TransactionID, sale.Total, sale.PaymentMethod, model.SaleStatusCompleted); err != nil {
		return model.StockRecord{}, wrapErr("record sale", err)
	}

	const insertItem = `
INSERT INTO sale_items (sale_id, sku, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5)`
	var first model.StockRecord
	for i, line := range sale.Lines {
		if _, err := tx.ExecContext(ctx, insertItem,
			saleID, line.SKU, line.Quantity, line.UnitPrice, line.LineTotal); err != nil {
			return model.StockRecord{}, wrapErr("record sale item", err)
		}
		// The conditional decrement rides in the same transaction as the sale
		// insert: zero rows affected aborts the whole unit, so a sale is never
		// recorded against a decrement that did not happen.
		var rec model.StockRecord
		err := tx.GetContext(ctx, &rec, decrementQuery, line.Quantity, line.SKU)
		if errors.Is(err, sql.ErrNoRows) {
			return model.StockRecord{}, p.classifyZeroRows(ctx, tx, line.SKU)
		}
		if err != nil {
			return model.StockRecord{}, wrapErr("record sale decrement", err)
		}
		if i == 0 {
			first = rec
		}
	}
	if err := tx.Commit(); err != nil {
		return model.StockRecord{}, wrapErr("record sale", err)
	}
	return first, nil
}

func (p *Postgres) GetSale(ctx context.Context, transactionID string) (model.SaleTransaction, error) {
	const q = `
SELECT id, transaction_id, total_amount, payment_method, status, created_at
  FROM sales
 WHERE transaction_id = $1`
	var row struct {
		ID int64 `db:"id"`
		model.SaleTransaction
	}
	if err := p.db.GetContext(ctx, &row, q, transactionID); err != nil {
		return model.SaleTransaction{}, wrapErr("get sale", err)
	}
	lines, err := p.saleLines(ctx, []int64{row.ID})
	if err != nil {
		return model.SaleTransaction{}, err
	}
	row.SaleTransaction.Lines = lines[row.ID]
	return row.SaleTransaction, nil
}

func (p *Postgres) ListSales(ctx context.Context, limit int) ([]model.SaleTransaction, error) {
	const q = `
SELECT id, transaction_id, total_amount, payment_method, status, created_at
  FROM sales
 ORDER BY created_at DESC, id DESC
 LIMIT $1`
	rows := []struct {
		ID int64 `db:"id"`
		model.SaleTransaction
	}{}
	if err := p.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, wrapErr("list sales", err)
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	lines, err := p.saleLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.SaleTransaction, len(rows))
	for i, r := range rows {
		r.SaleTransaction.Lines = lines[r.ID]
		out[i] = r.SaleTransaction
	}
	return out, nil
}

func (p *Postgres) saleLines(ctx context.Context, saleIDs []int64) (map[int64][]model.SaleLine, error) {
	out := make(map[int64][]model.SaleLine, len(saleIDs))
	if len(saleIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`
SELECT si.sale_id, si.sku, COALESCE(p.name, '') AS name, si.quantity, si.unit_price, si.line_total
  FROM sale_items si
  LEFT JOIN products p ON p.sku = si.sku
 WHERE si.sale_id IN (?)
 ORDER BY si.id`, saleIDs)
	if err != nil {
		return nil, wrapErr("sale lines", err)
	}
	rows := []struct {
		SaleID int64 `db:"sale_id"`
		model.SaleLine
	}{}
	if err := p.db.SelectContext(ctx, &rows, p.db.Rebind(query), args...); err != nil {
		return nil, wrapErr("sale lines", err)
	}
	for _, r := range rows {
		out[r.SaleID] = append(out[r.SaleID], r.SaleLine)
	}
	return out, nil
}

func (p *Postgres) DailyReport(ctx context.Context, days int) ([]model.DailyReportRow, error) {
	const q = `
SELECT to_char(date_trunc('day', s.created_at), 'YYYY-MM-DD') AS sale_date,
       COUNT(DISTINCT s.id)            AS transaction_count,
       COALESCE(SUM(si.quantity), 0)   AS total_quantity,
       COALESCE(SUM(si.line_total), 0) AS total_revenue
  FROM sales s
  LEFT JOIN sale_items si ON si.sale_id = s.id
 GROUP BY 1
 ORDER BY 1 DESC
 LIMIT $1`
	out := []model.DailyReportRow{}
	if err := p.db.SelectContext(ctx, &out, q, days); err != nil {
		return nil, wrapErr("daily report", err)
	}
	return out, nil
}
