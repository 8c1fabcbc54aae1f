package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roz-pos/roz/internal/platform/db"
	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/shared"
)

const idempotencyModule = "sales"

// Repository provides PostgreSQL backed persistence for sales.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes of the sale transaction.
type TxRepository interface {
	ClaimIdempotencyKey(ctx context.Context, key string) error
	CustomerName(ctx context.Context, id int64) (string, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleItem(ctx context.Context, item SaleItem) (int64, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	InsertDebt(ctx context.Context, debt Debt) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type txRepo struct {
	tx dbtx
}

// WithTx runs fn in a read-committed transaction. The conditional stock
// decrement re-checks the row under its lock, so a stricter level is not
// needed.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) ClaimIdempotencyKey(ctx context.Context, key string) error {
	err := shared.NewIdempotencyStore(t.tx).CheckAndInsert(ctx, key, idempotencyModule)
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		return fmt.Errorf("sale with idempotency key %q already recorded: %w", key, httpx.ErrDuplicate)
	}
	return err
}

func (t *txRepo) CustomerName(ctx context.Context, id int64) (string, error) {
	var name string
	err := t.tx.QueryRow(ctx, `SELECT name FROM customers WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("customer %d: %w", id, httpx.ErrNotFound)
	}
	return name, err
}

func (t *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (customer_id, total_amount, payment_type, created_by)
VALUES ($1, $2, $3, $4)
RETURNING id`, sale.CustomerID, sale.TotalAmount, string(sale.PaymentType), sale.CreatedBy).Scan(&id)
	return id, err
}

func (t *txRepo) InsertSaleItem(ctx context.Context, item SaleItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sale_items (sale_id, product_id, item_name, quantity, price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`, item.SaleID, item.ProductID, item.Name, item.Quantity, item.Price).Scan(&id)
	return id, err
}

func (t *txRepo) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products
SET quantity = quantity - $2, updated_at = now()
WHERE id = $1 AND quantity >= $2`, productID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: product %d does not exist", httpx.ErrValidation, productID)
	}
	return fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
}

func (t *txRepo) InsertDebt(ctx context.Context, debt Debt) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO debts (customer_id, sale_id, total_debt)
VALUES ($1, $2, $3)
RETURNING id`, debt.CustomerID, debt.SaleID, debt.TotalDebt).Scan(&id)
	return id, err
}

// ListSales returns sale headers newest first.
func (r *Repository) ListSales(ctx context.Context, limit, offset int) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.customer_id, COALESCE(c.name, ''), s.total_amount, s.payment_type, s.created_by, s.created_at
FROM sales s
LEFT JOIN customers c ON c.id = s.customer_id
ORDER BY s.created_at DESC, s.id DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sales := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// GetSale returns one sale with its items.
func (r *Repository) GetSale(ctx context.Context, id int64) (*Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT s.id, s.customer_id, COALESCE(c.name, ''), s.total_amount, s.payment_type, s.created_by, s.created_at
FROM sales s
LEFT JOIN customers c ON c.id = s.customer_id
WHERE s.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sale %d: %w", id, httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, product_id, item_name, quantity, price
FROM sale_items WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Name, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	return &sale, rows.Err()
}

// ListDebts returns debts newest first, optionally for one customer.
func (r *Repository) ListDebts(ctx context.Context, customerID *int64) ([]Debt, error) {
	rows, err := r.pool.Query(ctx, `SELECT d.id, d.customer_id, c.name, d.sale_id, d.total_debt, d.created_at
FROM debts d
JOIN customers c ON c.id = d.customer_id
WHERE $1::BIGINT IS NULL OR d.customer_id = $1
ORDER BY d.created_at DESC, d.id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	debts := []Debt{}
	for rows.Next() {
		var d Debt
		if err := rows.Scan(&d.ID, &d.CustomerID, &d.CustomerName, &d.SaleID, &d.TotalDebt, &d.CreatedAt); err != nil {
			return nil, err
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

func scanSale(row pgx.Row) (Sale, error) {
	var (
		s           Sale
		paymentType string
	)
	err := row.Scan(&s.ID, &s.CustomerID, &s.CustomerName, &s.TotalAmount, &paymentType, &s.CreatedBy, &s.CreatedAt)
	s.PaymentType = PaymentType(paymentType)
	return s, err
}
