package procurement

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roz-pos/roz/internal/inventory"
	"github.com/roz-pos/roz/internal/platform/db"
)

// Repository persists purchases in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes of one purchase.
type TxRepository interface {
	ReceiveStock(ctx context.Context, in inventory.ReceiptInput) (inventory.Product, error)
	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
}

type txRepo struct {
	tx    pgx.Tx
	stock inventory.TxRepository
}

// WithTx runs fn in a read-committed transaction so the name upsert resolves
// concurrent inserts instead of failing with a serialization error.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, stock: inventory.NewTxRepository(tx)})
	})
}

func (t *txRepo) ReceiveStock(ctx context.Context, in inventory.ReceiptInput) (inventory.Product, error) {
	return t.stock.Receive(ctx, in)
}

func (t *txRepo) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchases (product_id, item_name, quantity, purchase_price, vendor, created_by)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
RETURNING id`, p.ProductID, p.ItemName, p.Quantity, p.PurchasePrice, p.Vendor, p.CreatedBy).Scan(&id)
	return id, err
}

// ListPurchases returns purchases newest first.
func (r *Repository) ListPurchases(ctx context.Context, limit, offset int) ([]Purchase, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, item_name, quantity, purchase_price::float8, COALESCE(vendor, ''), created_by, created_at
FROM purchases
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := []Purchase{}
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.ProductID, &p.ItemName, &p.Quantity, &p.PurchasePrice, &p.Vendor, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
