package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roz-pos/roz/internal/platform/db"
	"github.com/roz-pos/roz/internal/platform/httpx"
)

// Repository persists the product catalog in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes stock movements that must join a caller's transaction.
type TxRepository interface {
	Receive(ctx context.Context, in ReceiptInput) (Product, error)
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxRepository binds stock movements to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

const productColumns = `id, name, quantity, sell_price::float8, purchase_price::float8, COALESCE(vendor, ''), COALESCE(image, ''), created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Quantity, &p.SellPrice, &p.PurchasePrice, &p.Vendor, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// List returns every product ordered by name.
func (r *Repository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Get loads one product.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, httpx.ErrNotFound)
	}
	return p, err
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, p Product) (Product, error) {
	created, err := scanProduct(r.pool.QueryRow(ctx, `INSERT INTO products (name, quantity, sell_price, purchase_price, vendor, image)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+productColumns,
		p.Name, p.Quantity, p.SellPrice, p.PurchasePrice, nullable(p.Vendor), nullable(p.Image)))
	if db.IsUniqueViolation(err) {
		return Product{}, fmt.Errorf("product %q already exists: %w", p.Name, httpx.ErrDuplicate)
	}
	return created, err
}

// Update replaces a product's fields.
func (r *Repository) Update(ctx context.Context, p Product) (Product, error) {
	updated, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products
SET name = $2, quantity = $3, sell_price = $4, purchase_price = $5, vendor = $6, image = $7, updated_at = now()
WHERE id = $1
RETURNING `+productColumns,
		p.ID, p.Name, p.Quantity, p.SellPrice, p.PurchasePrice, nullable(p.Vendor), nullable(p.Image)))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Product{}, fmt.Errorf("product %d: %w", p.ID, httpx.ErrNotFound)
	case db.IsUniqueViolation(err):
		return Product{}, fmt.Errorf("product %q already exists: %w", p.Name, httpx.ErrDuplicate)
	}
	return updated, err
}

// Delete removes a product. Past sale lines keep their denormalized name.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func (t *txRepo) Receive(ctx context.Context, in ReceiptInput) (Product, error) {
	p, err := t.receive(ctx, in)
	if db.IsOutOfRange(err) {
		return Product{}, fmt.Errorf("%w: stock for %q would exceed the maximum quantity", httpx.ErrValidation, in.Name)
	}
	return p, err
}

func (t *txRepo) receive(ctx context.Context, in ReceiptInput) (Product, error) {
	if in.ProductID != nil {
		p, err := scanProduct(t.tx.QueryRow(ctx, `UPDATE products
SET quantity = quantity + $2,
    purchase_price = $3,
    sell_price = COALESCE($4::numeric, sell_price),
    vendor = COALESCE($5, vendor),
    updated_at = now()
WHERE id = $1
RETURNING `+productColumns,
			*in.ProductID, in.Quantity, in.PurchasePrice, in.SellPrice, nullable(in.Vendor)))
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: product %d does not exist", httpx.ErrValidation, *in.ProductID)
		}
		return p, err
	}

	return scanProduct(t.tx.QueryRow(ctx, `INSERT INTO products (name, quantity, purchase_price, sell_price, vendor)
VALUES ($1, $2, $3, COALESCE($4::numeric, 0), $5)
ON CONFLICT (name) DO UPDATE
SET quantity = products.quantity + EXCLUDED.quantity,
    purchase_price = EXCLUDED.purchase_price,
    sell_price = COALESCE($4::numeric, products.sell_price),
    vendor = COALESCE(EXCLUDED.vendor, products.vendor),
    updated_at = now()
RETURNING `+productColumns,
		in.Name, in.Quantity, in.PurchasePrice, in.SellPrice, nullable(in.Vendor)))
}
