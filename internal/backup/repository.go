package backup

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roz-pos/roz/internal/inventory"
	"github.com/roz-pos/roz/internal/platform/db"
	"github.com/roz-pos/roz/internal/procurement"
)

// Repository reads and replaces catalog state in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Snapshot reads products and purchases from one repeatable-read snapshot.
func (r *Repository) Snapshot(ctx context.Context) ([]inventory.Product, []procurement.Purchase, error) {
	var (
		products  []inventory.Product
		purchases []procurement.Purchase
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if products, err = readProducts(ctx, tx); err != nil {
			return fmt.Errorf("read products: %w", err)
		}
		if purchases, err = readPurchases(ctx, tx); err != nil {
			return fmt.Errorf("read purchases: %w", err)
		}
		return nil
	})
	return products, purchases, err
}

// Replace deletes every product and purchase and loads the given rows, keeping
// their ids. Sequences are moved past the restored ids.
func (r *Repository) Replace(ctx context.Context, products []inventory.Product, purchases []procurement.Purchase) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM purchases`); err != nil {
			return fmt.Errorf("clear purchases: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
			return fmt.Errorf("clear products: %w", err)
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"products"},
			[]string{"id", "name", "quantity", "sell_price", "purchase_price", "vendor", "image", "created_at", "updated_at"},
			pgx.CopyFromSlice(len(products), func(i int) ([]any, error) {
				p := products[i]
				return []any{p.ID, p.Name, p.Quantity, p.SellPrice, p.PurchasePrice, nullable(p.Vendor), nullable(p.Image), p.CreatedAt, p.UpdatedAt}, nil
			})); err != nil {
			return fmt.Errorf("load products: %w", err)
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"purchases"},
			[]string{"id", "product_id", "item_name", "quantity", "purchase_price", "vendor", "created_by", "created_at"},
			pgx.CopyFromSlice(len(purchases), func(i int) ([]any, error) {
				p := purchases[i]
				return []any{p.ID, p.ProductID, p.ItemName, p.Quantity, p.PurchasePrice, nullable(p.Vendor), p.CreatedBy, p.CreatedAt}, nil
			})); err != nil {
			return fmt.Errorf("load purchases: %w", err)
		}

		for _, table := range []string{"products", "purchases"} {
			if _, err := tx.Exec(ctx, `SELECT setval(pg_get_serial_sequence($1, 'id'), COALESCE((SELECT MAX(id) FROM `+table+`), 0) + 1, false)`, table); err != nil {
				return fmt.Errorf("reset %s sequence: %w", table, err)
			}
		}
		return nil
	})
}

func readProducts(ctx context.Context, tx pgx.Tx) ([]inventory.Product, error) {
	rows, err := tx.Query(ctx, `SELECT id, name, quantity, sell_price::float8, purchase_price::float8, COALESCE(vendor, ''), COALESCE(image, ''), created_at, updated_at
FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []inventory.Product{}
	for rows.Next() {
		var p inventory.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.SellPrice, &p.PurchasePrice, &p.Vendor, &p.Image, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func readPurchases(ctx context.Context, tx pgx.Tx) ([]procurement.Purchase, error) {
	rows, err := tx.Query(ctx, `SELECT id, product_id, item_name, quantity, purchase_price::float8, COALESCE(vendor, ''), created_by, created_at
FROM purchases ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := []procurement.Purchase{}
	for rows.Next() {
		var p procurement.Purchase
		if err := rows.Scan(&p.ID, &p.ProductID, &p.ItemName, &p.Quantity, &p.PurchasePrice, &p.Vendor, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
