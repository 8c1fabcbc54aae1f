package dailybook

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roz-pos/roz/internal/platform/httpx"
)

// Repository persists daily book entries.
type Repository interface {
	List(ctx context.Context) ([]Entry, error)
	Create(ctx context.Context, content string) (*Entry, error)
	Update(ctx context.Context, id int64, content string) (*Entry, error)
	Delete(ctx context.Context, id int64) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	if err := row.Scan(&e.ID, &e.Content, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *pgRepository) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, content, created_at, updated_at FROM daily_book_entries ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *pgRepository) Create(ctx context.Context, content string) (*Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `INSERT INTO daily_book_entries (content) VALUES ($1)
RETURNING id, content, created_at, updated_at`, content))
}

func (r *pgRepository) Update(ctx context.Context, id int64, content string) (*Entry, error) {
	e, err := scanEntry(r.pool.QueryRow(ctx, `UPDATE daily_book_entries SET content = $2, updated_at = now()
WHERE id = $1
RETURNING id, content, created_at, updated_at`, id, content))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("entry %d: %w", id, httpx.ErrNotFound)
	}
	return e, err
}

func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM daily_book_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entry %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}
