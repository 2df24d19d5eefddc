package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokoanjar/pos-api/internal/pricing"
)

// ErrNotFound is returned when a product does not exist.
var ErrNotFound = errors.New("catalog: product not found")

// ErrInsufficientStock is returned when an adjustment would drive stock negative.
var ErrInsufficientStock = errors.New("catalog: insufficient stock")

// Product is a catalog row. Photocopy marks the service pseudo-product
// whose stock is pinned to zero.
type Product struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Barcode   *string       `json:"barcode,omitempty"`
	Category  string        `json:"category"`
	SellPrice pricing.Money `json:"sellPrice"`
	CostPrice pricing.Money `json:"costPrice"`
	Stock     int           `json:"stock"`
	Photocopy bool          `json:"isPhotocopy"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	Category string
	Page     int
	Limit    int
}

// Store runs catalog queries against Postgres.
type Store struct {
	DB *pgxpool.Pool
}

const productColumns = `id, name, barcode, category, sell_price, cost_price, stock, is_photocopy, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Barcode, &p.Category, &p.SellPrice, &p.CostPrice, &p.Stock, &p.Photocopy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// List returns a page of products plus the total match count.
func (s Store) List(ctx context.Context, params ListParams) ([]Product, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if q := strings.TrimSpace(params.Query); q != "" {
		args = append(args, "%"+q+"%", q)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR barcode = $%d)", len(args)-1, len(args)))
	}
	if c := strings.TrimSpace(params.Category); c != "" {
		args = append(args, c)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(*) FROM products WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (params.Page - 1) * params.Limit
	args = append(args, params.Limit, offset)
	query := fmt.Sprintf("SELECT %s FROM products WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d",
		productColumns, cond, len(args)-1, len(args))
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// Get fetches one product by id.
func (s Store) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	return scanProduct(row)
}

// GetByName performs a case-insensitive exact-name lookup.
func (s Store) GetByName(ctx context.Context, name string) (Product, error) {
	row := s.DB.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE LOWER(name) = LOWER($1)", strings.TrimSpace(name))
	return scanProduct(row)
}

// GetByBarcode looks a product up by its exact barcode.
func (s Store) GetByBarcode(ctx context.Context, code string) (Product, error) {
	row := s.DB.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE barcode = $1", strings.TrimSpace(code))
	return scanProduct(row)
}

// Insert creates a product and returns the stored row.
func (s Store) Insert(ctx context.Context, p Product) (Product, error) {
	row := s.DB.QueryRow(ctx, `
INSERT INTO products (name, barcode, category, sell_price, cost_price, stock, is_photocopy)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+productColumns,
		p.Name, p.Barcode, p.Category, p.SellPrice, p.CostPrice, p.Stock, p.Photocopy)
	return scanProduct(row)
}

// Update overwrites mutable product fields.
func (s Store) Update(ctx context.Context, p Product) (Product, error) {
	row := s.DB.QueryRow(ctx, `
UPDATE products
SET name = $2, barcode = $3, category = $4, sell_price = $5, cost_price = $6, stock = $7, updated_at = NOW()
WHERE id = $1
RETURNING `+productColumns,
		p.ID, p.Name, p.Barcode, p.Category, p.SellPrice, p.CostPrice, p.Stock)
	return scanProduct(row)
}

// Delete removes a product.
func (s Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock applies a delta to the stock column. Negative deltas fail with
// ErrInsufficientStock when the resulting stock would drop below zero; the
// CHECK constraint on the column backs this up under concurrency.
func (s Store) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (Product, error) {
	row := s.DB.QueryRow(ctx, `
UPDATE products
SET stock = stock + $2, updated_at = NOW()
WHERE id = $1
RETURNING `+productColumns, id, delta)
	p, err := scanProduct(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return Product{}, ErrInsufficientStock
		}
		return Product{}, err
	}
	return p, nil
}

// ListLowStock returns products at or below the threshold, lowest first.
func (s Store) ListLowStock(ctx context.Context, threshold int) ([]Product, error) {
	rows, err := s.DB.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE stock <= $1 AND NOT is_photocopy ORDER BY stock ASC, name ASC", threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// ListCategories returns distinct category names.
func (s Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT DISTINCT category FROM products ORDER BY category ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
