package restock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a list entry does not exist.
var ErrNotFound = errors.New("restock: item not found")

// Item is one line of the shop's restock memo: what to buy on the next trip
// to the supplier. Qty and CurrentStock are optional notes, not bookkeeping;
// receiving the goods still goes through the catalog's stock adjustment.
type Item struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Qty          *int      `json:"qty,omitempty"`
	CurrentStock *int      `json:"currentStock,omitempty"`
	Note         string    `json:"note,omitempty"`
	Done         bool      `json:"done"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store runs restock list queries against Postgres.
type Store struct {
	DB *pgxpool.Pool
}

const itemColumns = `id, name, qty, current_stock, note, done, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Qty, &it.CurrentStock, &it.Note, &it.Done, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

// List returns the whole memo, pending entries first, newest first.
func (s Store) List(ctx context.Context) ([]Item, error) {
	rows, err := s.DB.Query(ctx,
		"SELECT "+itemColumns+" FROM restock_items ORDER BY done ASC, created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Insert adds a new memo entry.
func (s Store) Insert(ctx context.Context, it Item) (Item, error) {
	row := s.DB.QueryRow(ctx, `
INSERT INTO restock_items (name, qty, current_stock, note)
VALUES ($1, $2, $3, $4)
RETURNING `+itemColumns,
		it.Name, it.Qty, it.CurrentStock, it.Note)
	return scanItem(row)
}

// Update rewrites an entry's fields.
func (s Store) Update(ctx context.Context, it Item) (Item, error) {
	row := s.DB.QueryRow(ctx, `
UPDATE restock_items
SET name = $2, qty = $3, current_stock = $4, note = $5, updated_at = NOW()
WHERE id = $1
RETURNING `+itemColumns,
		it.ID, it.Name, it.Qty, it.CurrentStock, it.Note)
	return scanItem(row)
}

// SetDone flips an entry's bought flag.
func (s Store) SetDone(ctx context.Context, id uuid.UUID, done bool) (Item, error) {
	row := s.DB.QueryRow(ctx, `
UPDATE restock_items SET done = $2, updated_at = NOW() WHERE id = $1
RETURNING `+itemColumns, id, done)
	return scanItem(row)
}

// Delete removes one entry.
func (s Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM restock_items WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearDone deletes every bought entry and reports how many went.
func (s Store) ClearDone(ctx context.Context) (int64, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM restock_items WHERE done")
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
