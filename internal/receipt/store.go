package receipt

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokoanjar/pos-api/internal/pricing"
)

// ErrNotFound is returned when a receipt does not exist.
var ErrNotFound = errors.New("receipt: not found")

// Payment methods accepted at the counter. Advisory only: the shop records
// how the customer paid but every method settles the full total.
const (
	PayCash     = "cash"
	PayDebit    = "debit"
	PayCredit   = "credit"
	PayQRIS     = "qris"
	PayTransfer = "transfer"
)

// Receipt is a finalized sale or manual invoice.
type Receipt struct {
	ID            uuid.UUID     `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Manual        bool          `json:"manual"`
	CustomerName  string        `json:"customerName,omitempty"`
	PaymentMethod string        `json:"paymentMethod"`
	UserID        *uuid.UUID    `json:"userId,omitempty"`
	Subtotal      pricing.Money `json:"subtotal"`
	Discount      pricing.Money `json:"discount"`
	Total         pricing.Money `json:"total"`
	Profit        pricing.Money `json:"profit"`
	Paid          pricing.Money `json:"paid"`
	Change        pricing.Money `json:"change"`
	CreatedAt     time.Time     `json:"createdAt"`
	Items         []Item        `json:"items,omitempty"`
}

// Item is one receipt line.
type Item struct {
	ID        uuid.UUID     `json:"id"`
	ReceiptID uuid.UUID     `json:"-"`
	ProductID *uuid.UUID    `json:"productId,omitempty"`
	Name      string        `json:"name"`
	Qty       int           `json:"qty"`
	UnitPrice pricing.Money `json:"unitPrice"`
	CostPrice pricing.Money `json:"costPrice"`
	Photocopy bool          `json:"photocopy"`
	LineTotal pricing.Money `json:"lineTotal"`
}

// ListParams filters the receipt listing.
type ListParams struct {
	From   *time.Time
	To     *time.Time
	Manual *bool
	Page   int
	Limit  int
}

// Store runs receipt queries against Postgres.
type Store struct {
	DB *pgxpool.Pool
}

const receiptColumns = `id, invoice_number, is_manual, customer_name, payment_method, user_id, subtotal, discount, total, profit, paid, change, created_at`

func scanReceipt(row pgx.Row) (Receipt, error) {
	var rec Receipt
	err := row.Scan(&rec.ID, &rec.InvoiceNumber, &rec.Manual, &rec.CustomerName, &rec.PaymentMethod, &rec.UserID,
		&rec.Subtotal, &rec.Discount, &rec.Total, &rec.Profit, &rec.Paid, &rec.Change, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, ErrNotFound
		}
		return Receipt{}, err
	}
	return rec, nil
}

// List returns a page of receipts plus the total match count, newest first.
func (s Store) List(ctx context.Context, params ListParams) ([]Receipt, int64, error) {
	cond := "1=1"
	args := []any{}
	if params.From != nil {
		args = append(args, *params.From)
		cond += " AND created_at >= $1"
	}
	if params.To != nil {
		args = append(args, *params.To)
		cond += " AND created_at < $" + itoa(len(args))
	}
	if params.Manual != nil {
		args = append(args, *params.Manual)
		cond += " AND is_manual = $" + itoa(len(args))
	}

	var total int64
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(*) FROM receipts WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (params.Page - 1) * params.Limit
	args = append(args, params.Limit, offset)
	query := "SELECT " + receiptColumns + " FROM receipts WHERE " + cond +
		" ORDER BY created_at DESC LIMIT $" + itoa(len(args)-1) + " OFFSET $" + itoa(len(args))
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Receipt, 0)
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

// Get fetches one receipt with its items.
func (s Store) Get(ctx context.Context, id uuid.UUID) (Receipt, error) {
	rec, err := scanReceipt(s.DB.QueryRow(ctx,
		"SELECT "+receiptColumns+" FROM receipts WHERE id = $1", id))
	if err != nil {
		return Receipt{}, err
	}
	items, err := s.listItems(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	rec.Items = items
	return rec, nil
}

func (s Store) listItems(ctx context.Context, receiptID uuid.UUID) ([]Item, error) {
	rows, err := s.DB.Query(ctx, `
SELECT id, receipt_id, product_id, name, qty, unit_price, cost_price, is_photocopy, line_total
FROM receipt_items
WHERE receipt_id = $1
ORDER BY created_at ASC, id ASC`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ReceiptID, &it.ProductID, &it.Name,
			&it.Qty, &it.UnitPrice, &it.CostPrice, &it.Photocopy, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func itoa(n int) string { return strconv.Itoa(n) }
