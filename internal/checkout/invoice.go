package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Invoice number prefixes. Register sales use POS, hand-written invoices MAN.
const (
	PrefixSale   = "POS"
	PrefixManual = "MAN"
)

// FormatInvoiceNumber renders PREFIX-DDMMYY-NNNN for the given date and sequence.
func FormatInvoiceNumber(manual bool, date time.Time, seq int) string {
	prefix := PrefixSale
	if manual {
		prefix = PrefixManual
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, date.Format("020106"), seq)
}

type invoiceQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NextInvoiceNumber asks Postgres for the next number in the per-day sequence.
// The generate_invoice_number function locks the day's counter row so two
// concurrent checkouts never share a number. When the function is missing
// (fresh database mid-migration) it falls back to a count-based number.
//
// The callers run this inside the sale transaction, and a failed SELECT
// poisons everything after it, so the first attempt runs under a savepoint
// that is rolled back before the fallback query.
func NextInvoiceNumber(ctx context.Context, q invoiceQuerier, manual bool, date time.Time) (string, error) {
	if _, err := q.Exec(ctx, "SAVEPOINT invoice_number"); err != nil {
		return "", err
	}
	var number string
	err := q.QueryRow(ctx, "SELECT generate_invoice_number($1, $2)", manual, date).Scan(&number)
	if err == nil {
		if _, err := q.Exec(ctx, "RELEASE SAVEPOINT invoice_number"); err != nil {
			return "", err
		}
		return number, nil
	}
	if _, rbErr := q.Exec(ctx, "ROLLBACK TO SAVEPOINT invoice_number"); rbErr != nil {
		return "", fmt.Errorf("generate invoice number: %w", err)
	}

	prefix := PrefixSale
	if manual {
		prefix = PrefixManual
	}
	var count int
	countErr := q.QueryRow(ctx,
		"SELECT COUNT(*) FROM receipts WHERE invoice_number LIKE $1",
		prefix+"-"+date.Format("020106")+"-%",
	).Scan(&count)
	if countErr != nil {
		return "", fmt.Errorf("generate invoice number: %w", err)
	}
	return FormatInvoiceNumber(manual, date, count+1), nil
}
