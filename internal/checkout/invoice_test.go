package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	date := time.Date(2026, time.September, 2, 10, 30, 0, 0, time.UTC)

	require.Equal(t, "POS-020926-0001", FormatInvoiceNumber(false, date, 1))
	require.Equal(t, "MAN-020926-0042", FormatInvoiceNumber(true, date, 42))
	require.Equal(t, "POS-311225-9999", FormatInvoiceNumber(false, time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), 9999))
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

func abortedTxError() error {
	return &pgconn.PgError{Code: "25P02", Message: "current transaction is aborted, commands ignored until end of transaction block"}
}

// fakeQuerier behaves like an open pgx transaction: once a statement fails
// every later statement fails with 25P02 until a ROLLBACK TO SAVEPOINT.
type fakeQuerier struct {
	rows    []fakeRow
	aborted bool
	execs   []string
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if strings.HasPrefix(sql, "ROLLBACK TO SAVEPOINT") {
		q.aborted = false
		q.execs = append(q.execs, sql)
		return pgconn.CommandTag{}, nil
	}
	if q.aborted {
		return pgconn.CommandTag{}, abortedTxError()
	}
	q.execs = append(q.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	if q.aborted {
		return fakeRow{scan: func(...any) error { return abortedTxError() }}
	}
	next := q.rows[0]
	q.rows = q.rows[1:]
	return fakeRow{scan: func(dest ...any) error {
		err := next.scan(dest...)
		if err != nil {
			q.aborted = true
		}
		return err
	}}
}

func TestNextInvoiceNumberUsesDatabaseFunction(t *testing.T) {
	q := &fakeQuerier{rows: []fakeRow{{scan: func(dest ...any) error {
		*(dest[0].(*string)) = "POS-020926-0007"
		return nil
	}}}}

	number, err := NextInvoiceNumber(context.Background(), q, false, time.Now())
	require.NoError(t, err)
	require.Equal(t, "POS-020926-0007", number)
	require.Equal(t, []string{"SAVEPOINT invoice_number", "RELEASE SAVEPOINT invoice_number"}, q.execs)
}

func TestNextInvoiceNumberFallsBackToCount(t *testing.T) {
	date := time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC)
	q := &fakeQuerier{rows: []fakeRow{
		{scan: func(...any) error { return errors.New("function generate_invoice_number does not exist") }},
		{scan: func(dest ...any) error {
			*(dest[0].(*int)) = 3
			return nil
		}},
	}}

	// The failed SELECT aborts the surrounding transaction; only the
	// savepoint rollback lets the count query run.
	number, err := NextInvoiceNumber(context.Background(), q, true, date)
	require.NoError(t, err)
	require.Equal(t, "MAN-020926-0004", number)
	require.Contains(t, q.execs, "ROLLBACK TO SAVEPOINT invoice_number")
}

func TestNextInvoiceNumberBothQueriesFail(t *testing.T) {
	q := &fakeQuerier{rows: []fakeRow{
		{scan: func(...any) error { return errors.New("function generate_invoice_number does not exist") }},
		{scan: func(...any) error { return errors.New("connection lost") }},
	}}

	_, err := NextInvoiceNumber(context.Background(), q, false, time.Now())
	require.ErrorContains(t, err, "generate invoice number")
}
