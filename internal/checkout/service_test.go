package checkout

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/tokoanjar/pos-api/internal/cart"
	"github.com/tokoanjar/pos-api/internal/common"
	"github.com/tokoanjar/pos-api/internal/pricing"
	"github.com/tokoanjar/pos-api/internal/receipt"
)

func requireValidation(t *testing.T, err error) {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION", appErr.Code)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestCheckoutRejectsInvalidPayload(t *testing.T) {
	svc := &Service{}
	ctx := context.Background()

	_, err := svc.Checkout(ctx, CheckoutInput{})
	requireValidation(t, err)

	_, err = svc.Checkout(ctx, CheckoutInput{CartID: uuid.New(), DiscountPct: 150})
	requireValidation(t, err)

	_, err = svc.Checkout(ctx, CheckoutInput{CartID: uuid.New(), Paid: -1})
	requireValidation(t, err)

	_, err = svc.Checkout(ctx, CheckoutInput{CartID: uuid.New(), PaymentMethod: "e-wallet"})
	requireValidation(t, err)
}

func TestManualInvoiceRejectsInvalidPayload(t *testing.T) {
	svc := &Service{}
	ctx := context.Background()

	_, err := svc.ManualInvoice(ctx, ManualInput{})
	requireValidation(t, err)

	_, err = svc.ManualInvoice(ctx, ManualInput{
		Date:  "02-09-2026",
		Items: []ManualItem{{Kind: KindCustom, Name: "Jilid", Qty: 1}},
	})
	requireValidation(t, err)

	_, err = svc.ManualInvoice(ctx, ManualInput{
		Items: []ManualItem{{Kind: "rental", Qty: 1}},
	})
	requireValidation(t, err)

	_, err = svc.ManualInvoice(ctx, ManualInput{
		Items: []ManualItem{{Kind: KindCustom, Name: "Jilid", Qty: 0}},
	})
	requireValidation(t, err)

	_, err = svc.ManualInvoice(ctx, ManualInput{
		PaymentMethod: "cicilan",
		Items:         []ManualItem{{Kind: KindCustom, Name: "Jilid", Qty: 1}},
	})
	requireValidation(t, err)
}

func TestNormalizePayment(t *testing.T) {
	require.Equal(t, receipt.PayCash, normalizePayment(""))
	require.Equal(t, receipt.PayCash, normalizePayment("  "))
	require.Equal(t, receipt.PayQRIS, normalizePayment("QRIS"))
	require.Equal(t, receipt.PayDebit, normalizePayment(" Debit "))
}

func TestResolveManualItemCustom(t *testing.T) {
	svc := &Service{}

	it, line, err := svc.resolveManualItem(context.Background(), ManualItem{
		Kind:      KindCustom,
		Name:      "  Jilid Spiral ",
		Qty:       3,
		UnitPrice: 5000,
		CostPrice: 2000,
	})
	require.NoError(t, err)
	require.Equal(t, "Jilid Spiral", it.Name)
	require.Equal(t, pricing.Money(15000), it.LineTotal)
	require.False(t, it.Photocopy)
	require.Equal(t, 3, line.Qty)
	require.Equal(t, pricing.Money(2000), line.CostPrice)

	_, _, err = svc.resolveManualItem(context.Background(), ManualItem{Kind: KindCustom, Qty: 1})
	require.ErrorContains(t, err, "name is required")
}

func TestResolveManualItemPhotocopy(t *testing.T) {
	svc := &Service{}

	it, line, err := svc.resolveManualItem(context.Background(), ManualItem{
		Kind: KindPhotocopy,
		Qty:  500,
	})
	require.NoError(t, err)
	require.Equal(t, "Fotocopy", it.Name)
	require.True(t, it.Photocopy)
	require.Equal(t, pricing.Money(275), it.UnitPrice)
	require.Equal(t, pricing.Money(137500), it.LineTotal)
	require.True(t, line.Photocopy)

	custom := pricing.Money(200)
	it, _, err = svc.resolveManualItem(context.Background(), ManualItem{
		Kind:        KindPhotocopy,
		Name:        "FC Warna",
		Qty:         10,
		CustomPrice: &custom,
	})
	require.NoError(t, err)
	require.Equal(t, "FC Warna", it.Name)
	require.Equal(t, pricing.Money(200), it.UnitPrice)
}

func TestResolveManualItemProductRequiresID(t *testing.T) {
	svc := &Service{}

	_, _, err := svc.resolveManualItem(context.Background(), ManualItem{Kind: KindProduct, Qty: 1})
	require.ErrorContains(t, err, "productId is required")
}

func TestResolveManualItemUnknownKind(t *testing.T) {
	svc := &Service{}

	_, _, err := svc.resolveManualItem(context.Background(), ManualItem{Kind: "rental", Qty: 1})
	require.ErrorContains(t, err, "unknown item kind")
}

// fakeTx stands in for the sale transaction. Statements are routed by their
// SQL text and captured so the test can assert on what would hit Postgres.
type fakeTx struct {
	pgx.Tx

	stockAffected int64
	stockUpdates  [][]any
	receiptArgs   []any
	itemArgs      [][]any
	committed     bool
	rolledBack    bool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if strings.HasPrefix(sql, "UPDATE products") {
		tx.stockUpdates = append(tx.stockUpdates, args)
		return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", tx.stockAffected)), nil
	}
	return pgconn.CommandTag{}, nil
}

func (tx *fakeTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "generate_invoice_number"):
		return fakeRow{scan: func(dest ...any) error {
			*(dest[0].(*string)) = "POS-020926-0001"
			return nil
		}}
	case strings.Contains(sql, "INSERT INTO receipt_items"):
		tx.itemArgs = append(tx.itemArgs, args)
		return fakeRow{scan: func(dest ...any) error {
			*(dest[0].(*uuid.UUID)) = uuid.New()
			return nil
		}}
	case strings.Contains(sql, "INSERT INTO receipts"):
		tx.receiptArgs = args
		return fakeRow{scan: func(dest ...any) error {
			*(dest[0].(*uuid.UUID)) = uuid.New()
			*(dest[1].(*time.Time)) = time.Date(2026, time.September, 2, 10, 0, 0, 0, time.UTC)
			return nil
		}}
	}
	return fakeRow{scan: func(...any) error { return fmt.Errorf("unexpected query: %s", sql) }}
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	tx *fakeTx
}

func (db *fakeDB) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return db.tx, nil
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	return fakeRow{scan: func(...any) error { return fmt.Errorf("unexpected query: %s", sql) }}
}

func saleCart() (cart.Cart, uuid.UUID) {
	productID := uuid.New()
	return cart.Cart{
		ID: uuid.New(),
		Items: []cart.Item{
			{ProductID: &productID, Name: "Buku Tulis Sidu", Qty: 2, SellPrice: 4000, CostPrice: 3000},
			{Name: "Fotocopy", Qty: 100, SellPrice: 300, Photocopy: true},
		},
	}, productID
}

func TestPersistSaleCommitsReceipt(t *testing.T) {
	tx := &fakeTx{stockAffected: 1}
	svc := &Service{Pool: &fakeDB{tx: tx}}

	c, productID := saleCart()
	summary := cart.Summarize(c, 0, pricing.Policy{})
	cashier := uuid.New()
	ctx := common.WithUserID(context.Background(), cashier.String())

	rec, err := svc.persistSale(ctx, c, summary, CheckoutInput{
		CartID:        c.ID,
		Paid:          40000,
		PaymentMethod: receipt.PayQRIS,
	})
	require.NoError(t, err)
	require.True(t, tx.committed)
	require.False(t, tx.rolledBack)

	// Only the product line decrements stock; the copy line never does.
	require.Len(t, tx.stockUpdates, 1)
	require.Equal(t, productID, tx.stockUpdates[0][0])
	require.Equal(t, 2, tx.stockUpdates[0][1])

	require.Equal(t, "POS-020926-0001", rec.InvoiceNumber)
	require.Equal(t, receipt.PayQRIS, tx.receiptArgs[3])
	require.Equal(t, &cashier, tx.receiptArgs[4])
	require.Equal(t, pricing.Money(38000), rec.Subtotal)
	require.Equal(t, pricing.Money(2000), rec.Change)
	require.Len(t, tx.itemArgs, 2)
	require.Len(t, rec.Items, 2)
}

func TestPersistSaleInsufficientStockRollsBack(t *testing.T) {
	tx := &fakeTx{stockAffected: 0}
	svc := &Service{Pool: &fakeDB{tx: tx}}

	c, _ := saleCart()
	summary := cart.Summarize(c, 0, pricing.Policy{})

	_, err := svc.persistSale(context.Background(), c, summary, CheckoutInput{
		CartID:        c.ID,
		Paid:          40000,
		PaymentMethod: receipt.PayCash,
	})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)

	// Nothing reaches the sales tables and the transaction is rolled back.
	require.True(t, tx.rolledBack)
	require.False(t, tx.committed)
	require.Nil(t, tx.receiptArgs)
	require.Empty(t, tx.itemArgs)
}

func TestCopyBaseFallsBack(t *testing.T) {
	svc := &Service{}
	require.Equal(t, pricing.Money(300), svc.copyBase())

	svc.Carts = &cart.Service{CopyBasePrice: 350}
	require.Equal(t, pricing.Money(350), svc.copyBase())
}
