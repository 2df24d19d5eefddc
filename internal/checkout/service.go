package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tokoanjar/pos-api/internal/cart"
	"github.com/tokoanjar/pos-api/internal/common"
	"github.com/tokoanjar/pos-api/internal/events"
	"github.com/tokoanjar/pos-api/internal/lock"
	"github.com/tokoanjar/pos-api/internal/obs"
	"github.com/tokoanjar/pos-api/internal/pricing"
	"github.com/tokoanjar/pos-api/internal/receipt"
)

// JobEnqueuer schedules follow-up work after a sale is persisted.
type JobEnqueuer interface {
	EnqueueReceiptPrint(ctx context.Context, receiptID uuid.UUID) error
	EnqueueLowStockScan(ctx context.Context) error
}

// Database is the slice of *pgxpool.Pool the checkout service needs.
type Database interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service finalizes carts and manual invoices into receipts. All writes for a
// sale happen in one database transaction; a Redis lock keeps a cart from
// being checked out twice concurrently.
type Service struct {
	Pool     Database
	Carts    *cart.Service
	Locker   lock.Locker
	Bus      *events.Bus
	Jobs     JobEnqueuer
	Validate *validator.Validate
	Policy   pricing.Policy
	LockTTL  time.Duration
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) validate() *validator.Validate {
	if s.Validate == nil {
		s.Validate = validator.New()
	}
	return s.Validate
}

// CheckoutInput finalizes a register sale.
type CheckoutInput struct {
	CartID        uuid.UUID     `json:"cartId" validate:"required"`
	DiscountPct   float64       `json:"discountPct" validate:"gte=0,lte=100"`
	Paid          pricing.Money `json:"paid" validate:"gte=0"`
	CustomerName  string        `json:"customerName" validate:"max=200"`
	PaymentMethod string        `json:"paymentMethod" validate:"omitempty,oneof=cash debit credit qris transfer"`
}

// normalizePayment lowercases the advisory payment method, defaulting to cash.
func normalizePayment(method string) string {
	m := strings.ToLower(strings.TrimSpace(method))
	if m == "" {
		return receipt.PayCash
	}
	return m
}

// actorID pulls the authenticated cashier out of the request context so the
// receipt records who rang the sale up.
func actorID(ctx context.Context) *uuid.UUID {
	raw, ok := common.UserID(ctx)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// Checkout turns a cart into a receipt. Stock is decremented for every
// product line; photocopy lines never touch inventory.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (receipt.Receipt, error) {
	in.PaymentMethod = normalizePayment(in.PaymentMethod)
	if err := s.validate().Struct(in); err != nil {
		return receipt.Receipt{}, common.NewAppError("VALIDATION", "invalid checkout payload", http.StatusBadRequest, err)
	}

	var rec receipt.Receipt
	lockKey := "checkout:cart:" + in.CartID.String()
	err := s.Locker.WithLock(ctx, lockKey, s.LockTTL, func(ctx context.Context) error {
		c, err := s.Carts.Get(ctx, in.CartID)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				return common.NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, err)
			}
			return err
		}
		if len(c.Items) == 0 {
			return common.NewAppError("EMPTY_CART", "cart has no items", http.StatusBadRequest, nil)
		}

		summary := cart.Summarize(c, in.DiscountPct, s.Policy)
		if in.Paid < summary.Total {
			return common.NewAppError("UNDERPAID",
				fmt.Sprintf("paid amount %d is below total %d", in.Paid, summary.Total),
				http.StatusBadRequest, nil)
		}

		rec, err = s.persistSale(ctx, c, summary, in)
		return err
	})
	if err != nil {
		obs.CheckoutTotal.WithLabelValues("sale", "error").Inc()
		return receipt.Receipt{}, err
	}

	_ = s.Carts.Clear(ctx, in.CartID)
	s.afterSale(ctx, rec, "sale")
	return rec, nil
}

func (s *Service) persistSale(ctx context.Context, c cart.Cart, summary pricing.Summary, in CheckoutInput) (receipt.Receipt, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return receipt.Receipt{}, err
	}
	defer tx.Rollback(ctx)

	for _, it := range c.Items {
		if it.Photocopy || it.ProductID == nil {
			continue
		}
		tag, err := tx.Exec(ctx,
			"UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2",
			*it.ProductID, it.Qty)
		if err != nil {
			return receipt.Receipt{}, err
		}
		if tag.RowsAffected() == 0 {
			return receipt.Receipt{}, common.NewAppError("INSUFFICIENT_STOCK",
				fmt.Sprintf("not enough stock for %q", it.Name), http.StatusConflict, nil)
		}
	}

	now := s.now()
	number, err := NextInvoiceNumber(ctx, tx, false, now)
	if err != nil {
		return receipt.Receipt{}, err
	}

	items := make([]receipt.Item, 0, len(c.Items))
	for _, it := range c.Items {
		unit := it.SellPrice
		if it.CustomPrice != nil && *it.CustomPrice > 0 {
			unit = *it.CustomPrice
		}
		items = append(items, receipt.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Qty:       it.Qty,
			UnitPrice: unit,
			CostPrice: it.CostPrice,
			Photocopy: it.Photocopy,
			LineTotal: unit * pricing.Money(it.Qty),
		})
	}

	rec, err := insertReceipt(ctx, tx, receipt.Receipt{
		InvoiceNumber: number,
		Manual:        false,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		PaymentMethod: in.PaymentMethod,
		UserID:        actorID(ctx),
		Subtotal:      summary.Subtotal,
		Discount:      summary.Discount,
		Total:         summary.Total,
		Profit:        summary.Profit,
		Paid:          in.Paid,
		Change:        in.Paid - summary.Total,
	}, items)
	if err != nil {
		return receipt.Receipt{}, err
	}
	return rec, tx.Commit(ctx)
}

// Manual item kinds.
const (
	KindProduct   = "product"
	KindCustom    = "custom"
	KindPhotocopy = "photocopy"
)

// ManualItem is one line of a hand-written invoice. Exactly one kind applies:
// product lines reference the catalog for prices, custom lines carry their own
// prices, photocopy lines are priced by sheet-count tier.
type ManualItem struct {
	Kind        string         `json:"kind" validate:"required,oneof=product custom photocopy"`
	ProductID   *uuid.UUID     `json:"productId,omitempty"`
	Name        string         `json:"name" validate:"max=200"`
	Qty         int            `json:"qty" validate:"gt=0"`
	UnitPrice   pricing.Money  `json:"unitPrice" validate:"gte=0"`
	CostPrice   pricing.Money  `json:"costPrice" validate:"gte=0"`
	CustomPrice *pricing.Money `json:"customPrice,omitempty"`
}

// ManualInput records an invoice for a sale that happened off-register.
type ManualInput struct {
	Date          string        `json:"date" validate:"omitempty,datetime=2006-01-02"`
	CustomerName  string        `json:"customerName" validate:"max=200"`
	DiscountPct   float64       `json:"discountPct" validate:"gte=0,lte=100"`
	Paid          pricing.Money `json:"paid" validate:"gte=0"`
	PaymentMethod string        `json:"paymentMethod" validate:"omitempty,oneof=cash debit credit qris transfer"`
	Items         []ManualItem  `json:"items" validate:"required,min=1,dive"`
	CopyBase      pricing.Money `json:"-"`
}

// ManualInvoice persists a hand-written invoice as a receipt. Stock is never
// touched: the goods already left the shop when the paper invoice was written.
func (s *Service) ManualInvoice(ctx context.Context, in ManualInput) (receipt.Receipt, error) {
	in.PaymentMethod = normalizePayment(in.PaymentMethod)
	if err := s.validate().Struct(in); err != nil {
		return receipt.Receipt{}, common.NewAppError("VALIDATION", "invalid invoice payload", http.StatusBadRequest, err)
	}

	txDate := s.now()
	if in.Date != "" {
		parsed, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			return receipt.Receipt{}, common.NewAppError("VALIDATION", "invalid invoice date", http.StatusBadRequest, err)
		}
		txDate = parsed
	}

	lines := make([]pricing.Line, 0, len(in.Items))
	items := make([]receipt.Item, 0, len(in.Items))
	for i, mi := range in.Items {
		it, line, err := s.resolveManualItem(ctx, mi)
		if err != nil {
			return receipt.Receipt{}, common.NewAppError("VALIDATION",
				fmt.Sprintf("item %d: %v", i+1, err), http.StatusBadRequest, err)
		}
		items = append(items, it)
		lines = append(lines, line)
	}

	var subtotal pricing.Money
	for _, it := range items {
		subtotal += it.LineTotal
	}
	discount := pricing.PercentDiscount(subtotal, in.DiscountPct)
	summary := pricing.Compute(lines, discount, true, s.Policy)

	paid := in.Paid
	if paid < summary.Total {
		paid = summary.Total
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return receipt.Receipt{}, err
	}
	defer tx.Rollback(ctx)

	number, err := NextInvoiceNumber(ctx, tx, true, txDate)
	if err != nil {
		return receipt.Receipt{}, err
	}
	rec, err := insertReceipt(ctx, tx, receipt.Receipt{
		InvoiceNumber: number,
		Manual:        true,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		PaymentMethod: in.PaymentMethod,
		UserID:        actorID(ctx),
		Subtotal:      summary.Subtotal,
		Discount:      summary.Discount,
		Total:         summary.Total,
		Profit:        summary.Profit,
		Paid:          paid,
		Change:        paid - summary.Total,
	}, items)
	if err != nil {
		obs.CheckoutTotal.WithLabelValues("manual", "error").Inc()
		return receipt.Receipt{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return receipt.Receipt{}, err
	}

	s.afterSale(ctx, rec, "manual")
	return rec, nil
}

func (s *Service) resolveManualItem(ctx context.Context, mi ManualItem) (receipt.Item, pricing.Line, error) {
	switch mi.Kind {
	case KindProduct:
		if mi.ProductID == nil {
			return receipt.Item{}, pricing.Line{}, errors.New("productId is required for product lines")
		}
		var name string
		var sell, cost pricing.Money
		err := s.Pool.QueryRow(ctx,
			"SELECT name, sell_price, cost_price FROM products WHERE id = $1", *mi.ProductID).
			Scan(&name, &sell, &cost)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return receipt.Item{}, pricing.Line{}, errors.New("product not found")
			}
			return receipt.Item{}, pricing.Line{}, err
		}
		unit := sell
		if mi.UnitPrice > 0 {
			unit = mi.UnitPrice
		}
		return receipt.Item{
				ProductID: mi.ProductID,
				Name:      name,
				Qty:       mi.Qty,
				UnitPrice: unit,
				CostPrice: cost,
				LineTotal: unit * pricing.Money(mi.Qty),
			}, pricing.Line{
				Qty: mi.Qty, SellPrice: unit, CostPrice: cost,
			}, nil

	case KindCustom:
		if strings.TrimSpace(mi.Name) == "" {
			return receipt.Item{}, pricing.Line{}, errors.New("name is required for custom lines")
		}
		return receipt.Item{
				Name:      strings.TrimSpace(mi.Name),
				Qty:       mi.Qty,
				UnitPrice: mi.UnitPrice,
				CostPrice: mi.CostPrice,
				LineTotal: mi.UnitPrice * pricing.Money(mi.Qty),
			}, pricing.Line{
				Qty: mi.Qty, SellPrice: mi.UnitPrice, CostPrice: mi.CostPrice,
			}, nil

	case KindPhotocopy:
		name := strings.TrimSpace(mi.Name)
		if name == "" {
			name = "Fotocopy"
		}
		unit, total := pricing.CopyPrice(mi.Qty, s.copyBase(), mi.CustomPrice)
		return receipt.Item{
				Name:      name,
				Qty:       mi.Qty,
				UnitPrice: unit,
				Photocopy: true,
				LineTotal: total,
			}, pricing.Line{
				Qty: mi.Qty, SellPrice: unit, Photocopy: true,
			}, nil

	default:
		return receipt.Item{}, pricing.Line{}, fmt.Errorf("unknown item kind %q", mi.Kind)
	}
}

// CopyBasePrice mirrors the cart service so both paths price loose copies the
// same way.
func (s *Service) copyBase() pricing.Money {
	if s.Carts != nil && s.Carts.CopyBasePrice > 0 {
		return s.Carts.CopyBasePrice
	}
	return 300
}

func insertReceipt(ctx context.Context, tx pgx.Tx, rec receipt.Receipt, items []receipt.Item) (receipt.Receipt, error) {
	err := tx.QueryRow(ctx, `
INSERT INTO receipts (invoice_number, is_manual, customer_name, payment_method, user_id, subtotal, discount, total, profit, paid, change)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, created_at`,
		rec.InvoiceNumber, rec.Manual, rec.CustomerName, rec.PaymentMethod, rec.UserID,
		rec.Subtotal, rec.Discount, rec.Total, rec.Profit, rec.Paid, rec.Change).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return receipt.Receipt{}, fmt.Errorf("insert receipt: %w", err)
	}

	for i := range items {
		it := &items[i]
		it.ReceiptID = rec.ID
		err := tx.QueryRow(ctx, `
INSERT INTO receipt_items (receipt_id, product_id, name, qty, unit_price, cost_price, is_photocopy, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
			it.ReceiptID, it.ProductID, it.Name, it.Qty, it.UnitPrice, it.CostPrice, it.Photocopy, it.LineTotal).
			Scan(&it.ID)
		if err != nil {
			return receipt.Receipt{}, fmt.Errorf("insert receipt item: %w", err)
		}
	}
	rec.Items = items
	return rec, nil
}

func (s *Service) afterSale(ctx context.Context, rec receipt.Receipt, kind string) {
	obs.CheckoutTotal.WithLabelValues(kind, "ok").Inc()
	obs.ReceiptAmount.WithLabelValues(kind).Observe(float64(rec.Total))

	if s.Bus != nil {
		topic := events.TopicReceiptCreated
		if rec.Manual {
			topic = events.TopicManualInvoice
		}
		_, _ = s.Bus.Emit(ctx, topic, rec.ID, map[string]any{
			"invoiceNumber": rec.InvoiceNumber,
			"total":         rec.Total,
			"manual":        rec.Manual,
		})
	}
	if s.Jobs != nil {
		_ = s.Jobs.EnqueueReceiptPrint(ctx, rec.ID)
		if !rec.Manual {
			_ = s.Jobs.EnqueueLowStockScan(ctx)
		}
	}
}
