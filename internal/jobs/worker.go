package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/tokoanjar/pos-api/internal/catalog"
	"github.com/tokoanjar/pos-api/internal/events"
	"github.com/tokoanjar/pos-api/internal/obs"
	"github.com/tokoanjar/pos-api/internal/printer"
	"github.com/tokoanjar/pos-api/internal/receipt"
)

// PrintHandler renders a stored receipt and streams it to the thermal printer.
type PrintHandler struct {
	Receipts receipt.Store
	Printer  *printer.Client
	Location *time.Location
	Logger   *zerolog.Logger
}

// ProcessTask handles receipt:print tasks.
func (h PrintHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ReceiptPrintPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode print payload: %w", asynq.SkipRetry)
	}
	rec, err := h.Receipts.Get(ctx, payload.ReceiptID)
	if err != nil {
		return fmt.Errorf("load receipt %s: %w", payload.ReceiptID, err)
	}
	if err := h.Printer.Print(ctx, receipt.Thermal(rec, h.Location)); err != nil {
		obs.PrintJobTotal.WithLabelValues("error").Inc()
		if h.Logger != nil {
			h.Logger.Error().Err(err).Str("invoice", rec.InvoiceNumber).Msg("print receipt")
		}
		return err
	}
	obs.PrintJobTotal.WithLabelValues("ok").Inc()
	if h.Logger != nil {
		h.Logger.Info().Str("invoice", rec.InvoiceNumber).Msg("receipt printed")
	}
	return nil
}

type lowStockLister interface {
	LowStock(ctx context.Context) ([]catalog.ProductView, error)
}

// LowStockHandler emits a stock.low event for every product at or under the
// threshold after a sale.
type LowStockHandler struct {
	Catalog lowStockLister
	Bus     *events.Bus
	Logger  *zerolog.Logger
}

// ProcessTask handles stock:low_scan tasks.
func (h LowStockHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	items, err := h.Catalog.LowStock(ctx)
	if err != nil {
		return fmt.Errorf("scan low stock: %w", err)
	}
	for _, item := range items {
		obs.LowStockAlertTotal.Inc()
		if h.Bus != nil {
			_, _ = h.Bus.Emit(ctx, events.TopicStockLow, item.ID, map[string]any{
				"name":  item.Name,
				"stock": item.Stock,
			})
		}
		if h.Logger != nil {
			h.Logger.Warn().Str("product", item.Name).Int("stock", item.Stock).Msg("low stock")
		}
	}
	return nil
}

// NewMux registers all task handlers.
func NewMux(print PrintHandler, lowStock LowStockHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeReceiptPrint, print)
	mux.Handle(TypeLowStockScan, lowStock)
	return mux
}

// ServerConfig returns asynq server options sized for a single-shop deployment.
func ServerConfig() asynq.Config {
	return asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			QueuePrint:   2,
			QueueDefault: 1,
		},
	}
}
