package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names routed through the queue.
const (
	TypeReceiptPrint = "receipt:print"
	TypeLowStockScan = "stock:low_scan"
)

// Queue names. Print jobs get their own queue so a jammed printer does not
// starve alerting.
const (
	QueuePrint   = "print"
	QueueDefault = "default"
)

// ReceiptPrintPayload identifies the receipt to print.
type ReceiptPrintPayload struct {
	ReceiptID uuid.UUID `json:"receiptId"`
}

// TaskClient is the slice of *asynq.Client the enqueuer needs.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules background tasks on the asynq queue.
type Enqueuer struct {
	Client TaskClient
}

// EnqueueReceiptPrint queues a print job for the given receipt.
func (e Enqueuer) EnqueueReceiptPrint(ctx context.Context, receiptID uuid.UUID) error {
	if e.Client == nil {
		return nil
	}
	payload, err := json.Marshal(ReceiptPrintPayload{ReceiptID: receiptID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeReceiptPrint, payload)
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.Queue(QueuePrint),
		asynq.MaxRetry(3),
		asynq.TaskID("print:"+receiptID.String()),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue receipt print: %w", err)
	}
	return nil
}

// EnqueueLowStockScan queues a low-stock sweep.
func (e Enqueuer) EnqueueLowStockScan(ctx context.Context) error {
	if e.Client == nil {
		return nil
	}
	task := asynq.NewTask(TypeLowStockScan, nil)
	_, err := e.Client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(2))
	if err != nil {
		return fmt.Errorf("enqueue low stock scan: %w", err)
	}
	return nil
}
