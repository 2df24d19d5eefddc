package events

// Topic constants for domain events emitted by the shop backend.
const (
	TopicReceiptCreated   = "receipt.created"
	TopicManualInvoice    = "invoice.manual_created"
	TopicStockLow         = "stock.low"
	TopicProductRestocked = "product.restocked"
	TopicPrintRequested   = "print.requested"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicReceiptCreated,
		TopicManualInvoice,
		TopicStockLow,
		TopicProductRestocked,
		TopicPrintRequested,
	}
}
