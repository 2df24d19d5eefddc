package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutTotal counts checkout outcomes by kind (sale/manual) and result.
	CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "checkout_total",
		Help:      "Count of checkout attempts by kind and result.",
	}, []string{"kind", "result"})

	// ReceiptAmount records finalized receipt totals in rupiah.
	ReceiptAmount = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pos",
		Name:      "receipt_amount_idr",
		Help:      "Distribution of finalized receipt totals in rupiah.",
		Buckets:   []float64{1000, 5000, 10000, 25000, 50000, 100000, 250000, 500000, 1000000},
	}, []string{"kind"})

	// StockAdjustTotal counts stock adjustments by direction.
	StockAdjustTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "stock_adjust_total",
		Help:      "Count of stock adjustments by direction.",
	}, []string{"direction"})

	// PrintJobTotal counts receipt print job outcomes.
	PrintJobTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "print_job_total",
		Help:      "Count of receipt print job outcomes.",
	}, []string{"result"})

	// LowStockAlertTotal counts emitted low-stock alerts.
	LowStockAlertTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "low_stock_alert_total",
		Help:      "Number of low-stock alerts emitted.",
	})
)

// RegisterDomainMetrics attaches the domain collectors to the registry. Safe
// to call once per process; collectors already present are tolerated.
func RegisterDomainMetrics(reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		for _, c := range []prometheus.Collector{
			CheckoutTotal, ReceiptAmount, StockAdjustTotal, PrintJobTotal, LowStockAlertTotal,
		} {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	})
}
