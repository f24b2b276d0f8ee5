package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for transaction processing.
type Metrics struct {
	// Processed transactions by outcome
	TransactionsProcessed *prometheus.CounterVec

	// Executed instructions by program name, nested invocations included
	InstructionsProcessed *prometheus.CounterVec

	TransactionDuration prometheus.Histogram
}

// NewMetrics creates ledger metrics registered with registerer. A nil
// registerer leaves the collectors unregistered.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		TransactionsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dtm_ledger_transactions_total",
			Help: "Total processed transactions by outcome",
		}, []string{"status"}), // status: "committed", "failed", "rejected"

		InstructionsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dtm_ledger_instructions_total",
			Help: "Total executed instructions by program",
		}, []string{"program"}),

		TransactionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dtm_ledger_transaction_duration_seconds",
			Help:    "Duration of transaction execution including lock wait",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// IncrementTransaction records a transaction outcome.
func (m *Metrics) IncrementTransaction(status string) {
	if m != nil {
		m.TransactionsProcessed.WithLabelValues(status).Inc()
	}
}

// IncrementInstruction records one executed instruction.
func (m *Metrics) IncrementInstruction(program string) {
	if m != nil {
		m.InstructionsProcessed.WithLabelValues(program).Inc()
	}
}

// ObserveTransactionDuration records the end-to-end execution time.
func (m *Metrics) ObserveTransactionDuration(d time.Duration) {
	if m != nil {
		m.TransactionDuration.Observe(d.Seconds())
	}
}
