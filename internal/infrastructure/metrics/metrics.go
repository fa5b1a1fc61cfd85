package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "batch_transfer"

// Metrics is the prometheus implementation of port.TransferMetrics.
type Metrics struct {
	batchesSubmitted *prometheus.CounterVec
	batchesFailed    *prometheus.CounterVec
	itemsTransferred *prometheus.CounterVec
	retryAttempts    *prometheus.CounterVec
	statusUpdates    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil registerer leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		batchesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_submitted_total",
			Help:      "Number of batch submission attempts.",
		}, []string{"chain"}),
		batchesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_failed_total",
			Help:      "Number of batches that failed after all attempts.",
		}, []string{"chain", "reason"}),
		itemsTransferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_transferred_total",
			Help:      "Number of transfer items confirmed on chain.",
		}, []string{"chain"}),
		retryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Number of batch retries.",
		}, []string{"chain"}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_updates_total",
			Help:      "Number of execution status updates written back, by result.",
		}, []string{"chain", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.collectors()...)
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.batchesSubmitted,
		m.batchesFailed,
		m.itemsTransferred,
		m.retryAttempts,
		m.statusUpdates,
	}
}

func (m *Metrics) BatchSubmitted(chain string) {
	m.batchesSubmitted.WithLabelValues(chain).Inc()
}

func (m *Metrics) BatchFailed(chain, reason string) {
	m.batchesFailed.WithLabelValues(chain, reason).Inc()
}

func (m *Metrics) ItemsTransferred(chain string, n int) {
	if n <= 0 {
		return
	}
	m.itemsTransferred.WithLabelValues(chain).Add(float64(n))
}

func (m *Metrics) RetryAttempt(chain string) {
	m.retryAttempts.WithLabelValues(chain).Inc()
}

func (m *Metrics) StatusUpdates(chain string, successful, failed int) {
	if successful > 0 {
		m.statusUpdates.WithLabelValues(chain, "success").Add(float64(successful))
	}
	if failed > 0 {
		m.statusUpdates.WithLabelValues(chain, "failed").Add(float64(failed))
	}
}
