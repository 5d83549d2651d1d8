package telemetry

import (
	"time"

	"github.com/invoicing/backend/internal/application/ingestion"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConsumerMetrics exposes ingestion consumer activity to Prometheus.
type ConsumerMetrics struct {
	Deliveries    *prometheus.CounterVec
	HandleLatency *prometheus.HistogramVec
}

var _ ingestion.Metrics = (*ConsumerMetrics)(nil)

// NewConsumerMetrics registers the consumer collectors on reg.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	factory := promauto.With(reg)
	return &ConsumerMetrics{
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_ingestion_deliveries_total",
			Help: "Queue deliveries settled by the ingestion consumer, by outcome",
		}, []string{"outcome"}),
		HandleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invoice_ingestion_handle_duration_seconds",
			Help:    "Time from receipt to settlement of a delivery",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"outcome"}),
	}
}

// ObserveDelivery implements ingestion.Metrics.
func (m *ConsumerMetrics) ObserveDelivery(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(outcome).Inc()
	m.HandleLatency.WithLabelValues(outcome).Observe(d.Seconds())
}
