package collector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/activity-collector/internal/models"
)

// Cycle outcomes used as the "outcome" label
const (
	OutcomePushed        = "pushed"
	OutcomeEmpty         = "empty"
	OutcomeDryRun        = "dry_run"
	OutcomeCollectFailed = "collect_failed"
	OutcomePushFailed    = "push_failed"
	OutcomeSkipped       = "skipped"
)

// Metrics holds the collector's Prometheus instruments. A nil *Metrics
// records nothing.
type Metrics struct {
	cycles       *prometheus.CounterVec
	items        *prometheus.CounterVec
	inserted     *prometheus.CounterVec
	pushRetries  prometheus.Counter
	cycleSeconds *prometheus.HistogramVec
}

// NewMetrics creates the instruments and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collector",
			Name:      "cycles_total",
			Help:      "Collection cycles by source type and outcome.",
		}, []string{"source_type", "outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collector",
			Name:      "items_collected_total",
			Help:      "Items returned by successful collections.",
		}, []string{"source_type"}),
		inserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collector",
			Name:      "items_inserted_total",
			Help:      "Items the ingestion API reported as inserted.",
		}, []string{"source_type"}),
		pushRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "collector",
			Name:      "push_retries_total",
			Help:      "Push attempts that failed and were retried.",
		}),
		cycleSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "collector",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of collect-and-push cycles.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"source_type"}),
	}

	reg.MustRegister(m.cycles, m.items, m.inserted, m.pushRetries, m.cycleSeconds)
	return m
}

func (m *Metrics) observeCycle(t models.SourceType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(string(t), outcome).Inc()
	if outcome != OutcomeSkipped {
		m.cycleSeconds.WithLabelValues(string(t)).Observe(d.Seconds())
	}
}

func (m *Metrics) observeItems(t models.SourceType, collected, inserted int) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(string(t)).Add(float64(collected))
	if inserted > 0 {
		m.inserted.WithLabelValues(string(t)).Add(float64(inserted))
	}
}

// ObserveRetry counts one retried push attempt
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.pushRetries.Inc()
}
