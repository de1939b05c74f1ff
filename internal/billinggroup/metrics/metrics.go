package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the billing group subsystem.
type Metrics struct {
	Edits           *prometheus.CounterVec
	PersistDuration *prometheus.HistogramVec
	MailingSources  *prometheus.CounterVec
	WorkingSets     prometheus.Gauge
}

// New creates and registers the collectors with the default registry. Call it
// once per process.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors with reg. Tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Edits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "policydesk_billing_group_edits_total",
			Help: "Billing group edit operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		PersistDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "policydesk_billing_group_persist_duration_seconds",
			Help:    "Latency of full-replacement persists including reconciliation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		MailingSources: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "policydesk_mailing_sources_total",
			Help: "Contact sources fetched by the mailing aggregator by kind and outcome",
		}, []string{"kind", "outcome"}),
		WorkingSets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "policydesk_billing_group_working_sets",
			Help: "Policies with an open billing group working copy",
		}),
	}
}

func (m *Metrics) IncrementEdit(operation string, err error) {
	if m == nil {
		return
	}
	m.Edits.WithLabelValues(operation, outcome(err)).Inc()
}

func (m *Metrics) ObservePersist(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.PersistDuration.WithLabelValues(outcome(err)).Observe(d.Seconds())
}

func (m *Metrics) IncrementMailingSource(kind string, err error) {
	if m == nil {
		return
	}
	m.MailingSources.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *Metrics) SetWorkingSets(n int) {
	if m == nil {
		return
	}
	m.WorkingSets.Set(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
