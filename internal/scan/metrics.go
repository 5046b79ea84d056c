package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the scan collectors.
type Metrics struct {
	taskOutcomes *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	saveOutcomes *prometheus.CounterVec
	mentions     prometheus.Counter
	websites     *prometheus.CounterVec
}

// NewMetrics registers the scan collectors on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		taskOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_scan_task_total",
			Help: "Scan task runs by outcome.",
		}, []string{"task", "outcome"}),
		taskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forge_scan_task_duration_seconds",
			Help:    "Duration of scan tasks that ran.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"task"}),
		saveOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_registry_save_total",
			Help: "Retrying registry saves by outcome.",
		}, []string{"task", "outcome"}),
		mentions: f.NewCounter(prometheus.CounterOpts{
			Name: "forge_mentions_matched_total",
			Help: "Feed entries matched to projects.",
		}),
		websites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_website_claims_total",
			Help: "Website claims assigned or cleared.",
		}, []string{"action"}),
	}
}
