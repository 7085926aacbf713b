package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the executor.
type Metrics struct {
	TasksSubmitted    prometheus.Counter
	TasksCompleted    prometheus.Counter
	TasksFailed       prometheus.Counter
	QueueDepth        prometheus.Gauge
	InferenceDuration prometheus.Histogram
}

// NewMetrics registers the executor's instruments on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TasksSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "synthcam_tasks_submitted_total",
			Help: "Total number of generation tasks accepted.",
		}),
		TasksCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "synthcam_tasks_completed_total",
			Help: "Total number of generation tasks finished successfully.",
		}),
		TasksFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "synthcam_tasks_failed_total",
			Help: "Total number of generation tasks that ended in failure.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "synthcam_queue_depth",
			Help: "Number of tasks currently pending or running.",
		}),
		InferenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "synthcam_inference_duration_seconds",
			Help:    "Wall-clock time spent inside the diffusion pipeline per task.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
	}
}
