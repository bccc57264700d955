/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleq

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-throttleq/internal/libinfo"
)

// MetricsCollector represents a collector of metrics for the throttled queue.
type MetricsCollector interface {
	// SetPendingTasks sets the number of pending tasks.
	SetPendingTasks(int)

	// IncSubmittedTasks increments the number of submitted tasks.
	IncSubmittedTasks(explicitInterval bool)

	// ObserveWaitDuration observes how long a task waited in the queue before it was dispatched.
	ObserveWaitDuration(time.Duration)

	// IncPanickedTasks increments the number of tasks which work items panicked.
	IncPanickedTasks()
}

// Interval sources used as values of the "interval_source" label.
const (
	IntervalSourceDefault  = "default"
	IntervalSourceExplicit = "explicit"
)

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	// The library version label (go_throttleq_version) is always added.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	// Keep in mind that if this list is not empty,
	// PrometheusMetrics.MustCurryWith method must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string

	// WaitDurationBuckets is a list of buckets for the wait duration histogram.
	// prometheus.DefBuckets is used if it's empty.
	WaitDurationBuckets []float64
}

// PrometheusMetrics represents Prometheus metrics for the throttled queue.
type PrometheusMetrics struct {
	PendingTasks   *prometheus.GaugeVec
	SubmittedTotal *prometheus.CounterVec
	WaitDuration   *prometheus.HistogramVec
	PanicsTotal    *prometheus.CounterVec
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.WaitDurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	submittedLabelNames := append(append([]string(nil), opts.CurriedLabelNames...), "interval_source")
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)

	pendingTasks := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "throttle_queue_pending_tasks",
			Help:        "Number of tasks submitted to the throttled queue and not fully completed yet.",
			ConstLabels: constLabels,
		},
		opts.CurriedLabelNames,
	)

	submittedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "throttle_queue_submitted_total",
			Help:        "Number of tasks submitted to the throttled queue.",
			ConstLabels: constLabels,
		},
		submittedLabelNames,
	)

	waitDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "throttle_queue_wait_seconds",
			Help:        "Time a task spent in the throttled queue before it was dispatched to the executor.",
			ConstLabels: constLabels,
			Buckets:     buckets,
		},
		opts.CurriedLabelNames,
	)

	panicsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "throttle_queue_task_panics_total",
			Help:        "Number of tasks which work items panicked.",
			ConstLabels: constLabels,
		},
		opts.CurriedLabelNames,
	)

	return &PrometheusMetrics{
		PendingTasks:   pendingTasks,
		SubmittedTotal: submittedTotal,
		WaitDuration:   waitDuration,
		PanicsTotal:    panicsTotal,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		PendingTasks:   pm.PendingTasks.MustCurryWith(labels),
		SubmittedTotal: pm.SubmittedTotal.MustCurryWith(labels),
		WaitDuration:   pm.WaitDuration.MustCurryWith(labels).(*prometheus.HistogramVec),
		PanicsTotal:    pm.PanicsTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.PendingTasks,
		pm.SubmittedTotal,
		pm.WaitDuration,
		pm.PanicsTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.PendingTasks)
	prometheus.Unregister(pm.SubmittedTotal)
	prometheus.Unregister(pm.WaitDuration)
	prometheus.Unregister(pm.PanicsTotal)
}

// SetPendingTasks sets the number of pending tasks.
func (pm *PrometheusMetrics) SetPendingTasks(n int) {
	pm.PendingTasks.With(nil).Set(float64(n))
}

// IncSubmittedTasks increments the number of submitted tasks.
func (pm *PrometheusMetrics) IncSubmittedTasks(explicitInterval bool) {
	source := IntervalSourceDefault
	if explicitInterval {
		source = IntervalSourceExplicit
	}
	pm.SubmittedTotal.With(prometheus.Labels{"interval_source": source}).Inc()
}

// ObserveWaitDuration observes how long a task waited in the queue before it was dispatched.
func (pm *PrometheusMetrics) ObserveWaitDuration(d time.Duration) {
	pm.WaitDuration.With(nil).Observe(d.Seconds())
}

// IncPanickedTasks increments the number of tasks which work items panicked.
func (pm *PrometheusMetrics) IncPanickedTasks() {
	pm.PanicsTotal.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetPendingTasks(int)               {}
func (disabledMetrics) IncSubmittedTasks(bool)            {}
func (disabledMetrics) ObserveWaitDuration(time.Duration) {}
func (disabledMetrics) IncPanickedTasks()                 {}
