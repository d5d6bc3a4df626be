// Package metrics records agent activity in Prometheus collectors. All
// components of a process share one set of metric families and are told
// apart by the component label, so a single push carries the whole cycle.
package metrics

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "petsync"

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SanitizeName turns a service name such as "pet-extractor" into a valid
// Prometheus name.
func SanitizeName(name string) string {
	return invalidNameChars.ReplaceAllString(name, "_")
}

// Collectors are the metric families of one registry.
type Collectors struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	fileSize   *prometheus.HistogramVec
	items      *prometheus.CounterVec
	inFlight   *prometheus.GaugeVec
}

// NewCollectors registers the families with registerer, or with the default
// registry when it is nil. Registering twice on the same registry panics.
func NewCollectors(registerer prometheus.Registerer) *Collectors {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	c := &Collectors{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Finished operations by outcome status.",
		}, []string{"component", "operation", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed operations by reason.",
		}, []string{"component", "operation", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent per operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component", "operation"}),
		fileSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_size_bytes",
			Help:      "Size of files produced or transferred.",
			// 256B up to 4MiB
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"component", "kind"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Records and objects handled, by outcome.",
		}, []string{"component", "operation", "outcome"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operations_in_flight",
			Help:      "Operations currently running.",
		}, []string{"component", "operation"}),
	}

	registerer.MustRegister(c.operations, c.errors, c.duration, c.fileSize, c.items, c.inFlight)
	return c
}

// For returns a recorder that labels everything with component.
func (c *Collectors) For(component string) *Recorder {
	return &Recorder{c: c, component: component}
}

// Recorder implements types.Metrics for one component.
type Recorder struct {
	c         *Collectors
	component string
}

func (r *Recorder) RecordSuccess(operation string) {
	r.c.operations.WithLabelValues(r.component, operation, "success").Inc()
}

// RecordError counts the operation as failed and keeps the reason apart.
func (r *Recorder) RecordError(operation, reason string) {
	r.c.operations.WithLabelValues(r.component, operation, "error").Inc()
	r.c.errors.WithLabelValues(r.component, operation, reason).Inc()
}

func (r *Recorder) RecordDuration(operation string, seconds float64) {
	r.c.duration.WithLabelValues(r.component, operation).Observe(seconds)
}

func (r *Recorder) RecordFileSize(kind string, bytes int64) {
	r.c.fileSize.WithLabelValues(r.component, kind).Observe(float64(bytes))
}

func (r *Recorder) RecordItems(operation, outcome string, n int) {
	if n <= 0 {
		return
	}
	r.c.items.WithLabelValues(r.component, operation, outcome).Add(float64(n))
}

func (r *Recorder) StartOperation(operation string) {
	r.c.inFlight.WithLabelValues(r.component, operation).Inc()
}

func (r *Recorder) EndOperation(operation string) {
	r.c.inFlight.WithLabelValues(r.component, operation).Dec()
}
