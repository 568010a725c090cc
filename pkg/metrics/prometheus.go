// Package metrics provides Prometheus metrics for the powerlifting pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace       string
	subsystem       string
	durationBuckets []float64
	constLabels     prometheus.Labels
	registry        prometheus.Registerer

	// Stage metrics
	stageDuration *prometheus.HistogramVec
	stageRowsIn   *prometheus.GaugeVec
	stageRowsOut  *prometheus.GaugeVec
	stageFailures *prometheus.CounterVec
	rowsDropped   *prometheus.CounterVec

	// Identity metrics
	identityCollisions  prometheus.Counter
	identitiesTotal     prometheus.Gauge
	invariantViolations *prometheus.CounterVec

	// Elo metrics
	eloMeets    prometheus.Counter
	eloSegments *prometheus.CounterVec

	// Store metrics
	storeBytesWritten *prometheus.CounterVec
	storeOperations   *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "powerlift",
		subsystem:       "pipeline",
		durationBuckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_seconds",
		Help:        "Wall time of each pipeline stage",
		Buckets:     m.durationBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.stageRowsIn = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_rows_in",
		Help:        "Rows read by the last run of each stage",
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.stageRowsOut = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_rows_out",
		Help:        "Rows written by the last run of each stage",
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.stageFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_failures_total",
		Help:        "Stages that returned an error",
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.rowsDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rows_dropped_total",
		Help:        "Rows removed by filters, by stage and reason",
		ConstLabels: m.constLabels,
	}, []string{"stage", "reason"})

	m.identityCollisions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "identity_collisions_total",
		Help:        "Primary keys discarded by duplicate-identity resolution",
		ConstLabels: m.constLabels,
	})

	m.identitiesTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "identities",
		Help:        "Distinct primary keys after the last raw stage",
		ConstLabels: m.constLabels,
	})

	m.invariantViolations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "invariant_violations_total",
		Help:        "Fatal invariant violations, by check",
		ConstLabels: m.constLabels,
	}, []string{"check"})

	m.eloMeets = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "elo_meets_total",
		Help:        "Meets folded into the rating sweep",
		ConstLabels: m.constLabels,
	})

	m.eloSegments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "elo_segments_total",
		Help:        "Meet segments seen by the rating sweep, by outcome (rated, skipped)",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.storeBytesWritten = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_bytes_written_total",
		Help:        "Bytes uploaded to the object store, by layer",
		ConstLabels: m.constLabels,
	}, []string{"layer"})

	m.storeOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_operations_total",
		Help:        "Object store calls, by operation and result",
		ConstLabels: m.constLabels,
	}, []string{"op", "result"})
}

// Stage Metrics Functions.

// ObserveStageDuration records how long a stage took.
func ObserveStageDuration(stage string, seconds float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// SetStageRows records the rows a stage consumed and produced.
func SetStageRows(stage string, in, out int) {
	globalManager.stageRowsIn.WithLabelValues(stage).Set(float64(in))
	globalManager.stageRowsOut.WithLabelValues(stage).Set(float64(out))
}

// RecordStageFailure increments the failure counter for stage.
func RecordStageFailure(stage string) {
	globalManager.stageFailures.WithLabelValues(stage).Inc()
}

// RecordRowsDropped adds n rows removed by stage for reason.
func RecordRowsDropped(stage, reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.rowsDropped.WithLabelValues(stage, reason).Add(float64(n))
}

// Identity Metrics Functions.

// RecordIdentityCollisions adds n discarded duplicate identities.
func RecordIdentityCollisions(n int) {
	if n <= 0 {
		return
	}
	globalManager.identityCollisions.Add(float64(n))
}

// UpdateIdentities sets the number of distinct primary keys.
func UpdateIdentities(n int) {
	globalManager.identitiesTotal.Set(float64(n))
}

// RecordInvariantViolation increments the violation counter for check.
func RecordInvariantViolation(check string) {
	globalManager.invariantViolations.WithLabelValues(check).Inc()
}

// Elo Metrics Functions.

// RecordEloMeet increments the processed meet counter.
func RecordEloMeet() {
	globalManager.eloMeets.Inc()
}

// RecordEloSegments adds rated and skipped segment counts.
func RecordEloSegments(rated, skipped int) {
	globalManager.eloSegments.WithLabelValues("rated").Add(float64(rated))
	globalManager.eloSegments.WithLabelValues("skipped").Add(float64(skipped))
}

// Store Metrics Functions.

// RecordStoreWrite records a successful upload of n bytes under layer.
func RecordStoreWrite(layer string, n int) {
	globalManager.storeBytesWritten.WithLabelValues(layer).Add(float64(n))
}

// RecordStoreOperation counts an object store call.
func RecordStoreOperation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	globalManager.storeOperations.WithLabelValues(op, result).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the registry in the text exposition format so that a
// node-exporter textfile collector can pick up the metrics of a batch run.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
