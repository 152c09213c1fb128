// Package metrics provides Prometheus metrics for the ctfscores codec and tools.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Manager manages all Prometheus metrics for ctfscores.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Codec Metrics - encode/decode traffic
	codecOperations *prometheus.CounterVec
	payloadBytes    *prometheus.HistogramVec
	codecLatency    *prometheus.HistogramVec
	entitiesDecoded *prometheus.CounterVec

	// Error Metrics
	codecErrors  *prometheus.CounterVec
	errorLatency *prometheus.HistogramVec

	// Tooling Metrics - repository and CLI
	repositoryOperations *prometheus.CounterVec
	commandRuns          *prometheus.CounterVec
	entitiesGenerated    *prometheus.CounterVec
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
		namespace:        "ctfscores",
		subsystem:        "codec",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.codecOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "operations_total",
		Help:        "Total number of successful encode/decode calls by top-level kind",
		ConstLabels: labels,
	}, []string{"op", "kind", "format"})

	m.payloadBytes = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "payload_bytes",
		Help:        "Size of encoded or decoded documents in bytes",
		Buckets:     prometheus.ExponentialBuckets(64, 4, 8),
		ConstLabels: labels,
	}, []string{"op", "format"})

	m.codecLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "latency_milliseconds",
		Help:        "Encode/decode latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"op", "format"})

	m.entitiesDecoded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "entities_decoded_total",
		Help:        "Total number of entities rebuilt from tagged containers, nested ones included",
		ConstLabels: labels,
	}, []string{"kind"})

	m.codecErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_total",
		Help:        "Total number of failed encode/decode calls by error type",
		ConstLabels: labels,
	}, []string{"op", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "error_latency_milliseconds",
		Help:        "Latency of operations that resulted in errors",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.repositoryOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "repository_operations_total",
		Help:        "Total number of scores file loads and saves by result",
		ConstLabels: labels,
	}, []string{"op", "result"})

	m.commandRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "command_runs_total",
		Help:        "Total number of CLI command runs by result",
		ConstLabels: labels,
	}, []string{"command", "result"})

	m.entitiesGenerated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "entities_generated_total",
		Help:        "Total number of entities built by the sample generator",
		ConstLabels: labels,
	}, []string{"kind"})
}

// RecordCodecOperation increments the successful operation counter.
func RecordCodecOperation(op, kind, format string) {
	if !globalManager.enabled {
		return
	}
	globalManager.codecOperations.WithLabelValues(op, kind, format).Inc()
}

// RecordPayloadBytes records the size of an encoded or decoded document.
func RecordPayloadBytes(op, format string, size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.payloadBytes.WithLabelValues(op, format).Observe(float64(size))
}

// RecordCodecLatency records encode/decode latency in milliseconds.
func RecordCodecLatency(op, format string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.codecLatency.WithLabelValues(op, format).Observe(latencyMs)
}

// RecordEntityDecoded increments the decoded entity counter for kind.
func RecordEntityDecoded(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.entitiesDecoded.WithLabelValues(kind).Inc()
}

// RecordCodecError increments the codec error counter.
func RecordCodecError(op, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.codecErrors.WithLabelValues(op, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// RecordRepositoryOperation increments the repository operation counter.
func RecordRepositoryOperation(op, result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryOperations.WithLabelValues(op, result).Inc()
}

// RecordCommandRun increments the CLI command counter.
func RecordCommandRun(command, result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.commandRuns.WithLabelValues(command, result).Inc()
}

// RecordEntitiesGenerated adds n to the generated entity counter for kind.
func RecordEntitiesGenerated(kind string, n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.entitiesGenerated.WithLabelValues(kind).Add(float64(n))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteText writes every metric in the custom registry to w in the
// Prometheus text exposition format.
func WriteText(w io.Writer) error {
	families, err := customRegistry.Gather()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGatherFailed, err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
