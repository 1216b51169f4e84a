// Package metrics exposes Prometheus collectors for the registry, the chain
// provider and the ingestion runner.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"txsemantics/internal/registry"
)

var (
	registryOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "txsemantics",
		Subsystem: "registry",
		Name:      "operations_total",
		Help:      "Count of semantics registry operations.",
	}, []string{"operation", "kind", "backend", "status"})
	registryOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "txsemantics",
		Subsystem: "registry",
		Name:      "operation_duration_seconds",
		Help:      "Duration of semantics registry operations.",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation", "kind", "backend", "status"})
)

// Registry tracks registry operations for one storage backend.
type Registry struct {
	backend string
}

// NewRegistry creates a Registry metrics collector.
func NewRegistry(backend string) *Registry {
	if backend == "" {
		backend = "unknown"
	}
	return &Registry{backend: backend}
}

// Observe records duration and status of a registry operation. A strict insert
// rejected on an existing key is counted as "duplicate", not as an error.
func (m Registry) Observe(operation string, kind string, err error, started time.Time) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrDuplicateKey):
		status = "duplicate"
	default:
		status = "error"
	}

	registryOperationsTotal.WithLabelValues(operation, kind, m.backend, status).Inc()
	registryOperationDuration.WithLabelValues(operation, kind, m.backend, status).Observe(time.Since(started).Seconds())
}
