// Package metrics provides Prometheus instrumentation for objstream components.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Side labels for buffer metrics.
const (
	SideReadable = "readable"
	SideWritable = "writable"
)

// Phase labels for handler metrics.
const (
	PhaseTransform = "transform"
	PhaseFlush     = "flush"
)

// Registry holds all metric instances for transform streams.
type Registry struct {
	ItemsWritten    *prometheus.CounterVec
	ItemsPushed     *prometheus.CounterVec
	ItemsDropped    *prometheus.CounterVec
	Errors          *prometheus.CounterVec
	Flushes         *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	BufferSize      *prometheus.GaugeVec
	BufferUsage     *prometheus.GaugeVec
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns a Registry bound to prometheus.DefaultRegisterer.
// It is created on first use so importing the package registers nothing.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	config := DefaultConfig()
	config.Registry = reg
	return NewRegistryWithConfig(config)
}

// NewRegistryWithConfig creates a registry using the namespace and constant
// labels from config.
func NewRegistryWithConfig(config Config) *Registry {
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if config.Namespace == "" {
		config.Namespace = DefaultNamespace
	}
	factory := promauto.With(config.Registry)
	ns := config.Namespace
	labels := config.Labels

	return &Registry{
		ItemsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "items_written_total",
				Help:        "Total number of items accepted on the writable side",
				ConstLabels: labels,
			},
			[]string{"stream_name"},
		),

		ItemsPushed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "items_pushed_total",
				Help:        "Total number of items pushed to the readable side",
				ConstLabels: labels,
			},
			[]string{"stream_name"},
		),

		ItemsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "items_dropped_total",
				Help:        "Total number of items discarded by a drop strategy",
				ConstLabels: labels,
			},
			[]string{"stream_name"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "errors_total",
				Help:        "Total number of stream failures",
				ConstLabels: labels,
			},
			[]string{"stream_name", "phase"},
		),

		Flushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "flushes_total",
				Help:        "Total number of completed end-of-stream flushes",
				ConstLabels: labels,
			},
			[]string{"stream_name"},
		),

		HandlerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "handler_duration_seconds",
				Help:        "Time from handler invocation to completion",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"stream_name", "phase"},
		),

		BufferSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "buffer_size",
				Help:        "Buffer high-water mark",
				ConstLabels: labels,
			},
			[]string{"stream_name", "side"},
		),

		BufferUsage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "stream",
				Name:        "buffer_usage",
				Help:        "Current number of buffered items",
				ConstLabels: labels,
			},
			[]string{"stream_name", "side"},
		),
	}
}
