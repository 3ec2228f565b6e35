// Package metrics provides Prometheus instrumentation for transform streams.
//
// A duplex stream records metrics only when its Config carries a Registry:
//
//	reg := metrics.NewRegistry(prometheus.NewRegistry())
//	cfg := duplex.DefaultConfig()
//	cfg.Name = "enrich"
//	cfg.Metrics = reg
//
// Every series is labeled with the stream name; buffer series also carry the
// side ("readable" or "writable") and handler series the phase ("transform"
// or "flush").
//
// Expose the default registry via HTTP as usual:
//
//	http.Handle("/metrics", promhttp.Handler())
package metrics
