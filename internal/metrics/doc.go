// Package metrics declares the Prometheus instrumentation for the media
// vault: HTTP adapter traffic, catalog query and transaction timings, ingest
// pipeline outcomes and per-stage latency, directory lifecycle operations,
// and filesystem retry behavior. Metrics are registered via promauto at
// package load; InitializeMetrics pre-populates label combinations so they
// appear on the first scrape.
package metrics
