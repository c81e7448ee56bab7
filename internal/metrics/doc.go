// Package metrics exposes Prometheus counters for download activity and
// an optional /metrics endpoint.
package metrics
