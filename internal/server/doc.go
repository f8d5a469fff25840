// Package server exposes the live Prometheus metrics of a profiling session
// over HTTP, so an external scraper or dashboard can follow a long build while
// it runs. Only read-only endpoints are served: /metrics and /healthz.
package server
