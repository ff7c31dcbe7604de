// Package metrics exposes tracking session statistics in Prometheus format.
//
// The Collector reads a session snapshot on every scrape, so values are
// never stale and the session does not need to know about Prometheus.
package metrics
