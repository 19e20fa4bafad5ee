// Package metrics exposes the bridge's Prometheus collectors.
package metrics
