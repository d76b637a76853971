// Package metrics wraps Prometheus counters and gauges behind a small
// interface, defaulting to a no-op implementation until
// InitializePrometheusMetrics is called, so library code can report
// metrics unconditionally without a process ever having opted into
// Prometheus.
package metrics

import "net/http"

var svc = defaultNoopMetrics()

// Metrics is the backing service behind the package-level Counter,
// CounterVec, and Gauge constructors.
type Metrics interface {
	GetOrCreateCountMeter(name string) CountMeter
	GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter
	GetOrCreateGaugeMeter(name string) GaugeMeter
	GetOrCreateHandler() http.Handler
}

// HTTPHandler exposes the metrics service's scrape endpoint.
func HTTPHandler() http.Handler {
	return svc.GetOrCreateHandler()
}

// CountMeter is a monotonically increasing counter.
type CountMeter interface {
	Add(int64)
}

// Counter returns (creating on first use) the named counter.
func Counter(name string) CountMeter { return svc.GetOrCreateCountMeter(name) }

// CountVecMeter is a counter partitioned by label values.
type CountVecMeter interface {
	AddWithLabel(int64, map[string]string)
}

// CounterVec returns (creating on first use) the named labeled counter.
func CounterVec(name string, labels []string) CountVecMeter {
	return svc.GetOrCreateCountVecMeter(name, labels)
}

// GaugeMeter is a value that can move up and down.
type GaugeMeter interface {
	Add(int64)
	Set(int64)
}

// Gauge returns (creating on first use) the named gauge.
func Gauge(name string) GaugeMeter { return svc.GetOrCreateGaugeMeter(name) }
