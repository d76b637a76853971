package metrics

import "net/http"

type noopMetrics struct{}

func defaultNoopMetrics() Metrics { return &noopMetrics{} }

func (n *noopMetrics) GetOrCreateCountMeter(string) CountMeter          { return noopMeter{} }
func (n *noopMetrics) GetOrCreateCountVecMeter(string, []string) CountVecMeter {
	return noopMeter{}
}
func (n *noopMetrics) GetOrCreateGaugeMeter(string) GaugeMeter { return noopMeter{} }
func (n *noopMetrics) GetOrCreateHandler() http.Handler        { return nil }

type noopMeter struct{}

func (noopMeter) Add(int64)                          {}
func (noopMeter) Set(int64)                          {}
func (noopMeter) AddWithLabel(int64, map[string]string) {}
