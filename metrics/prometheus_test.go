package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	InitializePrometheusMetrics()

	counter := Counter("blocks_processed_total")
	counter.Add(3)

	vec := CounterVec("assets_by_kind_total", []string{"kind"})
	vec.AddWithLabel(2, map[string]string{"kind": "asset"})

	gauge := Gauge("pending_staging_views")
	gauge.Set(5)

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	families, err := gatherers.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		byName[f.GetName()] = f
	}

	require.Equal(t, float64(3), byName["shardnode_metrics_blocks_processed_total"].Metric[0].GetCounter().GetValue())
	require.Equal(t, float64(5), byName["shardnode_metrics_pending_staging_views"].Metric[0].GetGauge().GetValue())
}
