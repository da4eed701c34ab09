package metrics

import (
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestPrometheusProviderCounterAccumulates(t *testing.T) {
	reg := prom.NewRegistry()
	p := NewPrometheusProvider(reg)

	p.IncCounter("blundertutor_games_analyzed_total", 1)
	p.IncCounter("blundertutor_games_analyzed_total", 2)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, mf := range metricFamilies {
		if mf.GetName() == "blundertutor_games_analyzed_total" {
			found = mf
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Metric, 1)
	require.Equal(t, 3.0, found.Metric[0].GetCounter().GetValue())
}

func TestNoOpProviderDoesNotPanic(t *testing.T) {
	p := NoOp()
	p.IncCounter("x", 1)
	p.SetGauge("y", 2)
	p.ObserveHistogram("z", 3)
}
