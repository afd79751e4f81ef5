package util

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestSumMetricValues(t *testing.T) {
	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_sum_metric_values_total",
		Help: "test counter",
	}, []string{"status"})
	counterVec.WithLabelValues("forwarded").Add(5)
	counterVec.WithLabelValues("failed").Add(2)

	assert.Equal(t, 7.0, SumMetricValues(counterVec))

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_sum_metric_values_gauge",
		Help: "test gauge",
	})
	gauge.Set(1.5)
	assert.Equal(t, 1.5, SumMetricValues(gauge))
}
