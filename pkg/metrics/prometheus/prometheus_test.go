package prometheus

import (
	"testing"
	"time"

	"github.com/lumen-labs/yield-ledger/internal/logger"
	"github.com/lumen-labs/yield-ledger/pkg/metrics/metricsTypes"
	"github.com/stretchr/testify/assert"
)

func setup() (*PrometheusMetricsClient, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	if err != nil {
		return nil, err
	}
	return NewPrometheusMetricsClient(&PrometheusMetricsConfig{
		Metrics: metricsTypes.MetricTypes,
	}, l)
}

func Test_PrometheusMetricsClient(t *testing.T) {
	t.Run("Should record counters with expected labels", func(t *testing.T) {
		client, err := setup()
		assert.Nil(t, err)

		err = client.Incr(metricsTypes.Metric_Incr_RewardClaimed, []metricsTypes.MetricsLabel{
			{Name: "asset", Value: "arb"},
		}, 1)
		assert.Nil(t, err)
	})
	t.Run("Should reject unexpected labels", func(t *testing.T) {
		client, err := setup()
		assert.Nil(t, err)

		err = client.Incr(metricsTypes.Metric_Incr_RewardClaimed, []metricsTypes.MetricsLabel{
			{Name: "surprise", Value: "x"},
		}, 1)
		assert.NotNil(t, err)

		err = client.Incr(metricsTypes.Metric_Incr_Deposit, []metricsTypes.MetricsLabel{
			{Name: "asset", Value: "arb"},
		}, 1)
		assert.NotNil(t, err)
	})
	t.Run("Should ignore unknown metric names", func(t *testing.T) {
		client, err := setup()
		assert.Nil(t, err)

		assert.Nil(t, client.Incr("ledger.unknown", nil, 1))
		assert.Nil(t, client.Gauge("ledger.unknown", 1, nil))
		assert.Nil(t, client.Timing("ledger.unknown", time.Second, nil))
	})
	t.Run("Should record gauges and timings", func(t *testing.T) {
		client, err := setup()
		assert.Nil(t, err)

		assert.Nil(t, client.Gauge(metricsTypes.Metric_Gauge_AnnualRateBps, 240, nil))
		assert.Nil(t, client.Timing(metricsTypes.Metric_Timing_ClaimDuration, 25*time.Millisecond, nil))
	})
}
