// Package metrics fans metric writes out to the configured sink
// implementations behind a single IMetricsClient-shaped facade.
package metrics

import (
	"time"

	"github.com/lumen-labs/yield-ledger/internal/config"
	"github.com/lumen-labs/yield-ledger/pkg/metrics/metricsTypes"
	"github.com/lumen-labs/yield-ledger/pkg/metrics/prometheus"
	"go.uber.org/zap"
)

type MetricsSinkConfig struct {
}

type MetricsSink struct {
	clients []metricsTypes.IMetricsClient
}

// InitMetricsSinksFromConfig constructs the metrics clients enabled in the
// global config. An empty list is valid; the sink becomes a no-op.
func InitMetricsSinksFromConfig(cfg *config.Config, l *zap.Logger) ([]metricsTypes.IMetricsClient, error) {
	clients := make([]metricsTypes.IMetricsClient, 0)

	if cfg.PrometheusConfig.Enabled {
		pmc, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics: metricsTypes.MetricTypes,
		}, l)
		if err != nil {
			return nil, err
		}
		clients = append(clients, pmc)
	}
	return clients, nil
}

func NewMetricsSink(cfg *MetricsSinkConfig, clients []metricsTypes.IMetricsClient) (*MetricsSink, error) {
	return &MetricsSink{
		clients: clients,
	}, nil
}

func (ms *MetricsSink) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	for _, client := range ms.clients {
		if err := client.Incr(name, labels, value); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	for _, client := range ms.clients {
		if err := client.Gauge(name, value, labels); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	for _, client := range ms.clients {
		if err := client.Timing(name, value, labels); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Flush() {
	for _, client := range ms.clients {
		client.Flush()
	}
}
