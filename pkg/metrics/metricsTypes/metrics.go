package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_Deposit             = "ledger.deposit"
	Metric_Incr_Withdraw            = "ledger.withdraw"
	Metric_Incr_InterestClaimed     = "ledger.interestClaimed"
	Metric_Incr_FundCoverageWarning = "ledger.fundCoverageWarning"
	Metric_Incr_RateSmoothed        = "rate.smoothed"
	Metric_Incr_UpkeepPerformed     = "rate.upkeepPerformed"
	Metric_Incr_RewardClaimed       = "rewards.claimed"
	Metric_Incr_MerkleRootSet       = "rewards.merkleRootSet"
	Metric_Incr_InvalidProof        = "rewards.invalidProof"

	Metric_Gauge_AnnualRateBps = "rate.annualRateBps"
	Metric_Gauge_CurrentEpoch  = "rewards.currentEpoch"

	Metric_Timing_ClaimDuration = "rewards.claim.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{Name: Metric_Incr_Deposit},
		MetricsTypeConfig{Name: Metric_Incr_Withdraw},
		MetricsTypeConfig{Name: Metric_Incr_InterestClaimed},
		MetricsTypeConfig{Name: Metric_Incr_FundCoverageWarning},
		MetricsTypeConfig{Name: Metric_Incr_RateSmoothed},
		MetricsTypeConfig{Name: Metric_Incr_UpkeepPerformed},
		MetricsTypeConfig{Name: Metric_Incr_RewardClaimed, Labels: []string{"asset"}},
		MetricsTypeConfig{Name: Metric_Incr_MerkleRootSet, Labels: []string{"asset"}},
		MetricsTypeConfig{Name: Metric_Incr_InvalidProof, Labels: []string{"asset"}},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{Name: Metric_Gauge_AnnualRateBps},
		MetricsTypeConfig{Name: Metric_Gauge_CurrentEpoch},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{Name: Metric_Timing_ClaimDuration},
	},
}
