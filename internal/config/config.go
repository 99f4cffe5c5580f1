package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "YIELD_LEDGER"

const (
	Debug = "debug"

	DatabaseHost       = "database.host"
	DatabasePort       = "database.port"
	DatabaseUser       = "database.user"
	DatabasePassword   = "database.password"
	DatabaseDbName     = "database.db-name"
	DatabaseSchemaName = "database.schema-name"
	DatabaseSSLMode    = "database.ssl-mode"

	LedgerAdminAccount  = "ledger.admin-account"
	LedgerAccount       = "ledger.account"
	LedgerAsset         = "ledger.asset"
	LedgerAnnualRateBps = "ledger.annual-rate-bps"

	RateSmoothingWindow = "rate.smoothing-window"
	RateSmoothingCapBps = "rate.smoothing-cap-bps"
	RateUpkeepInterval  = "rate.upkeep-interval"
	RateUpkeepSchedule  = "rate.upkeep-schedule"

	RewardsDistributorAccount = "rewards.distributor-account"
	RewardsEpochDuration      = "rewards.epoch-duration"
	RewardsEpochStartTime     = "rewards.epoch-start-time"
	RewardsGaugeWeightBps     = "rewards.gauge-weight-bps"
	RewardsVestingEnabled     = "rewards.vesting-enabled"
	RewardsVestingAsset       = "rewards.vesting-asset"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"
)

type DatabaseConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	DbName     string
	SchemaName string
	SSLMode    string
}

type LedgerConfig struct {
	// AdminAccount is the only identity allowed to call admin operations.
	AdminAccount string
	// Account is the ledger's own custody account.
	Account string
	// Asset is the deposit asset identifier.
	Asset string
	// AnnualRateBps is the initial annual interest rate in basis points.
	AnnualRateBps uint64
}

type RateConfig struct {
	SmoothingWindow time.Duration
	SmoothingCapBps uint64
	UpkeepInterval  time.Duration
	// UpkeepSchedule is a cron expression for the periodic upkeep trigger.
	UpkeepSchedule string
}

type RewardsConfig struct {
	DistributorAccount string
	EpochDuration      time.Duration
	EpochStartTime     int64
	GaugeWeightBps     uint64
	VestingEnabled     bool
	VestingAsset       string
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type Config struct {
	Debug            bool
	DatabaseConfig   DatabaseConfig
	LedgerConfig     LedgerConfig
	RateConfig       RateConfig
	RewardsConfig    RewardsConfig
	PrometheusConfig PrometheusConfig
}

// KebabToSnakeCase converts dotted kebab-case flag names into the snake_case
// keys viper uses for env var binding.
func KebabToSnakeCase(str string) string {
	str = strings.ReplaceAll(str, "-", "_")
	return strings.ReplaceAll(str, ".", "_")
}

// NewConfig builds a Config from viper, which has flags and env vars bound to
// it by the root command.
func NewConfig() *Config {
	return &Config{
		Debug: viper.GetBool(KebabToSnakeCase(Debug)),

		DatabaseConfig: DatabaseConfig{
			Host:       viper.GetString(KebabToSnakeCase(DatabaseHost)),
			Port:       viper.GetInt(KebabToSnakeCase(DatabasePort)),
			User:       viper.GetString(KebabToSnakeCase(DatabaseUser)),
			Password:   viper.GetString(KebabToSnakeCase(DatabasePassword)),
			DbName:     viper.GetString(KebabToSnakeCase(DatabaseDbName)),
			SchemaName: viper.GetString(KebabToSnakeCase(DatabaseSchemaName)),
			SSLMode:    viper.GetString(KebabToSnakeCase(DatabaseSSLMode)),
		},

		LedgerConfig: LedgerConfig{
			AdminAccount:  strings.ToLower(viper.GetString(KebabToSnakeCase(LedgerAdminAccount))),
			Account:       strings.ToLower(viper.GetString(KebabToSnakeCase(LedgerAccount))),
			Asset:         strings.ToLower(viper.GetString(KebabToSnakeCase(LedgerAsset))),
			AnnualRateBps: viper.GetUint64(KebabToSnakeCase(LedgerAnnualRateBps)),
		},

		RateConfig: RateConfig{
			SmoothingWindow: viper.GetDuration(KebabToSnakeCase(RateSmoothingWindow)),
			SmoothingCapBps: viper.GetUint64(KebabToSnakeCase(RateSmoothingCapBps)),
			UpkeepInterval:  viper.GetDuration(KebabToSnakeCase(RateUpkeepInterval)),
			UpkeepSchedule:  viper.GetString(KebabToSnakeCase(RateUpkeepSchedule)),
		},

		RewardsConfig: RewardsConfig{
			DistributorAccount: strings.ToLower(viper.GetString(KebabToSnakeCase(RewardsDistributorAccount))),
			EpochDuration:      viper.GetDuration(KebabToSnakeCase(RewardsEpochDuration)),
			EpochStartTime:     viper.GetInt64(KebabToSnakeCase(RewardsEpochStartTime)),
			GaugeWeightBps:     viper.GetUint64(KebabToSnakeCase(RewardsGaugeWeightBps)),
			VestingEnabled:     viper.GetBool(KebabToSnakeCase(RewardsVestingEnabled)),
			VestingAsset:       strings.ToLower(viper.GetString(KebabToSnakeCase(RewardsVestingAsset))),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(KebabToSnakeCase(PrometheusEnabled)),
			Port:    viper.GetInt(KebabToSnakeCase(PrometheusPort)),
		},
	}
}
