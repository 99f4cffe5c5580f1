package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/lumen-labs/yield-ledger/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "yield-ledger",
	Short: "Protocol value ledger: depositor interest accrual, rate smoothing and proof-gated reward distribution",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)

	rootCmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "yield_ledger", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String(config.DatabaseDbName, "yield_ledger", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLMode, "disable", `PostgreSQL ssl mode`)

	rootCmd.PersistentFlags().String(config.LedgerAdminAccount, "", `Account allowed to call admin operations`)
	rootCmd.PersistentFlags().String(config.LedgerAccount, "", `The ledger's own custody account`)
	rootCmd.PersistentFlags().String(config.LedgerAsset, "", `Deposit asset identifier`)
	rootCmd.PersistentFlags().Uint64(config.LedgerAnnualRateBps, 200, `Initial annual interest rate in basis points`)

	rootCmd.PersistentFlags().Duration(config.RateSmoothingWindow, 7*24*time.Hour, `Rate smoothing window`)
	rootCmd.PersistentFlags().Uint64(config.RateSmoothingCapBps, 2000, `Max rate change per window in basis points`)
	rootCmd.PersistentFlags().Duration(config.RateUpkeepInterval, 24*time.Hour, `Minimum interval between upkeep runs`)
	rootCmd.PersistentFlags().String(config.RateUpkeepSchedule, "@hourly", `Cron schedule for the upkeep trigger`)

	rootCmd.PersistentFlags().String(config.RewardsDistributorAccount, "", `The distributor's custody account`)
	rootCmd.PersistentFlags().Duration(config.RewardsEpochDuration, 7*24*time.Hour, `Distribution epoch duration`)
	rootCmd.PersistentFlags().Int64(config.RewardsEpochStartTime, 0, `Unix timestamp epoch numbering starts from`)
	rootCmd.PersistentFlags().Uint64(config.RewardsGaugeWeightBps, 0, `Share of incoming rewards forwarded to the gauge pool, in basis points`)
	rootCmd.PersistentFlags().Bool(config.RewardsVestingEnabled, false, `Forward the designated asset's claims into vesting`)
	rootCmd.PersistentFlags().String(config.RewardsVestingAsset, "", `Asset whose claims are delivered through vesting`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to serve prometheus metrics on`)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}
