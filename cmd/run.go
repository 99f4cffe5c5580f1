package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lumen-labs/yield-ledger/internal/config"
	"github.com/lumen-labs/yield-ledger/internal/logger"
	"github.com/lumen-labs/yield-ledger/internal/version"
	"github.com/lumen-labs/yield-ledger/pkg/eventBus"
	"github.com/lumen-labs/yield-ledger/pkg/metrics"
	"github.com/lumen-labs/yield-ledger/pkg/metrics/metricsTypes"
	pmc "github.com/lumen-labs/yield-ledger/pkg/metrics/prometheus"
	"github.com/lumen-labs/yield-ledger/pkg/postgres"
	"github.com/lumen-labs/yield-ledger/pkg/postgres/migrations"
	"github.com/lumen-labs/yield-ledger/pkg/rateController"
	"github.com/lumen-labs/yield-ledger/pkg/registry"
	"github.com/lumen-labs/yield-ledger/pkg/rewardDistributor"
	"github.com/lumen-labs/yield-ledger/pkg/savingsLedger"
	"github.com/lumen-labs/yield-ledger/pkg/service/ledgerDataService"
	"github.com/lumen-labs/yield-ledger/pkg/shutdown"
	"github.com/lumen-labs/yield-ledger/pkg/transfer"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ledger services with the periodic upkeep trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewConfig()

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		if err != nil {
			return err
		}
		defer l.Sync() //nolint:errcheck

		l.Sugar().Infow("yield-ledger",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
		)

		pg, err := postgres.NewPostgres(&cfg.DatabaseConfig, l)
		if err != nil {
			l.Sugar().Fatal("Failed to connect to postgres", zap.Error(err))
		}
		grm, err := postgres.NewGormFromPostgres(pg)
		if err != nil {
			l.Sugar().Fatal("Failed to create gorm session", zap.Error(err))
		}

		migrator := migrations.NewMigrator(grm, l, cfg)
		if err := migrator.MigrateAll(); err != nil {
			l.Sugar().Fatal("Failed to run migrations", zap.Error(err))
		}

		eb := eventBus.NewEventBus(l)

		metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
		if err != nil {
			l.Sugar().Fatal("Failed to setup metrics clients", zap.Error(err))
		}
		sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
		if err != nil {
			l.Sugar().Fatal("Failed to setup metrics sink", zap.Error(err))
		}
		if cfg.PrometheusConfig.Enabled {
			servePrometheus(metricsClients, cfg, l)
		}

		bank := transfer.NewInMemoryBank()
		boostRegistry := registry.NewStaticRegistry()

		ledger := savingsLedger.NewSavingsLedger(grm, l, cfg, bank, eb, sink)
		rates := rateController.NewRateController(grm, l, cfg, eb, sink)
		distributor := rewardDistributor.NewRewardDistributor(grm, l, cfg, bank, boostRegistry, eb, sink)
		dataService := ledgerDataService.NewLedgerDataService(grm, l, cfg)

		c := cron.New()
		schedule := cfg.RateConfig.UpkeepSchedule
		if schedule == "" {
			schedule = "@hourly"
		}
		_, err = c.AddFunc(schedule, func() {
			due, err := rates.CheckUpkeep()
			if err != nil {
				l.Sugar().Errorw("Upkeep readiness check failed", zap.Error(err))
				return
			}
			if !due {
				return
			}
			if _, err := rates.PerformUpkeep(); err != nil {
				l.Sugar().Errorw("Upkeep failed", zap.Error(err))
			}
		})
		if err != nil {
			l.Sugar().Fatal("Failed to schedule upkeep", zap.Error(err))
		}

		// Daily maintenance: settle interest for every known account and
		// refresh the announced epoch. Both are public, idempotent
		// operations; the sweep only accelerates lazily-computed state.
		_, err = c.AddFunc("@daily", func() {
			accounts, err := dataService.ListAccounts(context.Background())
			if err != nil {
				l.Sugar().Errorw("Failed to list accounts for accrual sweep", zap.Error(err))
				return
			}
			for _, account := range accounts {
				if _, err := ledger.AccrueInterest(account); err != nil {
					l.Sugar().Errorw("Accrual sweep failed for account",
						zap.String("account", account),
						zap.Error(err),
					)
				}
			}
			if _, err := distributor.AdvanceEpoch(); err != nil {
				l.Sugar().Errorw("Failed to advance epoch", zap.Error(err))
			}
		})
		if err != nil {
			l.Sugar().Fatal("Failed to schedule maintenance sweep", zap.Error(err))
		}
		c.Start()

		// Surface current rate state at startup for operators.
		if rateState, err := dataService.GetRateState(context.Background()); err == nil {
			l.Sugar().Infow("Current rate state",
				zap.Uint64("annualRateBps", rateState.AnnualRateBps),
				zap.Uint64("weekStartRateBps", rateState.WeekStartRateBps),
			)
		}

		gracefulShutdown := shutdown.CreateGracefulShutdownChannel()
		done := make(chan bool)
		shutdown.ListenForShutdown(gracefulShutdown, done, func() {
			l.Sugar().Info("Shutting down")
			c.Stop()
			sink.Flush()
		}, time.Second*5, l)
		return nil
	},
}

func servePrometheus(clients []metricsTypes.IMetricsClient, cfg *config.Config, l *zap.Logger) {
	for _, client := range clients {
		promClient, ok := client.(*pmc.PrometheusMetricsClient)
		if !ok {
			continue
		}
		go func() {
			addr := fmt.Sprintf(":%d", cfg.PrometheusConfig.Port)
			l.Sugar().Infow("Serving prometheus metrics", zap.String("addr", addr))
			if err := http.ListenAndServe(addr, promClient.Handler()); err != nil {
				l.Sugar().Errorw("Prometheus server stopped", zap.Error(err))
			}
		}()
	}
}
