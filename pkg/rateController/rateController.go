// Package rateController derives the ledger's annual rate from two yield
// sources and applies a bounded weekly smoothing policy before committing,
// trading responsiveness for depositor predictability.
package rateController

import (
	"errors"
	"fmt"
	"time"

	"github.com/lumen-labs/yield-ledger/internal/config"
	"github.com/lumen-labs/yield-ledger/internal/types/numbers"
	"github.com/lumen-labs/yield-ledger/pkg/eventBus/eventBusTypes"
	"github.com/lumen-labs/yield-ledger/pkg/metrics"
	"github.com/lumen-labs/yield-ledger/pkg/metrics/metricsTypes"
	"github.com/lumen-labs/yield-ledger/pkg/storage"
	"github.com/lumen-labs/yield-ledger/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotAuthorized     = errors.New("caller is not the ledger admin")
	ErrRateTooWide       = errors.New("rate does not fit in 16 bits")
	ErrInvalidAllocation = errors.New("allocation ratio exceeds 10000 bps")
	ErrUpkeepNotDue      = errors.New("upkeep is not due yet")
)

const (
	DefaultSmoothingWindow = 7 * 24 * time.Hour
	DefaultSmoothingCapBps = 2000
	DefaultUpkeepInterval  = 24 * time.Hour
)

type RateController struct {
	db           *gorm.DB
	logger       *zap.Logger
	globalConfig *config.Config
	eventBus     eventBusTypes.IEventBus
	metricsSink  *metrics.MetricsSink

	now func() time.Time
}

func NewRateController(
	grm *gorm.DB,
	l *zap.Logger,
	cfg *config.Config,
	eb eventBusTypes.IEventBus,
	sink *metrics.MetricsSink,
) *RateController {
	return &RateController{
		db:           grm,
		logger:       l,
		globalConfig: cfg,
		eventBus:     eb,
		metricsSink:  sink,
		now:          time.Now,
	}
}

// SetNow overrides the clock. Test hook.
func (rc *RateController) SetNow(now func() time.Time) {
	rc.now = now
}

func (rc *RateController) smoothingWindow() time.Duration {
	if rc.globalConfig.RateConfig.SmoothingWindow > 0 {
		return rc.globalConfig.RateConfig.SmoothingWindow
	}
	return DefaultSmoothingWindow
}

func (rc *RateController) smoothingCapBps() uint64 {
	if rc.globalConfig.RateConfig.SmoothingCapBps > 0 {
		return rc.globalConfig.RateConfig.SmoothingCapBps
	}
	return DefaultSmoothingCapBps
}

func (rc *RateController) upkeepInterval() time.Duration {
	if rc.globalConfig.RateConfig.UpkeepInterval > 0 {
		return rc.globalConfig.RateConfig.UpkeepInterval
	}
	return DefaultUpkeepInterval
}

func (rc *RateController) requireAdmin(caller string) error {
	if !utils.AreAccountsEqual(caller, rc.globalConfig.LedgerConfig.AdminAccount) {
		return fmt.Errorf("%w: caller %s", ErrNotAuthorized, caller)
	}
	return nil
}

func (rc *RateController) publish(name eventBusTypes.EventName, data any) {
	if rc.eventBus != nil {
		rc.eventBus.Publish(&eventBusTypes.Event{Name: name, Data: data})
	}
}

// combinedRateBps recomputes the proposed rate from the current source state:
// the RWA portion scaled by its allocation, plus the annualized DEX fee
// yield.
func (rc *RateController) combinedRateBps(state *storage.RateState) (uint64, error) {
	rwaPortion := numbers.RwaPortionBps(state.RwaAnnualYieldBps, state.RwaAllocationRatioBps)
	dexPortion, err := numbers.DexPortionBps(state.DailyFees, state.TotalTVL)
	if err != nil {
		return 0, err
	}
	return rwaPortion + dexPortion, nil
}

// rateCommit captures one smoothing decision so events, metrics and logs can
// be emitted after the surrounding transaction commits.
type rateCommit struct {
	oldRateBps   uint64
	candidateBps uint64
	appliedBps   uint64
	weekStartBps uint64
}

func (c *rateCommit) clamped() bool {
	return c.appliedBps != c.candidateBps
}

// smooth rolls the weekly window if it has elapsed, clamps the candidate into
// the capped band around the window-start rate, and writes the result into
// state. The very first nonzero proposal is accepted unclamped: a zero
// window-start rate would otherwise pin the rate to zero forever. Pure state
// mutation; emission happens after commit.
func (rc *RateController) smooth(state *storage.RateState, candidateBps uint64, nowTs int64) *rateCommit {
	windowSeconds := int64(rc.smoothingWindow().Seconds())
	if nowTs-state.LastRateUpdateTime >= windowSeconds {
		state.WeekStartRateBps = state.AnnualRateBps
		state.LastRateUpdateTime = nowTs
	}

	applied := candidateBps
	if state.WeekStartRateBps > 0 {
		capBps := rc.smoothingCapBps()
		maxIncrease := state.WeekStartRateBps * (numbers.BpsDenominator + capBps) / numbers.BpsDenominator
		maxDecrease := state.WeekStartRateBps * (numbers.BpsDenominator - capBps) / numbers.BpsDenominator
		if applied > maxIncrease {
			applied = maxIncrease
		} else if applied < maxDecrease {
			applied = maxDecrease
		}
	}
	if applied > numbers.MaxRateBps {
		applied = numbers.MaxRateBps
	}

	commit := &rateCommit{
		oldRateBps:   state.AnnualRateBps,
		candidateBps: candidateBps,
		appliedBps:   applied,
		weekStartBps: state.WeekStartRateBps,
	}
	state.AnnualRateBps = applied
	return commit
}

// emitRateCommit publishes the events, metrics and logs for a committed
// smoothing decision.
func (rc *RateController) emitRateCommit(c *rateCommit) {
	if c.clamped() {
		rc.logger.Sugar().Infow("Rate proposal clamped by smoothing cap",
			zap.Uint64("proposedBps", c.candidateBps),
			zap.Uint64("appliedBps", c.appliedBps),
			zap.Uint64("weekStartBps", c.weekStartBps),
		)
		rc.publish(eventBusTypes.Event_RateSmoothed, &eventBusTypes.RateSmoothedData{
			ProposedRateBps: c.candidateBps,
			AppliedRateBps:  c.appliedBps,
			WeekStartBps:    c.weekStartBps,
		})
		if rc.metricsSink != nil {
			_ = rc.metricsSink.Incr(metricsTypes.Metric_Incr_RateSmoothed, nil, 1)
		}
	}

	rc.publish(eventBusTypes.Event_RateUpdated, &eventBusTypes.RateUpdatedData{
		OldRateBps: c.oldRateBps,
		NewRateBps: c.appliedBps,
	})
	if rc.metricsSink != nil {
		_ = rc.metricsSink.Gauge(metricsTypes.Metric_Gauge_AnnualRateBps, float64(c.appliedBps), nil)
	}
}

// SetRWARateSource updates the RWA yield source and recomputes the combined
// rate through the smoothing step. The source update and the rate commit are
// one transaction; an error leaves neither applied.
func (rc *RateController) SetRWARateSource(caller string, yieldBps uint64, allocationRatioBps uint64) (uint64, error) {
	if err := rc.requireAdmin(caller); err != nil {
		return 0, err
	}
	if yieldBps > numbers.MaxRateBps {
		return 0, fmt.Errorf("%w: yield %d bps", ErrRateTooWide, yieldBps)
	}
	if allocationRatioBps > numbers.BpsDenominator {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidAllocation, allocationRatioBps)
	}
	nowTs := rc.now().Unix()

	var commit *rateCommit
	err := rc.db.Transaction(func(tx *gorm.DB) error {
		state, err := storage.GetOrCreateRateState(tx, rc.globalConfig.LedgerConfig.AnnualRateBps)
		if err != nil {
			return err
		}
		state.RwaAnnualYieldBps = yieldBps
		state.RwaAllocationRatioBps = allocationRatioBps
		candidate, err := rc.combinedRateBps(state)
		if err != nil {
			return err
		}
		commit = rc.smooth(state, candidate, nowTs)
		return tx.Save(state).Error
	})
	if err != nil {
		return 0, err
	}

	rc.logger.Sugar().Infow("RWA rate source updated",
		zap.Uint64("yieldBps", yieldBps),
		zap.Uint64("allocationRatioBps", allocationRatioBps),
		zap.Uint64("candidateBps", commit.candidateBps),
	)
	rc.emitRateCommit(commit)
	return commit.appliedBps, nil
}

// UpdateDEXFeeRate updates the DEX fee source and recomputes the combined
// rate through the smoothing step, in one transaction.
func (rc *RateController) UpdateDEXFeeRate(caller string, dailyFees string, totalTVL string) (uint64, error) {
	if err := rc.requireAdmin(caller); err != nil {
		return 0, err
	}
	if _, err := numbers.ParseAmount(dailyFees); err != nil {
		return 0, err
	}
	if _, err := numbers.ParseAmount(totalTVL); err != nil {
		return 0, err
	}
	nowTs := rc.now().Unix()

	var commit *rateCommit
	err := rc.db.Transaction(func(tx *gorm.DB) error {
		state, err := storage.GetOrCreateRateState(tx, rc.globalConfig.LedgerConfig.AnnualRateBps)
		if err != nil {
			return err
		}
		state.DailyFees = dailyFees
		state.TotalTVL = totalTVL
		candidate, err := rc.combinedRateBps(state)
		if err != nil {
			return err
		}
		commit = rc.smooth(state, candidate, nowTs)
		return tx.Save(state).Error
	})
	if err != nil {
		return 0, err
	}

	rc.logger.Sugar().Infow("DEX fee rate source updated",
		zap.String("dailyFees", dailyFees),
		zap.String("totalTVL", totalTVL),
		zap.Uint64("candidateBps", commit.candidateBps),
	)
	rc.emitRateCommit(commit)
	return commit.appliedBps, nil
}

// ProposeRateUpdate runs an explicit candidate rate through the smoothing
// step and commits the clamped result.
func (rc *RateController) ProposeRateUpdate(caller string, candidateBps uint64) (uint64, error) {
	if err := rc.requireAdmin(caller); err != nil {
		return 0, err
	}
	if candidateBps > numbers.MaxRateBps {
		return 0, fmt.Errorf("%w: %d bps", ErrRateTooWide, candidateBps)
	}
	nowTs := rc.now().Unix()

	var commit *rateCommit
	err := rc.db.Transaction(func(tx *gorm.DB) error {
		state, err := storage.GetOrCreateRateState(tx, rc.globalConfig.LedgerConfig.AnnualRateBps)
		if err != nil {
			return err
		}
		commit = rc.smooth(state, candidateBps, nowTs)
		return tx.Save(state).Error
	})
	if err != nil {
		return 0, err
	}

	rc.emitRateCommit(commit)
	return commit.appliedBps, nil
}

// CheckUpkeep is a pure readiness predicate for the periodic trigger.
func (rc *RateController) CheckUpkeep() (bool, error) {
	var due bool
	err := rc.db.Transaction(func(tx *gorm.DB) error {
		state, err := storage.GetOrCreateRateState(tx, rc.globalConfig.LedgerConfig.AnnualRateBps)
		if err != nil {
			return err
		}
		due = rc.now().Unix() >= state.LastUpkeepTime+int64(rc.upkeepInterval().Seconds())
		return nil
	})
	return due, err
}

// PerformUpkeep re-derives the combined rate from current source state, runs
// the smoothing step and advances the upkeep clock, all in one transaction.
// Callable by anyone once due.
func (rc *RateController) PerformUpkeep() (uint64, error) {
	nowTs := rc.now().Unix()

	var commit *rateCommit
	err := rc.db.Transaction(func(tx *gorm.DB) error {
		state, err := storage.GetOrCreateRateState(tx, rc.globalConfig.LedgerConfig.AnnualRateBps)
		if err != nil {
			return err
		}
		if nowTs < state.LastUpkeepTime+int64(rc.upkeepInterval().Seconds()) {
			return ErrUpkeepNotDue
		}
		candidate, err := rc.combinedRateBps(state)
		if err != nil {
			return err
		}
		state.LastUpkeepTime = nowTs
		commit = rc.smooth(state, candidate, nowTs)
		return tx.Save(state).Error
	})
	if err != nil {
		return 0, err
	}

	if rc.metricsSink != nil {
		_ = rc.metricsSink.Incr(metricsTypes.Metric_Incr_UpkeepPerformed, nil, 1)
	}
	rc.logger.Sugar().Infow("Upkeep performed", zap.Uint64("candidateBps", commit.candidateBps))
	rc.emitRateCommit(commit)
	return commit.appliedBps, nil
}
