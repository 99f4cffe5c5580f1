// Package savingsLedger tracks depositor principal and time-weighted accrued
// interest. Every state-mutating operation first settles pending interest for
// the affected account, then applies its mutation inside a single database
// transaction, so an operation either commits entirely or not at all.
package savingsLedger

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
	"github.com/lumen-labs/yield-ledger/pkg/transfer"
	"github.com/lumen-labs/yield-ledger/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount            = errors.New("amount must be greater than zero")
	ErrInsufficientPrincipal    = errors.New("amount exceeds deposited principal")
	ErrNothingToClaim           = errors.New("no accrued interest to claim")
	ErrNotAuthorized            = errors.New("caller is not the ledger admin")
	ErrRateTooWide              = errors.New("annual rate does not fit in 16 bits")
	ErrInsufficientFundCoverage = errors.New("ledger balance does not cover outstanding obligations")
	ErrReentrantCall            = errors.New("reentrant call rejected")
)

type SavingsLedger struct {
	db           *gorm.DB
	logger       *zap.Logger
	globalConfig *config.Config
	transfer     transfer.ValueTransfer
	eventBus     eventBusTypes.IEventBus
	metricsSink  *metrics.MetricsSink

	// now is swapped out in tests to drive time-dependent accrual.
	now func() time.Time
	// entered guards against a transfer hook re-invoking a public operation
	// before the outer call finishes.
	entered bool
}

func NewSavingsLedger(
	grm *gorm.DB,
	l *zap.Logger,
	cfg *config.Config,
	vt transfer.ValueTransfer,
	eb eventBusTypes.IEventBus,
	sink *metrics.MetricsSink,
) *SavingsLedger {
	return &SavingsLedger{
		db:           grm,
		logger:       l,
		globalConfig: cfg,
		transfer:     vt,
		eventBus:     eb,
		metricsSink:  sink,
		now:          time.Now,
	}
}

// SetNow overrides the clock. Test hook.
func (sl *SavingsLedger) SetNow(now func() time.Time) {
	sl.now = now
}

func (sl *SavingsLedger) enter() error {
	if sl.entered {
		return ErrReentrantCall
	}
	sl.entered = true
	return nil
}

func (sl *SavingsLedger) exit() {
	sl.entered = false
}

func (sl *SavingsLedger) publish(name eventBusTypes.EventName, data any) {
	if sl.eventBus != nil {
		sl.eventBus.Publish(&eventBusTypes.Event{Name: name, Data: data})
	}
}

func (sl *SavingsLedger) incr(metric string, labels []metricsTypes.MetricsLabel) {
	if sl.metricsSink != nil {
		_ = sl.metricsSink.Incr(metric, labels, 1)
	}
}

func (sl *SavingsLedger) requireAdmin(caller string) error {
	if !utils.AreAccountsEqual(caller, sl.globalConfig.LedgerConfig.AdminAccount) {
		return fmt.Errorf("%w: caller %s", ErrNotAuthorized, caller)
	}
	return nil
}

func validatePositiveAmount(amount string) error {
	v, err := numbers.ParseAmount(amount)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if v.Sign() == 0 {
		return fmt.Errorf("%w: got zero", ErrInvalidAmount)
	}
	return nil
}

func (sl *SavingsLedger) getOrCreateAccount(tx *gorm.DB, account string, nowTs int64) (*storage.DepositorAccount, error) {
	record := &storage.DepositorAccount{}
	res := tx.Where(&storage.DepositorAccount{Account: utils.NormalizeAccount(account)}).
		Attrs(&storage.DepositorAccount{
			Principal:       "0",
			AccruedInterest: "0",
			LastAccrualTime: nowTs,
		}).
		FirstOrCreate(record)
	if res.Error != nil {
		return nil, res.Error
	}
	return record, nil
}

// accrue settles pending interest for one account and folds it into the
// aggregate counter. The accrual clock advances unconditionally, even when
// principal is zero, so dormant accounts never accumulate retroactively.
func (sl *SavingsLedger) accrue(tx *gorm.DB, record *storage.DepositorAccount, state *storage.LedgerState, nowTs int64) (string, error) {
	elapsed := nowTs - record.LastAccrualTime
	if elapsed <= 0 {
		return "0", nil
	}
	record.LastAccrualTime = nowTs

	principal, err := numbers.ParseAmount(record.Principal)
	if err != nil {
		return "", err
	}
	if principal.Sign() == 0 {
		return "0", nil
	}

	rateState, err := storage.GetOrCreateRateState(tx, sl.globalConfig.LedgerConfig.AnnualRateBps)
	if err != nil {
		return "", err
	}

	interest, err := numbers.CalculateAccruedInterest(record.Principal, rateState.AnnualRateBps, uint64(elapsed))
	if err != nil {
		return "", err
	}

	record.AccruedInterest, err = numbers.Add(record.AccruedInterest, interest)
	if err != nil {
		return "", err
	}
	state.TotalAccruedInterest, err = numbers.Add(state.TotalAccruedInterest, interest)
	if err != nil {
		return "", err
	}
	return interest, nil
}

// checkFundCoverage enforces the hard safety gate: the ledger's own balance
// must cover all principal plus all accrued interest. A violation emits the
// shortfall diagnostics and rejects the triggering operation.
func (sl *SavingsLedger) checkFundCoverage(state *storage.LedgerState) error {
	available, err := sl.transfer.BalanceOf(sl.globalConfig.LedgerConfig.Asset, sl.globalConfig.LedgerConfig.Account)
	if err != nil {
		return err
	}
	obligations, err := numbers.Add(state.TotalDeposits, state.TotalAccruedInterest)
	if err != nil {
		return err
	}
	cmp, err := numbers.Cmp(available, obligations)
	if err != nil {
		return err
	}
	if cmp >= 0 {
		return nil
	}

	shortfall, err := numbers.Sub(obligations, available)
	if err != nil {
		return err
	}
	sl.logger.Sugar().Errorw("Fund coverage violated",
		zap.String("availableBalance", available),
		zap.String("totalObligations", obligations),
		zap.String("shortfall", shortfall),
	)
	sl.publish(eventBusTypes.Event_FundCoverageWarning, &eventBusTypes.FundCoverageWarningData{
		AvailableBalance: available,
		TotalObligations: obligations,
		Shortfall:        shortfall,
	})
	sl.incr(metricsTypes.Metric_Incr_FundCoverageWarning, nil)
	return fmt.Errorf("%w: short by %s (obligations %s, available %s)",
		ErrInsufficientFundCoverage, shortfall, obligations, available)
}

// Deposit settles pending interest for the caller, takes custody of amount
// and credits it as principal.
func (sl *SavingsLedger) Deposit(caller string, amount string) error {
	if err := sl.enter(); err != nil {
		return err
	}
	defer sl.exit()

	if err := validatePositiveAmount(amount); err != nil {
		return err
	}
	caller = utils.NormalizeAccount(caller)
	nowTs := sl.now().Unix()

	var accrued string
	err := sl.db.Transaction(func(tx *gorm.DB) error {
		record, err := sl.getOrCreateAccount(tx, caller, nowTs)
		if err != nil {
			return err
		}
		state, err := storage.GetOrCreateLedgerState(tx)
		if err != nil {
			return err
		}
		if accrued, err = sl.accrue(tx, record, state, nowTs); err != nil {
			return err
		}
		if err = sl.checkFundCoverage(state); err != nil {
			return err
		}

		// Custody moves in before principal is credited; a failed transfer
		// rolls the whole operation back.
		ledgerCfg := sl.globalConfig.LedgerConfig
		if err = sl.transfer.Transfer(ledgerCfg.Asset, caller, ledgerCfg.Account, amount); err != nil {
			return err
		}

		if record.Principal, err = numbers.Add(record.Principal, amount); err != nil {
			return err
		}
		if state.TotalDeposits, err = numbers.Add(state.TotalDeposits, amount); err != nil {
			return err
		}

		if res := tx.Save(record); res.Error != nil {
			return res.Error
		}
		if res := tx.Save(state); res.Error != nil {
			return res.Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	sl.emitAccrued(caller, accrued)
	sl.publish(eventBusTypes.Event_Deposit, &eventBusTypes.AccountMutationData{Account: caller, Amount: amount})
	sl.incr(metricsTypes.Metric_Incr_Deposit, nil)
	sl.logger.Sugar().Infow("Deposit",
		zap.String("account", caller),
		zap.String("amount", amount),
	)
	return nil
}

// Withdraw settles pending interest, then returns principal to the caller.
func (sl *SavingsLedger) Withdraw(caller string, amount string) error {
	if err := sl.enter(); err != nil {
		return err
	}
	defer sl.exit()

	if err := validatePositiveAmount(amount); err != nil {
		return err
	}
	caller = utils.NormalizeAccount(caller)
	nowTs := sl.now().Unix()

	var accrued string
	err := sl.db.Transaction(func(tx *gorm.DB) error {
		record, err := sl.getOrCreateAccount(tx, caller, nowTs)
		if err != nil {
			return err
		}
		state, err := storage.GetOrCreateLedgerState(tx)
		if err != nil {
			return err
		}
		if accrued, err = sl.accrue(tx, record, state, nowTs); err != nil {
			return err
		}
		if err = sl.checkFundCoverage(state); err != nil {
			return err
		}

		cmp, err := numbers.Cmp(record.Principal, amount)
		if err != nil {
			return err
		}
		if cmp < 0 {
			return fmt.Errorf("%w: principal %s, requested %s", ErrInsufficientPrincipal, record.Principal, amount)
		}

		if record.Principal, err = numbers.Sub(record.Principal, amount); err != nil {
			return err
		}
		if state.TotalDeposits, err = numbers.Sub(state.TotalDeposits, amount); err != nil {
			return err
		}

		if res := tx.Save(record); res.Error != nil {
			return res.Error
		}
		if res := tx.Save(state); res.Error != nil {
			return res.Error
		}

		// Effects before interactions: balances are decremented above, the
		// outward transfer is the last step.
		ledgerCfg := sl.globalConfig.LedgerConfig
		return sl.transfer.Transfer(ledgerCfg.Asset, ledgerCfg.Account, caller, amount)
	})
	if err != nil {
		return err
	}

	sl.emitAccrued(caller, accrued)
	sl.publish(eventBusTypes.Event_Withdraw, &eventBusTypes.AccountMutationData{Account: caller, Amount: amount})
	sl.incr(metricsTypes.Metric_Incr_Withdraw, nil)
	sl.logger.Sugar().Infow("Withdraw",
		zap.String("account", caller),
		zap.String("amount", amount),
	)
	return nil
}

// ClaimInterest settles pending interest and pays the full accrued amount
// out to the caller, resetting the account's accrued interest to zero.
func (sl *SavingsLedger) ClaimInterest(caller string) (string, error) {
	if err := sl.enter(); err != nil {
		return "", err
	}
	defer sl.exit()

	caller = utils.NormalizeAccount(caller)
	nowTs := sl.now().Unix()

	var accrued string
	var claimed string
	err := sl.db.Transaction(func(tx *gorm.DB) error {
		record, err := sl.getOrCreateAccount(tx, caller, nowTs)
		if err != nil {
			return err
		}
		state, err := storage.GetOrCreateLedgerState(tx)
		if err != nil {
			return err
		}
		if accrued, err = sl.accrue(tx, record, state, nowTs); err != nil {
			return err
		}
		if err = sl.checkFundCoverage(state); err != nil {
			return err
		}

		cmp, err := numbers.Cmp(record.AccruedInterest, "0")
		if err != nil {
			return err
		}
		if cmp == 0 {
			return ErrNothingToClaim
		}

		claimed = record.AccruedInterest
		record.AccruedInterest = "0"
		if state.TotalAccruedInterest, err = numbers.Sub(state.TotalAccruedInterest, claimed); err != nil {
			return err
		}

		if res := tx.Save(record); res.Error != nil {
			return res.Error
		}
		if res := tx.Save(state); res.Error != nil {
			return res.Error
		}

		ledgerCfg := sl.globalConfig.LedgerConfig
		return sl.transfer.Transfer(ledgerCfg.Asset, ledgerCfg.Account, caller, claimed)
	})
	if err != nil {
		return "", err
	}

	sl.emitAccrued(caller, accrued)
	sl.publish(eventBusTypes.Event_InterestClaimed, &eventBusTypes.AccountMutationData{Account: caller, Amount: claimed})
	sl.incr(metricsTypes.Metric_Incr_InterestClaimed, nil)
	sl.logger.Sugar().Infow("Interest claimed",
		zap.String("account", caller),
		zap.String("amount", claimed),
	)
	return claimed, nil
}

// AccrueInterest forces settlement for any account. Callable by anyone; it
// only accelerates state the ledger would compute lazily anyway.
func (sl *SavingsLedger) AccrueInterest(account string) (string, error) {
	if err := sl.enter(); err != nil {
		return "", err
	}
	defer sl.exit()

	account = utils.NormalizeAccount(account)
	nowTs := sl.now().Unix()

	var accrued string
	err := sl.db.Transaction(func(tx *gorm.DB) error {
		record, err := sl.getOrCreateAccount(tx, account, nowTs)
		if err != nil {
			return err
		}
		state, err := storage.GetOrCreateLedgerState(tx)
		if err != nil {
			return err
		}
		if accrued, err = sl.accrue(tx, record, state, nowTs); err != nil {
			return err
		}
		if err = sl.checkFundCoverage(state); err != nil {
			return err
		}
		if res := tx.Save(record); res.Error != nil {
			return res.Error
		}
		if res := tx.Save(state); res.Error != nil {
			return res.Error
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	sl.emitAccrued(account, accrued)
	return accrued, nil
}

// UpdateAnnualRate directly sets the effective annual rate, bypassing the
// smoothing policy. Manual override for the ledger admin.
func (sl *SavingsLedger) UpdateAnnualRate(caller string, newRateBps uint64) error {
	if err := sl.requireAdmin(caller); err != nil {
		return err
	}
	if newRateBps > numbers.MaxRateBps {
		return fmt.Errorf("%w: %d bps", ErrRateTooWide, newRateBps)
	}

	var oldRate uint64
	err := sl.db.Transaction(func(tx *gorm.DB) error {
		rateState, err := storage.GetOrCreateRateState(tx, sl.globalConfig.LedgerConfig.AnnualRateBps)
		if err != nil {
			return err
		}
		oldRate = rateState.AnnualRateBps
		rateState.AnnualRateBps = newRateBps
		return tx.Save(rateState).Error
	})
	if err != nil {
		return err
	}

	sl.publish(eventBusTypes.Event_RateUpdated, &eventBusTypes.RateUpdatedData{
		OldRateBps: oldRate,
		NewRateBps: newRateBps,
	})
	if sl.metricsSink != nil {
		_ = sl.metricsSink.Gauge(metricsTypes.Metric_Gauge_AnnualRateBps, float64(newRateBps), nil)
	}
	sl.logger.Sugar().Infow("Annual rate updated by admin",
		zap.Uint64("oldRateBps", oldRate),
		zap.Uint64("newRateBps", newRateBps),
	)
	return nil
}

// Fund moves additional backing value from the admin into the ledger's
// custody and records it.
func (sl *SavingsLedger) Fund(caller string, amount string) error {
	if err := sl.requireAdmin(caller); err != nil {
		return err
	}
	if err := validatePositiveAmount(amount); err != nil {
		return err
	}

	err := sl.db.Transaction(func(tx *gorm.DB) error {
		state, err := storage.GetOrCreateLedgerState(tx)
		if err != nil {
			return err
		}
		if state.TotalFunded, err = numbers.Add(state.TotalFunded, amount); err != nil {
			return err
		}
		if res := tx.Save(state); res.Error != nil {
			return res.Error
		}
		ledgerCfg := sl.globalConfig.LedgerConfig
		return sl.transfer.Transfer(ledgerCfg.Asset, utils.NormalizeAccount(caller), ledgerCfg.Account, amount)
	})
	if err != nil {
		return err
	}

	sl.publish(eventBusTypes.Event_Funded, &eventBusTypes.AccountMutationData{
		Account: utils.NormalizeAccount(caller),
		Amount:  amount,
	})
	sl.logger.Sugar().Infow("Ledger funded", zap.String("amount", amount))
	return nil
}

func (sl *SavingsLedger) emitAccrued(account string, accrued string) {
	if accrued == "" || accrued == "0" {
		return
	}
	sl.publish(eventBusTypes.Event_InterestAccrued, &eventBusTypes.AccountMutationData{
		Account: account,
		Amount:  accrued,
	})
}
