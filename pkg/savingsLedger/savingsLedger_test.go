package savingsLedger

import (
	"testing"
	"time"

	"github.com/lumen-labs/yield-ledger/internal/config"
	"github.com/lumen-labs/yield-ledger/internal/logger"
	"github.com/lumen-labs/yield-ledger/internal/tests"
	"github.com/lumen-labs/yield-ledger/pkg/storage"
	"github.com/lumen-labs/yield-ledger/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const oneThousandTokens = "1000000000000000000000"

func setup() (*config.Config, *gorm.DB, *transfer.InMemoryBank, *SavingsLedger, *zap.Logger, error) {
	cfg := tests.GetConfig()
	cfg.LedgerConfig.AnnualRateBps = 200

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	db, err := tests.GetSqliteDatabaseConnection(l, cfg)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	bank := transfer.NewInMemoryBank()
	ledger := NewSavingsLedger(db, l, cfg, bank, nil, nil)
	return cfg, db, bank, ledger, l, nil
}

func fixedClock(ts int64) func() time.Time {
	return func() time.Time { return time.Unix(ts, 0) }
}

func getAccount(t *testing.T, db *gorm.DB, account string) *storage.DepositorAccount {
	record := &storage.DepositorAccount{}
	res := db.Where(&storage.DepositorAccount{Account: account}).First(record)
	assert.Nil(t, res.Error)
	return record
}

func getLedgerState(t *testing.T, db *gorm.DB) *storage.LedgerState {
	state := &storage.LedgerState{}
	res := db.Where(&storage.LedgerState{Id: storage.SingletonId}).First(state)
	assert.Nil(t, res.Error)
	return state
}

func Test_SavingsLedger(t *testing.T) {
	baseTime := int64(1700000000)

	t.Run("Should take custody of deposits and credit principal", func(t *testing.T) {
		cfg, db, bank, ledger, _, err := setup()
		assert.Nil(t, err)
		ledger.SetNow(fixedClock(baseTime))

		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, "0xalice", oneThousandTokens))
		assert.Nil(t, ledger.Deposit("0xAlice", oneThousandTokens))

		record := getAccount(t, db, "0xalice")
		assert.Equal(t, oneThousandTokens, record.Principal)
		assert.Equal(t, "0", record.AccruedInterest)

		state := getLedgerState(t, db)
		assert.Equal(t, oneThousandTokens, state.TotalDeposits)

		custody, err := bank.BalanceOf(cfg.LedgerConfig.Asset, cfg.LedgerConfig.Account)
		assert.Nil(t, err)
		assert.Equal(t, oneThousandTokens, custody)

		depositor, err := bank.BalanceOf(cfg.LedgerConfig.Asset, "0xalice")
		assert.Nil(t, err)
		assert.Equal(t, "0", depositor)
	})

	t.Run("Should reject zero and malformed amounts", func(t *testing.T) {
		_, _, _, ledger, _, err := setup()
		assert.Nil(t, err)

		assert.ErrorIs(t, ledger.Deposit("0xalice", "0"), ErrInvalidAmount)
		assert.ErrorIs(t, ledger.Deposit("0xalice", "-1"), ErrInvalidAmount)
		assert.ErrorIs(t, ledger.Deposit("0xalice", "a lot"), ErrInvalidAmount)
		assert.ErrorIs(t, ledger.Withdraw("0xalice", "0"), ErrInvalidAmount)
	})

	t.Run("Should accrue interest over 30 days at 200 bps", func(t *testing.T) {
		cfg, db, bank, ledger, _, err := setup()
		assert.Nil(t, err)
		ledger.SetNow(fixedClock(baseTime))

		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, "0xalice", oneThousandTokens))
		assert.Nil(t, ledger.Deposit("0xalice", oneThousandTokens))

		// Backing for the interest obligation
		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, cfg.LedgerConfig.AdminAccount, "10000000000000000000"))
		assert.Nil(t, ledger.Fund(cfg.LedgerConfig.AdminAccount, "10000000000000000000"))

		ledger.SetNow(fixedClock(baseTime + 30*24*60*60))
		accrued, err := ledger.AccrueInterest("0xalice")
		assert.Nil(t, err)
		assert.Equal(t, "1643835616438356164", accrued)

		record := getAccount(t, db, "0xalice")
		assert.Equal(t, "1643835616438356164", record.AccruedInterest)
		assert.Equal(t, oneThousandTokens, record.Principal)

		state := getLedgerState(t, db)
		assert.Equal(t, "1643835616438356164", state.TotalAccruedInterest)

		// Re-accruing at the same timestamp adds nothing
		accrued, err = ledger.AccrueInterest("0xalice")
		assert.Nil(t, err)
		assert.Equal(t, "0", accrued)
	})

	t.Run("Should pay out claimed interest and reset the balance", func(t *testing.T) {
		cfg, db, bank, ledger, _, err := setup()
		assert.Nil(t, err)
		ledger.SetNow(fixedClock(baseTime))

		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, "0xalice", oneThousandTokens))
		assert.Nil(t, ledger.Deposit("0xalice", oneThousandTokens))
		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, cfg.LedgerConfig.AdminAccount, "10000000000000000000"))
		assert.Nil(t, ledger.Fund(cfg.LedgerConfig.AdminAccount, "10000000000000000000"))

		ledger.SetNow(fixedClock(baseTime + 30*24*60*60))
		claimed, err := ledger.ClaimInterest("0xalice")
		assert.Nil(t, err)
		assert.Equal(t, "1643835616438356164", claimed)

		balance, err := bank.BalanceOf(cfg.LedgerConfig.Asset, "0xalice")
		assert.Nil(t, err)
		assert.Equal(t, "1643835616438356164", balance)

		record := getAccount(t, db, "0xalice")
		assert.Equal(t, "0", record.AccruedInterest)

		state := getLedgerState(t, db)
		assert.Equal(t, "0", state.TotalAccruedInterest)

		// Nothing left to claim at the same instant
		_, err = ledger.ClaimInterest("0xalice")
		assert.ErrorIs(t, err, ErrNothingToClaim)
	})

	t.Run("Should return principal on withdrawal and reject overdrafts", func(t *testing.T) {
		cfg, db, bank, ledger, _, err := setup()
		assert.Nil(t, err)
		ledger.SetNow(fixedClock(baseTime))

		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, "0xalice", "1000"))
		assert.Nil(t, ledger.Deposit("0xalice", "1000"))

		assert.Nil(t, ledger.Withdraw("0xalice", "400"))
		record := getAccount(t, db, "0xalice")
		assert.Equal(t, "600", record.Principal)

		balance, err := bank.BalanceOf(cfg.LedgerConfig.Asset, "0xalice")
		assert.Nil(t, err)
		assert.Equal(t, "400", balance)

		assert.ErrorIs(t, ledger.Withdraw("0xalice", "601"), ErrInsufficientPrincipal)

		assert.Nil(t, ledger.Withdraw("0xalice", "600"))
		state := getLedgerState(t, db)
		assert.Equal(t, "0", state.TotalDeposits)
	})

	t.Run("Should conserve value across depositors", func(t *testing.T) {
		cfg, db, bank, ledger, _, err := setup()
		assert.Nil(t, err)
		ledger.SetNow(fixedClock(baseTime))

		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, "0xalice", "700"))
		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, "0xbob", "300"))
		assert.Nil(t, ledger.Deposit("0xalice", "700"))
		assert.Nil(t, ledger.Deposit("0xbob", "300"))

		state := getLedgerState(t, db)
		assert.Equal(t, "1000", state.TotalDeposits)

		custody, err := bank.BalanceOf(cfg.LedgerConfig.Asset, cfg.LedgerConfig.Account)
		assert.Nil(t, err)
		assert.Equal(t, "1000", custody)

		assert.Nil(t, ledger.Withdraw("0xbob", "300"))
		state = getLedgerState(t, db)
		assert.Equal(t, "700", state.TotalDeposits)
	})

	t.Run("Should reject operations when obligations exceed the backing balance", func(t *testing.T) {
		cfg, _, bank, ledger, _, err := setup()
		assert.Nil(t, err)
		ledger.SetNow(fixedClock(baseTime))

		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, "0xalice", oneThousandTokens))
		assert.Nil(t, ledger.Deposit("0xalice", oneThousandTokens))

		// A year passes with no extra funding; interest pushes obligations
		// beyond custody.
		ledger.SetNow(fixedClock(baseTime + 365*24*60*60))
		_, err = ledger.AccrueInterest("0xalice")
		assert.ErrorIs(t, err, ErrInsufficientFundCoverage)
	})

	t.Run("Should restrict rate overrides and funding to the admin", func(t *testing.T) {
		cfg, db, bank, ledger, _, err := setup()
		assert.Nil(t, err)

		assert.ErrorIs(t, ledger.UpdateAnnualRate("0xmallory", 300), ErrNotAuthorized)
		assert.ErrorIs(t, ledger.Fund("0xmallory", "100"), ErrNotAuthorized)
		assert.ErrorIs(t, ledger.UpdateAnnualRate(cfg.LedgerConfig.AdminAccount, 70000), ErrRateTooWide)

		assert.Nil(t, ledger.UpdateAnnualRate(cfg.LedgerConfig.AdminAccount, 400))
		rateState := &storage.RateState{}
		assert.Nil(t, db.Where(&storage.RateState{Id: storage.SingletonId}).First(rateState).Error)
		assert.Equal(t, uint64(400), rateState.AnnualRateBps)

		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, cfg.LedgerConfig.AdminAccount, "500"))
		assert.Nil(t, ledger.Fund(cfg.LedgerConfig.AdminAccount, "500"))
		state := getLedgerState(t, db)
		assert.Equal(t, "500", state.TotalFunded)
	})

	t.Run("Should accrue at the overridden rate after an admin update", func(t *testing.T) {
		cfg, _, bank, ledger, _, err := setup()
		assert.Nil(t, err)
		ledger.SetNow(fixedClock(baseTime))

		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, "0xalice", oneThousandTokens))
		assert.Nil(t, ledger.Deposit("0xalice", oneThousandTokens))
		assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, cfg.LedgerConfig.AdminAccount, "50000000000000000000"))
		assert.Nil(t, ledger.Fund(cfg.LedgerConfig.AdminAccount, "50000000000000000000"))

		// Double the rate, expect double the 30-day interest
		assert.Nil(t, ledger.UpdateAnnualRate(cfg.LedgerConfig.AdminAccount, 400))
		ledger.SetNow(fixedClock(baseTime + 30*24*60*60))
		accrued, err := ledger.AccrueInterest("0xalice")
		assert.Nil(t, err)
		assert.Equal(t, "3287671232876712328", accrued)
	})
}

// reentrantBank wraps the in-memory bank and re-invokes a ledger operation
// from inside Transfer, simulating a transfer hook calling back into the
// ledger.
type reentrantBank struct {
	*transfer.InMemoryBank
	hook func()
}

func (b *reentrantBank) Transfer(asset string, from string, to string, amount string) error {
	if b.hook != nil {
		hook := b.hook
		b.hook = nil
		hook()
	}
	return b.InMemoryBank.Transfer(asset, from, to, amount)
}

func Test_SavingsLedger_Reentrancy(t *testing.T) {
	cfg := tests.GetConfig()
	cfg.LedgerConfig.AnnualRateBps = 200

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)
	db, err := tests.GetSqliteDatabaseConnection(l, cfg)
	assert.Nil(t, err)

	bank := &reentrantBank{InMemoryBank: transfer.NewInMemoryBank()}
	ledger := NewSavingsLedger(db, l, cfg, bank, nil, nil)
	ledger.SetNow(fixedClock(1700000000))

	assert.Nil(t, bank.Mint(cfg.LedgerConfig.Asset, "0xalice", "1000"))
	assert.Nil(t, ledger.Deposit("0xalice", "1000"))

	var hookErr error
	bank.hook = func() {
		hookErr = ledger.Withdraw("0xalice", "1000")
	}
	assert.Nil(t, ledger.Withdraw("0xalice", "500"))
	assert.ErrorIs(t, hookErr, ErrReentrantCall)

	// The outer withdrawal completed exactly once
	record := getAccount(t, db, "0xalice")
	assert.Equal(t, "500", record.Principal)
}
