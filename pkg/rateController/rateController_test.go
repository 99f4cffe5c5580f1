package rateController

import (
	"testing"
	"time"

	"github.com/lumen-labs/yield-ledger/internal/config"
	"github.com/lumen-labs/yield-ledger/internal/logger"
	"github.com/lumen-labs/yield-ledger/internal/tests"
	"github.com/lumen-labs/yield-ledger/pkg/storage"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func setup() (*config.Config, *gorm.DB, *RateController, error) {
	cfg := tests.GetConfig()
	cfg.LedgerConfig.AnnualRateBps = 200

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := tests.GetSqliteDatabaseConnection(l, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, db, NewRateController(db, l, cfg, nil, nil), nil
}

func fixedClock(ts int64) func() time.Time {
	return func() time.Time { return time.Unix(ts, 0) }
}

func getRateState(t *testing.T, db *gorm.DB) *storage.RateState {
	state := &storage.RateState{}
	res := db.Where(&storage.RateState{Id: storage.SingletonId}).First(state)
	assert.Nil(t, res.Error)
	return state
}

func Test_RateController(t *testing.T) {
	baseTime := int64(1700000000)
	week := int64(7 * 24 * 60 * 60)

	t.Run("Should clamp an upward proposal to the window cap", func(t *testing.T) {
		cfg, db, rc, err := setup()
		assert.Nil(t, err)
		rc.SetNow(fixedClock(baseTime))

		// Week starts at 200 bps with a 2000 bps cap, so 400 caps at 240
		applied, err := rc.ProposeRateUpdate(cfg.LedgerConfig.AdminAccount, 400)
		assert.Nil(t, err)
		assert.Equal(t, uint64(240), applied)

		state := getRateState(t, db)
		assert.Equal(t, uint64(240), state.AnnualRateBps)
		assert.Equal(t, uint64(200), state.WeekStartRateBps)
	})

	t.Run("Should clamp a downward proposal to the window floor", func(t *testing.T) {
		cfg, _, rc, err := setup()
		assert.Nil(t, err)
		rc.SetNow(fixedClock(baseTime))

		applied, err := rc.ProposeRateUpdate(cfg.LedgerConfig.AdminAccount, 50)
		assert.Nil(t, err)
		assert.Equal(t, uint64(160), applied)
	})

	t.Run("Should hold the cap against the same window start within a window", func(t *testing.T) {
		cfg, _, rc, err := setup()
		assert.Nil(t, err)
		rc.SetNow(fixedClock(baseTime))

		applied, err := rc.ProposeRateUpdate(cfg.LedgerConfig.AdminAccount, 400)
		assert.Nil(t, err)
		assert.Equal(t, uint64(240), applied)

		// Still inside the same window: the band is anchored to 200, not 240
		rc.SetNow(fixedClock(baseTime + week/2))
		applied, err = rc.ProposeRateUpdate(cfg.LedgerConfig.AdminAccount, 400)
		assert.Nil(t, err)
		assert.Equal(t, uint64(240), applied)
	})

	t.Run("Should re-anchor the band when the window rolls", func(t *testing.T) {
		cfg, db, rc, err := setup()
		assert.Nil(t, err)
		rc.SetNow(fixedClock(baseTime))

		_, err = rc.ProposeRateUpdate(cfg.LedgerConfig.AdminAccount, 400)
		assert.Nil(t, err)

		rc.SetNow(fixedClock(baseTime + week))
		applied, err := rc.ProposeRateUpdate(cfg.LedgerConfig.AdminAccount, 400)
		assert.Nil(t, err)
		// New window anchors at 240, so the cap is 288
		assert.Equal(t, uint64(288), applied)

		state := getRateState(t, db)
		assert.Equal(t, uint64(240), state.WeekStartRateBps)
	})

	t.Run("Should accept the first nonzero proposal unclamped when starting from zero", func(t *testing.T) {
		cfg, db, rc, err := setup()
		assert.Nil(t, err)
		cfg.LedgerConfig.AnnualRateBps = 0
		rc.SetNow(fixedClock(baseTime))

		// Force the singleton to seed with the zero default before proposing
		err = db.Transaction(func(tx *gorm.DB) error {
			_, err := storage.GetOrCreateRateState(tx, 0)
			return err
		})
		assert.Nil(t, err)

		applied, err := rc.ProposeRateUpdate(cfg.LedgerConfig.AdminAccount, 500)
		assert.Nil(t, err)
		assert.Equal(t, uint64(500), applied)
	})

	t.Run("Should combine the RWA and DEX portions", func(t *testing.T) {
		cfg, db, rc, err := setup()
		assert.Nil(t, err)
		cfg.LedgerConfig.AnnualRateBps = 0
		rc.SetNow(fixedClock(baseTime))
		err = db.Transaction(func(tx *gorm.DB) error {
			_, err := storage.GetOrCreateRateState(tx, 0)
			return err
		})
		assert.Nil(t, err)

		// 5% RWA yield on half the funds: 250 bps
		applied, err := rc.SetRWARateSource(cfg.LedgerConfig.AdminAccount, 500, 5000)
		assert.Nil(t, err)
		assert.Equal(t, uint64(250), applied)

		// Annualized DEX fees add 1000 bps on top
		applied, err = rc.UpdateDEXFeeRate(cfg.LedgerConfig.AdminAccount, "1000", "3650000")
		assert.Nil(t, err)
		assert.Equal(t, uint64(1250), applied)

		state := getRateState(t, db)
		assert.Equal(t, uint64(500), state.RwaAnnualYieldBps)
		assert.Equal(t, uint64(5000), state.RwaAllocationRatioBps)
		assert.Equal(t, "1000", state.DailyFees)
		assert.Equal(t, "3650000", state.TotalTVL)
	})

	t.Run("Should treat zero TVL as a zero DEX portion", func(t *testing.T) {
		cfg, _, rc, err := setup()
		assert.Nil(t, err)
		rc.SetNow(fixedClock(baseTime))

		applied, err := rc.UpdateDEXFeeRate(cfg.LedgerConfig.AdminAccount, "1000", "0")
		assert.Nil(t, err)
		// Candidate 0 hits the window floor of 160
		assert.Equal(t, uint64(160), applied)
	})

	t.Run("Should validate inputs and authorization", func(t *testing.T) {
		cfg, _, rc, err := setup()
		assert.Nil(t, err)
		rc.SetNow(fixedClock(baseTime))

		_, err = rc.ProposeRateUpdate("0xmallory", 300)
		assert.ErrorIs(t, err, ErrNotAuthorized)
		_, err = rc.SetRWARateSource("0xmallory", 500, 5000)
		assert.ErrorIs(t, err, ErrNotAuthorized)
		_, err = rc.UpdateDEXFeeRate("0xmallory", "0", "0")
		assert.ErrorIs(t, err, ErrNotAuthorized)

		_, err = rc.ProposeRateUpdate(cfg.LedgerConfig.AdminAccount, 70000)
		assert.ErrorIs(t, err, ErrRateTooWide)
		_, err = rc.SetRWARateSource(cfg.LedgerConfig.AdminAccount, 70000, 5000)
		assert.ErrorIs(t, err, ErrRateTooWide)
		_, err = rc.SetRWARateSource(cfg.LedgerConfig.AdminAccount, 500, 10001)
		assert.ErrorIs(t, err, ErrInvalidAllocation)
	})
}

func Test_Upkeep(t *testing.T) {
	baseTime := int64(1700000000)
	day := int64(24 * 60 * 60)

	t.Run("Should gate upkeep on the minimum interval", func(t *testing.T) {
		_, _, rc, err := setup()
		assert.Nil(t, err)
		rc.SetNow(fixedClock(baseTime))

		due, err := rc.CheckUpkeep()
		assert.Nil(t, err)
		assert.True(t, due)

		_, err = rc.PerformUpkeep()
		assert.Nil(t, err)

		due, err = rc.CheckUpkeep()
		assert.Nil(t, err)
		assert.False(t, due)

		_, err = rc.PerformUpkeep()
		assert.ErrorIs(t, err, ErrUpkeepNotDue)

		rc.SetNow(fixedClock(baseTime + day))
		due, err = rc.CheckUpkeep()
		assert.Nil(t, err)
		assert.True(t, due)

		_, err = rc.PerformUpkeep()
		assert.Nil(t, err)
	})

	t.Run("Should leave no partial state when the rate derivation fails", func(t *testing.T) {
		cfg, db, rc, err := setup()
		assert.Nil(t, err)
		rc.SetNow(fixedClock(baseTime))

		// Materialize the rate row first so the rollback leaves it behind
		err = db.Transaction(func(tx *gorm.DB) error {
			_, err := storage.GetOrCreateRateState(tx, cfg.LedgerConfig.AnnualRateBps)
			return err
		})
		assert.Nil(t, err)

		// Fees so large the annualized yield overflows the rate width
		hugeFees := "100000000000000000000000000000000"
		_, err = rc.UpdateDEXFeeRate(cfg.LedgerConfig.AdminAccount, hugeFees, "1")
		assert.NotNil(t, err)

		// The failed update persisted neither the sources nor a rate change
		state := getRateState(t, db)
		assert.Equal(t, "0", state.DailyFees)
		assert.Equal(t, "0", state.TotalTVL)
		assert.Equal(t, uint64(200), state.AnnualRateBps)
	})

	t.Run("Should not advance the upkeep clock when upkeep fails", func(t *testing.T) {
		cfg, db, rc, err := setup()
		assert.Nil(t, err)
		rc.SetNow(fixedClock(baseTime))

		// Seed source state whose derived rate overflows
		err = db.Transaction(func(tx *gorm.DB) error {
			state, err := storage.GetOrCreateRateState(tx, cfg.LedgerConfig.AnnualRateBps)
			if err != nil {
				return err
			}
			state.DailyFees = "100000000000000000000000000000000"
			state.TotalTVL = "1"
			return tx.Save(state).Error
		})
		assert.Nil(t, err)

		_, err = rc.PerformUpkeep()
		assert.NotNil(t, err)

		state := getRateState(t, db)
		assert.Equal(t, int64(0), state.LastUpkeepTime)
		assert.Equal(t, uint64(200), state.AnnualRateBps)
	})

	t.Run("Should re-derive the rate from source state during upkeep", func(t *testing.T) {
		cfg, db, rc, err := setup()
		assert.Nil(t, err)
		rc.SetNow(fixedClock(baseTime))

		_, err = rc.SetRWARateSource(cfg.LedgerConfig.AdminAccount, 500, 5000)
		assert.Nil(t, err)

		rc.SetNow(fixedClock(baseTime + day))
		applied, err := rc.PerformUpkeep()
		assert.Nil(t, err)
		// Candidate 250 clamps against the 200 bps window anchor
		assert.Equal(t, uint64(240), applied)

		state := getRateState(t, db)
		assert.Equal(t, baseTime+day, state.LastUpkeepTime)
	})
}
