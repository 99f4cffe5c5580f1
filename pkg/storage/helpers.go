package storage

import (
	"gorm.io/gorm"
)

// Singleton rows live at a fixed id so every reader and writer converges on
// the same record.
const SingletonId = 1

func GetOrCreateLedgerState(tx *gorm.DB) (*LedgerState, error) {
	state := &LedgerState{}
	res := tx.Where(&LedgerState{Id: SingletonId}).Attrs(&LedgerState{
		TotalDeposits:        "0",
		TotalFunded:          "0",
		TotalAccruedInterest: "0",
	}).FirstOrCreate(state)
	if res.Error != nil {
		return nil, res.Error
	}
	return state, nil
}

func GetOrCreateRateState(tx *gorm.DB, defaultRateBps uint64) (*RateState, error) {
	state := &RateState{}
	res := tx.Where(&RateState{Id: SingletonId}).Attrs(&RateState{
		AnnualRateBps:    defaultRateBps,
		WeekStartRateBps: defaultRateBps,
		DailyFees:        "0",
		TotalTVL:         "0",
	}).FirstOrCreate(state)
	if res.Error != nil {
		return nil, res.Error
	}
	return state, nil
}

func GetOrCreateEpochState(tx *gorm.DB) (*EpochState, error) {
	state := &EpochState{}
	res := tx.Where(&EpochState{Id: SingletonId}).FirstOrCreate(state)
	if res.Error != nil {
		return nil, res.Error
	}
	return state, nil
}
