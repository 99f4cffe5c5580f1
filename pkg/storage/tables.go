// Package storage defines the persisted row types for the ledger. Token
// amounts are stored as decimal strings in the smallest (18-decimal)
// denomination so that arbitrary-precision values survive the round trip
// through the database unchanged.
package storage

import "time"

// DepositorAccount is the per-account savings record.
type DepositorAccount struct {
	Account         string `gorm:"primaryKey"`
	Principal       string
	AccruedInterest string
	// LastAccrualTime is the unix timestamp of the last interest settlement
	// for this account. It advances even while principal is zero so dormant
	// accounts cannot accrue retroactively after a later deposit.
	LastAccrualTime int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LedgerState is the singleton aggregate row for the savings ledger.
type LedgerState struct {
	Id                   uint64 `gorm:"primaryKey"`
	TotalDeposits        string
	TotalFunded          string
	TotalAccruedInterest string
	UpdatedAt            time.Time
}

// RateState is the singleton rate-control row. AnnualRateBps is the effective
// rate the ledger accrues at; the remaining fields drive the smoothing policy
// and the combined-rate formula.
type RateState struct {
	Id                    uint64 `gorm:"primaryKey"`
	AnnualRateBps         uint64
	WeekStartRateBps      uint64
	LastRateUpdateTime    int64
	RwaAnnualYieldBps     uint64
	RwaAllocationRatioBps uint64
	DailyFees             string
	TotalTVL              string
	LastUpkeepTime        int64
	UpdatedAt             time.Time
}

// DistributionRoot commits the payout table for one (epoch, asset) pair.
type DistributionRoot struct {
	Epoch     uint64 `gorm:"primaryKey"`
	Asset     string `gorm:"primaryKey"`
	Root      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RewardClaim records one paid-out claim. The composite primary key is the
// idempotency guard: a second claim for the same triple cannot be inserted.
type RewardClaim struct {
	Epoch              uint64 `gorm:"primaryKey"`
	Asset              string `gorm:"primaryKey"`
	Account            string `gorm:"primaryKey"`
	Amount             string
	BoostMultiplierBps uint64
	PaidAmount         string
	ClaimedAt          time.Time
}

// RewardDistribution records one gauge/claims split of an incoming reward
// amount, persisted before any value moves so the split is auditable even
// after a partial delivery failure.
type RewardDistribution struct {
	Id             string `gorm:"primaryKey"`
	Asset          string
	TotalAmount    string
	GaugeAmount    string
	RetainedAmount string
	GaugeWeightBps uint64
	DistributedAt  time.Time
}

// EpochState caches the last announced epoch index. Claim eligibility never
// reads it; the current epoch is always re-derived from wall-clock time.
type EpochState struct {
	Id           uint64 `gorm:"primaryKey"`
	CurrentEpoch uint64
	UpdatedAt    time.Time
}
