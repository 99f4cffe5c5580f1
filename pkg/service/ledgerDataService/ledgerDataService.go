// Package ledgerDataService serves read-only views of ledger state. Readers
// never block writers and always observe the last committed state.
package ledgerDataService

import (
	"context"
	"errors"

	"github.com/lumen-labs/yield-ledger/internal/config"
	"github.com/lumen-labs/yield-ledger/pkg/storage"
	"github.com/lumen-labs/yield-ledger/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LedgerDataService struct {
	db           *gorm.DB
	logger       *zap.Logger
	globalConfig *config.Config
}

func NewLedgerDataService(
	db *gorm.DB,
	logger *zap.Logger,
	globalConfig *config.Config,
) *LedgerDataService {
	return &LedgerDataService{
		db:           db,
		logger:       logger,
		globalConfig: globalConfig,
	}
}

// GetAccount returns the depositor record for an account. A never-seen
// account comes back as an empty record rather than an error.
func (lds *LedgerDataService) GetAccount(ctx context.Context, account string) (*storage.DepositorAccount, error) {
	record := &storage.DepositorAccount{}
	res := lds.db.WithContext(ctx).
		Where(&storage.DepositorAccount{Account: utils.NormalizeAccount(account)}).
		First(record)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return &storage.DepositorAccount{
				Account:         utils.NormalizeAccount(account),
				Principal:       "0",
				AccruedInterest: "0",
			}, nil
		}
		return nil, res.Error
	}
	return record, nil
}

// ListAccounts returns every known depositor account identity.
func (lds *LedgerDataService) ListAccounts(ctx context.Context) ([]string, error) {
	accounts := make([]string, 0)
	res := lds.db.WithContext(ctx).
		Model(&storage.DepositorAccount{}).
		Order("account asc").
		Pluck("account", &accounts)
	if res.Error != nil {
		return nil, res.Error
	}
	return accounts, nil
}

// GetLedgerTotals returns the aggregate singleton.
func (lds *LedgerDataService) GetLedgerTotals(ctx context.Context) (*storage.LedgerState, error) {
	state := &storage.LedgerState{}
	res := lds.db.WithContext(ctx).Where(&storage.LedgerState{Id: storage.SingletonId}).First(state)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return &storage.LedgerState{
				Id:                   storage.SingletonId,
				TotalDeposits:        "0",
				TotalFunded:          "0",
				TotalAccruedInterest: "0",
			}, nil
		}
		return nil, res.Error
	}
	return state, nil
}

// GetRateState returns the current rate-control singleton.
func (lds *LedgerDataService) GetRateState(ctx context.Context) (*storage.RateState, error) {
	state := &storage.RateState{}
	res := lds.db.WithContext(ctx).Where(&storage.RateState{Id: storage.SingletonId}).First(state)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return &storage.RateState{
				Id:            storage.SingletonId,
				AnnualRateBps: lds.globalConfig.LedgerConfig.AnnualRateBps,
				DailyFees:     "0",
				TotalTVL:      "0",
			}, nil
		}
		return nil, res.Error
	}
	return state, nil
}

// ListClaimsForAccount returns every recorded reward claim for an account,
// newest epoch first.
func (lds *LedgerDataService) ListClaimsForAccount(ctx context.Context, account string) ([]*storage.RewardClaim, error) {
	claims := make([]*storage.RewardClaim, 0)
	res := lds.db.WithContext(ctx).
		Where(&storage.RewardClaim{Account: utils.NormalizeAccount(account)}).
		Order("epoch desc").
		Find(&claims)
	if res.Error != nil {
		return nil, res.Error
	}
	return claims, nil
}

// ListDistributions returns the recorded reward distributions for an asset,
// newest first.
func (lds *LedgerDataService) ListDistributions(ctx context.Context, asset string) ([]*storage.RewardDistribution, error) {
	distributions := make([]*storage.RewardDistribution, 0)
	res := lds.db.WithContext(ctx).
		Where("asset = ?", utils.NormalizeAccount(asset)).
		Order("distributed_at desc").
		Find(&distributions)
	if res.Error != nil {
		return nil, res.Error
	}
	return distributions, nil
}

// GetDistributionRoot returns the stored root for an (epoch, asset) pair, or
// nil when none has been set.
func (lds *LedgerDataService) GetDistributionRoot(ctx context.Context, epoch uint64, asset string) (*storage.DistributionRoot, error) {
	row := &storage.DistributionRoot{}
	res := lds.db.WithContext(ctx).
		Where("epoch = ? and asset = ?", epoch, utils.NormalizeAccount(asset)).
		First(row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return row, nil
}
