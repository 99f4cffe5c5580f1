// Package rewardDistributor pays out protocol rewards committed as one
// Merkle root per distribution epoch per reward asset. Claimants present an
// inclusion proof and receive their table amount scaled by their current
// boost multiplier.
package rewardDistributor

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumen-labs/yield-ledger/internal/config"
	"github.com/lumen-labs/yield-ledger/internal/types/numbers"
	"github.com/lumen-labs/yield-ledger/pkg/eventBus/eventBusTypes"
	"github.com/lumen-labs/yield-ledger/pkg/metrics"
	"github.com/lumen-labs/yield-ledger/pkg/metrics/metricsTypes"
	"github.com/lumen-labs/yield-ledger/pkg/proofs"
	"github.com/lumen-labs/yield-ledger/pkg/registry"
	"github.com/lumen-labs/yield-ledger/pkg/storage"
	"github.com/lumen-labs/yield-ledger/pkg/transfer"
	"github.com/lumen-labs/yield-ledger/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
	ErrEmptyRoot      = errors.New("root must not be zero or empty")
	ErrRootNotSet     = errors.New("no distribution root set for epoch and asset")
	ErrAlreadyClaimed = errors.New("reward already claimed")
	ErrInvalidProof   = errors.New("merkle proof does not match the stored root")
	ErrNotAuthorized  = errors.New("caller is not the ledger admin")
	ErrReentrantCall  = errors.New("reentrant call rejected")
)

const DefaultEpochDuration = 7 * 24 * time.Hour

// VestingForwarder moves a claimed reward into an external vesting mechanism
// on the claimant's behalf instead of paying it out directly.
type VestingForwarder interface {
	Forward(account string, amount string) error
}

// GaugePool receives the gauge-weighted share of an incoming reward amount
// and reports it onward through its own notification hook.
type GaugePool interface {
	Account() string
	NotifyReward(asset string, amount string) error
}

type RewardDistributor struct {
	db            *gorm.DB
	logger        *zap.Logger
	globalConfig  *config.Config
	transfer      transfer.ValueTransfer
	boostRegistry registry.BoostRegistry
	eventBus      eventBusTypes.IEventBus
	metricsSink   *metrics.MetricsSink

	// vestingForwarder and gaugePool are optional delivery channels; nil
	// disables the corresponding branch.
	vestingForwarder VestingForwarder
	gaugePool        GaugePool

	now     func() time.Time
	entered bool
}

func NewRewardDistributor(
	grm *gorm.DB,
	l *zap.Logger,
	cfg *config.Config,
	vt transfer.ValueTransfer,
	br registry.BoostRegistry,
	eb eventBusTypes.IEventBus,
	sink *metrics.MetricsSink,
) *RewardDistributor {
	return &RewardDistributor{
		db:            grm,
		logger:        l,
		globalConfig:  cfg,
		transfer:      vt,
		boostRegistry: br,
		eventBus:      eb,
		metricsSink:   sink,
		now:           time.Now,
	}
}

func (rd *RewardDistributor) SetVestingForwarder(vf VestingForwarder) {
	rd.vestingForwarder = vf
}

func (rd *RewardDistributor) SetGaugePool(gp GaugePool) {
	rd.gaugePool = gp
}

// SetNow overrides the clock. Test hook.
func (rd *RewardDistributor) SetNow(now func() time.Time) {
	rd.now = now
}

func (rd *RewardDistributor) enter() error {
	if rd.entered {
		return ErrReentrantCall
	}
	rd.entered = true
	return nil
}

func (rd *RewardDistributor) exit() {
	rd.entered = false
}

func (rd *RewardDistributor) publish(name eventBusTypes.EventName, data any) {
	if rd.eventBus != nil {
		rd.eventBus.Publish(&eventBusTypes.Event{Name: name, Data: data})
	}
}

func (rd *RewardDistributor) requireAdmin(caller string) error {
	if !utils.AreAccountsEqual(caller, rd.globalConfig.LedgerConfig.AdminAccount) {
		return fmt.Errorf("%w: caller %s", ErrNotAuthorized, caller)
	}
	return nil
}

func isZeroRoot(root []byte) bool {
	for _, b := range root {
		if b != 0 {
			return false
		}
	}
	return true
}

// SetMerkleRoot publishes the payout-table commitment for one (epoch, asset)
// pair. Overwriting an existing root is permitted as an emergency correction
// and is logged loudly; claims already recorded stay valid either way.
func (rd *RewardDistributor) SetMerkleRoot(caller string, epoch uint64, asset string, root []byte) error {
	if err := rd.requireAdmin(caller); err != nil {
		return err
	}
	if len(root) == 0 || isZeroRoot(root) {
		return ErrEmptyRoot
	}
	asset = utils.NormalizeAccount(asset)
	rootHex := utils.ConvertBytesToString(root)

	var previousRoot string
	err := rd.db.Transaction(func(tx *gorm.DB) error {
		// Explicit conditions: epoch 0 is a legitimate key and a struct
		// condition would drop the zero-valued field.
		row := &storage.DistributionRoot{}
		res := tx.Where("epoch = ? and asset = ?", epoch, asset).First(row)
		if res.Error != nil {
			if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return res.Error
			}
			return tx.Create(&storage.DistributionRoot{
				Epoch: epoch,
				Asset: asset,
				Root:  rootHex,
			}).Error
		}

		previousRoot = row.Root
		rd.logger.Sugar().Warnw("Overwriting existing distribution root",
			zap.Uint64("epoch", epoch),
			zap.String("asset", asset),
			zap.String("previousRoot", previousRoot),
			zap.String("newRoot", rootHex),
		)
		row.Root = rootHex
		return tx.Save(row).Error
	})
	if err != nil {
		return err
	}

	rd.publish(eventBusTypes.Event_MerkleRootSet, &eventBusTypes.MerkleRootSetData{
		Epoch:        epoch,
		Asset:        asset,
		Root:         rootHex,
		PreviousRoot: previousRoot,
	})
	if rd.metricsSink != nil {
		_ = rd.metricsSink.Incr(metricsTypes.Metric_Incr_MerkleRootSet, []metricsTypes.MetricsLabel{
			{Name: "asset", Value: asset},
		}, 1)
	}
	rd.logger.Sugar().Infow("Distribution root set",
		zap.Uint64("epoch", epoch),
		zap.String("asset", asset),
		zap.String("root", rootHex),
	)
	return nil
}

// Claim verifies the caller's inclusion proof against the stored root and
// pays out the table amount scaled by the caller's boost multiplier. The
// claimed marker is persisted before any value leaves the distributor.
func (rd *RewardDistributor) Claim(caller string, epoch uint64, asset string, amount string, proof [][]byte) (string, error) {
	if err := rd.enter(); err != nil {
		return "", err
	}
	defer rd.exit()

	start := rd.now()
	amountValue, err := numbers.ParseAmount(amount)
	if err != nil || amountValue.Sign() == 0 {
		return "", fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	caller = utils.NormalizeAccount(caller)
	asset = utils.NormalizeAccount(asset)

	var paid string
	var boost uint64
	err = rd.db.Transaction(func(tx *gorm.DB) error {
		row := &storage.DistributionRoot{}
		res := tx.Where("epoch = ? and asset = ?", epoch, asset).First(row)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: epoch %d asset %s", ErrRootNotSet, epoch, asset)
			}
			return res.Error
		}

		var claimedCount int64
		res = tx.Model(&storage.RewardClaim{}).
			Where("epoch = ? and asset = ? and account = ?", epoch, asset, caller).
			Count(&claimedCount)
		if res.Error != nil {
			return res.Error
		}
		if claimedCount > 0 {
			return fmt.Errorf("%w: epoch %d asset %s account %s", ErrAlreadyClaimed, epoch, asset, caller)
		}

		rootBytes, err := utils.ConvertStringToBytes(row.Root)
		if err != nil {
			return err
		}
		if !proofs.VerifyInclusion(caller, amount, proof, rootBytes) {
			if rd.metricsSink != nil {
				_ = rd.metricsSink.Incr(metricsTypes.Metric_Incr_InvalidProof, []metricsTypes.MetricsLabel{
					{Name: "asset", Value: asset},
				}, 1)
			}
			return fmt.Errorf("%w: epoch %d asset %s account %s", ErrInvalidProof, epoch, asset, caller)
		}

		if boost, err = rd.boostRegistry.GetBoostMultiplier(caller); err != nil {
			return err
		}
		if paid, err = numbers.ApplyBoost(amount, boost); err != nil {
			return err
		}

		// Claimed marker goes in before the outward delivery closes the
		// reentrancy window.
		if res := tx.Create(&storage.RewardClaim{
			Epoch:              epoch,
			Asset:              asset,
			Account:            caller,
			Amount:             amount,
			BoostMultiplierBps: boost,
			PaidAmount:         paid,
			ClaimedAt:          rd.now(),
		}); res.Error != nil {
			return res.Error
		}

		return rd.deliver(asset, caller, paid)
	})
	if err != nil {
		return "", err
	}

	rd.publish(eventBusTypes.Event_BoostApplied, &eventBusTypes.BoostAppliedData{
		Account:            caller,
		BaseAmount:         amount,
		BoostMultiplierBps: boost,
		ActualAmount:       paid,
	})
	rd.publish(eventBusTypes.Event_RewardClaimed, &eventBusTypes.RewardClaimedData{
		Epoch:      epoch,
		Asset:      asset,
		Account:    caller,
		Amount:     amount,
		PaidAmount: paid,
	})
	if rd.metricsSink != nil {
		_ = rd.metricsSink.Incr(metricsTypes.Metric_Incr_RewardClaimed, []metricsTypes.MetricsLabel{
			{Name: "asset", Value: asset},
		}, 1)
		_ = rd.metricsSink.Timing(metricsTypes.Metric_Timing_ClaimDuration, rd.now().Sub(start), nil)
	}
	rd.logger.Sugar().Infow("Reward claimed",
		zap.Uint64("epoch", epoch),
		zap.String("asset", asset),
		zap.String("account", caller),
		zap.String("amount", amount),
		zap.Uint64("boostMultiplierBps", boost),
		zap.String("paidAmount", paid),
	)
	return paid, nil
}

// deliver routes the payout either into the external vesting mechanism (for
// the designated asset, when enabled) or as a direct transfer. This is a
// delivery-channel decision only; the paid amount is identical either way.
func (rd *RewardDistributor) deliver(asset string, account string, amount string) error {
	rewardsCfg := rd.globalConfig.RewardsConfig
	if rewardsCfg.VestingEnabled && rd.vestingForwarder != nil && asset == rewardsCfg.VestingAsset {
		return rd.vestingForwarder.Forward(account, amount)
	}
	return rd.transfer.Transfer(asset, rewardsCfg.DistributorAccount, account, amount)
}

// IsClaimed reports whether the (epoch, asset, account) triple has already
// been paid.
func (rd *RewardDistributor) IsClaimed(epoch uint64, asset string, account string) (bool, error) {
	var count int64
	res := rd.db.Model(&storage.RewardClaim{}).
		Where("epoch = ? and asset = ? and account = ?", epoch, utils.NormalizeAccount(asset), utils.NormalizeAccount(account)).
		Count(&count)
	if res.Error != nil {
		return false, res.Error
	}
	return count > 0, nil
}

func (rd *RewardDistributor) epochDuration() time.Duration {
	if rd.globalConfig.RewardsConfig.EpochDuration > 0 {
		return rd.globalConfig.RewardsConfig.EpochDuration
	}
	return DefaultEpochDuration
}

// GetCurrentEpoch derives the epoch index purely from elapsed wall-clock
// time since the configured epoch start.
func (rd *RewardDistributor) GetCurrentEpoch() uint64 {
	elapsed := rd.now().Unix() - rd.globalConfig.RewardsConfig.EpochStartTime
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed) / uint64(rd.epochDuration().Seconds())
}

// AdvanceEpoch refreshes the cached epoch counter and announces the change.
// It has no effect on claim eligibility, which always re-derives the epoch
// from wall-clock time.
func (rd *RewardDistributor) AdvanceEpoch() (uint64, error) {
	current := rd.GetCurrentEpoch()

	var previous uint64
	var advanced bool
	err := rd.db.Transaction(func(tx *gorm.DB) error {
		state, err := storage.GetOrCreateEpochState(tx)
		if err != nil {
			return err
		}
		previous = state.CurrentEpoch
		if current <= previous {
			return nil
		}
		advanced = true
		state.CurrentEpoch = current
		return tx.Save(state).Error
	})
	if err != nil {
		return 0, err
	}

	if advanced {
		rd.publish(eventBusTypes.Event_EpochAdvanced, &eventBusTypes.EpochAdvancedData{
			PreviousEpoch: previous,
			CurrentEpoch:  current,
		})
		if rd.metricsSink != nil {
			_ = rd.metricsSink.Gauge(metricsTypes.Metric_Gauge_CurrentEpoch, float64(current), nil)
		}
		rd.logger.Sugar().Infow("Epoch advanced",
			zap.Uint64("previousEpoch", previous),
			zap.Uint64("currentEpoch", current),
		)
	}
	return current, nil
}

// DistributeRewards splits an incoming reward amount between the configured
// gauge pool and the proof-based claim path. The gauge share is forwarded
// immediately; the remainder stays in the distributor's custody for claims.
func (rd *RewardDistributor) DistributeRewards(caller string, asset string, totalAmount string) error {
	if err := rd.enter(); err != nil {
		return err
	}
	defer rd.exit()

	if err := rd.requireAdmin(caller); err != nil {
		return err
	}
	amountValue, err := numbers.ParseAmount(totalAmount)
	if err != nil || amountValue.Sign() == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, totalAmount)
	}
	asset = utils.NormalizeAccount(asset)

	rewardsCfg := rd.globalConfig.RewardsConfig
	gaugeAmount := "0"
	if rd.gaugePool != nil && rewardsCfg.GaugeWeightBps > 0 {
		if gaugeAmount, err = numbers.PortionOf(totalAmount, rewardsCfg.GaugeWeightBps); err != nil {
			return err
		}
	}
	retained, err := numbers.Sub(totalAmount, gaugeAmount)
	if err != nil {
		return err
	}

	// The split is recorded before any value moves, same as the claimed
	// marker in Claim.
	err = rd.db.Transaction(func(tx *gorm.DB) error {
		if res := tx.Create(&storage.RewardDistribution{
			Id:             uuid.New().String(),
			Asset:          asset,
			TotalAmount:    totalAmount,
			GaugeAmount:    gaugeAmount,
			RetainedAmount: retained,
			GaugeWeightBps: rewardsCfg.GaugeWeightBps,
			DistributedAt:  rd.now(),
		}); res.Error != nil {
			return res.Error
		}

		if gaugeAmount != "0" {
			if err := rd.transfer.Transfer(asset, rewardsCfg.DistributorAccount, rd.gaugePool.Account(), gaugeAmount); err != nil {
				return err
			}
			if err := rd.gaugePool.NotifyReward(asset, gaugeAmount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	rd.publish(eventBusTypes.Event_RewardsDistributed, &eventBusTypes.RewardsDistributedData{
		Asset:          asset,
		TotalAmount:    totalAmount,
		GaugeAmount:    gaugeAmount,
		RetainedAmount: retained,
		GaugeWeightBps: rewardsCfg.GaugeWeightBps,
	})
	rd.logger.Sugar().Infow("Rewards distributed",
		zap.String("asset", asset),
		zap.String("totalAmount", totalAmount),
		zap.String("gaugeAmount", gaugeAmount),
		zap.String("retainedAmount", retained),
	)
	return nil
}
