package _202508311030_rewardDistributions

import (
	"github.com/lumen-labs/yield-ledger/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(grm *gorm.DB, cfg *config.Config) error {
	query := `create table if not exists reward_distributions (
		id varchar not null primary key,
		asset varchar not null,
		total_amount text not null,
		gauge_amount text not null default '0',
		retained_amount text not null,
		gauge_weight_bps bigint not null default 0,
		distributed_at timestamp
	)`
	return grm.Exec(query).Error
}

func (m *Migration) GetName() string {
	return "202508311030_rewardDistributions"
}
