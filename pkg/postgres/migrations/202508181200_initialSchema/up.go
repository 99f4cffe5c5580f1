package _202508181200_initialSchema

import (
	"github.com/lumen-labs/yield-ledger/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`create table if not exists depositor_accounts (
			account varchar not null primary key,
			principal text not null default '0',
			accrued_interest text not null default '0',
			last_accrual_time bigint not null default 0,
			created_at timestamp,
			updated_at timestamp
		)`,
		`create table if not exists ledger_states (
			id bigint not null primary key,
			total_deposits text not null default '0',
			total_funded text not null default '0',
			total_accrued_interest text not null default '0',
			updated_at timestamp
		)`,
		`create table if not exists rate_states (
			id bigint not null primary key,
			annual_rate_bps bigint not null default 0,
			week_start_rate_bps bigint not null default 0,
			last_rate_update_time bigint not null default 0,
			rwa_annual_yield_bps bigint not null default 0,
			rwa_allocation_ratio_bps bigint not null default 0,
			daily_fees text not null default '0',
			total_tvl text not null default '0',
			last_upkeep_time bigint not null default 0,
			updated_at timestamp
		)`,
		`create table if not exists distribution_roots (
			epoch bigint not null,
			asset varchar not null,
			root varchar not null,
			created_at timestamp,
			updated_at timestamp,
			primary key (epoch, asset)
		)`,
		`create table if not exists reward_claims (
			epoch bigint not null,
			asset varchar not null,
			account varchar not null,
			amount text not null,
			boost_multiplier_bps bigint not null default 10000,
			paid_amount text not null,
			claimed_at timestamp,
			primary key (epoch, asset, account)
		)`,
	}

	for _, query := range queries {
		if res := grm.Exec(query); res.Error != nil {
			return res.Error
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202508181200_initialSchema"
}
