package _202508251420_epochState

import (
	"github.com/lumen-labs/yield-ledger/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(grm *gorm.DB, cfg *config.Config) error {
	query := `
		create table if not exists epoch_states (
			id bigint not null primary key,
			current_epoch bigint not null default 0,
			updated_at timestamp
		)`
	return grm.Exec(query).Error
}

func (m *Migration) GetName() string {
	return "202508251420_epochState"
}
