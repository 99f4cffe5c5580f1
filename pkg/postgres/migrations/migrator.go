package migrations

import (
	"fmt"
	"time"

	"github.com/lumen-labs/yield-ledger/internal/config"
	_202508181200_initialSchema "github.com/lumen-labs/yield-ledger/pkg/postgres/migrations/202508181200_initialSchema"
	_202508251420_epochState "github.com/lumen-labs/yield-ledger/pkg/postgres/migrations/202508251420_epochState"
	_202508311030_rewardDistributions "github.com/lumen-labs/yield-ledger/pkg/postgres/migrations/202508311030_rewardDistributions"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migration is a single schema change. Migrations are written in
// dialect-portable SQL so the same set runs against postgres in production
// and sqlite in tests.
type Migration interface {
	Up(grm *gorm.DB, cfg *config.Config) error
	GetName() string
}

type Migrator struct {
	Db           *gorm.DB
	Logger       *zap.Logger
	globalConfig *config.Config
}

func NewMigrator(grm *gorm.DB, l *zap.Logger, cfg *config.Config) *Migrator {
	return &Migrator{
		Db:           grm,
		Logger:       l,
		globalConfig: cfg,
	}
}

func (m *Migrator) initMigrationsTable() error {
	query := `
		create table if not exists migrations (
			name varchar not null primary key,
			created_at timestamp not null
		)`
	return m.Db.Exec(query).Error
}

// MigrateAll applies every registered migration that has not yet been
// recorded, in order.
func (m *Migrator) MigrateAll() error {
	if err := m.initMigrationsTable(); err != nil {
		return errors.Wrap(err, "failed to create migrations table")
	}

	migrations := []Migration{
		&_202508181200_initialSchema.Migration{},
		&_202508251420_epochState.Migration{},
		&_202508311030_rewardDistributions.Migration{},
	}

	for _, migration := range migrations {
		if err := m.migrate(migration); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) migrate(migration Migration) error {
	name := migration.GetName()

	var count int64
	res := m.Db.Raw(`select count(*) from migrations where name = ?`, name).Scan(&count)
	if res.Error != nil {
		return res.Error
	}
	if count > 0 {
		return nil
	}

	if err := migration.Up(m.Db, m.globalConfig); err != nil {
		m.Logger.Sugar().Errorw("Failed to run migration",
			zap.String("name", name),
			zap.Error(err),
		)
		return fmt.Errorf("migration %s failed: %w", name, err)
	}

	res = m.Db.Exec(`insert into migrations (name, created_at) values (?, ?)`, name, time.Now())
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to record migration %s", name)
	}

	m.Logger.Sugar().Infow("Applied migration", zap.String("name", name))
	return nil
}
