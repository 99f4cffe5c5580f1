package tests

import (
	"github.com/google/uuid"
	"github.com/lumen-labs/yield-ledger/internal/config"
	"github.com/lumen-labs/yield-ledger/internal/sqlite"
	"github.com/lumen-labs/yield-ledger/pkg/postgres/migrations"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetConfig returns a config suitable for package tests.
func GetConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.LedgerConfig.AdminAccount = "0xadmin"
	cfg.LedgerConfig.Account = "0xledger"
	cfg.LedgerConfig.Asset = "usdl"
	cfg.RewardsConfig.DistributorAccount = "0xdistributor"
	return cfg
}

// GetSqliteDatabaseConnection returns a uniquely named in-memory database
// with all migrations applied.
func GetSqliteDatabaseConnection(l *zap.Logger, cfg *config.Config) (*gorm.DB, error) {
	dbName := uuid.New().String()
	db, err := sqlite.NewGormSqliteFromSqlite(sqlite.NewInMemorySqliteWithName(dbName))
	if err != nil {
		return nil, err
	}

	migrator := migrations.NewMigrator(db, l, cfg)
	if err := migrator.MigrateAll(); err != nil {
		return nil, err
	}
	return db, nil
}
