package postgres

import (
	"database/sql"
	"fmt"
	"slices"

	"github.com/lumen-labs/yield-ledger/internal/config"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSSLMode = "disable"

var validSSLModes = []string{
	"disable",
	"require",
	"verify-ca",
	"verify-full",
}

// Postgres wraps the raw SQL connection to the database.
type Postgres struct {
	Db *sql.DB
}

func dsnFromConfig(cfg *config.DatabaseConfig) (string, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}
	if !slices.Contains(validSSLModes, sslMode) {
		return "", fmt.Errorf("invalid ssl mode '%s'", sslMode)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.DbName, sslMode,
	)
	if cfg.Password != "" {
		dsn = fmt.Sprintf("%s password=%s", dsn, cfg.Password)
	}
	if cfg.SchemaName != "" {
		dsn = fmt.Sprintf("%s search_path=%s", dsn, cfg.SchemaName)
	}
	return dsn, nil
}

// NewPostgres opens a raw connection to the configured database.
func NewPostgres(cfg *config.DatabaseConfig, l *zap.Logger) (*Postgres, error) {
	dsn, err := dsnFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping postgres")
	}

	l.Sugar().Infow("Connected to postgres",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("dbName", cfg.DbName),
	)
	return &Postgres{Db: db}, nil
}

// NewGormFromPostgres wraps an existing connection in a gorm session.
func NewGormFromPostgres(pg *Postgres) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: pg.Db,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open gorm session")
	}
	return db, nil
}
