package sqlite

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const SqliteInMemoryPath = "file::memory:?cache=shared"

func NewInMemorySqlite() gorm.Dialector {
	return NewSqlite(SqliteInMemoryPath)
}

// NewInMemorySqliteWithName returns a named in-memory database so parallel
// tests do not share state.
func NewInMemorySqliteWithName(name string) gorm.Dialector {
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	return NewSqlite(path)
}

func NewSqlite(path string) gorm.Dialector {
	return &sqlite.Dialector{
		DriverName: "sqlite3",
		DSN:        path,
	}
}

func NewGormSqliteFromSqlite(sqlite gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA journal_mode = memory;`,
	}
	for _, pragma := range pragmas {
		if res := db.Exec(pragma); res.Error != nil {
			return nil, res.Error
		}
	}
	return db, nil
}
