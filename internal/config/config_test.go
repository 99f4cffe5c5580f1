package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_KebabToSnakeCase(t *testing.T) {
	assert.Equal(t, "database_db_name", KebabToSnakeCase("database.db-name"))
	assert.Equal(t, "ledger_annual_rate_bps", KebabToSnakeCase("ledger.annual-rate-bps"))
	assert.Equal(t, "debug", KebabToSnakeCase("debug"))
}
