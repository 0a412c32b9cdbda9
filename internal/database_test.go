package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"KEC-QUOTE/internal/config"
)

func TestAutoMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"quotations", "quotation_images", "quotation_items", "inquiries", "invoices", "activity_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	// running twice is harmless
	require.NoError(t, AutoMigrate(db))
	require.NoError(t, CloseDB(db))
}

func TestDialectorFor(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		d, err := dialectorFor(&config.DatabaseConfig{Driver: driver, DBName: "x"})
		require.NoError(t, err)
		assert.Equal(t, driver, d.Name())
	}
	_, err := dialectorFor(&config.DatabaseConfig{Driver: "mssql"})
	assert.Error(t, err)
}
