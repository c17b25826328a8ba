package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/database"
)

// MustOpenTestDB opens an isolated in-memory SQLite database for tests with the
// full schema migrated. Each call gets its own named memory database so tests
// never observe each other's rows. The connection closes via t.Cleanup.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:testdb-%s?mode=memory&cache=shared&_foreign_keys=1&_busy_timeout=5000",
		uuid.NewString(),
	)

	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single pooled connection serialises concurrent writers, which SQLite's
	// shared-cache mode would otherwise reject with lock errors.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
