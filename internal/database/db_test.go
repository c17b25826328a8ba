package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	require.True(t, db.Migrator().HasTable("post_votes"))
	require.True(t, db.Migrator().HasTable("conversations"))
	require.True(t, db.Migrator().HasTable("notifications"))

	require.NoError(t, Close(db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		Driver:   "postgres",
		Host:     "db.internal",
		Port:     5433,
		Name:     "anonwork",
		User:     "svc",
		Password: "secret",
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=db.internal")
	require.Contains(t, dsn, "port=5433")
	require.Contains(t, dsn, "sslmode=disable")
}

func TestBuildMySQLDSNRequiresUser(t *testing.T) {
	_, err := buildMySQLDSN(Config{Driver: "mysql", Name: "anonwork"})
	require.Error(t, err)
}
