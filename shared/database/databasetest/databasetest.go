// Package databasetest opens throwaway in-memory sqlite databases for tests.
package databasetest

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"petsync/shared/config"
	"petsync/shared/database"
	"petsync/shared/observability"
)

// ClinicSchema creates the owner and pet tables the agents read and update
var ClinicSchema = []string{
	"CREATE TABLE owner (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
	"CREATE TABLE pet (id INTEGER PRIMARY KEY, owner_id INTEGER NOT NULL REFERENCES owner (id), name TEXT)",
}

// Open returns a migrated in-memory database and a provider logging nowhere
func Open(t testing.TB) (*database.DB, *observability.DefaultProvider) {
	t.Helper()
	obs := observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: io.Discard})

	cfg := config.DefaultDatabaseConfig()
	cfg.Adapter = "sqlite"
	cfg.Path = ":memory:"
	db, err := database.Open(&cfg, obs.Logger("database"), obs.Metrics("database"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db, obs
}

// OpenClinic is Open plus the clinic tables, then runs seed
func OpenClinic(t testing.TB, seed ...string) (*database.DB, *observability.DefaultProvider) {
	t.Helper()
	db, obs := Open(t)
	Exec(t, db, append(append([]string{}, ClinicSchema...), seed...)...)
	return db, obs
}

// Exec runs each statement outside any transaction
func Exec(t testing.TB, db *database.DB, statements ...string) {
	t.Helper()
	ctx := context.Background()
	for _, stmt := range statements {
		_, err := db.Executor(ctx).ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
}
