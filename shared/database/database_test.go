package database

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsync/shared/config"
	"petsync/shared/observability"
)

func testObservability() *observability.DefaultProvider {
	return observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: io.Discard})
}

func openSQLite(t *testing.T) *DB {
	t.Helper()
	obs := testObservability()

	cfg := config.DefaultDatabaseConfig()
	cfg.Adapter = "sqlite"
	cfg.Path = ":memory:"

	db, err := Open(&cfg, obs.Logger("database"), obs.Metrics("database"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_UnsupportedAdapter(t *testing.T) {
	obs := testObservability()
	cfg := config.DefaultDatabaseConfig()
	cfg.Adapter = "oracle"

	_, err := Open(&cfg, obs.Logger("database"), obs.Metrics("database"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database adapter")
}

func TestDB_SQLiteDialect(t *testing.T) {
	db := openSQLite(t)

	assert.Equal(t, "sqlite", db.Dialect())

	query, _, err := db.Builder().Select("id").From("pet").Where("owner_id = ?", 1).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM pet WHERE owner_id = ?", query)
}

func TestDB_Migrate(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrations are idempotent")

	for _, table := range []string{"batch_job_instance", "batch_job_execution", "batch_step_execution"} {
		var count int
		err := sqlx.GetContext(ctx, db.Executor(ctx), &count,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		require.NoError(t, err)
		assert.Equal(t, 1, count, table)
	}

	var applied struct {
		Version int  `db:"version"`
		Dirty   bool `db:"dirty"`
	}
	require.NoError(t, sqlx.GetContext(ctx, db.Executor(ctx), &applied, "SELECT version, dirty FROM "+MigrationsTable))
	assert.Equal(t, 1, applied.Version)
	assert.False(t, applied.Dirty)

	// the pool is still usable after the migration driver is released
	_, err := db.Executor(ctx).ExecContext(ctx, "INSERT INTO batch_job_instance (job_name, job_key) VALUES ('j', 'k')")
	assert.NoError(t, err)
}

func TestDB_InTx(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	_, err := db.Executor(ctx).ExecContext(ctx, "CREATE TABLE item (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	count := func() int {
		var n int
		require.NoError(t, sqlx.GetContext(ctx, db.Executor(ctx), &n, "SELECT COUNT(*) FROM item"))
		return n
	}

	t.Run("commit", func(t *testing.T) {
		err := db.InTx(ctx, func(ctx context.Context) error {
			_, ok := db.Executor(ctx).(*sqlx.Tx)
			assert.True(t, ok, "executor inside InTx is the transaction")
			_, err := db.Executor(ctx).ExecContext(ctx, "INSERT INTO item (id) VALUES (1)")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count())
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.InTx(ctx, func(ctx context.Context) error {
			if _, err := db.Executor(ctx).ExecContext(ctx, "INSERT INTO item (id) VALUES (2)"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, count())
	})

	t.Run("rollback on panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = db.InTx(ctx, func(ctx context.Context) error {
				_, _ = db.Executor(ctx).ExecContext(ctx, "INSERT INTO item (id) VALUES (3)")
				panic("writer exploded")
			})
		})
		assert.Equal(t, 1, count())
	})

	t.Run("nested joins outer transaction", func(t *testing.T) {
		boom := errors.New("outer failed")
		err := db.InTx(ctx, func(ctx context.Context) error {
			inner := db.InTx(ctx, func(ctx context.Context) error {
				_, err := db.Executor(ctx).ExecContext(ctx, "INSERT INTO item (id) VALUES (4)")
				return err
			})
			require.NoError(t, inner)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, count())
	})
}

func TestDB_InTxCommitFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	obs := testObservability()
	db := Wrap(sqlx.NewDb(conn, "postgres"), obs.Logger("database"), obs.Metrics("database"))
	assert.Equal(t, "postgres", db.Dialect())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE pet").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err = db.InTx(context.Background(), func(ctx context.Context) error {
		_, err := db.Executor(ctx).ExecContext(ctx, "UPDATE pet SET name = $1 WHERE id = $2", "Rex", 1)
		return err
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}
