package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"petsync/shared/observability"
)

// MigrationsTable records the applied batch schema version. It is kept
// apart from any migrations table the clinic application owns.
const MigrationsTable = "batch_schema_migrations"

//go:embed migrations
var migrations embed.FS

// Migrate applies the pending batch metadata migrations for the
// connection's dialect. An up-to-date schema is not an error.
func (d *DB) Migrate(ctx context.Context) error {
	src, err := iofs.New(migrations, "migrations/"+d.dialect)
	if err != nil {
		return fmt.Errorf("no migrations for dialect %s: %w", d.dialect, err)
	}
	defer src.Close()

	driver, release, err := d.migrationDriver(ctx)
	if err != nil {
		d.metrics.RecordError("db_migrate", "driver")
		return fmt.Errorf("create %s migration driver: %w", d.dialect, err)
	}
	defer release()

	m, err := migrate.NewWithInstance("iofs", src, d.dialect, driver)
	if err != nil {
		d.metrics.RecordError("db_migrate", "init")
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		d.metrics.RecordError("db_migrate", "up")
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	d.metrics.RecordSuccess("db_migrate")
	d.logger.Info(ctx, "Batch schema ready", observability.Fields{"version": version, "dirty": dirty})
	return nil
}

// migrationDriver lends the pool to golang-migrate without handing it over:
// both drivers close the *sql.DB they were built from, so m.Close is never
// called and release frees what the driver borrowed.
func (d *DB) migrationDriver(ctx context.Context) (migratedb.Driver, func(), error) {
	if d.dialect == "sqlite" {
		driver, err := sqlite.WithInstance(d.conn.DB, &sqlite.Config{MigrationsTable: MigrationsTable})
		return driver, func() {}, err
	}

	conn, err := d.conn.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return driver, func() { conn.Close() }, nil
}
