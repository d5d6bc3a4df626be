// Package database wraps the relational store shared by the agents: a pooled
// sqlx connection, a dialect-aware squirrel builder and transactions carried
// in the context.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"petsync/shared/config"
	"petsync/shared/observability"
)

const pingTimeout = 5 * time.Second

// Executor is satisfied by both *sqlx.DB and *sqlx.Tx
type Executor interface {
	sqlx.ExtContext
}

type txKey struct{}

// DB is a pooled connection to postgres or sqlite
type DB struct {
	conn    *sqlx.DB
	dialect string
	qb      squirrel.StatementBuilderType
	logger  observability.Logger
	metrics observability.Metrics
}

// Open connects to the configured adapter and verifies the connection
func Open(cfg *config.DatabaseConfig, logger observability.Logger, metrics observability.Metrics) (*DB, error) {
	driver, err := driverName(cfg.Adapter)
	if err != nil {
		return nil, err
	}

	fields := observability.Fields{"adapter": cfg.Adapter}
	if cfg.Adapter == "sqlite" {
		fields["path"] = cfg.Path
	} else {
		fields["host"] = cfg.Host
		fields["port"] = cfg.Port
		fields["database"] = cfg.Database
	}
	logger.Info(context.Background(), "Connecting to database", fields)

	conn, err := sqlx.Open(driver, cfg.DSN())
	if err != nil {
		metrics.RecordError("db_connect", "open")
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Adapter == "sqlite" {
		// one connection keeps an in-memory database alive and serializes writers
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		metrics.RecordError("db_connect", "ping")
		logger.Error(ctx, "Failed to ping database", err, fields)
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	metrics.RecordSuccess("db_connect")
	logger.Info(ctx, "Connected to database", fields)

	return Wrap(conn, logger, metrics), nil
}

// Wrap builds a DB around an existing connection. The dialect follows the
// connection's driver name.
func Wrap(conn *sqlx.DB, logger observability.Logger, metrics observability.Metrics) *DB {
	dialect := "postgres"
	placeholder := squirrel.PlaceholderFormat(squirrel.Dollar)
	if conn.DriverName() == "sqlite" {
		dialect = "sqlite"
		placeholder = squirrel.Question
	}

	return &DB{
		conn:    conn,
		dialect: dialect,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(placeholder),
		logger:  logger,
		metrics: metrics,
	}
}

// Dialect returns "postgres" or "sqlite"
func (d *DB) Dialect() string {
	return d.dialect
}

// Builder returns a statement builder with the dialect's placeholders
func (d *DB) Builder() squirrel.StatementBuilderType {
	return d.qb
}

// Executor returns the transaction bound to ctx, or the pool when there is none
func (d *DB) Executor(ctx context.Context) Executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return d.conn
}

// InTx runs fn inside a transaction carried by the context passed to fn.
// A ctx that already carries a transaction joins it. The transaction
// commits when fn returns nil and rolls back otherwise, including on panic.
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	start := time.Now()
	defer func() {
		d.metrics.RecordDuration("db_tx", time.Since(start).Seconds())
	}()

	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		d.metrics.RecordError("db_tx", "begin")
		d.logger.Error(ctx, "Failed to begin transaction", err, nil)
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		d.metrics.RecordError("db_tx", "rollback")
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error(ctx, "Failed to rollback", rbErr, nil)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		d.metrics.RecordError("db_tx", "commit")
		d.logger.Error(ctx, "Failed to commit", err, nil)
		return fmt.Errorf("commit transaction: %w", err)
	}

	d.metrics.RecordSuccess("db_tx")
	return nil
}

// Ping verifies the connection
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// Close closes the connection pool
func (d *DB) Close() error {
	d.logger.Info(context.Background(), "Closing database connection", nil)
	return d.conn.Close()
}

func driverName(adapter string) (string, error) {
	switch adapter {
	case "postgres":
		return "postgres", nil
	case "sqlite":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database adapter: %s", adapter)
	}
}
