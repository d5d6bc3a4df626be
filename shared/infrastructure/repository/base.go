package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"petsync/shared/database"
	"petsync/shared/observability"
)

// baseRepository reads rows of one table into T through sqlx struct
// scanning. Every statement is recorded as "<table>_<operation>".
type baseRepository[T any] struct {
	db      *database.DB
	logger  observability.Logger
	metrics observability.Metrics
	table   string
	columns []string
}

func newBaseRepository[T any](db *database.DB, logger observability.Logger, metrics observability.Metrics, table string, columns ...string) *baseRepository[T] {
	return &baseRepository[T]{
		db:      db,
		logger:  logger.WithFields(observability.Fields{"table": table}),
		metrics: metrics,
		table:   table,
		columns: columns,
	}
}

func (r *baseRepository[T]) selectRows() squirrel.SelectBuilder {
	return r.db.Builder().Select(r.columns...).From(r.table)
}

// run builds query and hands the SQL to fn inside the table's metrics.
func (r *baseRepository[T]) run(ctx context.Context, operation string, query squirrel.Sqlizer, fn func(q database.Executor, stmt string, args []any) error) error {
	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", operation, err)
	}

	name := r.table + "_" + operation
	start := time.Now()
	if err := fn(r.db.Executor(ctx), stmt, args); err != nil {
		r.metrics.RecordError(name, "query")
		r.logger.Error(ctx, "Query failed", err, observability.Fields{"operation": operation})
		return fmt.Errorf("%s %s: %w", operation, r.table, err)
	}
	r.metrics.RecordDuration(name, time.Since(start).Seconds())
	r.metrics.RecordSuccess(name)
	return nil
}

func (r *baseRepository[T]) selectAll(ctx context.Context, operation string, query squirrel.SelectBuilder) ([]T, error) {
	rows := []T{}
	err := r.run(ctx, operation, query, func(q database.Executor, stmt string, args []any) error {
		return sqlx.SelectContext(ctx, q, &rows, stmt, args...)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID reports found=false for a missing row.
func (r *baseRepository[T]) FindByID(ctx context.Context, id int64) (T, bool, error) {
	var (
		row   T
		found = true
	)
	err := r.run(ctx, "find", r.selectRows().Where(squirrel.Eq{"id": id}), func(q database.Executor, stmt string, args []any) error {
		err := sqlx.GetContext(ctx, q, &row, stmt, args...)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})
	return row, found && err == nil, err
}

func (r *baseRepository[T]) ListAll(ctx context.Context) ([]T, error) {
	return r.selectAll(ctx, "list", r.selectRows().OrderBy("id"))
}
