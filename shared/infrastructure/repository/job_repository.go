package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"petsync/shared/batch"
	"petsync/shared/database"
	"petsync/shared/observability"
)

const (
	jobInstanceTable   = "batch_job_instance"
	jobExecutionTable  = "batch_job_execution"
	stepExecutionTable = "batch_step_execution"
)

type jobExecutionRow struct {
	ID          int64      `db:"id"`
	InstanceID  int64      `db:"job_instance_id"`
	JobName     string     `db:"job_name"`
	JobKey      string     `db:"job_key"`
	Parameters  string     `db:"parameters"`
	Status      string     `db:"status"`
	ExitMessage string     `db:"exit_message"`
	StartTime   time.Time  `db:"start_time"`
	EndTime     *time.Time `db:"end_time"`
}

type stepExecutionRow struct {
	ID               int64      `db:"id"`
	JobExecutionID   int64      `db:"job_execution_id"`
	StepName         string     `db:"step_name"`
	Status           string     `db:"status"`
	ReadCount        int64      `db:"read_count"`
	FilterCount      int64      `db:"filter_count"`
	WriteCount       int64      `db:"write_count"`
	CommitCount      int64      `db:"commit_count"`
	RollbackCount    int64      `db:"rollback_count"`
	ExecutionContext string     `db:"execution_context"`
	ExitMessage      string     `db:"exit_message"`
	StartTime        time.Time  `db:"start_time"`
	EndTime          *time.Time `db:"end_time"`
}

// jobRepository stores batch metadata in the batch_* tables
type jobRepository struct {
	db      *database.DB
	logger  observability.Logger
	metrics observability.Metrics
	now     func() time.Time
}

// NewJobRepository creates a SQL-backed batch.JobRepository. Checkpoint
// updates issued inside a chunk transaction commit with that chunk.
func NewJobRepository(db *database.DB, logger observability.Logger, metrics observability.Metrics) batch.JobRepository {
	return &jobRepository{
		db:      db,
		logger:  logger.WithFields(observability.Fields{"repository": "job"}),
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *jobRepository) CreateJobExecution(ctx context.Context, jobName string, params batch.JobParameters, restartable bool) (*batch.JobExecution, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	key := params.Key()

	var execution *batch.JobExecution
	err = r.db.InTx(ctx, func(ctx context.Context) error {
		instanceID, err := r.lockInstance(ctx, jobName, key)
		if err != nil {
			return err
		}

		last, err := r.lastStatus(ctx, instanceID)
		if err != nil {
			return err
		}
		if last != "" {
			if err := batch.CheckRestart(batch.Status(last), jobName, restartable); err != nil {
				return err
			}
		}

		start := r.now()
		sqlQuery, args, err := r.db.Builder().
			Insert(jobExecutionTable).
			Columns("job_instance_id", "parameters", "status", "exit_message", "start_time").
			Values(instanceID, string(encoded), string(batch.StatusStarted), "", start).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}

		var id int64
		if err := sqlx.GetContext(ctx, r.db.Executor(ctx), &id, sqlQuery, args...); err != nil {
			return fmt.Errorf("insert job execution: %w", err)
		}

		execution = &batch.JobExecution{
			ID:         id,
			Instance:   batch.JobInstance{ID: instanceID, JobName: jobName, Key: key},
			Parameters: params,
			Status:     batch.StatusStarted,
			StartTime:  start,
			Restarted:  last != "",
		}
		return nil
	})
	if err != nil {
		if _, ok := batch.CodeOf(err); !ok {
			r.metrics.RecordError("job_repository_create", "query")
			r.logger.Error(ctx, "Failed to create job execution", err, observability.Fields{"job": jobName})
		}
		return nil, err
	}

	r.metrics.RecordSuccess("job_repository_create")
	return execution, nil
}

// lockInstance creates the instance row if needed and returns its id. On
// postgres the row stays locked until the surrounding transaction ends, so
// concurrent launches of one instance are serialized.
func (r *jobRepository) lockInstance(ctx context.Context, jobName, key string) (int64, error) {
	sqlQuery, args, err := r.db.Builder().
		Insert(jobInstanceTable).
		Columns("job_name", "job_key").
		Values(jobName, key).
		Suffix("ON CONFLICT (job_name, job_key) DO NOTHING").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.Executor(ctx).ExecContext(ctx, sqlQuery, args...); err != nil {
		return 0, fmt.Errorf("insert job instance: %w", err)
	}

	query := r.db.Builder().
		Select("id").
		From(jobInstanceTable).
		Where(squirrel.Eq{"job_name": jobName}).
		Where(squirrel.Eq{"job_key": key})
	if r.db.Dialect() == "postgres" {
		query = query.Suffix("FOR UPDATE")
	}
	sqlQuery, args, err = query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var id int64
	if err := sqlx.GetContext(ctx, r.db.Executor(ctx), &id, sqlQuery, args...); err != nil {
		return 0, fmt.Errorf("load job instance: %w", err)
	}
	return id, nil
}

func (r *jobRepository) lastStatus(ctx context.Context, instanceID int64) (string, error) {
	sqlQuery, args, err := r.db.Builder().
		Select("status").
		From(jobExecutionTable).
		Where(squirrel.Eq{"job_instance_id": instanceID}).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}

	var status string
	err = sqlx.GetContext(ctx, r.db.Executor(ctx), &status, sqlQuery, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load last job execution: %w", err)
	}
	return status, nil
}

func (r *jobRepository) LastJobExecution(ctx context.Context, jobName string, params batch.JobParameters) (*batch.JobExecution, error) {
	sqlQuery, args, err := r.db.Builder().
		Select("e.id", "e.job_instance_id", "i.job_name", "i.job_key", "e.parameters",
			"e.status", "e.exit_message", "e.start_time", "e.end_time").
		From(jobExecutionTable + " e").
		Join(jobInstanceTable + " i ON i.id = e.job_instance_id").
		Where(squirrel.Eq{"i.job_name": jobName}).
		Where(squirrel.Eq{"i.job_key": params.Key()}).
		OrderBy("e.id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row jobExecutionRow
	err = sqlx.GetContext(ctx, r.db.Executor(ctx), &row, sqlQuery, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.metrics.RecordError("job_repository_last", "query")
		return nil, fmt.Errorf("load last job execution: %w", err)
	}

	var decoded batch.JobParameters
	if err := json.Unmarshal([]byte(row.Parameters), &decoded); err != nil {
		return nil, fmt.Errorf("decode parameters of execution %d: %w", row.ID, err)
	}

	return &batch.JobExecution{
		ID:          row.ID,
		Instance:    batch.JobInstance{ID: row.InstanceID, JobName: row.JobName, Key: row.JobKey},
		Parameters:  decoded,
		Status:      batch.Status(row.Status),
		ExitMessage: row.ExitMessage,
		StartTime:   row.StartTime,
		EndTime:     row.EndTime,
	}, nil
}

func (r *jobRepository) UpdateJobExecution(ctx context.Context, execution *batch.JobExecution) error {
	sqlQuery, args, err := r.db.Builder().
		Update(jobExecutionTable).
		Set("status", string(execution.Status)).
		Set("exit_message", truncate(execution.ExitMessage)).
		Set("end_time", utc(execution.EndTime)).
		Where(squirrel.Eq{"id": execution.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.Executor(ctx).ExecContext(ctx, sqlQuery, args...); err != nil {
		r.metrics.RecordError("job_repository_update", "exec")
		return fmt.Errorf("update job execution %d: %w", execution.ID, err)
	}
	return nil
}

func (r *jobRepository) LastStepExecution(ctx context.Context, instanceID int64, stepName string) (*batch.StepExecution, error) {
	sqlQuery, args, err := r.db.Builder().
		Select("s.id", "s.job_execution_id", "s.step_name", "s.status", "s.read_count",
			"s.filter_count", "s.write_count", "s.commit_count", "s.rollback_count",
			"s.execution_context", "s.exit_message", "s.start_time", "s.end_time").
		From(stepExecutionTable + " s").
		Join(jobExecutionTable + " e ON e.id = s.job_execution_id").
		Where(squirrel.Eq{"e.job_instance_id": instanceID}).
		Where(squirrel.Eq{"s.step_name": stepName}).
		OrderBy("s.id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row stepExecutionRow
	err = sqlx.GetContext(ctx, r.db.Executor(ctx), &row, sqlQuery, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.metrics.RecordError("job_repository_step", "query")
		return nil, fmt.Errorf("load last step execution: %w", err)
	}

	ec, err := batch.DecodeExecutionContext(row.ExecutionContext)
	if err != nil {
		return nil, fmt.Errorf("decode context of step execution %d: %w", row.ID, err)
	}

	return &batch.StepExecution{
		ID:             row.ID,
		JobExecutionID: row.JobExecutionID,
		StepName:       row.StepName,
		Status:         batch.Status(row.Status),
		ReadCount:      row.ReadCount,
		FilterCount:    row.FilterCount,
		WriteCount:     row.WriteCount,
		CommitCount:    row.CommitCount,
		RollbackCount:  row.RollbackCount,
		Context:        ec,
		ExitMessage:    row.ExitMessage,
		StartTime:      row.StartTime,
		EndTime:        row.EndTime,
	}, nil
}

func (r *jobRepository) AddStepExecution(ctx context.Context, step *batch.StepExecution) error {
	ec, err := step.Context.Encode()
	if err != nil {
		return fmt.Errorf("encode step context: %w", err)
	}

	sqlQuery, args, err := r.db.Builder().
		Insert(stepExecutionTable).
		Columns("job_execution_id", "step_name", "status", "execution_context", "start_time").
		Values(step.JobExecutionID, step.StepName, string(step.Status), ec, step.StartTime.UTC()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := sqlx.GetContext(ctx, r.db.Executor(ctx), &step.ID, sqlQuery, args...); err != nil {
		r.metrics.RecordError("job_repository_add_step", "query")
		return fmt.Errorf("insert step execution: %w", err)
	}
	return nil
}

func (r *jobRepository) UpdateStepExecution(ctx context.Context, step *batch.StepExecution) error {
	ec, err := step.Context.Encode()
	if err != nil {
		return fmt.Errorf("encode step context: %w", err)
	}

	sqlQuery, args, err := r.db.Builder().
		Update(stepExecutionTable).
		Set("status", string(step.Status)).
		Set("read_count", step.ReadCount).
		Set("filter_count", step.FilterCount).
		Set("write_count", step.WriteCount).
		Set("commit_count", step.CommitCount).
		Set("rollback_count", step.RollbackCount).
		Set("execution_context", ec).
		Set("exit_message", truncate(step.ExitMessage)).
		Set("end_time", utc(step.EndTime)).
		Where(squirrel.Eq{"id": step.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.Executor(ctx).ExecContext(ctx, sqlQuery, args...); err != nil {
		r.metrics.RecordError("job_repository_update_step", "exec")
		return fmt.Errorf("update step execution %d: %w", step.ID, err)
	}
	return nil
}

const maxExitMessage = 2500

// truncate keeps at most maxExitMessage bytes without splitting a rune.
func truncate(message string) string {
	if len(message) <= maxExitMessage {
		return message
	}
	cut := maxExitMessage
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
