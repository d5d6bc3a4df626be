package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petsync/shared/observability"
)

// Launcher runs jobs against a JobRepository
type Launcher struct {
	repo    JobRepository
	logger  observability.Logger
	metrics observability.Metrics
	now     func() time.Time
}

// NewLauncher creates a job launcher
func NewLauncher(repo JobRepository, logger observability.Logger, metrics observability.Metrics) *Launcher {
	return &Launcher{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Run executes job with params and returns the finished execution.
//
// Parameters are validated before anything is persisted. A completed
// instance is never run again, a running one is refused, and a failed or
// stopped one resumes each step from its last committed chunk. A cancelled
// ctx ends the execution as STOPPED. The returned error is nil only for a
// COMPLETED execution.
func (l *Launcher) Run(ctx context.Context, job *Job, params JobParameters) (*JobExecution, error) {
	if err := job.Validate(params); err != nil {
		l.metrics.RecordError("job_launch", string(CodeInvalidParameters))
		return nil, NewJobExecutionError(CodeInvalidParameters, fmt.Sprintf("job %s rejected its parameters", job.Name), err)
	}

	l.logger.Info(ctx, fmt.Sprintf("Launching %s with parameters %s", job.Name, params.Describe()), observability.Fields{
		"job": job.Name,
	})

	execution, err := l.repo.CreateJobExecution(ctx, job.Name, params, !job.PreventRestart)
	if err != nil {
		if code, ok := CodeOf(err); ok {
			l.metrics.RecordError("job_launch", string(code))
		} else {
			l.metrics.RecordError("job_launch", "repository")
		}
		return nil, err
	}

	ctx = observability.WithJobExecutionID(ctx, execution.ID)
	ctx = WithJobParameters(ctx, params)
	l.metrics.StartOperation("job")
	defer l.metrics.EndOperation("job")

	runErr := l.runSteps(ctx, job, execution)

	// bookkeeping must land even when ctx was cancelled
	bookCtx := context.WithoutCancel(ctx)
	end := l.now()
	execution.EndTime = &end
	switch {
	case runErr == nil:
		execution.Status = StatusCompleted
	case ctx.Err() != nil:
		execution.Status = StatusStopped
		execution.ExitMessage = ctx.Err().Error()
	default:
		execution.Status = StatusFailed
		execution.ExitMessage = runErr.Error()
	}
	if err := l.repo.UpdateJobExecution(bookCtx, execution); err != nil {
		l.logger.Error(bookCtx, "Failed to record job execution", err, nil)
		runErr = errors.Join(runErr, err)
	}

	l.metrics.RecordDuration("job", end.Sub(execution.StartTime).Seconds())
	if execution.Status == StatusCompleted && runErr == nil {
		l.metrics.RecordSuccess("job")
	} else {
		l.metrics.RecordError("job", string(execution.Status))
	}
	l.logger.Info(bookCtx, fmt.Sprintf("Job execution [%d] ended at [%s] with status [%s]",
		execution.ID, end.UTC().Format(time.RFC3339), execution.Status), observability.Fields{
		"job":    job.Name,
		"status": string(execution.Status),
	})

	if runErr != nil {
		var jobErr *JobExecutionError
		if !errors.As(runErr, &jobErr) {
			runErr = NewJobExecutionError(CodeStepFailed, fmt.Sprintf("job %s ended %s", job.Name, execution.Status), runErr)
		}
		return execution, runErr
	}
	return execution, nil
}

func (l *Launcher) runSteps(ctx context.Context, job *Job, execution *JobExecution) error {
	bookCtx := context.WithoutCancel(ctx)

	for _, step := range job.Steps {
		previous, err := l.repo.LastStepExecution(ctx, execution.Instance.ID, step.Name())
		if err != nil {
			return fmt.Errorf("load step %s: %w", step.Name(), err)
		}
		if previous != nil && previous.Status == StatusCompleted {
			l.logger.Info(ctx, "Step already complete, skipping", observability.Fields{"step": step.Name()})
			continue
		}

		stepExecution := &StepExecution{
			JobExecutionID: execution.ID,
			StepName:       step.Name(),
			Status:         StatusStarted,
			Context:        ExecutionContext{},
			StartTime:      l.now(),
		}
		if previous != nil {
			stepExecution.Context = previous.Context.Copy()
			l.logger.Info(ctx, "Resuming step from last commit", observability.Fields{
				"step":             step.Name(),
				"previous_commits": previous.CommitCount,
				"previous_reads":   previous.ReadCount,
			})
		}
		if err := l.repo.AddStepExecution(ctx, stepExecution); err != nil {
			return fmt.Errorf("create step %s: %w", step.Name(), err)
		}

		stepErr := step.Execute(ctx, stepExecution)

		end := l.now()
		stepExecution.EndTime = &end
		switch {
		case stepErr == nil:
			stepExecution.Status = StatusCompleted
		case ctx.Err() != nil:
			stepExecution.Status = StatusStopped
			stepExecution.ExitMessage = ctx.Err().Error()
		default:
			stepExecution.Status = StatusFailed
			stepExecution.ExitMessage = stepErr.Error()
		}
		if err := l.repo.UpdateStepExecution(bookCtx, stepExecution); err != nil {
			return errors.Join(stepErr, fmt.Errorf("record step %s: %w", step.Name(), err))
		}

		l.logger.Info(ctx, "Step finished", observability.Fields{
			"step":     step.Name(),
			"status":   string(stepExecution.Status),
			"read":     stepExecution.ReadCount,
			"filtered": stepExecution.FilterCount,
			"written":  stepExecution.WriteCount,
			"commits":  stepExecution.CommitCount,
		})
		if stepErr != nil {
			return stepErr
		}
	}
	return nil
}
