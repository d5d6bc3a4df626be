package batch

import "context"

// JobRepository persists job instances, executions and step checkpoints
type JobRepository interface {
	// CreateJobExecution checks the last execution of the instance named by
	// jobName and params and creates a new STARTED execution, atomically.
	// It fails with ErrAlreadyRunning, ErrAlreadyComplete, or
	// ErrRestartNotAllowed when restartable is false and a failed or
	// stopped execution exists.
	CreateJobExecution(ctx context.Context, jobName string, params JobParameters, restartable bool) (*JobExecution, error)

	// LastJobExecution returns nil when the instance never ran
	LastJobExecution(ctx context.Context, jobName string, params JobParameters) (*JobExecution, error)

	UpdateJobExecution(ctx context.Context, execution *JobExecution) error

	// LastStepExecution returns the most recent execution of stepName within
	// the instance, or nil
	LastStepExecution(ctx context.Context, instanceID int64, stepName string) (*StepExecution, error)

	AddStepExecution(ctx context.Context, step *StepExecution) error

	UpdateStepExecution(ctx context.Context, step *StepExecution) error
}

// TxManager runs fn in a transaction carried by its context
type TxManager interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTx runs fn directly. It suits stores without transactions, such as the
// in-memory repository.
type NoTx struct{}

func (NoTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
