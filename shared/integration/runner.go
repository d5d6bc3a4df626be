package integration

import (
	"context"
	"fmt"
	"time"

	"petsync/shared/batch"
)

// Transformer maps one item and its launch time to job parameters
type Transformer[T any] func(item T, at time.Time) (batch.JobParameters, error)

// JobLauncher starts a job; *batch.Launcher implements it
type JobLauncher interface {
	Run(ctx context.Context, job *batch.Job, params batch.JobParameters) (*batch.JobExecution, error)
}

// JobFactory builds a fresh job. Item chains may run concurrently, so
// readers and writers are never shared between launches.
type JobFactory func() *batch.Job

// JobRunner launches one job for each item chain
type JobRunner struct {
	launcher JobLauncher
	newJob   JobFactory
}

// NewJobRunner binds launcher to the jobs newJob builds
func NewJobRunner(launcher JobLauncher, newJob JobFactory) *JobRunner {
	return &JobRunner{launcher: launcher, newJob: newJob}
}

// Run launches synchronously and returns an error unless the execution
// COMPLETED
func (r *JobRunner) Run(ctx context.Context, params batch.JobParameters) (*batch.JobExecution, error) {
	job := r.newJob()
	execution, err := r.launcher.Run(ctx, job, params)
	if err != nil {
		return execution, err
	}
	if execution.Status != batch.StatusCompleted {
		return execution, batch.NewJobExecutionError(batch.CodeStepFailed,
			fmt.Sprintf("job %s ended with status %s", job.Name, execution.Status), nil)
	}
	return execution, nil
}
