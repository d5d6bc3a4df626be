package batch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryJobRepository keeps job metadata in process memory. Restart state
// does not survive the process, so it suits tests and one-off local runs.
type MemoryJobRepository struct {
	mu         sync.Mutex
	nextID     int64
	instances  map[string]*JobInstance
	executions map[int64][]*JobExecution // by instance id, oldest first
	steps      map[int64][]*StepExecution // by job execution id
	now        func() time.Time
}

// NewMemoryJobRepository creates an empty repository
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{
		instances:  make(map[string]*JobInstance),
		executions: make(map[int64][]*JobExecution),
		steps:      make(map[int64][]*StepExecution),
		now:        time.Now,
	}
}

func (r *MemoryJobRepository) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *MemoryJobRepository) CreateJobExecution(_ context.Context, jobName string, params JobParameters, restartable bool) (*JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := params.Key()
	instance, ok := r.instances[jobName+"/"+key]
	if !ok {
		instance = &JobInstance{ID: r.id(), JobName: jobName, Key: key}
		r.instances[jobName+"/"+key] = instance
	}

	restarted := false
	if history := r.executions[instance.ID]; len(history) > 0 {
		if err := CheckRestart(history[len(history)-1].Status, jobName, restartable); err != nil {
			return nil, err
		}
		restarted = true
	}

	execution := &JobExecution{
		ID:         r.id(),
		Instance:   *instance,
		Parameters: params,
		Status:     StatusStarted,
		StartTime:  r.now(),
		Restarted:  restarted,
	}
	r.executions[instance.ID] = append(r.executions[instance.ID], execution)

	copied := *execution
	return &copied, nil
}

// CheckRestart decides whether a new execution may follow one in status last
func CheckRestart(last Status, jobName string, restartable bool) error {
	switch {
	case last.IsRunning():
		return NewJobExecutionError(CodeAlreadyRunning, fmt.Sprintf("job %s is already running with these parameters", jobName), nil)
	case last == StatusCompleted:
		return NewJobExecutionError(CodeAlreadyComplete, fmt.Sprintf("job %s already completed with these parameters", jobName), nil)
	case last.IsRestartable() && !restartable:
		return NewJobExecutionError(CodeRestartNotAllowed, fmt.Sprintf("job %s does not allow restarts", jobName), nil)
	}
	return nil
}

func (r *MemoryJobRepository) LastJobExecution(_ context.Context, jobName string, params JobParameters) (*JobExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	instance, ok := r.instances[jobName+"/"+params.Key()]
	if !ok {
		return nil, nil
	}
	history := r.executions[instance.ID]
	if len(history) == 0 {
		return nil, nil
	}
	copied := *history[len(history)-1]
	return &copied, nil
}

func (r *MemoryJobRepository) UpdateJobExecution(_ context.Context, execution *JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stored := range r.executions[execution.Instance.ID] {
		if stored.ID == execution.ID {
			*stored = *execution
			return nil
		}
	}
	return fmt.Errorf("job execution %d not found", execution.ID)
}

func (r *MemoryJobRepository) LastStepExecution(_ context.Context, instanceID int64, stepName string) (*StepExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.executions[instanceID]
	for i := len(history) - 1; i >= 0; i-- {
		steps := r.steps[history[i].ID]
		for j := len(steps) - 1; j >= 0; j-- {
			if steps[j].StepName == stepName {
				copied := *steps[j]
				copied.Context = steps[j].Context.Copy()
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (r *MemoryJobRepository) AddStepExecution(_ context.Context, step *StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	step.ID = r.id()
	stored := *step
	stored.Context = step.Context.Copy()
	r.steps[step.JobExecutionID] = append(r.steps[step.JobExecutionID], &stored)
	return nil
}

func (r *MemoryJobRepository) UpdateStepExecution(_ context.Context, step *StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stored := range r.steps[step.JobExecutionID] {
		if stored.ID == step.ID {
			*stored = *step
			stored.Context = step.Context.Copy()
			return nil
		}
	}
	return fmt.Errorf("step execution %d not found", step.ID)
}
