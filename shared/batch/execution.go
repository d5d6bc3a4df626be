package batch

import (
	"bytes"
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a job or step execution
type Status string

const (
	StatusStarted   Status = "STARTED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusStopped   Status = "STOPPED"
)

// IsRunning reports whether the execution has not reached a terminal state
func (s Status) IsRunning() bool {
	return s == StatusStarted
}

// IsRestartable reports whether a new execution may resume this one
func (s Status) IsRestartable() bool {
	return s == StatusFailed || s == StatusStopped
}

// JobInstance is the logical run identified by job name and parameter key
type JobInstance struct {
	ID      int64
	JobName string
	Key     string
}

// JobExecution is one attempt at running a JobInstance
type JobExecution struct {
	ID          int64
	Instance    JobInstance
	Parameters  JobParameters
	Status      Status
	ExitMessage string
	StartTime   time.Time
	EndTime     *time.Time

	// Restarted is set when this execution resumes an earlier one
	Restarted bool
}

// StepExecution tracks one step of a JobExecution
type StepExecution struct {
	ID             int64
	JobExecutionID int64
	StepName       string
	Status         Status
	ReadCount      int64
	FilterCount    int64
	WriteCount     int64
	CommitCount    int64
	RollbackCount  int64
	Context        ExecutionContext
	ExitMessage    string
	StartTime      time.Time
	EndTime        *time.Time
}

// ExecutionContext holds the restart checkpoint of a step. It is persisted
// with every chunk commit.
type ExecutionContext map[string]any

// PutInt64 records a numeric checkpoint value
func (c ExecutionContext) PutInt64(key string, value int64) {
	c[key] = value
}

// Int64 reads a numeric value; values decoded from JSON are accepted too
func (c ExecutionContext) Int64(key string) (int64, bool) {
	switch v := c[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// Copy returns a shallow copy
func (c ExecutionContext) Copy() ExecutionContext {
	out := make(ExecutionContext, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Encode serializes the context for persistence
func (c ExecutionContext) Encode() (string, error) {
	if c == nil {
		return "{}", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeExecutionContext parses a persisted context, keeping numbers exact
func DecodeExecutionContext(data string) (ExecutionContext, error) {
	ec := ExecutionContext{}
	if data == "" {
		return ec, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&ec); err != nil {
		return nil, err
	}
	return ec, nil
}
