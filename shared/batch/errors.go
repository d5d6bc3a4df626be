package batch

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a JobExecutionError
type ErrorCode string

const (
	CodeAlreadyRunning    ErrorCode = "ALREADY_RUNNING"
	CodeAlreadyComplete   ErrorCode = "ALREADY_COMPLETE"
	CodeInvalidParameters ErrorCode = "INVALID_PARAMETERS"
	CodeRestartNotAllowed ErrorCode = "RESTART_NOT_ALLOWED"
	CodeChunkCommitFailed ErrorCode = "CHUNK_COMMIT_FAILED"
	CodeStepFailed        ErrorCode = "STEP_FAILED"
)

// JobExecutionError is returned by the launcher and the chunk step
type JobExecutionError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *JobExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *JobExecutionError) Unwrap() error {
	return e.Err
}

// Is matches another JobExecutionError by code, so the sentinels below
// work with errors.Is
func (e *JobExecutionError) Is(target error) bool {
	t, ok := target.(*JobExecutionError)
	return ok && t.Code == e.Code
}

// NewJobExecutionError creates a new job execution error
func NewJobExecutionError(code ErrorCode, message string, err error) *JobExecutionError {
	return &JobExecutionError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Sentinels for errors.Is
var (
	ErrAlreadyRunning    = &JobExecutionError{Code: CodeAlreadyRunning, Message: "A job execution for this instance is already running"}
	ErrAlreadyComplete   = &JobExecutionError{Code: CodeAlreadyComplete, Message: "A job instance already exists and is complete"}
	ErrInvalidParameters = &JobExecutionError{Code: CodeInvalidParameters, Message: "Job parameters are invalid"}
	ErrRestartNotAllowed = &JobExecutionError{Code: CodeRestartNotAllowed, Message: "Job instance cannot be restarted"}
	ErrChunkCommitFailed = &JobExecutionError{Code: CodeChunkCommitFailed, Message: "Chunk commit failed"}
	ErrStepFailed        = &JobExecutionError{Code: CodeStepFailed, Message: "Step failed"}
)

// CodeOf returns the code of the first JobExecutionError in err's chain
func CodeOf(err error) (ErrorCode, bool) {
	var jobErr *JobExecutionError
	if errors.As(err, &jobErr) {
		return jobErr.Code, true
	}
	return "", false
}
