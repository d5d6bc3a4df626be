package integration

import "fmt"

// PollError reports a source that could not be read. No batch message is
// emitted for the cycle.
type PollError struct {
	Source string
	Err    error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll %s: %v", e.Source, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}

// ItemError ties a failed item chain to the stage that failed
type ItemError struct {
	Stage string
	Item  string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.Item, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
