// Package lifecycle owns process start and stop for the run-once agents:
// the cycle context, ordered resource shutdown and the exit code.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"petsync/shared/integration"
	"petsync/shared/observability"
)

// Process exit codes
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitNoWork  = 3
)

type resource struct {
	name   string
	closer io.Closer
}

// Supervisor closes registered resources in reverse registration order
type Supervisor struct {
	mu        sync.Mutex
	resources []resource
	logger    observability.Logger
}

// NewSupervisor creates a supervisor logging through logger
func NewSupervisor(logger observability.Logger) *Supervisor {
	return &Supervisor{logger: logger}
}

// Register adds a resource to close on shutdown. A nil closer is ignored.
func (s *Supervisor) Register(name string, closer io.Closer) {
	if closer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = append(s.resources, resource{name: name, closer: closer})
}

// Context returns the cycle context. It is cancelled on SIGINT or SIGTERM
// and, when timeout is positive, once timeout elapses.
func (s *Supervisor) Context(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// Shutdown closes every resource, continuing past failures
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	resources := s.resources
	s.resources = nil
	s.mu.Unlock()

	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		r := resources[i]
		if err := r.closer.Close(); err != nil {
			s.logger.Warn(ctx, "Failed to close resource", observability.Fields{
				"resource": r.name,
				"error":    err.Error(),
			})
			errs = append(errs, fmt.Errorf("close %s: %w", r.name, err))
			continue
		}
		s.logger.Debug(ctx, "Resource closed", observability.Fields{"resource": r.name})
	}
	return errors.Join(errs...)
}

// Stop shuts down and maps the cycle outcome to an exit code. Shutdown
// failures do not change the code.
func (s *Supervisor) Stop(ctx context.Context, outcome integration.Outcome) int {
	code := ExitCode(outcome)
	s.logger.Info(ctx, "Agent finished", observability.Fields{
		"outcome":   string(outcome.Kind),
		"expected":  outcome.Expected,
		"completed": outcome.Completed,
		"failed":    outcome.Failed,
		"exit_code": code,
	})

	_ = s.Shutdown(ctx)
	return code
}

// ExitCode maps a cycle outcome to the process exit code
func ExitCode(outcome integration.Outcome) int {
	switch outcome.Kind {
	case integration.OutcomeSuccess:
		return ExitSuccess
	case integration.OutcomeNoWork:
		return ExitNoWork
	default:
		return ExitFailure
	}
}
