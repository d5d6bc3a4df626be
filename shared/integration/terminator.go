package integration

import (
	"context"
	"errors"
	"sync"

	"petsync/shared/observability"
)

// OutcomeKind is how a poll cycle ended
type OutcomeKind string

const (
	OutcomePending OutcomeKind = "pending"
	OutcomeSuccess OutcomeKind = "success"
	OutcomeNoWork  OutcomeKind = "no_work"
	OutcomeFailed  OutcomeKind = "failed"
)

// Outcome summarizes a finished cycle
type Outcome struct {
	Kind      OutcomeKind
	Err       error
	Expected  int
	Completed int
	Failed    int
}

// Terminator counts item chains fanned out in a cycle and resolves once
// every one has reached success or failure. It is also the error funnel:
// every failure is logged here, once.
type Terminator struct {
	mu        sync.Mutex
	expected  int
	expecting bool
	completed int
	failed    int
	errs      []error
	kind      OutcomeKind
	done      chan struct{}
	logger    observability.Logger
	metrics   observability.Metrics
}

// NewTerminator creates a pending terminator
func NewTerminator(logger observability.Logger, metrics observability.Metrics) *Terminator {
	return &Terminator{
		kind:    OutcomePending,
		done:    make(chan struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Expect records the fan-out size. Zero resolves the cycle at once.
func (t *Terminator) Expect(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expected = n
	t.expecting = true
	t.resolveLocked()
}

// Complete marks one item chain successful
func (t *Terminator) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	t.metrics.RecordSuccess("item")
	t.resolveLocked()
}

// Fail marks one item chain failed
func (t *Terminator) Fail(ctx context.Context, err error) {
	t.logger.Error(ctx, "Item chain failed", err, nil)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.failed++
	t.errs = append(t.errs, err)
	t.metrics.RecordError("item", "chain")
	t.resolveLocked()
}

// NoWork ends the cycle successfully without any fan-out
func (t *Terminator) NoWork(ctx context.Context) {
	t.logger.Info(ctx, "No work for this cycle", nil)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishLocked(OutcomeNoWork)
}

// Abort ends the cycle as failed for an error outside any item chain
func (t *Terminator) Abort(ctx context.Context, err error) {
	t.logger.Error(ctx, "Pipeline aborted", err, nil)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.errs = append(t.errs, err)
	t.metrics.RecordError("cycle", "abort")
	t.finishLocked(OutcomeFailed)
}

// Done is closed once the cycle has an outcome
func (t *Terminator) Done() <-chan struct{} {
	return t.done
}

// Outcome returns the current state; Kind is pending until Done is closed
func (t *Terminator) Outcome() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Outcome{
		Kind:      t.kind,
		Err:       errors.Join(t.errs...),
		Expected:  t.expected,
		Completed: t.completed,
		Failed:    t.failed,
	}
}

func (t *Terminator) resolveLocked() {
	if !t.expecting || t.completed+t.failed < t.expected {
		return
	}
	if t.failed > 0 {
		t.finishLocked(OutcomeFailed)
		return
	}
	t.finishLocked(OutcomeSuccess)
}

func (t *Terminator) finishLocked(kind OutcomeKind) {
	if t.kind != OutcomePending {
		return
	}
	t.kind = kind
	close(t.done)
}
