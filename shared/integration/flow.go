package integration

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"petsync/shared/observability"
)

// Handler runs one item chain to its end
type Handler[T any] func(ctx context.Context, msg Message[T]) error

// Flow wires the stages of one agent. Filter and Describe are optional.
type Flow[T any] struct {
	Poller     *Poller[T]
	Filter     Filter[T]
	Splitter   *Splitter[T]
	Handler    Handler[T]
	Terminator *Terminator
	Describe   func(item T) string

	// Concurrency bounds the item chains running at once; below 1 means 1
	Concurrency int

	// FailFast cancels the remaining chains after the first failure
	FailFast bool

	Logger observability.Logger
}

// Run executes one poll cycle and blocks until the terminator resolves
func (f *Flow[T]) Run(ctx context.Context) Outcome {
	msg, fired, err := f.Poller.Poll(ctx)
	switch {
	case err != nil:
		f.Terminator.Abort(ctx, err)
		return f.wait(ctx)
	case !fired:
		f.Terminator.NoWork(ctx)
		return f.wait(ctx)
	}

	ctx = observability.WithCycleID(ctx, msg.CycleID)
	if f.Filter != nil && !f.Filter(msg) {
		f.Terminator.NoWork(ctx)
		return f.wait(ctx)
	}

	f.dispatch(ctx, f.Splitter.Split(ctx, msg))
	return f.wait(ctx)
}

func (f *Flow[T]) dispatch(ctx context.Context, items []Message[T]) {
	group, groupCtx := &errgroup.Group{}, ctx
	if f.FailFast {
		group, groupCtx = errgroup.WithContext(ctx)
	}
	limit := f.Concurrency
	if limit < 1 {
		limit = 1
	}
	group.SetLimit(limit)

	for _, item := range items {
		group.Go(func() error {
			itemCtx := observability.WithItem(groupCtx, f.describe(item.Payload))

			if err := groupCtx.Err(); err != nil {
				f.Terminator.Fail(itemCtx, &ItemError{Stage: "dispatch", Item: f.describe(item.Payload), Err: err})
				return err
			}
			if err := f.Handler(itemCtx, item); err != nil {
				f.Terminator.Fail(itemCtx, err)
				return err
			}
			f.Terminator.Complete()
			return nil
		})
	}

	// failures are already in the terminator
	_ = group.Wait()
}

// wait returns once the terminator resolved or ctx ended. A cycle cut
// short by ctx is reported as failed.
func (f *Flow[T]) wait(ctx context.Context) Outcome {
	select {
	case <-f.Terminator.Done():
		return f.Terminator.Outcome()
	default:
	}

	select {
	case <-f.Terminator.Done():
	case <-ctx.Done():
		f.Terminator.Abort(ctx, fmt.Errorf("cycle interrupted: %w", ctx.Err()))
	}
	return f.Terminator.Outcome()
}

func (f *Flow[T]) describe(item T) string {
	if f.Describe != nil {
		return f.Describe(item)
	}
	return fmt.Sprint(item)
}
