package integration

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"petsync/shared/observability"
)

// Middleware wraps an item handler
type Middleware[T any] func(next Handler[T]) Handler[T]

// Chain applies middlewares so that the first one is the outermost
func Chain[T any](h Handler[T], middlewares ...Middleware[T]) Handler[T] {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Logging reports when an item chain starts and succeeds. Failures are
// left to the terminator, which logs them once.
func Logging[T any](logger observability.Logger) Middleware[T] {
	return func(next Handler[T]) Handler[T] {
		return func(ctx context.Context, msg Message[T]) error {
			chainLogger := logger.WithFields(observability.Fields{
				"sequence":      msg.Headers["sequence"],
				"sequence_size": msg.Headers["sequence_size"],
			})
			chainLogger.Debug(ctx, "Processing item", nil)

			start := time.Now()
			err := next(ctx, msg)
			if err == nil {
				chainLogger.Info(ctx, "Item processed", observability.Fields{
					"duration_ms": time.Since(start).Milliseconds(),
				})
			}
			return err
		}
	}
}

// Metrics times each item chain under operation
func Metrics[T any](metrics observability.Metrics, operation string) Middleware[T] {
	return func(next Handler[T]) Handler[T] {
		return func(ctx context.Context, msg Message[T]) error {
			metrics.StartOperation(operation)
			defer metrics.EndOperation(operation)

			start := time.Now()
			err := next(ctx, msg)
			metrics.RecordDuration(operation, time.Since(start).Seconds())
			return err
		}
	}
}

// Recovery turns a panicking chain into a failed one. It should be the
// outermost middleware.
func Recovery[T any]() Middleware[T] {
	return func(next Handler[T]) Handler[T] {
		return func(ctx context.Context, msg Message[T]) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic recovered: %v\n%s", r, debug.Stack())
				}
			}()
			return next(ctx, msg)
		}
	}
}
