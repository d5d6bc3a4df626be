package integration

import (
	"context"
	"time"

	"petsync/shared/observability"
)

// Source reads the batch a poll emits
type Source[T any] func(ctx context.Context) ([]T, error)

// Trigger decides when a poller fires
type Trigger interface {
	NextFireTime(now time.Time) (time.Time, bool)
}

// Poller runs its source once per trigger fire
type Poller[T any] struct {
	name    string
	trigger Trigger
	source  Source[T]
	logger  observability.Logger
	metrics observability.Metrics
}

// NewPoller creates a poller named after its source
func NewPoller[T any](name string, trigger Trigger, source Source[T], logger observability.Logger, metrics observability.Metrics) *Poller[T] {
	return &Poller[T]{
		name:    name,
		trigger: trigger,
		source:  source,
		logger:  logger,
		metrics: metrics,
	}
}

// Poll returns fired=false when the trigger is not armed. A source
// failure is returned as *PollError and nothing is emitted.
func (p *Poller[T]) Poll(ctx context.Context) (msg Message[[]T], fired bool, err error) {
	if _, ok := p.trigger.NextFireTime(time.Now()); !ok {
		return msg, false, nil
	}

	start := time.Now()
	items, err := p.source(ctx)
	p.metrics.RecordDuration("poll", time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordError("poll", p.name)
		return msg, true, &PollError{Source: p.name, Err: err}
	}
	p.metrics.RecordSuccess("poll")
	p.metrics.RecordItems("poll", p.name, len(items))

	msg = NewMessage(items)
	p.logger.Info(observability.WithCycleID(ctx, msg.CycleID), "Poll completed", observability.Fields{
		"source": p.name,
		"items":  len(items),
	})
	return msg, true, nil
}
