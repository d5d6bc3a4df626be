package integration

import (
	"context"
	"fmt"

	"petsync/shared/observability"
)

// Splitter turns a batch message into one message per item and tells the
// terminator how many chains to wait for.
type Splitter[T any] struct {
	noun       string
	terminator *Terminator
	logger     observability.Logger
}

// NewSplitter creates a splitter; noun names the items in logs
func NewSplitter[T any](noun string, terminator *Terminator, logger observability.Logger) *Splitter[T] {
	return &Splitter[T]{
		noun:       noun,
		terminator: terminator,
		logger:     logger,
	}
}

// Split preserves item order
func (s *Splitter[T]) Split(ctx context.Context, msg Message[[]T]) []Message[T] {
	s.logger.Info(ctx, fmt.Sprintf("Splitting [%d] %s", len(msg.Payload), s.noun), observability.Fields{
		"count": len(msg.Payload),
	})

	out := make([]Message[T], 0, len(msg.Payload))
	for i, item := range msg.Payload {
		child := Derive(msg, item)
		child.Headers["sequence"] = fmt.Sprint(i + 1)
		child.Headers["sequence_size"] = fmt.Sprint(len(msg.Payload))
		out = append(out, child)
	}

	s.terminator.Expect(len(out))
	return out
}
