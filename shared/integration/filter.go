package integration

// Filter decides whether a batch message continues down the pipeline
type Filter[T any] func(msg Message[[]T]) bool

// NonEmpty passes batches with at least one item
func NonEmpty[T any](msg Message[[]T]) bool {
	return len(msg.Payload) > 0
}
