package batch

import "context"

// ItemReader yields items one at a time. ok=false marks the end of input.
type ItemReader[T any] interface {
	Read(ctx context.Context) (item T, ok bool, err error)
}

// ItemProcessor transforms an item or drops it from the write
type ItemProcessor[I, O any] interface {
	Process(ctx context.Context, item I) (Result[O], error)
}

// ItemWriter writes one chunk of items inside the chunk transaction
type ItemWriter[T any] interface {
	Write(ctx context.Context, items []T) error
}

// ItemStream is implemented by readers and writers that keep restart state.
// Open restores from the last committed context, Update records the state
// to commit with the current chunk.
type ItemStream interface {
	Open(ctx context.Context, ec ExecutionContext) error
	Update(ec ExecutionContext) error
	Close() error
}

// Result is the outcome of processing one item
type Result[T any] struct {
	Item T
	Keep bool
}

// Keep passes item on to the writer
func Keep[T any](item T) Result[T] {
	return Result[T]{Item: item, Keep: true}
}

// Drop filters the item out of the write
func Drop[T any]() Result[T] {
	return Result[T]{}
}

// PassThrough hands every item to the writer unchanged
type PassThrough[T any] struct{}

func (PassThrough[T]) Process(_ context.Context, item T) (Result[T], error) {
	return Keep(item), nil
}

// ProcessorFunc adapts a function to ItemProcessor
type ProcessorFunc[I, O any] func(ctx context.Context, item I) (Result[O], error)

func (f ProcessorFunc[I, O]) Process(ctx context.Context, item I) (Result[O], error) {
	return f(ctx, item)
}
