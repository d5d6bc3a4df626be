package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petsync/shared/observability"
)

// DefaultChunkSize is the commit interval when none is configured
const DefaultChunkSize = 5

// Step is one unit of a job
type Step interface {
	Name() string

	// Execute runs the step. execution.Context holds the checkpoint of the
	// last committed chunk of a previous attempt, or is empty.
	Execute(ctx context.Context, execution *StepExecution) error
}

// StepConfig wires a chunk step to its collaborators
type StepConfig struct {
	ChunkSize  int
	Repository JobRepository
	Tx         TxManager
	Logger     observability.Logger
	Metrics    observability.Metrics
}

// ChunkStep reads, processes and writes items in chunks. Each chunk is
// written and checkpointed in one transaction.
type ChunkStep[I, O any] struct {
	name      string
	reader    ItemReader[I]
	processor ItemProcessor[I, O]
	writer    ItemWriter[O]
	chunkSize int
	repo      JobRepository
	tx        TxManager
	logger    observability.Logger
	metrics   observability.Metrics
}

// NewChunkStep creates a chunk-oriented step
func NewChunkStep[I, O any](name string, reader ItemReader[I], processor ItemProcessor[I, O], writer ItemWriter[O], cfg StepConfig) *ChunkStep[I, O] {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	tx := cfg.Tx
	if tx == nil {
		tx = NoTx{}
	}

	return &ChunkStep[I, O]{
		name:      name,
		reader:    reader,
		processor: processor,
		writer:    writer,
		chunkSize: chunkSize,
		repo:      cfg.Repository,
		tx:        tx,
		logger:    cfg.Logger.WithFields(observability.Fields{"step": name}),
		metrics:   cfg.Metrics,
	}
}

func (s *ChunkStep[I, O]) Name() string {
	return s.name
}

func (s *ChunkStep[I, O]) Execute(ctx context.Context, execution *StepExecution) (err error) {
	if execution.Context == nil {
		execution.Context = ExecutionContext{}
	}

	streams := s.streams()
	for i, stream := range streams {
		if err := stream.Open(ctx, execution.Context); err != nil {
			closeStreams(streams[:i])
			return NewJobExecutionError(CodeStepFailed, fmt.Sprintf("failed to open step %s", s.name), err)
		}
	}
	defer func() {
		if closeErr := closeStreams(streams); closeErr != nil && err == nil {
			err = NewJobExecutionError(CodeStepFailed, fmt.Sprintf("failed to close step %s", s.name), closeErr)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := s.chunk(ctx, execution)
		if err != nil {
			execution.RollbackCount++
			s.metrics.RecordError("chunk", "commit")
			s.logger.Error(ctx, "Chunk rolled back", err, observability.Fields{
				"commits": execution.CommitCount,
			})
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return err
			}
			return NewJobExecutionError(CodeChunkCommitFailed,
				fmt.Sprintf("chunk %d of step %s failed", execution.CommitCount+1, s.name), err)
		}
		if done {
			return nil
		}
	}
}

// chunk processes up to chunkSize items and commits them together with
// the step checkpoint. The in-memory execution only changes on commit.
func (s *ChunkStep[I, O]) chunk(ctx context.Context, execution *StepExecution) (done bool, err error) {
	start := time.Now()
	var committed StepExecution

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		items := make([]I, 0, s.chunkSize)
		for len(items) < s.chunkSize {
			item, ok, err := s.reader.Read(ctx)
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			if !ok {
				done = true
				break
			}
			items = append(items, item)
		}
		if len(items) == 0 {
			return nil
		}

		outputs := make([]O, 0, len(items))
		var filtered int64
		for _, item := range items {
			result, err := s.processor.Process(ctx, item)
			if err != nil {
				return fmt.Errorf("process: %w", err)
			}
			if !result.Keep {
				filtered++
				continue
			}
			outputs = append(outputs, result.Item)
		}

		if len(outputs) > 0 {
			if err := s.writer.Write(ctx, outputs); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}

		checkpoint := execution.Context.Copy()
		for _, stream := range s.streams() {
			if err := stream.Update(checkpoint); err != nil {
				return fmt.Errorf("update checkpoint: %w", err)
			}
		}

		committed = *execution
		committed.Context = checkpoint
		committed.ReadCount += int64(len(items))
		committed.FilterCount += filtered
		committed.WriteCount += int64(len(outputs))
		committed.CommitCount++

		if s.repo != nil {
			if err := s.repo.UpdateStepExecution(ctx, &committed); err != nil {
				return fmt.Errorf("save checkpoint: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if committed.CommitCount > execution.CommitCount {
		s.metrics.RecordItems("chunk", "read", int(committed.ReadCount-execution.ReadCount))
		s.metrics.RecordItems("chunk", "filtered", int(committed.FilterCount-execution.FilterCount))
		s.metrics.RecordItems("chunk", "written", int(committed.WriteCount-execution.WriteCount))
		*execution = committed
		s.metrics.RecordSuccess("chunk")
		s.metrics.RecordDuration("chunk", time.Since(start).Seconds())
		s.logger.Debug(ctx, "Chunk committed", observability.Fields{
			"commit": execution.CommitCount,
			"read":   execution.ReadCount,
			"write":  execution.WriteCount,
		})
	}
	return done, nil
}

func (s *ChunkStep[I, O]) streams() []ItemStream {
	var streams []ItemStream
	for _, component := range []any{s.reader, s.processor, s.writer} {
		if stream, ok := component.(ItemStream); ok {
			streams = append(streams, stream)
		}
	}
	return streams
}

func closeStreams(streams []ItemStream) error {
	var errs []error
	for i := len(streams) - 1; i >= 0; i-- {
		if err := streams[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
