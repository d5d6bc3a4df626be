package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"petsync/shared/observability/mocks"
)

func TestChain_Order(t *testing.T) {
	var calls []string
	tag := func(name string) Middleware[string] {
		return func(next Handler[string]) Handler[string] {
			return func(ctx context.Context, msg Message[string]) error {
				calls = append(calls, name)
				return next(ctx, msg)
			}
		}
	}

	h := Chain(func(context.Context, Message[string]) error {
		calls = append(calls, "handler")
		return nil
	}, tag("outer"), tag("inner"))

	require.NoError(t, h(context.Background(), NewMessage("a.csv")))
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestRecovery(t *testing.T) {
	h := Chain(func(context.Context, Message[string]) error {
		panic("nil owner")
	}, Recovery[string]())

	err := h(context.Background(), NewMessage("a.csv"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered: nil owner")
}

func TestLogging_SuccessOnly(t *testing.T) {
	logger := &mocks.MockLogger{}
	logger.On("WithFields", mock.Anything).Return(logger)
	logger.On("Debug", mock.Anything, "Processing item", mock.Anything).Twice()
	logger.On("Info", mock.Anything, "Item processed", mock.Anything).Once()

	ok := Chain(func(context.Context, Message[string]) error { return nil }, Logging[string](logger))
	failing := Chain(func(context.Context, Message[string]) error { return errors.New("bad row") }, Logging[string](logger))

	assert.NoError(t, ok(context.Background(), NewMessage("a.csv")))
	assert.Error(t, failing(context.Background(), NewMessage("b.csv")))

	logger.AssertExpectations(t)
	logger.AssertNotCalled(t, "Error", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMetrics_Timed(t *testing.T) {
	metrics := &mocks.MockMetrics{}
	metrics.On("StartOperation", "extract").Once()
	metrics.On("EndOperation", "extract").Once()
	metrics.On("RecordDuration", "extract", mock.AnythingOfType("float64")).Once()

	h := Chain(func(context.Context, Message[int]) error { return nil }, Metrics[int](metrics, "extract"))

	require.NoError(t, h(context.Background(), NewMessage(7)))
	metrics.AssertExpectations(t)
}
