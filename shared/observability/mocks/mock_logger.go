// Package mocks holds testify mocks of the observability contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"petsync/shared/observability/types"
)

// MockLogger records log calls. WithFields returns the mock itself unless
// an expectation returns another logger.
type MockLogger struct {
	mock.Mock
}

// Ignore accepts any log call. Expectations registered before it are
// matched first.
func (m *MockLogger) Ignore() *MockLogger {
	for _, level := range []string{"Debug", "Info", "Warn"} {
		m.On(level, mock.Anything, mock.Anything, mock.Anything).Maybe()
	}
	m.On("Error", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("WithFields", mock.Anything).Maybe()
	return m
}

func (m *MockLogger) Debug(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Info(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Warn(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Error(ctx context.Context, msg string, err error, fields types.Fields) {
	m.Called(ctx, msg, err, fields)
}

func (m *MockLogger) WithFields(fields types.Fields) types.Logger {
	args := m.Called(fields)
	if len(args) > 0 {
		if l, ok := args.Get(0).(types.Logger); ok {
			return l
		}
	}
	return m
}
