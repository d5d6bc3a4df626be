package mocks

import "github.com/stretchr/testify/mock"

// MockMetrics records metric calls.
type MockMetrics struct {
	mock.Mock
}

// Ignore accepts any metric call. Expectations registered before it are
// matched first.
func (m *MockMetrics) Ignore() *MockMetrics {
	for method, arity := range map[string]int{
		"RecordSuccess":  1,
		"RecordError":    2,
		"RecordDuration": 2,
		"RecordFileSize": 2,
		"RecordItems":    3,
		"StartOperation": 1,
		"EndOperation":   1,
	} {
		args := make([]any, arity)
		for i := range args {
			args[i] = mock.Anything
		}
		m.On(method, args...).Maybe()
	}
	return m
}

func (m *MockMetrics) RecordSuccess(operation string) { m.Called(operation) }

func (m *MockMetrics) RecordError(operation, reason string) { m.Called(operation, reason) }

func (m *MockMetrics) RecordDuration(operation string, seconds float64) {
	m.Called(operation, seconds)
}

func (m *MockMetrics) RecordFileSize(kind string, bytes int64) { m.Called(kind, bytes) }

func (m *MockMetrics) RecordItems(operation, outcome string, n int) {
	m.Called(operation, outcome, n)
}

func (m *MockMetrics) StartOperation(operation string) { m.Called(operation) }

func (m *MockMetrics) EndOperation(operation string) { m.Called(operation) }
