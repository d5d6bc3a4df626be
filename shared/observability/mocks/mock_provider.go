package mocks

import (
	"github.com/stretchr/testify/mock"

	"petsync/shared/observability/types"
)

// MockProvider records which components ask for a logger or metrics.
// Without a Return, each call yields the shared Log and Stats mocks.
type MockProvider struct {
	mock.Mock
	Log   *MockLogger
	Stats *MockMetrics
}

// NewMockProvider answers every component with ignoring mocks.
func NewMockProvider() *MockProvider {
	p := &MockProvider{
		Log:   (&MockLogger{}).Ignore(),
		Stats: (&MockMetrics{}).Ignore(),
	}
	p.On("Logger", mock.Anything).Maybe()
	p.On("Metrics", mock.Anything).Maybe()
	p.On("Close").Return(nil).Maybe()
	return p
}

func (m *MockProvider) Logger(component string) types.Logger {
	args := m.Called(component)
	if len(args) > 0 {
		if l, ok := args.Get(0).(types.Logger); ok {
			return l
		}
	}
	return m.Log
}

func (m *MockProvider) Metrics(component string) types.Metrics {
	args := m.Called(component)
	if len(args) > 0 {
		if s, ok := args.Get(0).(types.Metrics); ok {
			return s
		}
	}
	return m.Stats
}

func (m *MockProvider) Close() error {
	return m.Called().Error(0)
}
