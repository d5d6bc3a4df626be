package lifecycle

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsync/shared/integration"
	"petsync/shared/observability"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newSupervisor() *Supervisor {
	obs := observability.NewProvider(&observability.Config{ServiceName: "test", LogOutput: io.Discard})
	return NewSupervisor(obs.Logger("lifecycle"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(integration.Outcome{Kind: integration.OutcomeSuccess}))
	assert.Equal(t, ExitNoWork, ExitCode(integration.Outcome{Kind: integration.OutcomeNoWork}))
	assert.Equal(t, ExitFailure, ExitCode(integration.Outcome{Kind: integration.OutcomeFailed}))
	assert.Equal(t, ExitFailure, ExitCode(integration.Outcome{Kind: integration.OutcomePending}))
}

func TestSupervisor_ShutdownReverseOrder(t *testing.T) {
	s := newSupervisor()
	var closed []string
	for _, name := range []string{"observability", "database", "storage"} {
		s.Register(name, closerFunc(func() error {
			closed = append(closed, name)
			return nil
		}))
	}
	s.Register("nothing", nil)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, []string{"storage", "database", "observability"}, closed)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Len(t, closed, 3, "resources close once")
}

func TestSupervisor_ShutdownContinuesPastFailure(t *testing.T) {
	s := newSupervisor()
	boom := errors.New("connection reset")
	firstClosed := false
	s.Register("observability", closerFunc(func() error {
		firstClosed = true
		return nil
	}))
	s.Register("database", closerFunc(func() error { return boom }))

	err := s.Shutdown(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "close database")
	assert.True(t, firstClosed)
}

func TestSupervisor_Stop(t *testing.T) {
	s := newSupervisor()
	s.Register("database", closerFunc(func() error { return errors.New("already closed") }))

	code := s.Stop(context.Background(), integration.Outcome{Kind: integration.OutcomeNoWork})

	assert.Equal(t, ExitNoWork, code, "shutdown failures keep the outcome's code")
}

func TestSupervisor_ContextTimeout(t *testing.T) {
	s := newSupervisor()

	ctx, cancel := s.Context(context.Background(), 10*time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("cycle context did not expire")
	}

	unbounded, stop := s.Context(context.Background(), 0)
	stop()
	assert.Error(t, unbounded.Err(), "stop releases the signal context")
}
