// Package types holds the observability contracts every agent component
// depends on. Implementations live in the logger and metrics packages; the
// parent observability package wires them together.
package types

import (
	"context"
	"io"
)

// Logger writes structured entries. Correlation values stored in ctx
// (cycle, job execution, item) are added to every entry.
type Logger interface {
	Info(ctx context.Context, msg string, fields Fields)
	// Error records err alongside msg; err may be nil.
	Error(ctx context.Context, msg string, err error, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)
	// Debug entries are dropped unless the level is "debug".
	Debug(ctx context.Context, msg string, fields Fields)
	// WithFields derives a logger that adds fields to every entry.
	WithFields(fields Fields) Logger
}

// Metrics records what one component of an agent did during a cycle.
//
// Operations are short verbs such as "poll", "upload", "chunk" or "item".
// Every call is cheap and safe for concurrent use.
type Metrics interface {
	RecordSuccess(operation string)
	// RecordError counts a failed operation under a coarse reason, e.g.
	// "already_complete" or "transfer".
	RecordError(operation, reason string)
	// RecordDuration observes seconds spent in operation.
	RecordDuration(operation string, seconds float64)
	// RecordFileSize observes the size of a file moved or produced.
	RecordFileSize(kind string, bytes int64)
	// RecordItems adds n to the items counted for operation under outcome,
	// e.g. ("chunk", "read", 5) or ("sync", "moved", 3).
	RecordItems(operation, outcome string, n int)
	// StartOperation and EndOperation bracket work in flight.
	StartOperation(operation string)
	EndOperation(operation string)
}

// Fields are the key/value pairs of a log entry. Values must marshal to
// JSON.
type Fields map[string]any

// Config configures a Provider.
type Config struct {
	// ServiceName labels every log entry and is the Pushgateway job name.
	ServiceName string
	Environment string
	// LogLevel is one of debug, info, warn, error. Anything else means info.
	LogLevel string
	// LogOutput defaults to os.Stdout.
	LogOutput io.Writer
	// AdditionalFields are added to every log entry.
	AdditionalFields Fields
	// PushgatewayURL makes Close push the collected metrics when set.
	PushgatewayURL string
}

// Provider hands out one Logger and one Metrics per component and flushes
// them on Close.
type Provider interface {
	Logger(component string) Logger
	Metrics(component string) Metrics
	Close() error
}
