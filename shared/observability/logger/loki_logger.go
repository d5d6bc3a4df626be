// Package logger writes one JSON object per line, shaped for Loki: a fixed
// set of labels-to-be (service, env, level) plus free-form fields.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"sync"
	"time"

	"petsync/shared/observability/types"
)

// Level orders entries by severity.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[Level]string{
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
}

// ParseLevel maps a LOG_LEVEL value to a Level; anything unknown is info.
func ParseLevel(s string) Level {
	for level, name := range levelNames {
		if name == s {
			return level
		}
	}
	return InfoLevel
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// Options configure New.
type Options struct {
	Service     string
	Environment string
	Level       string
	// Output defaults to os.Stdout.
	Output io.Writer
	// Fields are added to every entry.
	Fields types.Fields
}

// sink serializes writes of every logger derived from the same root.
type sink struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func (s *sink) write(entry types.Fields) {
	line, err := json.Marshal(entry)
	if err != nil {
		line, _ = json.Marshal(types.Fields{
			"timestamp": entry["timestamp"],
			"level":     entry["level"],
			"message":   entry["message"],
			"log_error": err.Error(),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.out.Write(append(line, '\n'))
}

// JSONLogger implements types.Logger. It is immutable; WithFields returns a
// new logger sharing the same sink.
type JSONLogger struct {
	sink  *sink
	min   Level
	base  types.Fields
	extra types.Fields
}

func New(opts Options) *JSONLogger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	return &JSONLogger{
		sink: &sink{out: out, now: time.Now},
		min:  ParseLevel(opts.Level),
		base: types.Fields{
			"service":  opts.Service,
			"env":      opts.Environment,
			"hostname": hostname,
		},
		extra: maps.Clone(opts.Fields),
	}
}

func (l *JSONLogger) Debug(ctx context.Context, msg string, fields types.Fields) {
	l.log(ctx, DebugLevel, msg, nil, fields)
}

func (l *JSONLogger) Info(ctx context.Context, msg string, fields types.Fields) {
	l.log(ctx, InfoLevel, msg, nil, fields)
}

func (l *JSONLogger) Warn(ctx context.Context, msg string, fields types.Fields) {
	l.log(ctx, WarnLevel, msg, nil, fields)
}

func (l *JSONLogger) Error(ctx context.Context, msg string, err error, fields types.Fields) {
	l.log(ctx, ErrorLevel, msg, err, fields)
}

func (l *JSONLogger) WithFields(fields types.Fields) types.Logger {
	extra := maps.Clone(l.extra)
	if extra == nil {
		extra = types.Fields{}
	}
	maps.Copy(extra, fields)

	return &JSONLogger{sink: l.sink, min: l.min, base: l.base, extra: extra}
}

// log merges, in increasing precedence: base labels, context correlation
// values, persistent fields and call fields.
func (l *JSONLogger) log(ctx context.Context, level Level, msg string, err error, fields types.Fields) {
	if level < l.min {
		return
	}

	entry := make(types.Fields, len(l.base)+len(l.extra)+len(fields)+6)
	maps.Copy(entry, l.base)
	entry["timestamp"] = l.sink.now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["message"] = msg
	if ctx != nil {
		maps.Copy(entry, types.ContextFields(ctx))
	}
	if err != nil {
		entry["error"] = err.Error()
		entry["error_type"] = fmt.Sprintf("%T", err)
	}
	maps.Copy(entry, l.extra)
	maps.Copy(entry, fields)

	l.sink.write(entry)
}
