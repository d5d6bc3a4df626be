package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"petsync/shared/observability/logger"
	"petsync/shared/observability/metrics"
	"petsync/shared/observability/types"
)

type (
	Logger   = types.Logger
	Metrics  = types.Metrics
	Fields   = types.Fields
	Config   = types.Config
	Provider = types.Provider
)

// DefaultProvider caches one logger and one metrics recorder per component.
// All recorders write to the provider's own registry.
type DefaultProvider struct {
	config     *Config
	registry   *prometheus.Registry
	collectors *metrics.Collectors

	mu      sync.Mutex
	loggers map[string]Logger
	metrics map[string]Metrics
	closed  bool
}

// WithCycleID tags ctx with the poll cycle it belongs to.
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return types.WithCycleID(ctx, cycleID)
}

// WithJobExecutionID tags ctx with the batch job execution it runs under.
func WithJobExecutionID(ctx context.Context, id int64) context.Context {
	return types.WithJobExecutionID(ctx, id)
}

// WithItem tags ctx with the item a pipeline chain is processing.
func WithItem(ctx context.Context, item string) context.Context {
	return types.WithItem(ctx, item)
}

// NewProvider creates a provider; a nil LogOutput means os.Stdout.
func NewProvider(config *Config) *DefaultProvider {
	if config.LogOutput == nil {
		config.LogOutput = os.Stdout
	}

	registry := prometheus.NewRegistry()
	return &DefaultProvider{
		config:     config,
		registry:   registry,
		collectors: metrics.NewCollectors(registry),
		loggers:    make(map[string]Logger),
		metrics:    make(map[string]Metrics),
	}
}

// Registry exposes the collectors, mostly for tests.
func (p *DefaultProvider) Registry() *prometheus.Registry {
	return p.registry
}

// Logger returns the component's logger. Entries carry a "component" field
// and the service name "<service>.<component>".
func (p *DefaultProvider) Logger(component string) Logger {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.loggers[component]; ok {
		return l
	}

	fields := maps.Clone(p.config.AdditionalFields)
	if fields == nil {
		fields = Fields{}
	}
	fields["component"] = component

	l := logger.New(logger.Options{
		Service:     fmt.Sprintf("%s.%s", p.config.ServiceName, component),
		Environment: p.config.Environment,
		Level:       p.config.LogLevel,
		Output:      p.config.LogOutput,
		Fields:      fields,
	})
	p.loggers[component] = l
	return l
}

// Metrics returns the component's recorder.
func (p *DefaultProvider) Metrics(component string) Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.metrics[component]; ok {
		return m
	}
	m := p.collectors.For(component)
	p.metrics[component] = m
	return m
}

// Close pushes the registry to the Pushgateway when one is configured and
// closes LogOutput unless it is stdout or stderr. Later calls do nothing.
func (p *DefaultProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.config.PushgatewayURL != "" {
		pusher := push.New(p.config.PushgatewayURL, metrics.SanitizeName(p.config.ServiceName)).
			Gatherer(p.registry)
		if p.config.Environment != "" {
			pusher = pusher.Grouping("environment", p.config.Environment)
		}
		if err := pusher.Push(); err != nil {
			errs = append(errs, fmt.Errorf("failed to push metrics: %w", err))
		}
	}

	if closer, ok := p.config.LogOutput.(io.Closer); ok && closer != os.Stdout && closer != os.Stderr {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log output: %w", err))
		}
	}

	return errors.Join(errs...)
}
