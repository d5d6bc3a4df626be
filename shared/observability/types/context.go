package types

import "context"

type contextKey string

const (
	cycleIDKey        contextKey = "cycle_id"
	jobExecutionIDKey contextKey = "job_execution_id"
	itemKey           contextKey = "item"
)

// WithCycleID tags ctx with the poll cycle it belongs to.
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, cycleIDKey, cycleID)
}

// WithJobExecutionID tags ctx with the batch job execution it runs under.
func WithJobExecutionID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, jobExecutionIDKey, id)
}

// WithItem tags ctx with a short description of the item a chain processes.
func WithItem(ctx context.Context, item string) context.Context {
	return context.WithValue(ctx, itemKey, item)
}

// ContextFields returns the correlation values stored in ctx.
func ContextFields(ctx context.Context) Fields {
	fields := Fields{}
	if ctx == nil {
		return fields
	}
	if v, ok := ctx.Value(cycleIDKey).(string); ok {
		fields["cycle_id"] = v
	}
	if v, ok := ctx.Value(jobExecutionIDKey).(int64); ok {
		fields["job_execution_id"] = v
	}
	if v, ok := ctx.Value(itemKey).(string); ok {
		fields["item"] = v
	}
	return fields
}
