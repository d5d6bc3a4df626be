package integration

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"petsync/shared/observability"
)

// Cleanup removes consumed local artifacts. It never fails the pipeline:
// problems are logged and counted.
type Cleanup struct {
	logger  observability.Logger
	metrics observability.Metrics
}

// NewCleanup creates a best-effort cleaner
func NewCleanup(logger observability.Logger, metrics observability.Metrics) *Cleanup {
	return &Cleanup{logger: logger, metrics: metrics}
}

// RemoveLocal deletes path and reports whether it is gone
func (c *Cleanup) RemoveLocal(ctx context.Context, path string) bool {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		c.metrics.RecordSuccess("cleanup")
		c.logger.Debug(ctx, "Local file removed", observability.Fields{"file": path})
		return true
	}

	c.metrics.RecordError("cleanup", "remove")
	c.logger.Warn(ctx, "Failed to remove local file", observability.Fields{
		"file":  path,
		"error": err.Error(),
	})
	return false
}
