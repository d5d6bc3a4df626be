package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectors_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollectors(reg)

	assert.Panics(t, func() { NewCollectors(reg) })
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"storage.s3", "storage_s3"},
		{"pet-extractor", "pet_extractor"},
		{"batch_launcher", "batch_launcher"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeName(tt.input))
		})
	}
}

func TestRecorder_ComponentsShareFamilies(t *testing.T) {
	c := NewCollectors(prometheus.NewRegistry())
	transfer, poller := c.For("transfer"), c.For("poller")

	transfer.RecordSuccess("upload")
	transfer.RecordSuccess("upload")
	poller.RecordSuccess("poll")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("transfer", "upload", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("poller", "poll", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.operations.WithLabelValues("poller", "upload", "success")))
}

func TestRecorder_RecordError(t *testing.T) {
	c := NewCollectors(prometheus.NewRegistry())
	launcher := c.For("launcher")

	launcher.RecordError("job", "already_complete")
	launcher.RecordError("job", "already_complete")
	launcher.RecordError("job", "step_failed")

	assert.Equal(t, 3.0, testutil.ToFloat64(c.operations.WithLabelValues("launcher", "job", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.errors.WithLabelValues("launcher", "job", "already_complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("launcher", "job", "step_failed")))
}

func TestRecorder_RecordItems(t *testing.T) {
	c := NewCollectors(prometheus.NewRegistry())
	batch := c.For("batch")

	batch.RecordItems("chunk", "read", 5)
	batch.RecordItems("chunk", "read", 2)
	batch.RecordItems("chunk", "filtered", 0)

	assert.Equal(t, 7.0, testutil.ToFloat64(c.items.WithLabelValues("batch", "chunk", "read")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.items), "zero counts create no series")
}

func TestRecorder_Histograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	c.For("batch").RecordDuration("chunk", 0.2)
	c.For("transfer").RecordFileSize("csv", 2048)

	count, err := testutil.GatherAndCount(reg, "petsync_operation_duration_seconds", "petsync_file_size_bytes")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecorder_InFlight(t *testing.T) {
	c := NewCollectors(prometheus.NewRegistry())
	transfer := c.For("transfer")

	transfer.StartOperation("download")
	transfer.StartOperation("download")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.inFlight.WithLabelValues("transfer", "download")))

	transfer.EndOperation("download")
	transfer.EndOperation("download")
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight.WithLabelValues("transfer", "download")))
}
