package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Load(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "test")
		p := &Provider{}

		require.NoError(t, p.Load("pet-extractor"))

		cfg := p.MustGet()
		assert.Equal(t, "pet-extractor", cfg.ServiceName)
		assert.Equal(t, "postgres", cfg.Database.Adapter)
		assert.Equal(t, "input", cfg.Extract.Bucket)
		assert.Equal(t, "output", cfg.Ingest.Bucket)
		assert.Equal(t, "output", cfg.Extract.LocalDir)
		assert.Equal(t, 5, cfg.Batch.ChunkSize)
		assert.Equal(t, 1, cfg.Agent.Concurrency)
		assert.True(t, cfg.Agent.FailFast)
		assert.True(t, cfg.Storage.S3.UsePathStyle)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "test")
		t.Setenv("SERVICE_NAME", "custom")
		t.Setenv("DB_ADAPTER", "SQLITE")
		t.Setenv("DB_PATH", "/tmp/pets.db")
		t.Setenv("STORAGE_PROVIDER", "fs")
		t.Setenv("EXTRACT_BUCKET", "pets-in")
		t.Setenv("BATCH_CHUNK_SIZE", "50")
		t.Setenv("AGENT_TIMEOUT", "2m")
		p := &Provider{}

		require.NoError(t, p.Load("pet-extractor"))

		cfg := p.MustGet()
		assert.Equal(t, "custom", cfg.ServiceName)
		assert.Equal(t, "sqlite", cfg.Database.Adapter)
		assert.Equal(t, "/tmp/pets.db", cfg.Database.DSN())
		assert.Equal(t, "fs", cfg.Storage.Provider)
		assert.Equal(t, "pets-in", cfg.Extract.Bucket)
		assert.Equal(t, 50, cfg.Batch.ChunkSize)
		assert.Equal(t, 2*time.Minute, cfg.Agent.Timeout)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "test")
		t.Setenv("BATCH_CHUNK_SIZE", "0")
		t.Setenv("STORAGE_PROVIDER", "ftp")
		p := &Provider{}

		err := p.Load("pet-extractor")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "BATCH_CHUNK_SIZE must be positive")
		assert.Contains(t, err.Error(), "unsupported storage provider")
		assert.False(t, p.IsLoaded())
	})

	t.Run("malformed values are rejected", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "test")
		t.Setenv("AGENT_CONCURRENCY", "four")
		t.Setenv("AGENT_FAIL_FAST", "maybe")
		t.Setenv("AGENT_TIMEOUT", "10")
		t.Setenv("BATCH_CHUNK_SIZE", " 20 ")
		p := &Provider{}

		err := p.Load("pet-ingestor")

		require.Error(t, err)
		assert.Contains(t, err.Error(), `AGENT_CONCURRENCY="four" is not a valid integer`)
		assert.Contains(t, err.Error(), `AGENT_FAIL_FAST="maybe" is not a valid boolean`)
		assert.Contains(t, err.Error(), `AGENT_TIMEOUT="10" is not a valid duration`)
		assert.NotContains(t, err.Error(), "BATCH_CHUNK_SIZE", "surrounding blanks are trimmed")
		assert.False(t, p.IsLoaded())
	})

	t.Run("production disables migrations", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		p := &Provider{}

		require.NoError(t, p.Load("pet-ingestor"))

		cfg := p.MustGet()
		assert.False(t, cfg.Database.Migrate)
		assert.Equal(t, "require", cfg.Database.SSLMode)
	})
}

func TestProvider_GetBeforeLoad(t *testing.T) {
	p := &Provider{}

	_, err := p.Get()
	assert.Error(t, err)
	assert.Panics(t, func() { p.MustGet() })
}

func TestS3Config_ResolvedEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		cfg      S3Config
		expected string
	}{
		{"no endpoint", S3Config{}, ""},
		{"scheme from protocol", S3Config{Endpoint: "localhost:4566", Protocol: "HTTP"}, "http://localhost:4566"},
		{"default protocol", S3Config{Endpoint: "minio.internal:9000"}, "https://minio.internal:9000"},
		{"explicit scheme", S3Config{Endpoint: "http://localhost:9000", Protocol: "https"}, "http://localhost:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.ResolvedEndpoint())
		})
	}
}
