package config

import (
	"fmt"
	"strings"
)

// Config holds all agent configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string

	// Component configurations
	Database      DatabaseConfig
	Storage       StorageConfig
	Extract       ExtractConfig
	Ingest        IngestConfig
	Batch         BatchConfig
	Agent         AgentConfig
	Observability ObservabilityConfig
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}

	switch c.Database.Adapter {
	case "postgres":
		if c.Database.Host == "" {
			errors = append(errors, "DB_HOST is required")
		}
		if c.Database.Port <= 0 {
			errors = append(errors, "DB_PORT must be positive")
		}
	case "sqlite":
		if c.Database.Path == "" {
			errors = append(errors, "DB_PATH is required")
		}
	default:
		errors = append(errors, fmt.Sprintf("unsupported DB_ADAPTER: %q", c.Database.Adapter))
	}

	if err := c.Storage.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.Extract.Bucket == "" {
		errors = append(errors, "EXTRACT_BUCKET is required")
	}
	if c.Ingest.Bucket == "" {
		errors = append(errors, "INGEST_BUCKET is required")
	}
	if c.Extract.LocalDir == "" || c.Ingest.LocalDir == "" {
		errors = append(errors, "EXTRACT_LOCAL_DIR and INGEST_LOCAL_DIR are required")
	}

	// Range validations
	if c.Batch.ChunkSize <= 0 {
		errors = append(errors, "BATCH_CHUNK_SIZE must be positive")
	}
	if c.Batch.JobRepository != "sql" && c.Batch.JobRepository != "memory" {
		errors = append(errors, fmt.Sprintf("unsupported BATCH_JOB_REPOSITORY: %q", c.Batch.JobRepository))
	}
	if c.Agent.Concurrency <= 0 {
		errors = append(errors, "AGENT_CONCURRENCY must be positive")
	}
	if c.Agent.Timeout < 0 {
		errors = append(errors, "AGENT_TIMEOUT cannot be negative")
	}
	if c.Storage.MaxRetries < 0 {
		errors = append(errors, "STORAGE_MAX_RETRIES cannot be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// applyDefaults applies environment-specific defaults
func (c *Config) applyDefaults() {
	c.Database.Adapter = strings.ToLower(c.Database.Adapter)
	c.Storage.Provider = strings.ToLower(c.Storage.Provider)

	if c.IsProduction() {
		// never create tables implicitly in production
		c.Database.Migrate = false
		if c.Database.SSLMode == "disable" {
			c.Database.SSLMode = "require"
		}
	}

	if c.Agent.Concurrency == 0 {
		c.Agent.Concurrency = 1
	}
}

// IsStorageEnabled reports whether an object storage provider is configured
func (c *Config) IsStorageEnabled() bool {
	return c.Storage.Provider != ""
}

// IsLocal returns true if running in local/development environment
func (c *Config) IsLocal() bool {
	env := strings.ToLower(c.Environment)
	return env == "local" || env == "development" || env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

// IsTest returns true if running in test environment
func (c *Config) IsTest() bool {
	env := strings.ToLower(c.Environment)
	return env == "test" || env == "testing"
}
