package config

import "time"

// DefaultDatabaseConfig returns sensible defaults for database configuration
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Adapter:         "postgres",
		Host:            "localhost",
		Port:            5432,
		Database:        "petclinic",
		Username:        "postgres",
		Password:        "postgres",
		SSLMode:         "disable",
		Path:            "petsync.db",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Migrate:         true,
	}
}

// DefaultStorageConfig returns sensible defaults for storage configuration
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Provider:   "s3",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		FSRoot:     "./objects",
		S3:         DefaultS3Config(),
	}
}

// DefaultS3Config returns sensible defaults for S3 configuration
func DefaultS3Config() S3Config {
	return S3Config{
		Region:         "us-east-1",
		Protocol:       "https",
		UsePathStyle:   true,
		ConfirmTimeout: 30 * time.Second,
	}
}

// DefaultExtractConfig returns the extraction defaults
func DefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		Bucket:   "input",
		LocalDir: "output",
	}
}

// DefaultIngestConfig returns the ingestion defaults
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		Bucket:   "output",
		LocalDir: "output",
	}
}

// DefaultBatchConfig returns the batch engine defaults
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		ChunkSize:     5,
		JobRepository: "sql",
	}
}

// DefaultAgentConfig returns the dispatch defaults: one chain at a time
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Concurrency: 1,
		FailFast:    true,
	}
}

// DefaultConfig returns a complete configuration with sensible defaults
// This is useful for testing or when you want to start with defaults and override specific parts
func DefaultConfig() *Config {
	return &Config{
		Environment: "local",
		ServiceName: "petsync",
		LogLevel:    "info",

		Database: DefaultDatabaseConfig(),
		Storage:  DefaultStorageConfig(),
		Extract:  DefaultExtractConfig(),
		Ingest:   DefaultIngestConfig(),
		Batch:    DefaultBatchConfig(),
		Agent:    DefaultAgentConfig(),
	}
}
