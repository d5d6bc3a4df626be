package config

import (
	"fmt"
	"strings"
	"time"
)

// DatabaseConfig holds relational store configuration
type DatabaseConfig struct {
	Adapter string // postgres or sqlite

	// PostgreSQL
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// SQLite
	Path string

	// Connection pool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Migrate creates the batch metadata tables on startup
	Migrate bool
}

// DSN returns the connection string for the configured adapter
func (c DatabaseConfig) DSN() string {
	if c.Adapter == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.Username,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Provider   string // s3 or fs
	Timeout    time.Duration
	MaxRetries int
	FSRoot     string
	S3         S3Config
}

// S3Config holds S3-specific configuration
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Protocol        string
	UsePathStyle    bool
	ConfirmTimeout  time.Duration
}

// ResolvedEndpoint returns the custom endpoint with a scheme, or "" for AWS.
func (c S3Config) ResolvedEndpoint() string {
	if c.Endpoint == "" {
		return ""
	}
	if strings.Contains(c.Endpoint, "://") {
		return c.Endpoint
	}
	protocol := c.Protocol
	if protocol == "" {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s", strings.ToLower(protocol), c.Endpoint)
}

// Validate validates the storage configuration
func (c *StorageConfig) Validate() error {
	switch c.Provider {
	case "s3":
		if c.S3.Region == "" {
			return fmt.Errorf("AWS_REGION is required for the s3 provider")
		}
		if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
			return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
	case "fs":
		if c.FSRoot == "" {
			return fmt.Errorf("STORAGE_FS_ROOT is required for the fs provider")
		}
	default:
		return fmt.Errorf("unsupported storage provider: %q", c.Provider)
	}
	return nil
}

// ExtractConfig holds the extraction pipeline settings
type ExtractConfig struct {
	Bucket    string
	KeyPrefix string
	LocalDir  string
}

// IngestConfig holds the ingestion pipeline settings
type IngestConfig struct {
	Bucket   string
	Prefix   string
	LocalDir string
}

// BatchConfig holds batch engine settings
type BatchConfig struct {
	ChunkSize     int
	JobRepository string // sql or memory
}

// AgentConfig holds per-cycle dispatch settings
type AgentConfig struct {
	Concurrency int
	FailFast    bool
	Timeout     time.Duration // 0 disables the cycle deadline
}

// ObservabilityConfig holds metrics export settings
type ObservabilityConfig struct {
	PushgatewayURL string
}
