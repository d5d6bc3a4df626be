package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// Provider loads the agent configuration once per process.
type Provider struct {
	mu     sync.RWMutex
	config *Config
}

var (
	shared     *Provider
	sharedOnce sync.Once
)

// GetProvider returns the process-wide provider.
func GetProvider() *Provider {
	sharedOnce.Do(func() { shared = &Provider{} })
	return shared
}

// Load reads the dotenv files and the environment, then validates the
// result. serviceName applies when SERVICE_NAME is unset. Once a load has
// succeeded, later calls keep the first result.
func (p *Provider) Load(serviceName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config != nil {
		return nil
	}
	if err := loadDotenv(os.Getenv("ENVIRONMENT")); err != nil {
		return err
	}

	cfg, err := parseConfig(serviceName)
	if err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	p.config = cfg
	return nil
}

func (p *Provider) Get() (*Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.config == nil {
		return nil, errors.New("configuration not loaded")
	}
	return p.config, nil
}

// MustGet panics before a successful Load.
func (p *Provider) MustGet() *Config {
	cfg, err := p.Get()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (p *Provider) IsLoaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config != nil
}

// loadDotenv applies .env, .env.<environment> and .env.local in that
// order. Only .env leaves variables already in the process untouched.
// Missing files are skipped.
func loadDotenv(environment string) error {
	files := []struct {
		name      string
		overwrite bool
	}{
		{".env", false},
		{".env." + environment, true},
		{".env.local", true},
	}

	for _, f := range files {
		if environment == "" && f.name == ".env." {
			continue
		}
		load := godotenv.Load
		if f.overwrite {
			load = godotenv.Overload
		}
		if err := load(f.name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f.name, err)
		}
	}
	return nil
}

// parseConfig reads every variable over DefaultConfig. All malformed
// values are reported together.
func parseConfig(serviceName string) (*Config, error) {
	d := DefaultConfig()
	e := &env{}
	if serviceName == "" {
		serviceName = d.ServiceName
	}

	cfg := &Config{
		Environment: e.str("ENVIRONMENT", d.Environment),
		ServiceName: e.str("SERVICE_NAME", serviceName),
		LogLevel:    e.str("LOG_LEVEL", d.LogLevel),

		Database: DatabaseConfig{
			Adapter:         e.str("DB_ADAPTER", d.Database.Adapter),
			Host:            e.str("DB_HOST", d.Database.Host),
			Port:            e.integer("DB_PORT", d.Database.Port),
			Database:        e.str("DB_NAME", d.Database.Database),
			Username:        e.str("DB_USER", d.Database.Username),
			Password:        e.str("DB_PASSWORD", d.Database.Password),
			SSLMode:         e.str("DB_SSL_MODE", d.Database.SSLMode),
			Path:            e.str("DB_PATH", d.Database.Path),
			MaxOpenConns:    e.integer("DB_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns:    e.integer("DB_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
			ConnMaxLifetime: e.duration("DB_CONN_MAX_LIFETIME", d.Database.ConnMaxLifetime),
			Migrate:         e.boolean("DB_MIGRATE", d.Database.Migrate),
		},

		Storage: StorageConfig{
			Provider:   e.str("STORAGE_PROVIDER", d.Storage.Provider),
			Timeout:    e.duration("STORAGE_TIMEOUT", d.Storage.Timeout),
			MaxRetries: e.integer("STORAGE_MAX_RETRIES", d.Storage.MaxRetries),
			FSRoot:     e.str("STORAGE_FS_ROOT", d.Storage.FSRoot),
			S3: S3Config{
				Region:          e.str("AWS_REGION", d.Storage.S3.Region),
				AccessKeyID:     e.str("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: e.str("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:        e.str("S3_ENDPOINT", ""),
				Protocol:        e.str("S3_PROTOCOL", d.Storage.S3.Protocol),
				UsePathStyle:    e.boolean("S3_PATH_STYLE", d.Storage.S3.UsePathStyle),
				ConfirmTimeout:  e.duration("S3_CONFIRM_TIMEOUT", d.Storage.S3.ConfirmTimeout),
			},
		},

		Extract: ExtractConfig{
			Bucket:    e.str("EXTRACT_BUCKET", d.Extract.Bucket),
			KeyPrefix: e.str("EXTRACT_KEY_PREFIX", ""),
			LocalDir:  e.str("EXTRACT_LOCAL_DIR", d.Extract.LocalDir),
		},
		Ingest: IngestConfig{
			Bucket:   e.str("INGEST_BUCKET", d.Ingest.Bucket),
			Prefix:   e.str("INGEST_PREFIX", ""),
			LocalDir: e.str("INGEST_LOCAL_DIR", d.Ingest.LocalDir),
		},

		Batch: BatchConfig{
			ChunkSize:     e.integer("BATCH_CHUNK_SIZE", d.Batch.ChunkSize),
			JobRepository: e.str("BATCH_JOB_REPOSITORY", d.Batch.JobRepository),
		},

		Agent: AgentConfig{
			Concurrency: e.integer("AGENT_CONCURRENCY", d.Agent.Concurrency),
			FailFast:    e.boolean("AGENT_FAIL_FAST", d.Agent.FailFast),
			Timeout:     e.duration("AGENT_TIMEOUT", d.Agent.Timeout),
		},

		Observability: ObservabilityConfig{
			PushgatewayURL: e.str("METRICS_PUSHGATEWAY_URL", ""),
		},
	}

	if err := e.err(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}
