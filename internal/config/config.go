package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the IngestionBaard backend
type Config struct {
	// Server configuration
	HTTPPort int    `env:"BAARD_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"BAARD_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis configuration
	Redis RedisConfig

	// LLM configuration
	LLM LLMConfig

	// Search index configuration
	Search SearchConfig

	// Blob storage configuration
	Storage StorageConfig

	// Ingestion worker configuration
	Ingest IngestConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"LLM_API_KEY"`

	RequestTimeout time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"120s"`

	// Default model settings
	DefaultModel       string  `env:"LLM_DEFAULT_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	DefaultTemperature float64 `env:"LLM_DEFAULT_TEMPERATURE" envDefault:"0.3"`
	DefaultMaxTokens   int     `env:"LLM_DEFAULT_MAX_TOKENS" envDefault:"1024"`

	// Token refresh window before expiry
	TokenRefreshSkew time.Duration `env:"LLM_TOKEN_REFRESH_SKEW" envDefault:"60s"`
}

// SearchConfig holds search index configuration
type SearchConfig struct {
	IndexName string `env:"SEARCH_INDEX" envDefault:"gptkbindex"`

	// Knowledge base field names used when building prompts
	FieldContent    string `env:"KB_FIELDS_CONTENT" envDefault:"content"`
	FieldCategory   string `env:"KB_FIELDS_CATEGORY" envDefault:"category"`
	FieldSourcePage string `env:"KB_FIELDS_SOURCEPAGE" envDefault:"sourcepage"`

	// Default number of sections retrieved per query
	DefaultTop int `env:"SEARCH_DEFAULT_TOP" envDefault:"3"`
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	Container string `env:"STORAGE_CONTAINER" envDefault:"content"`
}

// IngestConfig holds ingestion worker pool configuration
type IngestConfig struct {
	PoolSize            int           `env:"INGEST_POOL_SIZE" envDefault:"3"`
	ChunkSize           int           `env:"INGEST_CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap        int           `env:"INGEST_CHUNK_OVERLAP" envDefault:"100"`
	HealthCheckInterval time.Duration `env:"INGEST_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ApproachTimeout time.Duration `env:"TIMEOUT_APPROACH" envDefault:"300s"`
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	// Validate LLM config
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required")
	}
	if c.LLM.Provider != "anthropic" {
		return fmt.Errorf("unsupported LLM provider: %s (only 'anthropic' is supported)", c.LLM.Provider)
	}

	// Validate search config
	if c.Search.IndexName == "" {
		return fmt.Errorf("search index name is required")
	}
	if c.Search.DefaultTop < 1 {
		return fmt.Errorf("search default top must be at least 1")
	}

	// Validate ingest config
	if c.Ingest.PoolSize < 1 {
		return fmt.Errorf("ingest pool size must be at least 1")
	}
	if c.Ingest.ChunkSize < 1 {
		return fmt.Errorf("ingest chunk size must be at least 1")
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest chunk overlap must be in [0, chunk size)")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
