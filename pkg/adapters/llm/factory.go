package llm

import (
	"fmt"

	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	"github.com/Thomasbjerke/IngestionBaard/pkg/adapters/llm/anthropic"
	"go.uber.org/zap"
)

// Config holds LLM client configuration
type Config struct {
	Provider string
	Tokens   ports.TokenSource
	Metrics  ports.MetricsCollector
	Logger   *zap.Logger
}

// NewClient creates a new LLM client based on provider
func NewClient(cfg *Config) (ports.LLMClient, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewClient(cfg.Tokens, cfg.Metrics, cfg.Logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
