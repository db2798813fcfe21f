// Package embedding maps text to fixed-length semantic vectors. The cache
// treats the model as an opaque function; any provider producing
// consistent-dimension vectors across calls is compatible.
package embedding

import (
	"context"
	"fmt"
	"os"

	"github.com/semcache-mcp/internal/config"
	"github.com/semcache-mcp/internal/logger"
)

// Service generates a fixed-dimensionality embedding vector for a text
type Service interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

// NewFromConfig selects an embedding provider based on configuration. The
// OpenAI provider requires an API key; without one it falls back to the
// deterministic mock so the server stays usable for local development.
func NewFromConfig(cfg config.EmbeddingConfig, log *logger.Logger) (Service, error) {
	switch cfg.Provider {
	case "openai":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			log.Warn("OpenAI provider selected but OPENAI_API_KEY not set - using mock embedding service")
			return NewMockService(), nil
		}
		return NewOpenAIService(apiKey, cfg.Model), nil
	case "mock":
		return NewMockService(), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
