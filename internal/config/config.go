package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Redis     RedisConfig     `json:"redis"`
	Embedding EmbeddingConfig `json:"embedding"`
	Cache     CacheConfig     `json:"cache"`
}

// RedisConfig holds connection parameters for the record store
type RedisConfig struct {
	Addr           string `json:"addr" env:"SEMCACHE_REDIS_ADDR"`
	Username       string `json:"username" env:"SEMCACHE_REDIS_USERNAME"`
	Password       string `json:"password" env:"SEMCACHE_REDIS_PASSWORD"`
	DB             int    `json:"db" env:"SEMCACHE_REDIS_DB"`
	TLS            bool   `json:"tls" env:"SEMCACHE_REDIS_TLS"`
	TimeoutSeconds int    `json:"timeoutSeconds" env:"SEMCACHE_REDIS_TIMEOUT_SECONDS"`
}

// Timeout returns the dial/read/write timeout as a duration
func (r RedisConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// EmbeddingConfig selects and configures the embedding provider
type EmbeddingConfig struct {
	Provider string `json:"provider" env:"SEMCACHE_EMBEDDING_PROVIDER"`
	Model    string `json:"model" env:"SEMCACHE_EMBEDDING_MODEL"`
	APIKey   string `json:"apiKey" env:"OPENAI_API_KEY"`
}

// CacheConfig holds the cache tuning knobs
type CacheConfig struct {
	SimilarityThreshold float64 `json:"similarityThreshold" env:"SEMCACHE_SIMILARITY_THRESHOLD"`
	MaxAgeSeconds       int64   `json:"maxAgeSeconds" env:"SEMCACHE_MAX_AGE_SECONDS"`
	DefaultTopK         int     `json:"defaultTopK" env:"SEMCACHE_DEFAULT_TOP_K"`
}

// LoadConfig loads configuration from environment variables and .env file.
// Precedence is: explicit options on the cache constructor > environment > JSON
// config file > defaults.
func LoadConfig() *Config {
	// Try to load .env file (fail silently if not found)
	_ = godotenv.Load()

	config := &Config{
		Redis: RedisConfig{
			Addr:           getEnv("SEMCACHE_REDIS_ADDR", "localhost:6379"),
			Username:       getEnv("SEMCACHE_REDIS_USERNAME", ""),
			Password:       getEnv("SEMCACHE_REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("SEMCACHE_REDIS_DB", 0),
			TLS:            getEnvAsBool("SEMCACHE_REDIS_TLS", false),
			TimeoutSeconds: getEnvAsInt("SEMCACHE_REDIS_TIMEOUT_SECONDS", 5),
		},
		Embedding: EmbeddingConfig{
			Provider: getEnv("SEMCACHE_EMBEDDING_PROVIDER", "openai"),
			Model:    getEnv("SEMCACHE_EMBEDDING_MODEL", "text-embedding-3-small"),
			APIKey:   getEnv("OPENAI_API_KEY", ""),
		},
		Cache: CacheConfig{
			SimilarityThreshold: getEnvAsFloat("SEMCACHE_SIMILARITY_THRESHOLD", 0.8),
			MaxAgeSeconds:       getEnvAsInt64("SEMCACHE_MAX_AGE_SECONDS", 86400),
			DefaultTopK:         getEnvAsInt("SEMCACHE_DEFAULT_TOP_K", 1),
		},
	}

	return config
}

// LoadJSONConfig overlays values from a JSON config file onto cfg. Environment
// variables win: only fields the environment left at their defaults are
// replaced. Returns an error if no config file is found.
func LoadJSONConfig(cfg *Config, paths ...string) error {
	if len(paths) == 0 {
		paths = []string{"config.json", "/etc/semcache-mcp/config.json"}
	}

	var configFile []byte
	var err error
	for _, path := range paths {
		configFile, err = os.ReadFile(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("could not find config file in any location: %w", err)
	}

	var jsonConfig Config
	if err := json.Unmarshal(configFile, &jsonConfig); err != nil {
		return fmt.Errorf("failed to parse JSON config: %w", err)
	}

	if cfg.Redis.Addr == "localhost:6379" && jsonConfig.Redis.Addr != "" {
		cfg.Redis.Addr = jsonConfig.Redis.Addr
	}
	if cfg.Redis.Username == "" && jsonConfig.Redis.Username != "" {
		cfg.Redis.Username = jsonConfig.Redis.Username
	}
	if cfg.Redis.Password == "" && jsonConfig.Redis.Password != "" {
		cfg.Redis.Password = jsonConfig.Redis.Password
	}
	if cfg.Embedding.APIKey == "" && jsonConfig.Embedding.APIKey != "" {
		cfg.Embedding.APIKey = jsonConfig.Embedding.APIKey
	}
	if jsonConfig.Cache.SimilarityThreshold > 0 && os.Getenv("SEMCACHE_SIMILARITY_THRESHOLD") == "" {
		cfg.Cache.SimilarityThreshold = jsonConfig.Cache.SimilarityThreshold
	}
	if jsonConfig.Cache.MaxAgeSeconds > 0 && os.Getenv("SEMCACHE_MAX_AGE_SECONDS") == "" {
		cfg.Cache.MaxAgeSeconds = jsonConfig.Cache.MaxAgeSeconds
	}

	return nil
}

// Helper function to get environment variable with default
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as int with default
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Helper function to get environment variable as int64 with default
func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Helper function to get environment variable as bool with default
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		lowerValue := strings.ToLower(strings.TrimSpace(value))
		return lowerValue == "true" || lowerValue == "1" || lowerValue == "yes" || lowerValue == "on"
	}
	return defaultValue
}

// Helper function to get environment variable as float with default
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
