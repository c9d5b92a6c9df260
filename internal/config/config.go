// Package config loads application configuration from environment variables.
// A .env file is honoured when present (godotenv), matching the deployment
// layout where the API and the ingestion job share one environment file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the environment does not override them.
const (
	DefaultModelName      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultTopK           = 5
	DefaultMaxHistory     = 10
	DefaultHybridTopK     = 20
	DefaultHybridAlpha    = 0.5
	DefaultCacheTTL       = time.Hour
	DefaultPort           = 8000
	DefaultFeedDir        = "./feed"
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultEmbedBatchSize = 100
)

// Config holds all application settings.
type Config struct {
	// Core API configuration.
	OpenAIAPIKey string
	DatabaseURL  string

	// Model configuration.
	ModelName      string
	EmbeddingModel string
	Temperature    float64
	MaxTokens      int

	// Application settings.
	Port     int
	LogLevel string
	LogJSON  bool

	// RAG configuration.
	MaxHistory int
	TopK       int

	// Hybrid retrieval configuration.
	HybridEnabled bool
	HybridTopK    int
	HybridAlpha   float64

	// Guardrail configuration.
	StrictCitations bool

	// Cache configuration.
	CacheEnabled bool
	CacheTTL     time.Duration
	RedisURL     string

	// Metrics configuration.
	MetricsEnabled bool

	// Ingestion configuration.
	FeedDir        string
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ModelName:       envString("APP_MODEL_NAME", DefaultModelName),
		EmbeddingModel:  envString("EMBEDDING_MODEL", DefaultEmbeddingModel),
		Temperature:     envFloat("APP_TEMPERATURE", 0.7),
		MaxTokens:       envInt("APP_MAX_TOKENS", 1000),
		Port:            envInt("APP_PORT", DefaultPort),
		LogLevel:        envString("APP_LOG_LEVEL", "info"),
		LogJSON:         envBool("APP_LOG_JSON", false),
		MaxHistory:      envInt("APP_MAX_HISTORY", DefaultMaxHistory),
		TopK:            envInt("APP_TOP_K_RESULTS", DefaultTopK),
		HybridEnabled:   envBool("RERANK_ENABLED", true),
		HybridTopK:      envInt("RERANK_TOP_K", DefaultHybridTopK),
		HybridAlpha:     envFloat("RERANK_ALPHA", DefaultHybridAlpha),
		StrictCitations: envBool("GUARDRAIL_STRICT_CITATIONS", false),
		CacheEnabled:    envBool("CACHE_ENABLED", true),
		CacheTTL:        time.Duration(envInt("CACHE_TTL", int(DefaultCacheTTL.Seconds()))) * time.Second,
		RedisURL:        os.Getenv("REDIS_URL"),
		MetricsEnabled:  envBool("METRICS_ENABLED", true),
		FeedDir:         envString("FEED_DIR", DefaultFeedDir),
		ChunkSize:       envInt("CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap:    envInt("CHUNK_OVERLAP", DefaultChunkOverlap),
		EmbedBatchSize:  envInt("EMBED_BATCH_SIZE", DefaultEmbedBatchSize),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and aggregates all problems into one error.
func (c *Config) Validate() error {
	var problems []string

	if c.OpenAIAPIKey == "" {
		problems = append(problems, "OPENAI_API_KEY is required")
	}
	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("APP_PORT must be between 1 and 65535 (got %d)", c.Port))
	}
	if c.MaxHistory < 0 {
		problems = append(problems, fmt.Sprintf("APP_MAX_HISTORY must be non-negative (got %d)", c.MaxHistory))
	}
	if c.TopK <= 0 {
		problems = append(problems, fmt.Sprintf("APP_TOP_K_RESULTS must be positive (got %d)", c.TopK))
	}
	if c.HybridTopK <= 0 {
		problems = append(problems, fmt.Sprintf("RERANK_TOP_K must be positive (got %d)", c.HybridTopK))
	}
	if c.HybridAlpha < 0 || c.HybridAlpha > 1 {
		problems = append(problems, fmt.Sprintf("RERANK_ALPHA must be in [0,1] (got %g)", c.HybridAlpha))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("APP_TEMPERATURE must be between 0 and 2 (got %g)", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		problems = append(problems, fmt.Sprintf("APP_MAX_TOKENS must be positive (got %d)", c.MaxTokens))
	}
	if c.CacheEnabled && c.CacheTTL <= 0 {
		problems = append(problems, fmt.Sprintf("CACHE_TTL must be positive when cache is enabled (got %s)", c.CacheTTL))
	}
	if c.ChunkSize <= 0 {
		problems = append(problems, fmt.Sprintf("CHUNK_SIZE must be positive (got %d)", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 {
		problems = append(problems, fmt.Sprintf("CHUNK_OVERLAP must be non-negative (got %d)", c.ChunkOverlap))
	}
	if c.EmbedBatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("EMBED_BATCH_SIZE must be positive (got %d)", c.EmbedBatchSize))
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed:\n  " + strings.Join(problems, "\n  "))
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1"
}
