// Command cvscreener is the entry point for the resume screening service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/cvscreener/internal/adapters/driven/cache"
	"github.com/custodia-labs/cvscreener/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/cvscreener/internal/adapters/driven/lexical"
	llmopenai "github.com/custodia-labs/cvscreener/internal/adapters/driven/llm/openai"
	pdfloader "github.com/custodia-labs/cvscreener/internal/adapters/driven/loader/pdf"
	"github.com/custodia-labs/cvscreener/internal/adapters/driven/metrics"
	"github.com/custodia-labs/cvscreener/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/cvscreener/internal/adapters/driving/cli"
	"github.com/custodia-labs/cvscreener/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/cvscreener/internal/chunker"
	"github.com/custodia-labs/cvscreener/internal/config"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
	"github.com/custodia-labs/cvscreener/internal/core/services"
	"github.com/custodia-labs/cvscreener/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	logger.SetDefault(log)

	ctx := context.Background()

	embedder, err := openai.NewEmbeddingService(openai.Config{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}

	completer, err := llmopenai.NewCompletionService(llmopenai.Config{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.ModelName,
	})
	if err != nil {
		return fmt.Errorf("completion service: %w", err)
	}

	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:        cfg.DatabaseURL,
		Dimensions: embedder.Dimensions(),
	})
	if err != nil {
		return fmt.Errorf("document store: %w", err)
	}
	defer store.Close()

	var lexIndex driven.LexicalIndex
	if cfg.HybridEnabled {
		lexIndex = lexical.NewBM25Index(store)
	}

	var promMetrics *metrics.PrometheusMetrics
	var engineMetrics driven.Metrics
	if cfg.MetricsEnabled {
		promMetrics = metrics.NewPrometheusMetrics(nil)
		engineMetrics = promMetrics
	}

	var responseCache *services.ResponseCache
	if cfg.CacheEnabled {
		backend, err := cacheBackend(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("cache backend: %w", err)
		}
		responseCache = services.NewResponseCache(backend, cfg.CacheTTL, log)
	}

	retriever := services.NewHybridRetriever(embedder, store, lexIndex, store, services.RetrieverConfig{
		TopK:        cfg.TopK,
		TopKVector:  cfg.HybridTopK,
		TopKLexical: cfg.HybridTopK,
		Alpha:       cfg.HybridAlpha,
	}, log)

	engine := services.NewConversationEngine(
		retriever,
		completer,
		services.NewPromptBuilder(true),
		services.NewGuardrailValidator(services.GuardrailConfig{StrictCitations: cfg.StrictCitations}),
		responseCache,
		engineMetrics,
		services.EngineConfig{
			TopK:        cfg.TopK,
			MaxHistory:  cfg.MaxHistory,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
		log,
	)

	loader := pdfloader.NewLoader(cfg.FeedDir, log)
	splitter := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)
	ingester := services.NewIngester(loader, splitter, embedder, store, lexIndex, services.IngestConfig{
		EmbedBatchSize: cfg.EmbedBatchSize,
	}, log)

	server := httpapi.NewServer(httpapi.Config{
		Port:            cfg.Port,
		ModelName:       cfg.ModelName,
		MetricsEnabled:  cfg.MetricsEnabled,
		StrictCitations: cfg.StrictCitations,
		Gatherer:        prometheus.DefaultGatherer,
	}, engine, ingester, responseCache, log)

	cli.SetServices(engine, ingester, server)
	return cli.Execute()
}

func cacheBackend(ctx context.Context, cfg *config.Config, log logger.Logger) (driven.CacheBackend, error) {
	if cfg.RedisURL == "" {
		log.Info("using in-memory response cache")
		return cache.NewMemoryBackend(), nil
	}
	backend, err := cache.NewRedisBackend(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Info("using redis response cache")
	return backend, nil
}
