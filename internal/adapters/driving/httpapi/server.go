// Package httpapi exposes the conversation pipeline over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driving"
	"github.com/custodia-labs/cvscreener/internal/core/services"
	"github.com/custodia-labs/cvscreener/internal/logger"
)

// Config holds HTTP server settings.
type Config struct {
	Host           string
	Port           int
	ModelName      string
	MetricsEnabled bool

	// StrictCitations mirrors the guardrail setting for /stats reporting.
	StrictCitations bool

	// Gatherer serves /metrics. Nil selects the default prometheus gatherer.
	Gatherer prometheus.Gatherer
}

// Server answers questions over HTTP. The engine owns one conversation
// history and is not safe for concurrent queries, so the query handler
// serializes access with a mutex.
type Server struct {
	cfg      Config
	engine   driving.ConversationService
	ingester driving.IngestService
	cache    *services.ResponseCache
	log      logger.Logger

	mu     sync.Mutex
	traces *traceRing
}

// NewServer wires the handlers. ingester and cache may be nil; their /stats
// sections are omitted when they are.
func NewServer(
	cfg Config,
	engine driving.ConversationService,
	ingester driving.IngestService,
	cache *services.ResponseCache,
	log logger.Logger,
) *Server {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		cfg:      cfg,
		engine:   engine,
		ingester: ingester,
		cache:    cache,
		log:      log,
		traces:   newTraceRing(defaultTraceCap),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/query", s.handleQuery)
	router.GET("/health", s.handleHealth)
	router.GET("/stats", s.handleStats)
	if s.cfg.MetricsEnabled {
		gatherer := s.cfg.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return router
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	s.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

type queryRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     int    `json:"top_k"`
}

type sourceResponse struct {
	Title      string         `json:"title"`
	URL        string         `json:"url"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type queryMetadata struct {
	Model     string `json:"model"`
	Retrieved int    `json:"retrieved"`
	TopK      int    `json:"top_k"`
	FromCache bool   `json:"from_cache"`
}

type queryResponse struct {
	Answer   string           `json:"answer"`
	Sources  []sourceResponse `json:"sources"`
	Metadata queryMetadata    `json:"metadata"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	start := time.Now()
	s.mu.Lock()
	result, err := s.engine.Query(c.Request.Context(), req.Question, req.TopK)
	s.mu.Unlock()

	trace := PipelineTrace{
		Time:     start,
		Question: req.Question,
		Duration: time.Since(start) / time.Millisecond,
	}
	if err != nil {
		trace.Status = "error"
		s.traces.Add(trace)
		s.log.Error("query failed", "error", err)
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	trace.Status = "ok"
	trace.FromCache = result.FromCache
	trace.Retrieved = len(result.Sources)
	s.traces.Add(trace)

	c.JSON(http.StatusOK, queryResponse{
		Answer:  result.Answer,
		Sources: toSourceResponses(result.Sources),
		Metadata: queryMetadata{
			Model:     s.cfg.ModelName,
			Retrieved: len(result.Sources),
			TopK:      req.TopK,
			FromCache: result.FromCache,
		},
	})
}

func toSourceResponses(results []domain.RetrievedResult) []sourceResponse {
	out := make([]sourceResponse, 0, len(results))
	for i := range results {
		r := &results[i]
		out = append(out, sourceResponse{
			Title:      r.Title,
			URL:        r.URL,
			Content:    r.Content,
			Similarity: r.Similarity(),
			Metadata:   r.Metadata,
		})
	}
	return out
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	stats := gin.H{
		"model":       s.cfg.ModelName,
		"history_len": s.engine.HistoryLen(),
		"validator":   gin.H{"strict_citations": s.cfg.StrictCitations},
		"traces":      s.traces.Recent(),
	}

	if s.cache != nil {
		cs := s.cache.Stats()
		stats["cache"] = gin.H{
			"hits":     cs.Hits,
			"misses":   cs.Misses,
			"sets":     cs.Sets,
			"hit_rate": cs.HitRate(),
		}
	}
	if s.ingester != nil {
		if corpus, err := s.ingester.Stats(c.Request.Context()); err != nil {
			s.log.Error("corpus stats failed", "error", err)
		} else {
			stats["corpus"] = gin.H{
				"documents": corpus.Documents,
				"chunks":    corpus.Chunks,
			}
		}
	}

	c.JSON(http.StatusOK, stats)
}
