// Package api exposes the retrieval and caching subsystem over HTTP: SERP
// analysis, content generation, cache administration and health reporting.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seoforge/seoforge/pkg/cache"
	"github.com/seoforge/seoforge/pkg/common/config"
	"github.com/seoforge/seoforge/pkg/content"
	"github.com/seoforge/seoforge/pkg/health"
	"github.com/seoforge/seoforge/pkg/observability"
	"github.com/seoforge/seoforge/pkg/ratelimit"
	"github.com/seoforge/seoforge/pkg/serp"
)

// Deps are the components the server serves. Generator may be nil when
// content generation is disabled.
type Deps struct {
	Store        *cache.Store
	Facade       *cache.Facade
	Limiter      *ratelimit.Limiter
	Orchestrator *serp.Orchestrator
	Generator    *content.Generator
	Reporter     *health.Reporter
	Logger       observability.Logger
	Metrics      observability.MetricsClient
}

// Server is the HTTP front of the subsystem
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        config.APIConfig
	deps       Deps
}

// NewServer wires routes and middleware. It does not start listening.
func NewServer(cfg config.APIConfig, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router: router,
		cfg:    cfg,
		deps:   deps,
		httpServer: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	s.registerRoutes()
	return s
}

// Router exposes the handler for tests
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Use(RequestIDMiddleware())
	s.router.Use(RequestLoggingMiddleware(s.deps.Logger))

	// Probes stay outside rate limiting so orchestration platforms are
	// never throttled away from them.
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/healthz", s.handleLiveness)
	s.router.GET("/readyz", s.handleReadiness)

	if s.cfg.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	v1.Use(GlobalRateLimitMiddleware(globalRateLimitPerSecond, globalRateLimitBurst))
	v1.Use(RateLimitMiddleware(s.deps.Limiter, 0))
	{
		v1.GET("/serp/analyze", s.handleAnalyzeKeyword)
		v1.GET("/serp/compare", s.handleCompareRegions)
		v1.POST("/content/generate", s.handleGenerateContent)

		v1.PUT("/cache/competitor", s.handleStoreCompetitorAnalysis)
		v1.GET("/cache/competitor", s.handleGetCompetitorAnalysis)
		v1.PUT("/cache/scraped", s.handleStoreScrapedContent)
		v1.GET("/cache/scraped", s.handleGetScrapedContent)

		v1.GET("/cache/stats", s.handleCacheStats)
		v1.POST("/cache/stats/reset", s.handleCacheStatsReset)
		v1.DELETE("/cache/keyword/:keyword", s.handleInvalidateKeyword)
		v1.POST("/ratelimit/reset", s.handleRateLimitReset)
	}
}

// Start serves until the context is cancelled, then drains connections
// within the configured shutdown window.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("http server listening", map[string]interface{}{
			"address": s.cfg.ListenAddress,
		})
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.deps.Logger.Info("http server shutting down", nil)
	return s.httpServer.Shutdown(shutdownCtx)
}
