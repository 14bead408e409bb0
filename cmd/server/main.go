// Command server runs the SERP data-retrieval and caching service.
//
// Everything is constructed here and injected downward; no package holds
// global state, so tests can assemble any subset of the system.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seoforge/seoforge/internal/api"
	"github.com/seoforge/seoforge/pkg/cache"
	"github.com/seoforge/seoforge/pkg/common/config"
	"github.com/seoforge/seoforge/pkg/content"
	"github.com/seoforge/seoforge/pkg/health"
	"github.com/seoforge/seoforge/pkg/observability"
	"github.com/seoforge/seoforge/pkg/ratelimit"
	"github.com/seoforge/seoforge/pkg/serp"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewStandardLoggerWithLevel("server", observability.ParseLogLevel(cfg.Logging.Level))

	var metrics observability.MetricsClient
	if cfg.Metrics.Enabled {
		metrics = observability.NewPrometheusMetricsClient(cfg.Metrics.Namespace)
	} else {
		metrics = observability.NewNoopMetricsClient()
	}

	store, err := cache.NewStore(cfg.Cache, logger, metrics)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	facade := cache.NewFacade(store)
	limiter := ratelimit.NewLimiter(store, cfg.RateLimit, logger, metrics)

	httpClient := &http.Client{Timeout: cfg.SERP.ProviderTimeout + 5*time.Second}
	providers := buildProviders(cfg, httpClient)
	if len(providers) == 0 {
		logger.Warn("no SERP provider credentials configured, analysis requests will fail", nil)
	}
	orchestrator := serp.NewOrchestrator(providers, facade, cfg.SERP.Config, logger, metrics)

	var generator *content.Generator
	var breaker health.BreakerStater
	if cfg.OpenAI.Enabled {
		client := content.NewOpenAIClient(cfg.OpenAI.APIKey, httpClient)
		generator = content.NewGenerator(client, facade, cfg.OpenAI.Config, logger, metrics)
		breaker = generator
	}

	reporter := health.NewReporter(store, orchestrator.Tracker(), breaker)

	server := api.NewServer(cfg.API, api.Deps{
		Store:        store,
		Facade:       facade,
		Limiter:      limiter,
		Orchestrator: orchestrator,
		Generator:    generator,
		Reporter:     reporter,
		Logger:       logger,
		Metrics:      metrics,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server", map[string]interface{}{
		"address":   cfg.API.ListenAddress,
		"providers": len(providers),
		"redis":     !cfg.Cache.DisableRedis,
	})
	return server.Start(ctx)
}

func buildProviders(cfg *config.Config, httpClient *http.Client) []serp.Provider {
	var providers []serp.Provider
	for _, id := range cfg.ConfiguredProviders() {
		switch id {
		case serp.ProviderSerper:
			providers = append(providers, serp.NewSerperClient(cfg.SERP.Keys.Serper, httpClient))
		case serp.ProviderSerpAPI:
			providers = append(providers, serp.NewSerpAPIClient(cfg.SERP.Keys.SerpAPI, httpClient))
		case serp.ProviderScrapingBee:
			providers = append(providers, serp.NewScrapingBeeClient(cfg.SERP.Keys.ScrapingBee, httpClient))
		}
	}
	return providers
}
