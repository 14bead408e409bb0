package content

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/seoforge/seoforge/pkg/cache"
	"github.com/seoforge/seoforge/pkg/observability"
	"github.com/seoforge/seoforge/pkg/retry"
)

// ErrGenerationUnavailable is returned when the completion backend is down
// or the circuit breaker is open and no cached response exists.
var ErrGenerationUnavailable = errors.New("content generation unavailable")

// ErrInvalidPrompt rejects empty or oversized prompts before any backend call
var ErrInvalidPrompt = errors.New("invalid prompt")

const maxPromptBytes = 32 * 1024

// CompletionClient is the minimal surface the generator needs from an LLM
// backend. Implementations are expected to be safe for concurrent use.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is a single completion call
type CompletionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

// CompletionResponse is the backend's answer plus accounting metadata
type CompletionResponse struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	TokensUsed   int    `json:"tokensUsed"`
	FinishReason string `json:"finishReason"`
}

// Config configures the generator
type Config struct {
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	BreakerName string        `mapstructure:"breaker_name"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
	Retry       retry.Config  `mapstructure:"retry"`
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o-mini",
		MaxTokens:   1024,
		Temperature: 0.7,
		BreakerName: "openai",
		OpenTimeout: 30 * time.Second,
		Retry:       retry.DefaultConfig(),
	}
}

// Generator produces AI content through a cache-aside layer: identical
// prompt+model pairs within the TTL are served from cache without touching
// the backend. Backend calls go through a circuit breaker and the shared
// retry policy so a flapping LLM API cannot stall every request.
type Generator struct {
	client  CompletionClient
	facade  *cache.Facade
	breaker *gobreaker.CircuitBreaker
	retry   *retry.Policy
	cfg     Config
	logger  observability.Logger
	metrics observability.MetricsClient
}

// NewGenerator creates a generator over the given completion client
func NewGenerator(client CompletionClient, facade *cache.Facade, cfg Config,
	logger observability.Logger, metrics observability.MetricsClient) *Generator {

	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultConfig().OpenTimeout
	}
	if cfg.BreakerName == "" {
		cfg.BreakerName = DefaultConfig().BreakerName
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.BreakerName,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("completion breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return &Generator{
		client:  client,
		facade:  facade,
		breaker: breaker,
		retry:   retry.New(cfg.Retry),
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// BreakerState exposes the breaker for health reporting
func (g *Generator) BreakerState() string {
	return g.breaker.State().String()
}

// Generate returns a completion for the prompt, serving repeats from the AI
// response cache. Failed generations are never cached.
func (g *Generator) Generate(ctx context.Context, prompt string) (*CompletionResponse, error) {
	if prompt == "" || len(prompt) > maxPromptBytes {
		return nil, errors.Wrap(ErrInvalidPrompt, "prompt must be non-empty and under 32KiB")
	}

	var cached CompletionResponse
	if g.facade.GetAIResponse(ctx, prompt, g.cfg.Model, &cached) {
		g.logger.Debug("ai response cache hit", map[string]interface{}{
			"model": g.cfg.Model,
		})
		return &cached, nil
	}

	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		var resp *CompletionResponse
		execErr := g.retry.Execute(ctx, func(ctx context.Context) error {
			r, err := g.client.Complete(ctx, CompletionRequest{
				Model:       g.cfg.Model,
				Prompt:      prompt,
				MaxTokens:   g.cfg.MaxTokens,
				Temperature: g.cfg.Temperature,
			})
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if execErr != nil {
			return nil, execErr
		}
		return resp, nil
	})
	duration := time.Since(start).Seconds()

	if err != nil {
		g.metrics.RecordProviderOperation("openai", false, duration)
		g.logger.Warn("content generation failed", map[string]interface{}{
			"model": g.cfg.Model,
			"error": err.Error(),
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Wrap(ErrGenerationUnavailable, "circuit breaker open")
		}
		return nil, errors.Wrap(err, "completion backend")
	}

	resp := result.(*CompletionResponse)
	g.metrics.RecordProviderOperation("openai", true, duration)
	g.facade.SetAIResponse(ctx, prompt, g.cfg.Model, resp)
	return resp, nil
}
