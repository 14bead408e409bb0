// Package config loads the subsystem configuration from YAML files and
// environment variables. Environment variables use the SEOFORGE_ prefix with
// underscores for nesting, e.g. SEOFORGE_CACHE_REDIS_ADDRESS.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/seoforge/seoforge/pkg/cache"
	"github.com/seoforge/seoforge/pkg/content"
	"github.com/seoforge/seoforge/pkg/observability"
	"github.com/seoforge/seoforge/pkg/ratelimit"
	"github.com/seoforge/seoforge/pkg/serp"
)

// APIConfig configures the HTTP server
type APIConfig struct {
	ListenAddress   string        `mapstructure:"listen_address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableMetrics   bool          `mapstructure:"enable_metrics"`
}

// ProviderKeys holds the SERP provider credentials
type ProviderKeys struct {
	Serper      string `mapstructure:"serper_api_key"`
	SerpAPI     string `mapstructure:"serpapi_api_key"`
	ScrapingBee string `mapstructure:"scrapingbee_api_key"`
}

// SERPConfig combines orchestrator tuning with provider credentials
type SERPConfig struct {
	serp.Config `mapstructure:",squash"`
	Keys        ProviderKeys `mapstructure:"keys"`
}

// OpenAIConfig combines generator tuning with the backend credential
type OpenAIConfig struct {
	content.Config `mapstructure:",squash"`
	APIKey         string `mapstructure:"api_key"`
	Enabled        bool   `mapstructure:"enabled"`
}

// Config is the root configuration
type Config struct {
	API       APIConfig                   `mapstructure:"api"`
	Cache     cache.StoreConfig           `mapstructure:"cache"`
	SERP      SERPConfig                  `mapstructure:"serp"`
	RateLimit ratelimit.Config            `mapstructure:"rate_limit"`
	OpenAI    OpenAIConfig                `mapstructure:"openai"`
	Logging   observability.LoggingConfig `mapstructure:"logging"`
	Metrics   observability.MetricsConfig `mapstructure:"metrics"`
}

// Load reads configuration from the given file and the environment. An
// empty path skips file loading entirely; an explicitly named file that
// cannot be read is an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SEOFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.listen_address", ":8080")
	v.SetDefault("api.read_timeout", "30s")
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.shutdown_timeout", "10s")
	v.SetDefault("api.enable_metrics", true)

	v.SetDefault("cache.namespace", cache.DefaultNamespace)
	v.SetDefault("cache.max_memory_items", 10000)
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	v.SetDefault("serp.provider_timeout", "15s")
	v.SetDefault("serp.probe_cooldown", "5m")
	v.SetDefault("serp.retry.max_attempts", 3)
	v.SetDefault("serp.retry.initial_interval", "200ms")
	v.SetDefault("serp.retry.max_interval", "5s")
	v.SetDefault("serp.retry.multiplier", 2.0)

	v.SetDefault("rate_limit.default_limit", 100)
	v.SetDefault("rate_limit.window_size", "1m")

	v.SetDefault("openai.enabled", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1024)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.open_timeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "seoforge")
}

// Validate rejects configurations that cannot produce a working server
func (c *Config) Validate() error {
	if c.API.ListenAddress == "" {
		return errors.New("api.listen_address is required")
	}
	if c.RateLimit.DefaultLimit <= 0 {
		return errors.New("rate_limit.default_limit must be positive")
	}
	if c.RateLimit.WindowSize <= 0 {
		return errors.New("rate_limit.window_size must be positive")
	}
	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return errors.New("openai.api_key is required when openai.enabled is true")
	}
	return nil
}

// ConfiguredProviders returns the set of SERP providers that have
// credentials, in failover priority order.
func (c *Config) ConfiguredProviders() []serp.ID {
	var ids []serp.ID
	if c.SERP.Keys.Serper != "" {
		ids = append(ids, serp.ProviderSerper)
	}
	if c.SERP.Keys.SerpAPI != "" {
		ids = append(ids, serp.ProviderSerpAPI)
	}
	if c.SERP.Keys.ScrapingBee != "" {
		ids = append(ids, serp.ProviderScrapingBee)
	}
	return ids
}
