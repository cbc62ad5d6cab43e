// Package config loads marketscout configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Match     MatchConfig     `mapstructure:"match"`
	Feeds     FeedsConfig     `mapstructure:"feeds"`
	Server    ServerConfig    `mapstructure:"server"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
}

// EmbeddingConfig selects and paces the embedding provider.
type EmbeddingConfig struct {
	Provider  string     `mapstructure:"provider"` // "openai" (default) or "cohere"
	APIKey    string     `mapstructure:"api_key"`
	Model     string     `mapstructure:"model"`
	BaseURL   string     `mapstructure:"base_url"`
	BatchSize int        `mapstructure:"batch_size"`
	Rate      RateConfig `mapstructure:"rate"`
}

// RateConfig configures the governor bound to the embedding provider.
type RateConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	MinDelayMs        int `mapstructure:"min_delay_ms"`
	BaseBackoffMs     int `mapstructure:"base_backoff_ms"`
	MaxBackoffMs      int `mapstructure:"max_backoff_ms"`
	MaxRetries        int `mapstructure:"max_retries"`
}

// MinDelay returns the configured minimum inter-request spacing.
func (r RateConfig) MinDelay() time.Duration { return time.Duration(r.MinDelayMs) * time.Millisecond }

// BaseBackoff returns the first backoff delay.
func (r RateConfig) BaseBackoff() time.Duration {
	return time.Duration(r.BaseBackoffMs) * time.Millisecond
}

// MaxBackoff returns the backoff cap.
func (r RateConfig) MaxBackoff() time.Duration { return time.Duration(r.MaxBackoffMs) * time.Millisecond }

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MatchConfig struct {
	TopN             int     `mapstructure:"top_n"`
	MinSimilarity    float64 `mapstructure:"min_similarity"`
	MaxPromptMarkets int     `mapstructure:"max_prompt_markets"`
}

type FeedsConfig struct {
	URLs []string `mapstructure:"urls"`
	// Schedule is a cron expression for the watch loop.
	Schedule string `mapstructure:"schedule"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration. The error covers settings the pipeline
// cannot run without; warnings flag suspicious but workable values.
func (c *Config) Validate() (warnings []string, err error) {
	if c.Embedding.APIKey == "" {
		return nil, fmt.Errorf("embedding.api_key is required")
	}
	if c.Match.TopN <= 0 {
		return nil, fmt.Errorf("match.top_n must be positive, got %d", c.Match.TopN)
	}

	if c.Match.MinSimilarity < -1 || c.Match.MinSimilarity > 1 {
		warnings = append(warnings, fmt.Sprintf("match.min_similarity %.2f is outside [-1, 1]", c.Match.MinSimilarity))
	}
	if c.Embedding.Rate.MaxRetries < 0 {
		warnings = append(warnings, fmt.Sprintf("embedding.rate.max_retries %d is negative", c.Embedding.Rate.MaxRetries))
	}
	if c.Embedding.BatchSize > 96 {
		warnings = append(warnings, fmt.Sprintf("embedding.batch_size %d exceeds what most providers accept", c.Embedding.BatchSize))
	}
	return warnings, nil
}

// Load reads configuration from file and environment. Environment variables
// use the MARKETSCOUT_ prefix with underscores, e.g. MARKETSCOUT_EMBEDDING_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MARKETSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	warnings, err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	for _, warning := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.batch_size", 50)
	v.SetDefault("embedding.rate.requests_per_minute", 60)
	v.SetDefault("embedding.rate.min_delay_ms", 200)
	v.SetDefault("embedding.rate.base_backoff_ms", 1000)
	v.SetDefault("embedding.rate.max_backoff_ms", 30000)
	v.SetDefault("embedding.rate.max_retries", 5)
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "markets")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("match.top_n", 10)
	v.SetDefault("match.max_prompt_markets", 20)
	v.SetDefault("feeds.schedule", "*/15 * * * *")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
