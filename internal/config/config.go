// Package config loads the moderator service settings from an optional
// moderator.yaml and the environment. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service settings.
type Config struct {
	NATSURL         string        `mapstructure:"NATS_URL"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	MetricsAddr     string        `mapstructure:"METRICS_ADDR"`
	WorkerPoolSize  int           `mapstructure:"WORKER_POOL_SIZE"`
	WorkerQueueSize int           `mapstructure:"WORKER_QUEUE_SIZE"`
	CorpusLimit     int           `mapstructure:"CORPUS_LIMIT"`
	CorpusCacheTTL  time.Duration `mapstructure:"CORPUS_CACHE_TTL"`
	VelocityWindow  time.Duration `mapstructure:"VELOCITY_WINDOW"`
	AIProvider      string        `mapstructure:"AI_PROVIDER"` // "openai", "gemini" or empty
	AITimeout       time.Duration `mapstructure:"AI_TIMEOUT"`
	OpenAIAPIKey    string        `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKey    string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel     string        `mapstructure:"GEMINI_MODEL"`
	LexiconPath     string        `mapstructure:"LEXICON_PATH"`
}

var defaults = map[string]any{
	"NATS_URL":          "nats://localhost:4222",
	"REDIS_ADDR":        "localhost:6379",
	"DATABASE_URL":      "postgres://localhost:5432/testimonials?sslmode=disable",
	"METRICS_ADDR":      ":9102",
	"WORKER_POOL_SIZE":  8,
	"WORKER_QUEUE_SIZE": 512,
	"CORPUS_LIMIT":      200,
	"CORPUS_CACHE_TTL":  5 * time.Minute,
	"VELOCITY_WINDOW":   24 * time.Hour,
	"AI_PROVIDER":       "",
	"AI_TIMEOUT":        5 * time.Second,
	"OPENAI_API_KEY":    "",
	"GEMINI_API_KEY":    "",
	"GEMINI_MODEL":      "gemini-1.5-flash",
	"LEXICON_PATH":      "",
}

// Load reads moderator.yaml from the given directories (if present) and
// overlays the environment.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName("moderator")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AutomaticEnv()

	if len(paths) > 0 {
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.AIProvider = strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.AIProvider {
	case "":
	case "openai":
		if c.OpenAIAPIKey == "" {
			return errors.New("config: AI_PROVIDER=openai requires OPENAI_API_KEY")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("config: AI_PROVIDER=gemini requires GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("config: unknown AI_PROVIDER %q", c.AIProvider)
	}
	if c.WorkerPoolSize <= 0 || c.WorkerQueueSize <= 0 {
		return errors.New("config: worker pool and queue sizes must be positive")
	}
	return nil
}
